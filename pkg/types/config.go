package types

import (
	"errors"
	"time"
)

// Config holds the connection descriptor and pool parameters for Open.
type Config struct {
	// URI identifies the backing relational store, for example
	// "sqlite:///var/lib/docstore/mail.db" or "postgres://user:pw@host/db".
	URI string `json:"database_url" yaml:"database_url" mapstructure:"database_url"`

	// PoolMin connections are opened and pinged at Open.
	PoolMin int `json:"pool_min" yaml:"pool_min" mapstructure:"pool_min"`

	// PoolMax bounds concurrently borrowed connections.
	PoolMax int `json:"pool_max" yaml:"pool_max" mapstructure:"pool_max"`

	// BorrowTimeout bounds the wait for a connection when the pool is
	// exhausted. Zero waits until the caller's context is done.
	BorrowTimeout time.Duration `json:"borrow_timeout" yaml:"borrow_timeout" mapstructure:"borrow_timeout"`

	// DefaultTable backs the Database pass-through methods.
	DefaultTable string `json:"default_table" yaml:"default_table" mapstructure:"default_table"`
}

// Defaults applied by WithDefaults.
const (
	DefaultPoolMin       = 1
	DefaultPoolMax       = 20
	DefaultTableName     = "_default"
	DefaultBorrowTimeout = 30 * time.Second
)

// Config validation errors. All of them are fatal at construction.
var (
	ErrMissingDescriptor = errors.New("connection descriptor must not be empty")
	ErrInvalidDescriptor = errors.New("invalid connection descriptor")
	ErrInvalidPoolSize   = errors.New("invalid pool size")
)

// WithDefaults returns a copy of c with zero pool sizes, timeout and default
// table filled in.
func (c Config) WithDefaults() Config {
	if c.PoolMin == 0 {
		c.PoolMin = DefaultPoolMin
	}
	if c.PoolMax == 0 {
		c.PoolMax = DefaultPoolMax
	}
	if c.BorrowTimeout == 0 {
		c.BorrowTimeout = DefaultBorrowTimeout
	}
	if c.DefaultTable == "" {
		c.DefaultTable = DefaultTableName
	}
	return c
}

// Validate checks that the Config is well-formed. It does not parse the
// descriptor beyond checking it is present; the backend rejects unknown
// schemes with ErrInvalidDescriptor.
func (c Config) Validate() error {
	if c.URI == "" {
		return ErrMissingDescriptor
	}
	if c.PoolMin < 0 || c.PoolMax < 1 || c.PoolMin > c.PoolMax {
		return ErrInvalidPoolSize
	}
	if c.BorrowTimeout < 0 {
		return ErrInvalidPoolSize
	}
	if c.DefaultTable != "" && !ValidTableName(c.DefaultTable) {
		return ErrInvalidName
	}
	return nil
}
