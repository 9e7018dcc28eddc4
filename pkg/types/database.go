package types

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/docstore/pkg/query"
)

// Database owns a registry of Tables over one connection pool. Tables are
// created on first reference. The Table methods promoted on Database act on
// the default table named by Config.DefaultTable.
type Database interface {
	// Table returns the table with the given name, creating its backing
	// relation if needed. Repeated calls return the same Table.
	Table(ctx context.Context, name string) (Table, error)

	// Tables returns the names of the tables referenced so far, sorted.
	Tables() []string

	// StoredTables returns the names of the document relations present in
	// the backing store, sorted, whether or not they were referenced.
	StoredTables(ctx context.Context) ([]string, error)

	// Close drains the connection pool. Close is idempotent; every other
	// operation returns ErrClosed afterwards.
	Close() error

	Insert(ctx context.Context, doc Document) (int64, error)
	InsertMultiple(ctx context.Context, docs []Document) ([]int64, error)
	All(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, cond query.Condition) (*Record, error)
	GetByID(ctx context.Context, id int64) (*Record, error)
	Search(ctx context.Context, cond query.Condition) ([]Record, error)
	Update(ctx context.Context, fields Document, cond query.Condition) ([]int64, error)
	UpdateIDs(ctx context.Context, fields Document, ids []int64) ([]int64, error)
	Remove(ctx context.Context, cond query.Condition) ([]int64, error)
	RemoveIDs(ctx context.Context, ids []int64) ([]int64, error)
	Count(ctx context.Context, cond query.Condition) (int, error)
	Contains(ctx context.Context, cond query.Condition) (bool, error)
	Truncate(ctx context.Context) error
}

// Database lifecycle errors.
var (
	ErrClosed = errors.New("database is closed")
)
