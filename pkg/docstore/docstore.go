// Package docstore provides the public entry point for opening a document
// store while keeping the backend implementation internal.
package docstore

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mesh-intelligence/docstore/internal/sqlstore"
	"github.com/mesh-intelligence/docstore/pkg/types"
)

// Option configures Open.
type Option = sqlstore.Option

// WithLogger sets the logger used by the store.
func WithLogger(l *slog.Logger) Option {
	return sqlstore.WithLogger(l)
}

// WithRegisterer exports operation and pool metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return sqlstore.WithRegisterer(reg)
}

// Open connects to the store described by cfg.URI.
//
// Example:
//
//	db, err := docstore.Open(ctx, types.Config{URI: "sqlite:///var/lib/mail/docs.db"})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	emails, err := db.Table(ctx, types.EmailsTable)
func Open(ctx context.Context, cfg types.Config, opts ...Option) (types.Database, error) {
	b, err := sqlstore.Open(ctx, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Version is the docstore release, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/docstore/pkg/docstore.Version=...".
var Version = "0.1.0"
