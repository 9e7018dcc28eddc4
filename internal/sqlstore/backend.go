// Package sqlstore implements the docstore Database and Table on a relational
// backing store: SQLite through modernc.org/sqlite or PostgreSQL through pgx.
// Each logical table is one relation holding JSON payloads; queries are
// evaluated in memory with package query.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/mesh-intelligence/docstore/internal/logging"
	"github.com/mesh-intelligence/docstore/internal/pool"
	"github.com/mesh-intelligence/docstore/pkg/query"
	"github.com/mesh-intelligence/docstore/pkg/types"
)

// Backend implements types.Database. It owns the connection pool and the
// name→table registry for its whole lifetime.
type Backend struct {
	cfg     types.Config
	dialect dialect
	pool    *pool.Pool
	logger  *slog.Logger
	metrics *metrics

	mu     sync.Mutex
	tables map[string]*table
	closed atomic.Bool
}

// Open validates cfg, connects to the store named by cfg.URI and opens the
// minimum number of pooled connections. Any failure here is a configuration
// or connectivity error and is not retried.
func Open(ctx context.Context, cfg types.Config, opts ...Option) (*Backend, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, dsn, err := parseDescriptor(cfg.URI)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}
	p, err := pool.New(ctx, db, pool.Options{
		Min:           cfg.PoolMin,
		Max:           cfg.PoolMax,
		BorrowTimeout: cfg.BorrowTimeout,
		Logger:        o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", d.Name(), err)
	}

	b := &Backend{
		cfg:     cfg,
		dialect: d,
		pool:    p,
		logger:  o.logger.With(slog.String(logging.KeyDialect, d.Name())),
		tables:  make(map[string]*table),
	}
	b.metrics = newMetrics(o.registerer, func() float64 { return float64(p.InUse()) })
	b.logger.Info("database opened", "pool_min", cfg.PoolMin, "pool_max", cfg.PoolMax)
	return b, nil
}

// Table returns the named table, bootstrapping its relation on first
// reference. The registry lock is held across bootstrap, so concurrent first
// references create the relation once.
func (b *Backend) Table(ctx context.Context, name string) (types.Table, error) {
	return b.table(ctx, name)
}

func (b *Backend) table(ctx context.Context, name string) (*table, error) {
	if b.closed.Load() {
		return nil, types.ErrClosed
	}
	if !types.ValidTableName(name) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidName, name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.tables[name]; ok {
		return t, nil
	}
	t := newTable(b, name)
	if err := t.bootstrap(ctx); err != nil {
		return nil, err
	}
	b.tables[name] = t
	return t, nil
}

// Tables returns the names referenced so far, sorted.
func (b *Backend) Tables() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.tables))
	for name := range b.tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// StoredTables lists the document relations in the backing store.
func (b *Backend) StoredTables(ctx context.Context) ([]string, error) {
	lease, err := b.borrow(ctx)
	if err != nil {
		return nil, err
	}
	defer lease.Release()

	rows, err := lease.Conn.QueryContext(ctx, b.dialect.ListTables())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return names, nil
}

// Close drains the pool. Close is idempotent.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.logger.Info("database closing")
	return b.pool.Close()
}

// borrow takes a pooled connection, mapping pool closure to ErrClosed.
func (b *Backend) borrow(ctx context.Context) (*pool.Lease, error) {
	if b.closed.Load() {
		return nil, types.ErrClosed
	}
	lease, err := b.pool.Borrow(ctx)
	if errors.Is(err, pool.ErrClosed) {
		return nil, types.ErrClosed
	}
	return lease, err
}

func (b *Backend) defaultTable(ctx context.Context) (*table, error) {
	return b.table(ctx, b.cfg.DefaultTable)
}

// Pass-through methods on the default table.

func (b *Backend) Insert(ctx context.Context, doc types.Document) (int64, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return 0, err
	}
	return t.Insert(ctx, doc)
}

func (b *Backend) InsertMultiple(ctx context.Context, docs []types.Document) ([]int64, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.InsertMultiple(ctx, docs)
}

func (b *Backend) All(ctx context.Context) ([]types.Record, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.All(ctx)
}

func (b *Backend) Get(ctx context.Context, cond query.Condition) (*types.Record, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.Get(ctx, cond)
}

func (b *Backend) GetByID(ctx context.Context, id int64) (*types.Record, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.GetByID(ctx, id)
}

func (b *Backend) Search(ctx context.Context, cond query.Condition) ([]types.Record, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.Search(ctx, cond)
}

func (b *Backend) Update(ctx context.Context, fields types.Document, cond query.Condition) ([]int64, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.Update(ctx, fields, cond)
}

func (b *Backend) UpdateIDs(ctx context.Context, fields types.Document, ids []int64) ([]int64, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.UpdateIDs(ctx, fields, ids)
}

func (b *Backend) Remove(ctx context.Context, cond query.Condition) ([]int64, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.Remove(ctx, cond)
}

func (b *Backend) RemoveIDs(ctx context.Context, ids []int64) ([]int64, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.RemoveIDs(ctx, ids)
}

func (b *Backend) Count(ctx context.Context, cond query.Condition) (int, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return 0, err
	}
	return t.Count(ctx, cond)
}

func (b *Backend) Contains(ctx context.Context, cond query.Condition) (bool, error) {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return false, err
	}
	return t.Contains(ctx, cond)
}

func (b *Backend) Truncate(ctx context.Context) error {
	t, err := b.defaultTable(ctx)
	if err != nil {
		return err
	}
	return t.Truncate(ctx)
}

var _ types.Database = (*Backend)(nil)
