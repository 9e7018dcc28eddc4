// Package pool bounds the backing-store connections handed out to table
// operations. It sits on top of database/sql: the *sql.DB keeps the idle
// connections, the pool enforces the borrow limit, the borrow timeout and
// the minimum size checked at construction.
package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool errors.
var (
	ErrInvalidSize = errors.New("pool: min must be in [0, max] and max at least 1")
	ErrExhausted   = errors.New("pool: timed out waiting for a connection")
	ErrClosed      = errors.New("pool: closed")
)

// Options configures New.
type Options struct {
	Min int
	Max int

	// BorrowTimeout bounds how long Borrow waits on an exhausted pool. Zero
	// waits until the context passed to Borrow is done.
	BorrowTimeout time.Duration

	Logger *slog.Logger
}

// Pool hands out at most Max connections at a time.
type Pool struct {
	db      *sql.DB
	sem     *semaphore.Weighted
	max     int
	timeout time.Duration
	logger  *slog.Logger

	inUse  atomic.Int64
	mu     sync.RWMutex
	closed bool
}

// New configures db for opts and opens opts.Min connections, pinging each
// one. If the minimum cannot be reached the db is closed and an error is
// returned; there is no degraded mode.
func New(ctx context.Context, db *sql.DB, opts Options) (*Pool, error) {
	if opts.Max < 1 || opts.Min < 0 || opts.Min > opts.Max {
		return nil, fmt.Errorf("%w: min=%d max=%d", ErrInvalidSize, opts.Min, opts.Max)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db.SetMaxOpenConns(opts.Max)
	db.SetMaxIdleConns(opts.Max)

	conns := make([]*sql.Conn, 0, opts.Min)
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()
	for i := 0; i < opts.Min; i++ {
		c, err := db.Conn(ctx)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open connection %d of %d: %w", i+1, opts.Min, err)
		}
		conns = append(conns, c)
		if err := c.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping connection %d of %d: %w", i+1, opts.Min, err)
		}
	}
	logger.Debug("pool ready", "min", opts.Min, "max", opts.Max)

	return &Pool{
		db:      db,
		sem:     semaphore.NewWeighted(int64(opts.Max)),
		max:     opts.Max,
		timeout: opts.BorrowTimeout,
		logger:  logger,
	}, nil
}

// Lease is a borrowed connection. Release returns it; extra calls are
// no-ops.
type Lease struct {
	Conn *sql.Conn

	pool *Pool
	once sync.Once
}

// Release returns the connection to the pool.
func (l *Lease) Release() {
	l.once.Do(func() {
		if err := l.Conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			l.pool.logger.Warn("release connection", "error", err)
		}
		l.pool.inUse.Add(-1)
		l.pool.sem.Release(1)
	})
}

// Borrow takes a connection, blocking while the pool is exhausted. It fails
// with ErrExhausted once BorrowTimeout elapses and with ctx.Err() when ctx is
// done first.
func (p *Pool) Borrow(ctx context.Context) (*Lease, error) {
	if p.isClosed() {
		return nil, ErrClosed
	}

	wait := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := p.sem.Acquire(wait, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s", ErrExhausted, p.timeout)
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		p.sem.Release(1)
		if p.isClosed() {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("pool: open connection: %w", err)
	}
	p.inUse.Add(1)
	return &Lease{Conn: conn, pool: p}, nil
}

// InUse returns the number of outstanding leases.
func (p *Pool) InUse() int {
	return int(p.inUse.Load())
}

// Max returns the borrow limit.
func (p *Pool) Max() int {
	return p.max
}

// Close marks the pool closed and closes every connection. Close is
// idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.logger.Debug("pool closing", "in_use", p.InUse())
	return p.db.Close()
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}
