package pool

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testDB(t *testing.T, dir ...string) *sql.DB {
	t.Helper()
	path := filepath.Join(append([]string{t.TempDir()}, append(dir, "pool.db")...)...)
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)
	return db
}

func newTestPool(t *testing.T, opts Options) *Pool {
	t.Helper()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := New(context.Background(), testDB(t), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestNew_InvalidSize(t *testing.T) {
	for _, opts := range []Options{
		{Min: 0, Max: 0},
		{Min: -1, Max: 2},
		{Min: 3, Max: 2},
	} {
		_, err := New(context.Background(), testDB(t), opts)
		assert.ErrorIs(t, err, ErrInvalidSize)
	}
}

func TestNew_MinimumUnreachable(t *testing.T) {
	db := testDB(t, "missing", "dir")
	_, err := New(context.Background(), db, Options{Min: 1, Max: 2})
	require.Error(t, err)
	assert.Error(t, db.Ping(), "db is closed after a failed New")
}

func TestNew_ZeroMinimumIsLazy(t *testing.T) {
	db := testDB(t, "missing", "dir")
	p, err := New(context.Background(), db, Options{Min: 0, Max: 1})
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Borrow(context.Background())
	require.Error(t, err)
	assert.Zero(t, p.InUse(), "a failed open gives the slot back")
}

func TestBorrowRelease(t *testing.T) {
	p := newTestPool(t, Options{Min: 1, Max: 2})
	ctx := context.Background()

	a, err := p.Borrow(ctx)
	require.NoError(t, err)
	b, err := p.Borrow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, p.InUse())
	assert.Equal(t, 2, p.Max())

	var one int
	require.NoError(t, a.Conn.QueryRowContext(ctx, "SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)

	a.Release()
	b.Release()
	assert.Zero(t, p.InUse())
}

func TestBorrow_ExhaustedTimesOut(t *testing.T) {
	p := newTestPool(t, Options{Min: 1, Max: 1, BorrowTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	held, err := p.Borrow(ctx)
	require.NoError(t, err)
	defer held.Release()

	start := time.Now()
	_, err = p.Borrow(ctx)
	require.ErrorIs(t, err, ErrExhausted)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestBorrow_WaitsForRelease(t *testing.T) {
	p := newTestPool(t, Options{Min: 1, Max: 1, BorrowTimeout: 5 * time.Second})
	ctx := context.Background()

	held, err := p.Borrow(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(20 * time.Millisecond)
		held.Release()
	}()

	next, err := p.Borrow(ctx)
	require.NoError(t, err)
	next.Release()
	wg.Wait()
}

func TestBorrow_ContextCanceled(t *testing.T) {
	p := newTestPool(t, Options{Min: 1, Max: 1, BorrowTimeout: 5 * time.Second})

	held, err := p.Borrow(context.Background())
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Borrow(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestRelease_Idempotent(t *testing.T) {
	p := newTestPool(t, Options{Min: 1, Max: 1, BorrowTimeout: 20 * time.Millisecond})
	ctx := context.Background()

	lease, err := p.Borrow(ctx)
	require.NoError(t, err)
	lease.Release()
	assert.NotPanics(t, lease.Release)
	assert.Zero(t, p.InUse())

	again, err := p.Borrow(ctx)
	require.NoError(t, err)
	defer again.Release()
	_, err = p.Borrow(ctx)
	assert.ErrorIs(t, err, ErrExhausted, "a double release does not free a second slot")
}

func TestClose(t *testing.T) {
	p := newTestPool(t, Options{Min: 1, Max: 2})

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err := p.Borrow(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose_OutstandingLease(t *testing.T) {
	p := newTestPool(t, Options{Min: 1, Max: 2})

	lease, err := p.Borrow(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.NotPanics(t, lease.Release)
	assert.Zero(t, p.InUse())
}
