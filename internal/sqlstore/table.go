package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mesh-intelligence/docstore/internal/logging"
	"github.com/mesh-intelligence/docstore/pkg/query"
	"github.com/mesh-intelligence/docstore/pkg/types"
)

// deleteChunk bounds the number of ids bound into one DELETE statement.
const deleteChunk = 500

// table implements types.Table over one relation. mu serializes the
// backing-store interaction of same-process callers; it does not coordinate
// across processes.
type table struct {
	name    string
	backend *Backend
	sql     statements
	logger  *slog.Logger

	mu sync.Mutex
}

func newTable(b *Backend, name string) *table {
	return &table{
		name:    name,
		backend: b,
		sql:     newStatements(b.dialect, name),
		logger:  b.logger.With(logging.Table(name)),
	}
}

// Name returns the table name.
func (t *table) Name() string {
	return t.name
}

// run borrows a connection under the table lock, runs fn and records the
// outcome.
func (t *table) run(ctx context.Context, op string, fn func(conn *sql.Conn) error) error {
	start := time.Now()
	err := func() error {
		t.mu.Lock()
		defer t.mu.Unlock()

		lease, err := t.backend.borrow(ctx)
		if err != nil {
			return err
		}
		defer lease.Release()
		return fn(lease.Conn)
	}()
	t.backend.metrics.observe(t.name, op, start, err)
	if err != nil {
		t.logger.Debug("operation failed", logging.Operation(op), logging.Duration(time.Since(start)), logging.Err(err))
	} else {
		t.logger.Debug("operation done", logging.Operation(op), logging.Duration(time.Since(start)))
	}
	return err
}

// bootstrap creates the relation and its indexes if missing.
func (t *table) bootstrap(ctx context.Context) error {
	return t.run(ctx, "bootstrap", func(conn *sql.Conn) error {
		for _, stmt := range t.backend.dialect.Bootstrap(t.name) {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("bootstrap %s: %w", t.name, err)
			}
		}
		t.logger.Info("table ready")
		return nil
	})
}

// Insert stores a copy of doc stamped with an inserted-at marker.
func (t *table) Insert(ctx context.Context, doc types.Document) (int64, error) {
	stamped := make(types.Document, len(doc)+1)
	for k, v := range doc {
		stamped[k] = v
	}
	stamped[types.InsertedAtKey] = time.Now().UTC().Format(time.RFC3339Nano)
	payload, err := encodeDocument(stamped)
	if err != nil {
		return 0, err
	}

	var id int64
	err = t.run(ctx, "insert", func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, t.sql.insert, payload).Scan(&id); err != nil {
			return fmt.Errorf("insert into %s: %w", t.name, err)
		}
		return nil
	})
	return id, err
}

// InsertMultiple inserts docs in order and stops at the first failure,
// returning the ids inserted before it.
func (t *table) InsertMultiple(ctx context.Context, docs []types.Document) ([]int64, error) {
	ids := make([]int64, 0, len(docs))
	for i, doc := range docs {
		id, err := t.Insert(ctx, doc)
		if err != nil {
			return ids, fmt.Errorf("document %d of %d: %w", i+1, len(docs), err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// All returns every record in ascending id order.
func (t *table) All(ctx context.Context) ([]types.Record, error) {
	return t.scan(ctx, "all")
}

func (t *table) scan(ctx context.Context, op string) ([]types.Record, error) {
	var recs []types.Record
	err := t.run(ctx, op, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, t.sql.selectAll)
		if err != nil {
			return fmt.Errorf("scan %s: %w", t.name, err)
		}
		recs, err = collectRecords(rows)
		if err != nil {
			return fmt.Errorf("scan %s: %w", t.name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Get returns the first match in scan order, or the first record when cond
// is nil.
func (t *table) Get(ctx context.Context, cond query.Condition) (*types.Record, error) {
	if cond != nil {
		recs, err := t.Search(ctx, cond)
		if err != nil || len(recs) == 0 {
			return nil, err
		}
		return &recs[0], nil
	}
	return t.getOne(ctx, "get", t.sql.selectOne)
}

// GetByID is a point lookup.
func (t *table) GetByID(ctx context.Context, id int64) (*types.Record, error) {
	return t.getOne(ctx, "get", t.sql.selectID, id)
}

func (t *table) getOne(ctx context.Context, op, stmt string, args ...any) (*types.Record, error) {
	var rec *types.Record
	err := t.run(ctx, op, func(conn *sql.Conn) error {
		r, err := scanRecord(conn.QueryRowContext(ctx, stmt, args...))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get from %s: %w", t.name, err)
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Search filters a full scan through the evaluator, keeping id order.
func (t *table) Search(ctx context.Context, cond query.Condition) ([]types.Record, error) {
	recs, err := t.scan(ctx, "search")
	if err != nil {
		return nil, err
	}
	if cond == nil {
		return recs, nil
	}
	out := recs[:0]
	for _, r := range recs {
		if query.Evaluate(cond, r.Document) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Update resolves cond with Search and merges fields into every match. A nil
// cond updates the whole table.
func (t *table) Update(ctx context.Context, fields types.Document, cond query.Condition) ([]int64, error) {
	recs, err := t.Search(ctx, cond)
	if err != nil {
		return nil, err
	}
	return t.UpdateIDs(ctx, fields, types.IDs(recs))
}

// UpdateIDs merges fields into each listed record. Each record is a separate
// transaction: read (row-locked where the dialect supports it), shallow
// merge, write. A failure stops the batch; records before it stay updated.
func (t *table) UpdateIDs(ctx context.Context, fields types.Document, ids []int64) ([]int64, error) {
	updated := []int64{}
	if len(ids) == 0 {
		return updated, nil
	}
	err := t.run(ctx, "update", func(conn *sql.Conn) error {
		seen := make(map[int64]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			ok, err := t.mergeOne(ctx, conn, id, fields)
			if err != nil {
				return fmt.Errorf("update %s doc %d: %w", t.name, id, err)
			}
			if ok {
				updated = append(updated, id)
			}
		}
		return nil
	})
	return updated, err
}

// mergeOne applies a top-level merge to one record. It reports false when
// the record does not exist.
func (t *table) mergeOne(ctx context.Context, conn *sql.Conn, id int64, fields types.Document) (bool, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRowContext(ctx, t.sql.lockData, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read: %w", err)
	}
	payload, err := mergePayload(raw, fields, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, t.sql.update, payload, id); err != nil {
		return false, fmt.Errorf("write: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

// Remove deletes the records matching cond. A nil cond empties the table
// without resetting the id sequence.
func (t *table) Remove(ctx context.Context, cond query.Condition) ([]int64, error) {
	if cond == nil {
		var removed []int64
		err := t.run(ctx, "remove", func(conn *sql.Conn) error {
			var err error
			removed, err = collectIDs(conn.QueryContext(ctx, t.sql.deleteAll))
			if err != nil {
				return fmt.Errorf("remove from %s: %w", t.name, err)
			}
			return nil
		})
		return removed, err
	}
	recs, err := t.Search(ctx, cond)
	if err != nil {
		return nil, err
	}
	return t.RemoveIDs(ctx, types.IDs(recs))
}

// RemoveIDs deletes the listed records and returns the ids that existed, in
// ascending order.
func (t *table) RemoveIDs(ctx context.Context, ids []int64) ([]int64, error) {
	removed := []int64{}
	if len(ids) == 0 {
		return removed, nil
	}
	err := t.run(ctx, "remove", func(conn *sql.Conn) error {
		for chunk := range slices.Chunk(ids, deleteChunk) {
			args := make([]any, len(chunk))
			for i, id := range chunk {
				args[i] = id
			}
			got, err := collectIDs(conn.QueryContext(ctx, deleteIDs(t.backend.dialect, t.name, len(chunk)), args...))
			if err != nil {
				return fmt.Errorf("remove from %s: %w", t.name, err)
			}
			removed = append(removed, got...)
		}
		return nil
	})
	slices.Sort(removed)
	return removed, err
}

func collectIDs(rows *sql.Rows, err error) ([]int64, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Sort(ids)
	return ids, nil
}

// Count answers a nil cond with COUNT(*) and otherwise counts Search results.
func (t *table) Count(ctx context.Context, cond query.Condition) (int, error) {
	if cond != nil {
		recs, err := t.Search(ctx, cond)
		return len(recs), err
	}
	var n int
	err := t.run(ctx, "count", func(conn *sql.Conn) error {
		if err := conn.QueryRowContext(ctx, t.sql.count).Scan(&n); err != nil {
			return fmt.Errorf("count %s: %w", t.name, err)
		}
		return nil
	})
	return n, err
}

// Contains reports whether any record matches cond.
func (t *table) Contains(ctx context.Context, cond query.Condition) (bool, error) {
	recs, err := t.Search(ctx, cond)
	return len(recs) > 0, err
}

// Truncate empties the table and resets the id sequence.
func (t *table) Truncate(ctx context.Context) error {
	return t.run(ctx, "truncate", func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("truncate %s: %w", t.name, err)
		}
		defer func() { _ = tx.Rollback() }()
		for _, stmt := range t.backend.dialect.Truncate(t.name) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("truncate %s: %w", t.name, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("truncate %s: %w", t.name, err)
		}
		t.logger.Info("table truncated")
		return nil
	})
}

var _ types.Table = (*table)(nil)
