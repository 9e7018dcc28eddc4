package types

import (
	"context"
	"errors"

	"github.com/mesh-intelligence/docstore/pkg/query"
)

// Table is a named, schema-less document collection backed by one relation.
//
// A nil Condition matches every record. Update and Remove with a nil
// Condition therefore touch the whole table; callers that build conditions
// from user input must guard against that.
type Table interface {
	// Name returns the table name.
	Name() string

	// Insert stores doc and returns its newly assigned identifier, strictly
	// greater than every identifier previously assigned in this table.
	Insert(ctx context.Context, doc Document) (int64, error)

	// InsertMultiple inserts docs one by one. There is no cross-document
	// atomicity: on failure the ids inserted so far are returned with the
	// error.
	InsertMultiple(ctx context.Context, docs []Document) ([]int64, error)

	// All returns every record in ascending id order.
	All(ctx context.Context) ([]Record, error)

	// Get returns the first record matching cond in scan order, or the first
	// record when cond is nil. It returns (nil, nil) when nothing matches.
	Get(ctx context.Context, cond query.Condition) (*Record, error)

	// GetByID is a point lookup. It returns (nil, nil) when id is unknown.
	GetByID(ctx context.Context, id int64) (*Record, error)

	// Search returns the records matching cond in ascending id order.
	Search(ctx context.Context, cond query.Condition) ([]Record, error)

	// Update shallow-merges fields into every record matching cond and
	// returns the ids actually updated.
	Update(ctx context.Context, fields Document, cond query.Condition) ([]int64, error)

	// UpdateIDs shallow-merges fields into the records with the given ids.
	// Unknown ids are skipped.
	UpdateIDs(ctx context.Context, fields Document, ids []int64) ([]int64, error)

	// Remove hard-deletes the records matching cond and returns their ids.
	Remove(ctx context.Context, cond query.Condition) ([]int64, error)

	// RemoveIDs hard-deletes the records with the given ids and returns the
	// ids that existed.
	RemoveIDs(ctx context.Context, ids []int64) ([]int64, error)

	// Count returns the number of records matching cond. A nil cond is
	// answered by the backing store without transferring documents.
	Count(ctx context.Context, cond query.Condition) (int, error)

	// Contains reports whether any record matches cond.
	Contains(ctx context.Context, cond query.Condition) (bool, error)

	// Truncate removes every record and resets the id sequence.
	Truncate(ctx context.Context) error
}

// Table errors.
var (
	ErrInvalidName = errors.New("invalid table name")
	ErrInvalidData = errors.New("invalid document")
)
