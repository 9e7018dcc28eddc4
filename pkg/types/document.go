package types

import (
	"regexp"
	"time"
)

// Document is a schema-less nested key/value record. Values are whatever
// encoding/json produces: string, float64, bool, nil, []any and
// map[string]any.
type Document map[string]any

// Reserved keys. InsertedAtKey and UpdatedAtKey are stamped into the payload
// by Insert and Update; IDKey is only used by Record.Flatten.
const (
	IDKey         = "doc_id"
	InsertedAtKey = "_inserted_at"
	UpdatedAtKey  = "_updated_at"
)

// Record is a stored Document together with its surrogate identifier and
// the row timestamps kept by the backing store.
type Record struct {
	ID        int64     `json:"doc_id"`
	Document  Document  `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Flatten returns a copy of the document with the identifier under IDKey,
// the shape TinyDB callers expect.
func (r Record) Flatten() Document {
	out := make(Document, len(r.Document)+1)
	for k, v := range r.Document {
		out[k] = v
	}
	out[IDKey] = r.ID
	return out
}

// IDs returns the identifiers of recs in order.
func IDs(recs []Record) []int64 {
	ids := make([]int64, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}

// MaxTableNameLen keeps the derived index names (idx_<name>_created) within
// PostgreSQL's 63-byte identifier limit, past which they would be truncated
// and collide.
const MaxTableNameLen = 51

// tableNamePattern restricts table names to plain SQL identifiers. DDL cannot
// bind identifiers, so names are interpolated and must be validated.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTableName reports whether name can be used as a table name.
func ValidTableName(name string) bool {
	return len(name) <= MaxTableNameLen && tableNamePattern.MatchString(name)
}
