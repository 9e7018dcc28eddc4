package sqlstore

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/docstore/pkg/types"
)

// encodeDocument serializes a payload for the data column.
func encodeDocument(doc types.Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return string(b), nil
}

// decodeDocument parses the data column. Every call yields a fresh map, so
// returned documents never alias each other.
func decodeDocument(raw []byte) (types.Document, error) {
	var doc types.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if doc == nil {
		doc = types.Document{}
	}
	return doc, nil
}

// mergePayload overwrites the top-level keys in fields, plus the updated-at
// marker, on a stored payload. Untouched values keep their stored JSON text,
// so numbers beyond float64 precision survive the rewrite.
func mergePayload(raw []byte, fields types.Document, updatedAt string) (string, error) {
	var stored map[string]json.RawMessage
	if err := json.Unmarshal(raw, &stored); err != nil {
		return "", fmt.Errorf("decode payload: %w", err)
	}
	if stored == nil {
		stored = make(map[string]json.RawMessage, len(fields)+1)
	}
	for k, v := range fields {
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("%w: field %q: %v", types.ErrInvalidData, k, err)
		}
		stored[k] = b
	}
	stamp, err := json.Marshal(updatedAt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	stored[types.UpdatedAtKey] = stamp

	b, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return string(b), nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads doc_id, data, created_at, updated_at.
func scanRecord(row rowScanner) (types.Record, error) {
	var (
		rec                  types.Record
		raw                  []byte
		createdAt, updatedAt any
	)
	if err := row.Scan(&rec.ID, &raw, &createdAt, &updatedAt); err != nil {
		return rec, err
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return rec, fmt.Errorf("doc %d: %w", rec.ID, err)
	}
	rec.Document = doc
	if rec.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return rec, fmt.Errorf("doc %d created_at: %w", rec.ID, err)
	}
	if rec.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return rec, fmt.Errorf("doc %d updated_at: %w", rec.ID, err)
	}
	return rec, nil
}

// timestampLayouts covers what SQLite's strftime and CURRENT_TIMESTAMP
// produce. Postgres hands back time.Time directly.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case nil:
		return time.Time{}, nil
	case []byte:
		return parseTimestamp(string(bytes.TrimSpace(t)))
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", t)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

// collectRecords drains rows in order.
func collectRecords(rows *sql.Rows) ([]types.Record, error) {
	defer rows.Close()
	recs := []types.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
