// Package migrate moves documents between TinyDB JSON files and a docstore
// Database. A TinyDB file is one JSON object mapping table names to objects
// that map stringified integer ids to documents:
//
//	{"emails": {"1": {"subject": "..."}, "2": {...}}, "replies": {}}
package migrate

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/docstore/internal/logging"
	"github.com/mesh-intelligence/docstore/pkg/types"
)

// ErrInvalidFile is returned when the input is not a TinyDB document file.
var ErrInvalidFile = errors.New("invalid TinyDB file")

// Entry is one document of a TinyDB table with its original id.
type Entry struct {
	ID       int64
	Document types.Document
}

// File is a decoded TinyDB file. Entries of each table are in ascending id
// order.
type File map[string][]Entry

// Tables returns the table names in the file, sorted.
func (f File) Tables() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ReadFile decodes the TinyDB file at path.
func ReadFile(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fh.Close()
	f, err := Decode(bufio.NewReader(fh))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return f, nil
}

// Decode parses a TinyDB file. Numbers are kept as json.Number so integer
// values survive the copy unchanged.
func Decode(r io.Reader) (File, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	f := make(File, len(raw))
	for table, docs := range raw {
		entries := make([]Entry, 0, len(docs))
		for key, body := range docs {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: table %s: id %q is not an integer", ErrInvalidFile, table, key)
			}
			doc, err := decodeDocument(body)
			if err != nil {
				return nil, fmt.Errorf("%w: table %s doc %d: %v", ErrInvalidFile, table, id, err)
			}
			entries = append(entries, Entry{ID: id, Document: doc})
		}
		slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.ID, b.ID) })
		f[table] = entries
	}
	return f, nil
}

func decodeDocument(body json.RawMessage) (types.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc types.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("document is null")
	}
	return doc, nil
}

// Options selects what Import copies.
type Options struct {
	// Tables restricts the import to the named tables, in that order. Empty
	// means types.StandardTableNames.
	Tables []string

	// AllTables imports every table in the file and ignores Tables.
	AllTables bool

	Logger *slog.Logger
}

// TableResult reports the documents copied into one table.
type TableResult struct {
	Table    string  `json:"table"`
	Imported int     `json:"imported"`
	IDs      []int64 `json:"ids"`
}

// Summary reports one Import run.
type Summary struct {
	RunID  string        `json:"run_id"`
	Tables []TableResult `json:"tables"`
	Total  int           `json:"total"`
}

// Import inserts the documents of f into db, one table at a time, in
// ascending original-id order. Original ids are not preserved; the store
// assigns new ones. There is no cross-table atomicity: on failure the
// summary covers everything inserted before it.
func Import(ctx context.Context, db types.Database, f File, opts Options) (*Summary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := newRunID()
	logger = logger.With(slog.String("run_id", runID))

	tables := opts.Tables
	switch {
	case opts.AllTables:
		tables = f.Tables()
	case len(tables) == 0:
		tables = types.StandardTableNames
	}

	sum := &Summary{RunID: runID, Tables: make([]TableResult, 0, len(tables))}
	for _, name := range tables {
		entries := f[name]
		if len(entries) == 0 {
			logger.Info("no data", logging.Table(name))
			sum.Tables = append(sum.Tables, TableResult{Table: name, IDs: []int64{}})
			continue
		}

		tbl, err := db.Table(ctx, name)
		if err != nil {
			return sum, fmt.Errorf("import %s: %w", name, err)
		}
		docs := make([]types.Document, len(entries))
		for i, e := range entries {
			docs[i] = e.Document
		}
		ids, err := tbl.InsertMultiple(ctx, docs)
		sum.Tables = append(sum.Tables, TableResult{Table: name, Imported: len(ids), IDs: ids})
		sum.Total += len(ids)
		if err != nil {
			return sum, fmt.Errorf("import %s: %w", name, err)
		}
		logger.Info("table imported", logging.Table(name), logging.Count(len(ids)))
	}
	logger.Info("import complete", logging.Count(sum.Total))
	return sum, nil
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Export writes the named tables of db to path as a TinyDB file, keyed by
// the current document ids. The file is replaced atomically.
func Export(ctx context.Context, db types.Database, tables []string, path string) (int, error) {
	out := make(map[string]map[string]types.Document, len(tables))
	total := 0
	for _, name := range tables {
		tbl, err := db.Table(ctx, name)
		if err != nil {
			return 0, fmt.Errorf("export %s: %w", name, err)
		}
		recs, err := tbl.All(ctx)
		if err != nil {
			return 0, fmt.Errorf("export %s: %w", name, err)
		}
		docs := make(map[string]types.Document, len(recs))
		for _, r := range recs {
			docs[strconv.FormatInt(r.ID, 10)] = r.Document
		}
		out[name] = docs
		total += len(recs)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return 0, fmt.Errorf("encoding export: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return 0, err
	}
	return total, nil
}

// writeAtomic writes data to path using the temp-file, fsync, rename
// pattern.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tinydb-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
