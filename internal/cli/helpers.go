package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/pkg/query"
	"github.com/mesh-intelligence/docstore/pkg/types"
)

// writeJSON prints v as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	return encodeJSON(cmd.OutOrStdout(), v)
}

// writePartial prints the partial result of a failed command. The command's
// own error is what gets reported, so an output failure is only logged.
func (s *session) writePartial(cmd *cobra.Command, v any) {
	if err := writeJSON(cmd, v); err != nil {
		s.logger.Warn("write partial output", "command", cmd.Name(), "error", err)
	}
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return sysError(fmt.Errorf("encode output: %w", err))
	}
	return nil
}

// flatten renders records the way TinyDB callers see them: the payload with
// doc_id added.
func flatten(recs []types.Record) []types.Document {
	out := make([]types.Document, len(recs))
	for i, r := range recs {
		out[i] = r.Flatten()
	}
	return out
}

// parseDocuments decodes a command-line JSON argument: an object yields one
// document, an array of objects yields several.
func parseDocuments(arg string) ([]types.Document, error) {
	raw := bytes.TrimSpace([]byte(arg))
	if len(raw) > 0 && raw[0] == '[' {
		var docs []types.Document
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, userError(fmt.Errorf("parse JSON array: %w", err))
		}
		for i, d := range docs {
			if d == nil {
				return nil, userError(fmt.Errorf("element %d is not a JSON object", i))
			}
		}
		return docs, nil
	}
	doc, err := parseDocument(arg)
	if err != nil {
		return nil, err
	}
	return []types.Document{doc}, nil
}

// parseDocument decodes a single JSON object.
func parseDocument(arg string) (types.Document, error) {
	var doc types.Document
	if err := json.Unmarshal([]byte(arg), &doc); err != nil {
		return nil, userError(fmt.Errorf("parse JSON object: %w", err))
	}
	if doc == nil {
		return nil, userError(errors.New("document must be a JSON object"))
	}
	return doc, nil
}

// parseFilters turns positional filter expressions into a condition.
func parseFilters(exprs []string) (query.Condition, error) {
	cond, err := query.ParseFilters(exprs)
	if err != nil {
		return nil, userError(err)
	}
	return cond, nil
}

// selector is the shared --id / filter / --all targeting of update and
// remove.
type selector struct {
	ids []int64
	all bool
}

func (sel *selector) register(cmd *cobra.Command, verb string) {
	cmd.Flags().Int64SliceVar(&sel.ids, "id", nil, "document id to "+verb+" (repeatable)")
	cmd.Flags().BoolVar(&sel.all, "all", false, verb+" every document in the table")
}

// resolve validates that exactly one targeting mode is used. It returns the
// ids to act on, or the condition when filters were given.
func (sel *selector) resolve(filters []string) (ids []int64, cond query.Condition, err error) {
	modes := 0
	if len(sel.ids) > 0 {
		modes++
	}
	if len(filters) > 0 {
		modes++
	}
	if sel.all {
		modes++
	}
	switch {
	case modes == 0:
		return nil, nil, userError(errors.New("no documents selected: pass --id, filter expressions or --all"))
	case modes > 1:
		return nil, nil, userError(errors.New("--id, filter expressions and --all are mutually exclusive"))
	case len(sel.ids) > 0:
		return sel.ids, nil, nil
	case sel.all:
		return nil, nil, nil
	}
	cond, err = parseFilters(filters)
	return nil, cond, err
}

// lookupTable opens the named table, classifying the failure.
func lookupTable(cmd *cobra.Command, db types.Database, name string) (types.Table, error) {
	tbl, err := db.Table(cmd.Context(), name)
	if err != nil {
		return nil, classify(fmt.Errorf("table %s: %w", name, err))
	}
	return tbl, nil
}

// withDB opens the database for the duration of fn.
func (s *session) withDB(cmd *cobra.Command, fn func(db types.Database) error) error {
	db, err := s.open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			s.logger.Warn("close database", "error", err)
		}
	}()
	return fn(db)
}

// withTable opens the database and the named table for the duration of fn.
func (s *session) withTable(cmd *cobra.Command, name string, fn func(tbl types.Table) error) error {
	return s.withDB(cmd, func(db types.Database) error {
		tbl, err := lookupTable(cmd, db, name)
		if err != nil {
			return err
		}
		return fn(tbl)
	})
}
