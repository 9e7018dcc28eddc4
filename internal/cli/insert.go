package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/pkg/types"
)

func newInsertCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> <json>...",
		Short: "Insert documents into a table",
		Long: `Insert stores each JSON argument as a new document. An argument may be a
single object or an array of objects. Documents are inserted in order and
the assigned ids are printed. Insertion stops at the first failure; the
documents before it stay inserted.`,
		Example: `  docstore insert emails '{"sender":"a@x","status":"new"}'
  docstore insert tenants '[{"email":"a@x"},{"email":"b@x"}]'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var docs []types.Document
			for _, arg := range args[1:] {
				parsed, err := parseDocuments(arg)
				if err != nil {
					return err
				}
				docs = append(docs, parsed...)
			}
			return s.withTable(cmd, args[0], func(tbl types.Table) error {
				ids, err := tbl.InsertMultiple(cmd.Context(), docs)
				if err != nil {
					s.writePartial(cmd, map[string]any{"ids": ids})
					return classify(err)
				}
				return writeJSON(cmd, map[string]any{"ids": ids})
			})
		},
	}
}
