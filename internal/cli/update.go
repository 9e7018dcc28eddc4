package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/pkg/types"
)

func newUpdateCmd(s *session) *cobra.Command {
	var sel selector
	cmd := &cobra.Command{
		Use:   "update <table> <json> [filter...]",
		Short: "Merge fields into selected documents",
		Long: `Update merges the top-level fields of the JSON object into every selected
document; nested objects are replaced, not merged. Select documents with
--id, with filter expressions, or with --all for the whole table. The ids
of the updated documents are printed.

` + filterHelp,
		Example: `  docstore update emails '{"status":"done"}' --id 1 --id 2
  docstore update action_items '{"priority":1}' 'tags:any=["leak"]'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseDocument(args[1])
			if err != nil {
				return err
			}
			ids, cond, err := sel.resolve(args[2:])
			if err != nil {
				return err
			}
			return s.withTable(cmd, args[0], func(tbl types.Table) error {
				var updated []int64
				if ids != nil {
					updated, err = tbl.UpdateIDs(cmd.Context(), fields, ids)
				} else {
					updated, err = tbl.Update(cmd.Context(), fields, cond)
				}
				if err != nil {
					s.writePartial(cmd, map[string]any{"updated": updated})
					return classify(err)
				}
				return writeJSON(cmd, map[string]any{"updated": updated})
			})
		},
	}
	sel.register(cmd, "update")
	return cmd
}
