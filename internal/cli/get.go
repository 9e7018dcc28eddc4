package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/pkg/types"
)

var errNotFound = errors.New("no matching document")

func newGetCmd(s *session) *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "get <table> [filter...]",
		Short: "Print one document",
		Long: `Get prints the document with the given --id, or the first document (in id
order) matching every filter expression. With neither it prints the first
document of the table. Exits with status 1 when nothing matches.`,
		Example: `  docstore get emails --id 42
  docstore get tenants email==a@x`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byID := cmd.Flags().Changed("id")
			if byID && len(args) > 1 {
				return userError(errors.New("--id and filter expressions are mutually exclusive"))
			}
			cond, err := parseFilters(args[1:])
			if err != nil {
				return err
			}
			return s.withTable(cmd, args[0], func(tbl types.Table) error {
				var rec *types.Record
				if byID {
					rec, err = tbl.GetByID(cmd.Context(), id)
				} else {
					rec, err = tbl.Get(cmd.Context(), cond)
				}
				if err != nil {
					return classify(err)
				}
				if rec == nil {
					return userError(errNotFound)
				}
				return writeJSON(cmd, rec.Flatten())
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "document id")
	return cmd
}
