package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/pkg/types"
)

const filterHelp = `Filter expressions have the form path<op>value with path segments joined
by dots. Operators: == (or =), !=, <, <=, >, >=, ~= (case-insensitive
substring), :in=, :any=, :all= (JSON array operand). A trailing ? tests
that the path exists and !? that it does not. Values are parsed as JSON
and fall back to plain strings. Multiple filters must all match.`

func newListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list <table>",
		Short: "Print every document of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withTable(cmd, args[0], func(tbl types.Table) error {
				recs, err := tbl.All(cmd.Context())
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd, flatten(recs))
			})
		},
	}
}

func newSearchCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "search <table> <filter>...",
		Short: "Print the documents matching filter expressions",
		Long:  "Search prints, in id order, the documents matching every filter.\n\n" + filterHelp,
		Example: `  docstore search emails status==new
  docstore search action_items 'priority>=2' 'tags:any=["leak","heating"]'
  docstore search tenants 'phone!?'`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := parseFilters(args[1:])
			if err != nil {
				return err
			}
			return s.withTable(cmd, args[0], func(tbl types.Table) error {
				recs, err := tbl.Search(cmd.Context(), cond)
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd, flatten(recs))
			})
		},
	}
}

func newCountCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "count <table> [filter...]",
		Short: "Count documents, optionally matching filter expressions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cond, err := parseFilters(args[1:])
			if err != nil {
				return err
			}
			return s.withTable(cmd, args[0], func(tbl types.Table) error {
				n, err := tbl.Count(cmd.Context(), cond)
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd, map[string]int{"count": n})
			})
		},
	}
}
