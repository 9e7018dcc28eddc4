package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/pkg/types"
)

func newRemoveCmd(s *session) *cobra.Command {
	var sel selector
	cmd := &cobra.Command{
		Use:   "remove <table> [filter...]",
		Short: "Delete selected documents",
		Long: `Remove deletes the selected documents and prints their ids. Select
documents with --id, with filter expressions, or with --all for the whole
table. Removing everything keeps the id sequence; use truncate to reset it.

` + filterHelp,
		Example: `  docstore remove replies --id 7
  docstore remove emails folder==spam`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, cond, err := sel.resolve(args[1:])
			if err != nil {
				return err
			}
			return s.withTable(cmd, args[0], func(tbl types.Table) error {
				var removed []int64
				if ids != nil {
					removed, err = tbl.RemoveIDs(cmd.Context(), ids)
				} else {
					removed, err = tbl.Remove(cmd.Context(), cond)
				}
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd, map[string]any{"removed": removed})
			})
		},
	}
	sel.register(cmd, "remove")
	return cmd
}

func newTruncateCmd(s *session) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "truncate <table>",
		Short: "Delete every document and reset the id sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return userError(errors.New("truncate deletes every document; pass --yes to confirm"))
			}
			return s.withTable(cmd, args[0], func(tbl types.Table) error {
				if err := tbl.Truncate(cmd.Context()); err != nil {
					return classify(err)
				}
				return writeJSON(cmd, map[string]string{"truncated": tbl.Name()})
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm truncation")
	return cmd
}
