package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/internal/paths"
	"github.com/mesh-intelligence/docstore/pkg/types"
)

func newInitCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and the standard tables",
		Long: `Init writes a default config.yaml if none exists, connects to the
configured database and creates the standard collaborator tables
(emails, replies, action_items, tenants, response_feedback,
context_patterns, ai_responses) together with the default table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(s.flags.configDir)
			if err != nil {
				return sysError(err)
			}
			return s.withDB(cmd, func(db types.Database) error {
				names := append([]string{s.v.GetString(cfgKeyDefaultTable)}, types.StandardTableNames...)
				for _, name := range names {
					if _, err := lookupTable(cmd, db, name); err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "docstore initialized")
				fmt.Fprintln(out, "  config:", configDir)
				fmt.Fprintln(out, "  tables:", len(db.Tables()))
				return nil
			})
		},
	}
}
