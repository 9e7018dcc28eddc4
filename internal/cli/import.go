package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/internal/migrate"
	"github.com/mesh-intelligence/docstore/pkg/types"
)

func newImportCmd(s *session) *cobra.Command {
	var (
		tables    []string
		allTables bool
	)
	cmd := &cobra.Command{
		Use:   "import <tinydb.json>",
		Short: "Copy the documents of a TinyDB file into the database",
		Long: `Import reads a TinyDB JSON file and inserts each table's documents in
ascending original-id order. New ids are assigned by the database. By
default the standard collaborator tables are imported; use --table to pick
tables or --all-tables to import everything in the file. A summary with
the run id and per-table counts is printed.`,
		Example: `  docstore import email_system.json
  docstore import email_system.json --table emails --table tenants`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := migrate.ReadFile(args[0])
			if err != nil {
				return classify(err)
			}
			return s.withDB(cmd, func(db types.Database) error {
				sum, err := migrate.Import(cmd.Context(), db, f, migrate.Options{
					Tables:    tables,
					AllTables: allTables,
					Logger:    s.logger,
				})
				if err != nil {
					s.writePartial(cmd, sum)
					return classify(err)
				}
				return writeJSON(cmd, sum)
			})
		},
	}
	cmd.Flags().StringSliceVar(&tables, "table", nil, "table to import (repeatable)")
	cmd.Flags().BoolVar(&allTables, "all-tables", false, "import every table in the file")
	cmd.MarkFlagsMutuallyExclusive("table", "all-tables")
	return cmd
}

func newExportCmd(s *session) *cobra.Command {
	var tables []string
	cmd := &cobra.Command{
		Use:   "export <tinydb.json>",
		Short: "Write tables to a TinyDB JSON file",
		Long: `Export writes the selected tables, or every document table in the
database, to a TinyDB JSON file keyed by document id. An existing file is
replaced atomically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withDB(cmd, func(db types.Database) error {
				names := tables
				if len(names) == 0 {
					var err error
					if names, err = db.StoredTables(cmd.Context()); err != nil {
						return classify(err)
					}
				}
				n, err := migrate.Export(cmd.Context(), db, names, args[0])
				if err != nil {
					return classify(err)
				}
				return writeJSON(cmd, map[string]any{"file": args[0], "tables": names, "exported": n})
			})
		},
	}
	cmd.Flags().StringSliceVar(&tables, "table", nil, "table to export (repeatable)")
	return cmd
}
