package cli

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/pkg/types"
)

// tableInfo is one line of the tables listing.
type tableInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTablesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the document tables in the database with their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.withDB(cmd, func(db types.Database) error {
				names, err := db.StoredTables(cmd.Context())
				if err != nil {
					return classify(err)
				}
				infos := make([]tableInfo, 0, len(names))
				for _, name := range names {
					tbl, err := lookupTable(cmd, db, name)
					if err != nil {
						return err
					}
					n, err := tbl.Count(cmd.Context(), nil)
					if err != nil {
						return classify(err)
					}
					infos = append(infos, tableInfo{Name: name, Count: n})
				}
				return writeJSON(cmd, infos)
			})
		},
	}
}
