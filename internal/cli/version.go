package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docstore/pkg/docstore"
)

const modulePath = "github.com/mesh-intelligence/docstore"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the docstore version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "docstore v%s\nmodule: %s\n", docstore.Version, modulePath)
			return nil
		},
	}
}
