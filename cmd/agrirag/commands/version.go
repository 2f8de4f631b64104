package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/farmsight/agrirag/internal/version"
)

// NewVersionCmd constructs the `agrirag version` command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agrirag version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agrirag %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.BuildDate)
		},
	}
}
