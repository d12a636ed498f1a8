package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frc-scouting/scoutqr/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print scoutqr version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scoutqr %s\n", version.FullVersion())
		},
	}
	return cmd
}
