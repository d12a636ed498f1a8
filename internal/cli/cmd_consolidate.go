package cli

import (
	"github.com/spf13/cobra"
)

func newConsolidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Recompute consolidated records from stored scout reports",
		Long: `Recompute every consolidated team-in-match and subjective record from the
stored per-scout records. Run it after editing the overrides file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd)
			defer stop()

			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			sum, err := s.pipe.Consolidate(ctx)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	return cmd
}
