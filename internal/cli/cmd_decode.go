package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frc-scouting/scoutqr/internal/codec"
	"github.com/frc-scouting/scoutqr/internal/ingest"
	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/timeline"
)

func newDecodeCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "decode [payload...]",
		Short: "Decode QR payloads to JSON records",
		Long: `Decode QR payloads and print one JSON record per line.

Payloads are taken from the arguments, or one per line from stdin when no
argument is given. Objective payloads print one record, subjective payloads
one record per team. Payloads that fail to decode are logged and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			var opts []codec.Option
			if !raw {
				opts = append(opts, codec.WithResolver(timeline.NewResolver(reg)))
			}
			dec := codec.NewDecoder(reg, opts...)

			payloads := args
			if len(payloads) == 0 {
				if payloads, err = ingest.ReadPayloads(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			total, failed := 0, 0
			for _, p := range trimPayloads(payloads) {
				total++
				_, records, err := dec.Decode(p)
				if err != nil {
					failed++
					monitoring.Warn("failed to decode qr", "payload", p, "err", err)
					continue
				}
				for _, r := range records {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d payloads failed to decode", failed, total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print timelines as scanned, without resolving game pieces")
	return cmd
}
