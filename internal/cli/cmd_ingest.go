package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/frc-scouting/scoutqr/internal/db"
	"github.com/frc-scouting/scoutqr/internal/ingest"
)

func newIngestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest batch files of QR payloads",
		Long: `Ingest newline-delimited batch files of QR payloads and refresh the
consolidated records.

With no argument every file in the data directory matching batch_glob is
ingested. Relative names are taken relative to the data directory. "-" reads
one batch from stdin. Payloads already stored are counted as duplicates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd)
			defer stop()

			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			dataDir := a.cfg.GetDataDir()
			files := args
			if len(files) == 0 {
				if files, err = ingest.BatchFiles(a.fsys, dataDir, a.cfg.GetBatchGlob()); err != nil {
					return err
				}
				if len(files) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "no batch files in %s\n", dataDir)
					return nil
				}
			}

			var batches []db.Batch
			for _, name := range files {
				var payloads []string
				if name == "-" {
					name = "stdin"
					payloads, err = ingest.ReadPayloads(cmd.InOrStdin())
				} else {
					payloads, err = ingest.ReadBatchFile(a.fsys, dataDir, name)
				}
				if err != nil {
					return err
				}
				b, err := s.pipe.Ingest(ctx, name, payloads)
				if err != nil {
					return err
				}
				batches = append(batches, b)
			}

			sum, err := s.pipe.Consolidate(ctx)
			if err != nil {
				return err
			}
			printBatches(cmd.OutOrStdout(), batches)
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	return cmd
}

func printBatches(w io.Writer, batches []db.Batch) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tTOTAL\tDECODED\tFAILED\tDUPLICATES")
	for _, b := range batches {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", b.Source, b.Total, b.Decoded, b.Failed, b.Duplicates)
	}
	tw.Flush()
}

func printSummary(w io.Writer, sum ingest.Summary) {
	fmt.Fprintf(w, "consolidated %d team records (%d suspicious), %d subjective records\n",
		sum.Teams, sum.Suspicious, sum.Subjective)
}

// trimPayloads drops blank lines and surrounding whitespace.
func trimPayloads(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
