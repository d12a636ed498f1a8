package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/frc-scouting/scoutqr/internal/report"
	"github.com/frc-scouting/scoutqr/internal/security"
)

const defaultReportTitle = "Scouting audit"

func newReportCmd(a *app) *cobra.Command {
	var title, out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the HTML audit report",
		Long: `Write an HTML page charting, per match, the stored scout reports, the
consolidated robots and how many of them are suspicious, and per batch the
decoded, failed and duplicate QR counts.

The output must be inside the working directory, the temp directory or the
data directory. It defaults to reports/<title>.html. An output ending in .png
gets a static plot of the per-match counts instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.openDB()
			if err != nil {
				return err
			}
			defer d.Close()

			data, err := report.Load(cmd.Context(), d)
			if err != nil {
				return err
			}

			path := out
			if path == "" {
				path = filepath.Join("reports", security.SanitizeFilename(title)+".html")
			}
			if err := security.ValidateExportPath(path, a.cfg.GetDataDir()); err != nil {
				return err
			}
			if err := a.fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
			write := report.WriteFile
			if strings.EqualFold(filepath.Ext(path), ".png") {
				write = report.WritePNG
			}
			if err := write(a.fsys, path, title, data, a.cfg.GetDataDir()); err != nil {
				return err
			}

			t := data.Totals()
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d matches, %d QRs, %d failed)\n", path, len(data.Matches), t.Total, t.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", defaultReportTitle, "report title")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}
