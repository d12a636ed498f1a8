package report

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/frc-scouting/scoutqr/internal/fsutil"
	"github.com/frc-scouting/scoutqr/internal/security"
)

var (
	scoutColor = color.RGBA{R: 0x54, G: 0x70, B: 0xc6, A: 0xff}
	robotColor = color.RGBA{R: 0x91, G: 0xcc, B: 0x75, A: 0xff}
	susColor   = color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 0xff}
)

// RenderPNG draws the per-match counts as a line plot for printing or for
// pasting into a chat. Batches are not drawn.
func RenderPNG(w io.Writer, title string, d Data) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Match"
	p.Y.Label.Text = "Records"
	p.Add(plotter.NewGrid())

	scouts := make(plotter.XYs, len(d.Matches))
	robots := make(plotter.XYs, len(d.Matches))
	sus := make(plotter.XYs, len(d.Matches))
	for i, m := range d.Matches {
		x := float64(m.MatchNumber)
		scouts[i] = plotter.XY{X: x, Y: float64(m.ScoutRecords)}
		robots[i] = plotter.XY{X: x, Y: float64(m.Teams)}
		sus[i] = plotter.XY{X: x, Y: float64(m.Suspicious)}
	}

	if len(d.Matches) > 0 {
		for _, s := range []struct {
			name string
			pts  plotter.XYs
			c    color.Color
		}{
			{"scout records", scouts, scoutColor},
			{"robots", robots, robotColor},
			{"suspicious", sus, susColor},
		} {
			line, err := plotter.NewLine(s.pts)
			if err != nil {
				return err
			}
			line.Color = s.c
			line.Width = vg.Points(1.5)
			p.Add(line)
			p.Legend.Add(s.name, line)
		}
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// WritePNG renders the plot to path, with the same path rules as WriteFile.
func WritePNG(fsys fsutil.FileSystem, path, title string, d Data, allowedDirs ...string) error {
	if err := security.ValidateExportPath(path, allowedDirs...); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := RenderPNG(&buf, title, d); err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write plot: %w", err)
	}
	return nil
}
