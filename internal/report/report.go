// Package report renders the ingestion audit page: per match, how many scout
// records arrived and how many consolidated robots are suspicious, and per
// batch, how many payloads decoded, failed or were duplicates.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/frc-scouting/scoutqr/internal/db"
	"github.com/frc-scouting/scoutqr/internal/fsutil"
	"github.com/frc-scouting/scoutqr/internal/security"
)

// Source is the audit data the report needs. *db.DB implements it.
type Source interface {
	MatchCounts(ctx context.Context) ([]db.MatchCount, error)
	Batches(ctx context.Context) ([]db.Batch, error)
}

// Data is one snapshot of the audit counts.
type Data struct {
	Matches []db.MatchCount
	Batches []db.Batch
}

// Totals sums the batch counts.
func (d Data) Totals() db.Batch {
	var t db.Batch
	for _, b := range d.Batches {
		t.Total += b.Total
		t.Decoded += b.Decoded
		t.Failed += b.Failed
		t.Duplicates += b.Duplicates
	}
	return t
}

// Load reads the audit counts from src.
func Load(ctx context.Context, src Source) (Data, error) {
	matches, err := src.MatchCounts(ctx)
	if err != nil {
		return Data{}, fmt.Errorf("failed to load match counts: %w", err)
	}
	batches, err := src.Batches(ctx)
	if err != nil {
		return Data{}, fmt.Errorf("failed to load batches: %w", err)
	}
	return Data{Matches: matches, Batches: batches}, nil
}

func matchChart(title string, d Data) *charts.Bar {
	x := make([]string, len(d.Matches))
	scouts := make([]opts.BarData, len(d.Matches))
	teams := make([]opts.BarData, len(d.Matches))
	sus := make([]opts.BarData, len(d.Matches))
	for i, m := range d.Matches {
		x[i] = strconv.Itoa(m.MatchNumber)
		scouts[i] = opts.BarData{Value: m.ScoutRecords}
		teams[i] = opts.BarData{Value: m.Teams}
		sus[i] = opts.BarData{Value: m.Suspicious}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Records per match", Subtitle: fmt.Sprintf("%d matches", len(d.Matches))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Match", NameLocation: "middle", NameGap: 25}),
	)
	bar.SetXAxis(x).
		AddSeries("scout records", scouts).
		AddSeries("robots", teams).
		AddSeries("suspicious", sus, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))
	return bar
}

func batchChart(title string, d Data) *charts.Bar {
	x := make([]string, len(d.Batches))
	decoded := make([]opts.BarData, len(d.Batches))
	failed := make([]opts.BarData, len(d.Batches))
	dups := make([]opts.BarData, len(d.Batches))
	for i, b := range d.Batches {
		x[i] = fmt.Sprintf("%s %s", b.StartedAt.Format("01-02 15:04"), b.Source)
		decoded[i] = opts.BarData{Value: b.Decoded}
		failed[i] = opts.BarData{Value: b.Failed}
		dups[i] = opts.BarData{Value: b.Duplicates}
	}

	t := d.Totals()
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "QRs per batch",
			Subtitle: fmt.Sprintf("decoded=%d failed=%d duplicates=%d", t.Decoded, t.Failed, t.Duplicates),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)
	bar.SetXAxis(x).
		AddSeries("decoded", decoded, charts.WithBarChartOpts(opts.BarChart{Stack: "qrs"})).
		AddSeries("failed", failed, charts.WithBarChartOpts(opts.BarChart{Stack: "qrs"}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"})).
		AddSeries("duplicates", dups, charts.WithBarChartOpts(opts.BarChart{Stack: "qrs"}), charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))
	return bar
}

// Render writes the audit page as HTML.
func Render(w io.Writer, title string, d Data) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(matchChart(title, d), batchChart(title, d))
	return page.Render(w)
}

// WriteFile renders the page to path. The path must be inside the temp
// directory, the working directory or one of allowedDirs.
func WriteFile(fsys fsutil.FileSystem, path, title string, d Data, allowedDirs ...string) error {
	if err := security.ValidateExportPath(path, allowedDirs...); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Render(&buf, title, d); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Handler serves a freshly loaded audit page on every request.
func Handler(src Source, title string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := Load(r.Context(), src)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var buf bytes.Buffer
		if err := Render(&buf, title, d); err != nil {
			http.Error(w, fmt.Sprintf("render error: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
}
