package report

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc-scouting/scoutqr/internal/db"
	"github.com/frc-scouting/scoutqr/internal/fsutil"
)

type fakeSource struct {
	matches []db.MatchCount
	batches []db.Batch
	err     error
}

func (f fakeSource) MatchCounts(context.Context) ([]db.MatchCount, error) { return f.matches, f.err }
func (f fakeSource) Batches(context.Context) ([]db.Batch, error)         { return f.batches, f.err }

var sample = fakeSource{
	matches: []db.MatchCount{
		{MatchNumber: 1, ScoutRecords: 18, Teams: 6, Suspicious: 0},
		{MatchNumber: 2, ScoutRecords: 14, Teams: 6, Suspicious: 2},
	},
	batches: []db.Batch{
		{ID: "b1", Source: "match1.txt", StartedAt: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), Total: 20, Decoded: 18, Failed: 1, Duplicates: 1},
		{ID: "b2", Source: "serial:/dev/ttyACM0", StartedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC), Total: 15, Decoded: 14, Failed: 1},
	},
}

func TestLoadAndTotals(t *testing.T) {
	d, err := Load(context.Background(), sample)
	require.NoError(t, err)
	assert.Len(t, d.Matches, 2)
	assert.Equal(t, db.Batch{Total: 35, Decoded: 32, Failed: 2, Duplicates: 1}, d.Totals())

	_, err = Load(context.Background(), fakeSource{err: errors.New("locked")})
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	d, err := Load(context.Background(), sample)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "Week 2 audit", d))
	html := buf.String()
	for _, want := range []string{"Week 2 audit", "Records per match", "QRs per batch", "suspicious", "decoded=32 failed=2 duplicates=1"} {
		assert.Contains(t, html, want)
	}
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "empty", Data{}))
	assert.Contains(t, buf.String(), "0 matches")
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	fsys := fsutil.NewMemoryFileSystem()
	path := filepath.Join(dir, "audit.html")

	require.NoError(t, WriteFile(fsys, path, "audit", Data{}, dir))
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "QRs per batch")

	assert.Error(t, WriteFile(fsys, "/etc/audit.html", "audit", Data{}))
}

func TestHandler(t *testing.T) {
	w := httptest.NewRecorder()
	Handler(sample, "audit").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Records per match")

	w = httptest.NewRecorder()
	Handler(fakeSource{err: errors.New("locked")}, "audit").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/report", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
