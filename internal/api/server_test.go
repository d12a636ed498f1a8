package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc-scouting/scoutqr/internal/api"
	"github.com/frc-scouting/scoutqr/internal/db"
	"github.com/frc-scouting/scoutqr/internal/ingest"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
	"github.com/frc-scouting/scoutqr/internal/testutil"
)

func newTestServer(t *testing.T) (*api.Server, *db.DB) {
	t.Helper()
	reg := testutil.Registry(t)
	d, err := db.NewDB(filepath.Join(t.TempDir(), "scoutqr.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return api.NewServer(reg, d, ingest.New(reg, d, ingest.Options{})), d
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()

	for _, path := range []string{"/batches", "/failed", "/team-matches", "/subjective"} {
		t.Run(path, func(t *testing.T) {
			w := do(t, mux, http.MethodGet, path, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, "[]", w.Body.String())
		})
	}
}

func TestIngestThenRead(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()

	body := testutil.ObjectivePayload + "\n" + testutil.SubjectivePayload + "\nnot a qr\n"
	w := do(t, mux, http.MethodPost, "/ingest?source=tablet-3", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Batch   db.Batch       `json:"batch"`
		Summary ingest.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tablet-3", resp.Batch.Source)
	assert.Equal(t, 3, resp.Batch.Total)
	assert.Equal(t, 2, resp.Batch.Decoded)
	assert.Equal(t, 1, resp.Batch.Failed)
	assert.Equal(t, ingest.Summary{Teams: 1, Suspicious: 1, Subjective: 3}, resp.Summary)

	w = do(t, mux, http.MethodGet, "/failed", "")
	var failed []db.RawQR
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failed))
	require.Len(t, failed, 1)
	assert.Equal(t, "not a qr", failed[0].Payload)

	w = do(t, mux, http.MethodGet, "/team-matches/42/1678", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, 1678.0, rec["team_number"])
	assert.Equal(t, true, rec["is_sus"])

	w = do(t, mux, http.MethodGet, "/subjective", "")
	var subjective []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subjective))
	assert.Len(t, subjective, 3)
}

func TestTeamMatchErrors(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()

	tests := []struct {
		path string
		code int
	}{
		{"/team-matches/1/254", http.StatusNotFound},
		{"/team-matches/x/254", http.StatusBadRequest},
		{"/team-matches/1/y", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := do(t, mux, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.code, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	mux := srv.ServeMux()

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, mux, http.MethodPost, "/batches", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, mux, http.MethodGet, "/ingest", "").Code)
}

func TestReadOnlyServerHasNoIngest(t *testing.T) {
	reg := testutil.Registry(t)
	mux := api.NewServer(reg, failingStore{}, nil).ServeMux()

	assert.Equal(t, http.StatusNotFound, do(t, mux, http.MethodPost, "/ingest", "x").Code)

	w := do(t, mux, http.MethodGet, "/batches", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to list batches")
}

type failingStore struct{}

var errStore = errors.New("store offline")

func (failingStore) Batches(context.Context) ([]db.Batch, error)  { return nil, errStore }
func (failingStore) FailedQRs(context.Context) ([]db.RawQR, error) { return nil, errStore }
func (failingStore) TeamMatches(context.Context, *schema.Registry) ([]scouting.Record, error) {
	return nil, errStore
}
func (failingStore) TeamMatch(context.Context, *schema.Registry, scouting.MatchTeam) (scouting.Record, error) {
	return nil, errStore
}
func (failingStore) SubjectiveTeams(context.Context, *schema.Registry) ([]scouting.Record, error) {
	return nil, errStore
}
