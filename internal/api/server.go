// Package api serves the stored scouting data as JSON and accepts batches of
// QR payloads for ingestion.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/frc-scouting/scoutqr/internal/db"
	"github.com/frc-scouting/scoutqr/internal/ingest"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
)

// maxIngestBytes bounds a POST /ingest body.
const maxIngestBytes = 8 << 20

// Store is the read side of the scouting database. *db.DB implements it.
type Store interface {
	Batches(ctx context.Context) ([]db.Batch, error)
	FailedQRs(ctx context.Context) ([]db.RawQR, error)
	TeamMatches(ctx context.Context, reg *schema.Registry) ([]scouting.Record, error)
	TeamMatch(ctx context.Context, reg *schema.Registry, key scouting.MatchTeam) (scouting.Record, error)
	SubjectiveTeams(ctx context.Context, reg *schema.Registry) ([]scouting.Record, error)
}

// Server exposes a Store and an ingest pipeline over HTTP.
type Server struct {
	reg   *schema.Registry
	store Store
	pipe  *ingest.Pipeline
}

// NewServer returns a Server. pipe may be nil, in which case POST /ingest is
// not served.
func NewServer(reg *schema.Registry, store Store, pipe *ingest.Pipeline) *Server {
	return &Server{reg: reg, store: store, pipe: pipe}
}

// ServeMux returns the API routes, rooted at /.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/batches", s.listBatches)
	mux.HandleFunc("/failed", s.listFailed)
	mux.HandleFunc("/team-matches", s.listTeamMatches)
	mux.HandleFunc("/team-matches/{match}/{team}", s.getTeamMatch)
	mux.HandleFunc("/subjective", s.listSubjective)
	if s.pipe != nil {
		mux.HandleFunc("/ingest", s.ingest)
	}
	return mux
}

func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	batches, err := s.store.Batches(r.Context())
	if err != nil {
		internalError(w, "failed to list batches", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(batches))
}

func (s *Server) listFailed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	failed, err := s.store.FailedQRs(r.Context())
	if err != nil {
		internalError(w, "failed to list failed QRs", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(failed))
}

func (s *Server) listTeamMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	records, err := s.store.TeamMatches(r.Context(), s.reg)
	if err != nil {
		internalError(w, "failed to list team matches", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

func (s *Server) getTeamMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	match, err := strconv.Atoi(r.PathValue("match"))
	if err != nil {
		badRequest(w, "invalid match number")
		return
	}
	team, err := strconv.Atoi(r.PathValue("team"))
	if err != nil {
		badRequest(w, "invalid team number")
		return
	}

	rec, err := s.store.TeamMatch(r.Context(), s.reg, scouting.MatchTeam{MatchNumber: match, TeamNumber: team})
	if errors.Is(err, db.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "no consolidated record for that team and match")
		return
	}
	if err != nil {
		internalError(w, "failed to load team match", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listSubjective(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	records, err := s.store.SubjectiveTeams(r.Context(), s.reg)
	if err != nil {
		internalError(w, "failed to list subjective records", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(records))
}

// ingestResponse is the body returned by POST /ingest.
type ingestResponse struct {
	Batch   db.Batch       `json:"batch"`
	Summary ingest.Summary `json:"summary"`
}

// ingest takes newline-delimited payloads in the request body, one batch per
// request. The source query parameter names the batch.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	payloads, err := ingest.ReadPayloads(io.LimitReader(r.Body, maxIngestBytes))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "http"
	}

	batch, sum, err := s.pipe.Run(r.Context(), source, payloads)
	if err != nil {
		internalError(w, "failed to ingest batch", err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{Batch: batch, Summary: sum})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
