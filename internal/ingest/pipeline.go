// Package ingest turns batches of raw QR payloads into stored per-scout and
// consolidated records. A payload that cannot be decoded is logged with its
// raw text, stored as failed and skipped; it never stops the batch.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/frc-scouting/scoutqr/internal/codec"
	"github.com/frc-scouting/scoutqr/internal/consolidate"
	"github.com/frc-scouting/scoutqr/internal/db"
	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
	"github.com/frc-scouting/scoutqr/internal/timeline"
	"github.com/frc-scouting/scoutqr/internal/timeutil"
)

// Store is the persistence the pipeline needs. *db.DB implements it.
type Store interface {
	SaveQR(ctx context.Context, q db.RawQR, records []scouting.Record) (bool, error)
	RecordBatch(ctx context.Context, b db.Batch) error
	ScoutRecords(ctx context.Context, reg *schema.Registry, qrType string) ([]scouting.Record, error)
	UpsertTeamMatch(ctx context.Context, r scouting.Record) error
	UpsertSubjectiveTeam(ctx context.Context, r scouting.Record) error
}

// Options tune a Pipeline. The zero value is usable.
type Options struct {
	// Overrides are merged into per-scout objective records before they are
	// consolidated. Stored per-scout records are never modified.
	Overrides []scouting.Override
	// Skip lists objective fields left out of canonical records. Nil means
	// consolidate.DefaultSkip.
	Skip  []string
	Clock timeutil.Clock
	// NewID generates batch and QR ids. Defaults to random UUIDs.
	NewID func() string
}

// Pipeline decodes, stores and consolidates QR payloads.
type Pipeline struct {
	reg          *schema.Registry
	store        Store
	decoder      *codec.Decoder
	consolidator *consolidate.Consolidator
	overrides    []scouting.Override
	clock        timeutil.Clock
	newID        func() string
}

// New builds a pipeline. Decoded timelines are repaired by the resolver
// before they are stored.
func New(reg *schema.Registry, store Store, opts Options) *Pipeline {
	p := &Pipeline{
		reg:          reg,
		store:        store,
		decoder:      codec.NewDecoder(reg, codec.WithResolver(timeline.NewResolver(reg))),
		consolidator: consolidate.New(reg, opts.Skip),
		overrides:    opts.Overrides,
		clock:        opts.Clock,
		newID:        opts.NewID,
	}
	if p.clock == nil {
		p.clock = timeutil.RealClock{}
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// Ingest decodes and stores every payload of one batch. Blank lines are
// ignored and surrounding whitespace is trimmed. Only storage errors and
// context cancellation end the batch early.
func (p *Pipeline) Ingest(ctx context.Context, source string, payloads []string) (db.Batch, error) {
	start := p.clock.Now()
	batch := db.Batch{ID: p.newID(), Source: source, StartedAt: start}

	for _, raw := range payloads {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		batch.Total++

		q := db.RawQR{ID: p.newID(), BatchID: batch.ID, Payload: raw, Status: db.StatusDecoded, IngestedAt: p.clock.Now()}
		qrType, records, err := p.decoder.Decode(raw)
		q.QRType = qrType.String()
		if err != nil {
			monitoring.Warn("failed to decode qr", "batch", batch.ID, "payload", raw, "err", err)
			q.Status, q.Error, records = db.StatusFailed, err.Error(), nil
		}

		inserted, err := p.store.SaveQR(ctx, q, records)
		if err != nil {
			return batch, fmt.Errorf("batch %s: %w", batch.ID, err)
		}
		switch {
		case !inserted:
			batch.Duplicates++
		case q.Status == db.StatusFailed:
			batch.Failed++
		default:
			batch.Decoded++
		}
	}

	if err := p.store.RecordBatch(ctx, batch); err != nil {
		return batch, err
	}
	monitoring.Info("ingested batch",
		"batch", batch.ID, "source", source, "total", batch.Total, "decoded", batch.Decoded,
		"failed", batch.Failed, "duplicates", batch.Duplicates, "took", p.clock.Since(start))
	return batch, nil
}

// Summary counts the canonical records written by Consolidate.
type Summary struct {
	Teams      int `json:"teams"`
	Suspicious int `json:"suspicious"`
	Subjective int `json:"subjective"`
}

// Consolidate recomputes every canonical record from the stored per-scout
// records and writes them back.
func (p *Pipeline) Consolidate(ctx context.Context) (Summary, error) {
	objective, err := p.store.ScoutRecords(ctx, p.reg, codec.QRObjective.String())
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load objective records: %w", err)
	}
	subjective, err := p.store.ScoutRecords(ctx, p.reg, codec.QRSubjective.String())
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load subjective records: %w", err)
	}

	result, err := Consolidate(p.reg, p.consolidator, objective, subjective, p.overrides)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, r := range result.Objective {
		if err := p.store.UpsertTeamMatch(ctx, r); err != nil {
			return sum, err
		}
		sum.Teams++
		if sus, _ := r.Bool(consolidate.FieldIsSus); sus {
			sum.Suspicious++
		}
	}
	for _, r := range result.Subjective {
		if err := p.store.UpsertSubjectiveTeam(ctx, r); err != nil {
			return sum, err
		}
		sum.Subjective++
	}
	monitoring.Info("consolidated records", "teams", sum.Teams, "suspicious", sum.Suspicious, "subjective", sum.Subjective)
	return sum, nil
}

// Run ingests one batch and then refreshes the canonical records.
func (p *Pipeline) Run(ctx context.Context, source string, payloads []string) (db.Batch, Summary, error) {
	batch, err := p.Ingest(ctx, source, payloads)
	if err != nil {
		return batch, Summary{}, err
	}
	sum, err := p.Consolidate(ctx)
	return batch, sum, err
}

// Result holds canonical records in first-seen group order.
type Result struct {
	Objective  []scouting.Record
	Subjective []scouting.Record
}

// Consolidate groups per-scout records and reduces each group to one
// canonical record. Overrides are applied to copies of the objective
// records; the inputs are not modified.
func Consolidate(reg *schema.Registry, c *consolidate.Consolidator, objective, subjective []scouting.Record, overrides []scouting.Override) (Result, error) {
	if len(overrides) > 0 {
		objective = cloneAll(objective)
		n, err := scouting.ApplyOverrides(reg, objective, overrides)
		if err != nil {
			return Result{}, err
		}
		monitoring.Debug("applied overrides", "records", n)
	}

	var res Result
	groups, order := scouting.GroupByMatchTeam(objective)
	for _, key := range order {
		res.Objective = append(res.Objective, c.Objective(groups[key]))
	}
	subGroups, subOrder := scouting.GroupByAllianceTeam(subjective)
	for _, key := range subOrder {
		res.Subjective = append(res.Subjective, c.Subjective(subGroups[key]))
	}
	return res, nil
}

func cloneAll(records []scouting.Record) []scouting.Record {
	out := make([]scouting.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}
