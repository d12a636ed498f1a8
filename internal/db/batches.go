package db

import (
	"context"
	"fmt"
	"time"
)

// Batch is the outcome of ingesting one source of QR payloads.
type Batch struct {
	ID         string    `json:"batch_id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	Total      int       `json:"total"`
	Decoded    int       `json:"decoded"`
	Failed     int       `json:"failed"`
	Duplicates int       `json:"duplicates"`
}

// RecordBatch stores or updates a batch summary.
func (db *DB) RecordBatch(ctx context.Context, b Batch) error {
	if b.StartedAt.IsZero() {
		b.StartedAt = db.clock.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO batches (batch_id, source, started_at, total, decoded, failed, duplicates)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (batch_id) DO UPDATE SET
		   total = excluded.total,
		   decoded = excluded.decoded,
		   failed = excluded.failed,
		   duplicates = excluded.duplicates`,
		b.ID, b.Source, b.StartedAt.UTC().Unix(), b.Total, b.Decoded, b.Failed, b.Duplicates,
	)
	if err != nil {
		return fmt.Errorf("failed to record batch %s: %w", b.ID, err)
	}
	return nil
}

// Batches returns every batch summary, oldest first.
func (db *DB) Batches(ctx context.Context) ([]Batch, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT batch_id, source, started_at, total, decoded, failed, duplicates
		 FROM batches ORDER BY started_at, batch_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		var at int64
		if err := rows.Scan(&b.ID, &b.Source, &at, &b.Total, &b.Decoded, &b.Failed, &b.Duplicates); err != nil {
			return nil, err
		}
		b.StartedAt = fromUnix(at)
		out = append(out, b)
	}
	return out, rows.Err()
}

// MatchCount is the audit view of one match: how many objective scout
// records arrived, how many robots were consolidated and how many of those
// are suspicious.
type MatchCount struct {
	MatchNumber  int `json:"match_number"`
	ScoutRecords int `json:"scout_records"`
	Teams        int `json:"teams"`
	Suspicious   int `json:"suspicious"`
}

// MatchCounts returns one row per match that has any objective scout record
// or consolidated result, ordered by match number.
func (db *DB) MatchCounts(ctx context.Context) ([]MatchCount, error) {
	rows, err := db.QueryContext(ctx, `
		WITH scouted AS (
			SELECT match_number, COUNT(*) AS n
			FROM scout_records WHERE qr_type = 'objective'
			GROUP BY match_number
		), merged AS (
			SELECT match_number, COUNT(*) AS teams, SUM(is_sus) AS sus
			FROM team_matches GROUP BY match_number
		), matches AS (
			SELECT match_number FROM scouted
			UNION
			SELECT match_number FROM merged
		)
		SELECT m.match_number,
		       COALESCE(s.n, 0),
		       COALESCE(g.teams, 0),
		       COALESCE(g.sus, 0)
		FROM matches m
		LEFT JOIN scouted s ON s.match_number = m.match_number
		LEFT JOIN merged g ON g.match_number = m.match_number
		ORDER BY m.match_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MatchCount
	for rows.Next() {
		var c MatchCount
		if err := rows.Scan(&c.MatchNumber, &c.ScoutRecords, &c.Teams, &c.Suspicious); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
