package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/frc-scouting/scoutqr/internal/consolidate"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
)

// Decode outcome of a raw QR.
const (
	StatusDecoded = "decoded"
	StatusFailed  = "failed"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("not found")

// RawQR is one scanned payload as it arrived.
type RawQR struct {
	ID         string    `json:"qr_id"`
	BatchID    string    `json:"batch_id"`
	Payload    string    `json:"payload"`
	QRType     string    `json:"qr_type"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	IngestedAt time.Time `json:"ingested_at"`
}

// SaveQR stores a raw payload and the records decoded from it in one
// transaction. A payload already in the database is left untouched and
// SaveQR reports false.
func (db *DB) SaveQR(ctx context.Context, q RawQR, records []scouting.Record) (bool, error) {
	if q.IngestedAt.IsZero() {
		q.IngestedAt = db.clock.Now()
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO raw_qrs (qr_id, batch_id, payload, qr_type, status, error, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.BatchID, q.Payload, q.QRType, q.Status, nullString(q.Error), q.IngestedAt.UTC().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert raw qr: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	for _, r := range records {
		key, err := scouting.MatchTeamOf(r)
		if err != nil {
			return false, fmt.Errorf("qr %s: %w", q.ID, err)
		}
		data, err := json.Marshal(r)
		if err != nil {
			return false, fmt.Errorf("qr %s: failed to encode record: %w", q.ID, err)
		}
		scout, _ := r.String(schema.FieldScoutName)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scout_records (qr_id, qr_type, match_number, team_number, scout_name, record_json)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			q.ID, q.QRType, key.MatchNumber, key.TeamNumber, nullString(scout), string(data),
		); err != nil {
			return false, fmt.Errorf("failed to insert scout record: %w", err)
		}
	}
	return true, tx.Commit()
}

// ScoutRecords returns every per-scout record of the given QR type in
// ingestion order.
func (db *DB) ScoutRecords(ctx context.Context, reg *schema.Registry, qrType string) ([]scouting.Record, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT record_json FROM scout_records WHERE qr_type = ? ORDER BY record_id`, qrType)
	if err != nil {
		return nil, err
	}
	return scanRecords(reg, rows)
}

// FailedQRs returns the payloads that could not be decoded, oldest first.
func (db *DB) FailedQRs(ctx context.Context) ([]RawQR, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT qr_id, batch_id, payload, qr_type, status, COALESCE(error, ''), ingested_at
		 FROM raw_qrs WHERE status = ? ORDER BY ingested_at, qr_id`, StatusFailed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RawQR
	for rows.Next() {
		var q RawQR
		var at int64
		if err := rows.Scan(&q.ID, &q.BatchID, &q.Payload, &q.QRType, &q.Status, &q.Error, &at); err != nil {
			return nil, err
		}
		q.IngestedAt = fromUnix(at)
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpsertTeamMatch stores a consolidated objective record, replacing any
// earlier result for the same match and team.
func (db *DB) UpsertTeamMatch(ctx context.Context, r scouting.Record) error {
	key, err := scouting.MatchTeamOf(r)
	if err != nil {
		return err
	}
	sus, _ := r.Bool(consolidate.FieldIsSus)
	scouts, _ := r.Int(consolidate.FieldNumScouts)
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%s: failed to encode record: %w", key, err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO team_matches (match_number, team_number, is_sus, num_scouts, record_json, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (match_number, team_number) DO UPDATE SET
		   is_sus = excluded.is_sus,
		   num_scouts = excluded.num_scouts,
		   record_json = excluded.record_json,
		   updated_at = excluded.updated_at`,
		key.MatchNumber, key.TeamNumber, sus, scouts, string(data), unixNow(db.clock),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to upsert team match: %w", key, err)
	}
	return nil
}

// TeamMatch returns the consolidated record of one team in one match.
func (db *DB) TeamMatch(ctx context.Context, reg *schema.Registry, key scouting.MatchTeam) (scouting.Record, error) {
	var data string
	err := db.QueryRowContext(ctx,
		`SELECT record_json FROM team_matches WHERE match_number = ? AND team_number = ?`,
		key.MatchNumber, key.TeamNumber).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return scouting.RecordFromJSON(reg, []byte(data))
}

// TeamMatches returns every consolidated objective record ordered by match
// and team.
func (db *DB) TeamMatches(ctx context.Context, reg *schema.Registry) ([]scouting.Record, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT record_json FROM team_matches ORDER BY match_number, team_number`)
	if err != nil {
		return nil, err
	}
	return scanRecords(reg, rows)
}

// UpsertSubjectiveTeam stores a consolidated subjective record.
func (db *DB) UpsertSubjectiveTeam(ctx context.Context, r scouting.Record) error {
	key, err := scouting.AllianceTeamOf(r)
	if err != nil {
		return err
	}
	scouts, _ := r.Int(consolidate.FieldNumScouts)
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%s: failed to encode record: %w", key, err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO subjective_teams (match_number, alliance, team_number, num_scouts, record_json, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (match_number, alliance, team_number) DO UPDATE SET
		   num_scouts = excluded.num_scouts,
		   record_json = excluded.record_json,
		   updated_at = excluded.updated_at`,
		key.MatchNumber, key.AllianceColor(), key.TeamNumber, scouts, string(data), unixNow(db.clock),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to upsert subjective team: %w", key, err)
	}
	return nil
}

// SubjectiveTeams returns every consolidated subjective record.
func (db *DB) SubjectiveTeams(ctx context.Context, reg *schema.Registry) ([]scouting.Record, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT record_json FROM subjective_teams ORDER BY match_number, alliance, team_number`)
	if err != nil {
		return nil, err
	}
	return scanRecords(reg, rows)
}

func scanRecords(reg *schema.Registry, rows *sql.Rows) ([]scouting.Record, error) {
	defer rows.Close()
	var out []scouting.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		r, err := scouting.RecordFromJSON(reg, []byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
