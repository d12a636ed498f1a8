// Package scouting holds the records produced by decoding scout QR codes:
// timeline actions, per-scout records and the keys used to group them.
package scouting

import (
	"fmt"
	"sort"

	"github.com/frc-scouting/scoutqr/internal/schema"
)

// Action is one timestamped timeline event. Time counts down from the
// start of the match.
type Action struct {
	Time       int    `json:"time"`
	ActionType string `json:"action_type"`
	InTeleop   bool   `json:"in_teleop"`
}

// Timeline is ordered by decreasing Time.
type Timeline []Action

// Clone returns a copy that can be modified independently.
func (tl Timeline) Clone() Timeline {
	if tl == nil {
		return nil
	}
	return append(Timeline(nil), tl...)
}

// Record maps field names to decoded values: int, float64, string, bool,
// []any for fixed-width lists and Timeline for the timeline field. A nil
// value means no data.
type Record map[string]any

// Clone copies the record, including its timeline and list values.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		switch tv := v.(type) {
		case Timeline:
			out[k] = tv.Clone()
		case []any:
			out[k] = append([]any(nil), tv...)
		default:
			out[k] = v
		}
	}
	return out
}

// Keys returns the record's field names, sorted.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int returns an integer field.
func (r Record) Int(name string) (int, bool) {
	v, ok := r[name].(int)
	return v, ok
}

// Bool returns a boolean field.
func (r Record) Bool(name string) (bool, bool) {
	v, ok := r[name].(bool)
	return v, ok
}

// String returns a string or enum field.
func (r Record) String(name string) (string, bool) {
	v, ok := r[name].(string)
	return v, ok
}

// Timeline returns the timeline field, or nil when absent.
func (r Record) Timeline() Timeline {
	tl, _ := r[schema.FieldTimeline].(Timeline)
	return tl
}

// MatchTeam identifies one robot in one match.
type MatchTeam struct {
	MatchNumber int
	TeamNumber  int
}

func (k MatchTeam) String() string {
	return fmt.Sprintf("match %d team %d", k.MatchNumber, k.TeamNumber)
}

// MatchTeamOf reads the grouping key of an objective record.
func MatchTeamOf(r Record) (MatchTeam, error) {
	match, ok := r.Int(schema.FieldMatchNumber)
	if !ok {
		return MatchTeam{}, fmt.Errorf("record has no %s", schema.FieldMatchNumber)
	}
	team, ok := r.Int(schema.FieldTeamNumber)
	if !ok {
		return MatchTeam{}, fmt.Errorf("record has no %s", schema.FieldTeamNumber)
	}
	return MatchTeam{MatchNumber: match, TeamNumber: team}, nil
}

// AllianceTeam identifies one robot's subjective rating in one match.
type AllianceTeam struct {
	MatchNumber int
	AllianceRed bool
	TeamNumber  int
}

// AllianceColor returns "red" or "blue".
func (k AllianceTeam) AllianceColor() string {
	if k.AllianceRed {
		return "red"
	}
	return "blue"
}

func (k AllianceTeam) String() string {
	return fmt.Sprintf("match %d %s team %d", k.MatchNumber, k.AllianceColor(), k.TeamNumber)
}

// AllianceTeamOf reads the grouping key of a subjective record.
func AllianceTeamOf(r Record) (AllianceTeam, error) {
	mt, err := MatchTeamOf(r)
	if err != nil {
		return AllianceTeam{}, err
	}
	red, ok := r.Bool(schema.FieldAllianceRed)
	if !ok {
		return AllianceTeam{}, fmt.Errorf("record has no %s", schema.FieldAllianceRed)
	}
	return AllianceTeam{MatchNumber: mt.MatchNumber, AllianceRed: red, TeamNumber: mt.TeamNumber}, nil
}

// GroupByMatchTeam groups objective records, preserving input order within
// each group. Records without a key are skipped.
func GroupByMatchTeam(records []Record) (map[MatchTeam][]Record, []MatchTeam) {
	groups := make(map[MatchTeam][]Record)
	var order []MatchTeam
	for _, r := range records {
		key, err := MatchTeamOf(r)
		if err != nil {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	return groups, order
}

// GroupByAllianceTeam groups subjective records, preserving input order.
func GroupByAllianceTeam(records []Record) (map[AllianceTeam][]Record, []AllianceTeam) {
	groups := make(map[AllianceTeam][]Record)
	var order []AllianceTeam
	for _, r := range records {
		key, err := AllianceTeamOf(r)
		if err != nil {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	return groups, order
}
