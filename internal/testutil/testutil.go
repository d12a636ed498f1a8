// Package testutil provides shared test fixtures: the default registry,
// sample scout records and their encoded payloads.
package testutil

import (
	"testing"

	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
)

// Registry loads the embedded registry or fails the test.
func Registry(t testing.TB) *schema.Registry {
	t.Helper()
	reg, err := schema.Default()
	if err != nil {
		t.Fatalf("failed to load default registry: %v", err)
	}
	return reg
}

// ObjectivePayload is SampleObjective encoded with the default registry.
const ObjectivePayload = "+A12$BHASAMPLE$C42$D1700000000$Ev1.3$FSam%" +
	"Z1678$Y4$X2$WTRUE$V101$UD$T12.5$S140AB138AR241135TT120TA110FA108TD100TR122"

// SampleObjective returns a well-formed objective record for match 42,
// team 1678.
func SampleObjective() scouting.Record {
	return scouting.Record{
		"schema_version":                  12,
		"serial_number":                   "HASAMPLE",
		"match_number":                    42,
		"timestamp":                       1700000000,
		"match_collection_version_number": "v1.3",
		"scout_name":                      "Sam",
		"team_number":                     1678,
		"scout_id":                        4,
		"start_position":                  "two",
		"has_preload":                     true,
		"auto_coral_marks":                []any{true, false, true},
		"cage_level":                      "deep",
		"climb_time":                      12.5,
		"timeline": scouting.Timeline{
			{Time: 140, ActionType: "auto_intake_mark"},
			{Time: 138, ActionType: "auto_score_F2_L4"},
			{Time: 135, ActionType: "to_teleop", InTeleop: true},
			{Time: 120, ActionType: "tele_intake_station", InTeleop: true},
			{Time: 110, ActionType: "fail", InTeleop: true},
			{Time: 108, ActionType: "tele_net", InTeleop: true},
			{Time: 100, ActionType: "tele_fail_score_F1_L2", InTeleop: true},
		},
	}
}

// Objective returns SampleObjective with the scout, team and timeline
// replaced.
func Objective(match, team int, scout string, tl scouting.Timeline) scouting.Record {
	r := SampleObjective()
	r["match_number"] = match
	r["team_number"] = team
	r["scout_name"] = scout
	r["timeline"] = tl
	return r
}

// SubjectivePayload is SampleSubjective encoded with the default registry.
const SubjectivePayload = "*A12$BHASAMPLE$C42$D1700000000$Ev1.3$FSam%" +
	"A1678$BTRUE$C3$D2$EFALSE$FFALSE$GFALSE#" +
	"A254$BTRUE$C1$D3$ETRUE$FFALSE$GTRUE#" +
	"A971$BTRUE$C2$D2$EFALSE$FTRUE$GFALSE"

// SampleSubjective returns the three decoded records of SubjectivePayload.
// Team 254 supplied the human player.
func SampleSubjective() []scouting.Record {
	generic := scouting.Record{
		"schema_version":                  12,
		"serial_number":                   "HASAMPLE",
		"match_number":                    42,
		"timestamp":                       1700000000,
		"match_collection_version_number": "v1.3",
		"scout_name":                      "Sam",
	}
	teams := []scouting.Record{
		{"team_number": 1678, "quickness_score": 3, "field_awareness_score": 2, "hp_from_team": false, "died": false, "was_tippy": false},
		{"team_number": 254, "quickness_score": 1, "field_awareness_score": 3, "hp_from_team": true, "died": false, "was_tippy": true},
		{"team_number": 971, "quickness_score": 2, "field_awareness_score": 2, "hp_from_team": false, "died": true, "was_tippy": false},
	}
	out := make([]scouting.Record, len(teams))
	for i, team := range teams {
		r := generic.Clone()
		for k, v := range team {
			r[k] = v
		}
		r["alliance_color_is_red"] = true
		r["hp_team_number"] = 254
		out[i] = r
	}
	return out
}
