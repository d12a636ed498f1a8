package codec

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc-scouting/scoutqr/internal/scouting"
	"github.com/frc-scouting/scoutqr/internal/testutil"
	"github.com/frc-scouting/scoutqr/internal/timeline"
)

func TestDecodeObjective(t *testing.T) {
	d := NewDecoder(testutil.Registry(t))
	got, err := d.DecodeObjective(testutil.ObjectivePayload)
	require.NoError(t, err)
	if diff := cmp.Diff(testutil.SampleObjective(), got); diff != "" {
		t.Errorf("DecodeObjective mismatch (-want +got):\n%s", diff)
	}
}

func TestEncodeObjective(t *testing.T) {
	e := NewEncoder(testutil.Registry(t))
	got, err := e.EncodeObjective(testutil.SampleObjective())
	require.NoError(t, err)
	assert.Equal(t, testutil.ObjectivePayload, got)
}

func TestObjectiveRoundTrip(t *testing.T) {
	reg := testutil.Registry(t)
	d, e := NewDecoder(reg), NewEncoder(reg)

	records := []scouting.Record{
		testutil.SampleObjective(),
		testutil.Objective(1, 254, "Alex", scouting.Timeline{}),
		testutil.Objective(7, 971, "Jo", scouting.Timeline{
			{Time: 150, ActionType: "auto_intake_station"},
			{Time: 149, ActionType: "auto_fail_score_F6_L1"},
			{Time: 131, ActionType: "to_teleop", InTeleop: true},
			{Time: 60, ActionType: "start_incap", InTeleop: true},
			{Time: 45, ActionType: "end_incap", InTeleop: true},
			{Time: 30, ActionType: "to_endgame", InTeleop: true},
			{Time: 0, ActionType: "tele_score_F3_L3", InTeleop: true},
		}),
	}
	for _, want := range records {
		raw, err := e.EncodeObjective(want)
		require.NoError(t, err)
		got, err := d.DecodeObjective(raw)
		require.NoError(t, err, raw)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("round trip of %q (-want +got):\n%s", raw, diff)
		}
	}
}

func TestSubjectiveRoundTrip(t *testing.T) {
	reg := testutil.Registry(t)
	d, e := NewDecoder(reg), NewEncoder(reg)

	raw, err := e.EncodeSubjective(testutil.SampleSubjective())
	require.NoError(t, err)
	assert.Equal(t, testutil.SubjectivePayload, raw)

	got, err := d.DecodeSubjective(raw)
	require.NoError(t, err)
	if diff := cmp.Diff(testutil.SampleSubjective(), got); diff != "" {
		t.Errorf("DecodeSubjective mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSubjectiveSkipsBadChunk(t *testing.T) {
	d := NewDecoder(testutil.Registry(t))
	raw := strings.Replace(testutil.SubjectivePayload, "A254$BTRUE$C1", "A254$BTRUE$C5", 1)

	got, err := d.DecodeSubjective(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// The skipped team was the human player donor, so no record names one.
	for _, r := range got {
		_, ok := r["hp_team_number"]
		assert.False(t, ok)
	}
}

func TestDecodeDispatch(t *testing.T) {
	d := NewDecoder(testutil.Registry(t))

	typ, recs, err := d.Decode(testutil.ObjectivePayload)
	require.NoError(t, err)
	assert.Equal(t, QRObjective, typ)
	assert.Len(t, recs, 1)

	typ, recs, err = d.Decode(testutil.SubjectivePayload)
	require.NoError(t, err)
	assert.Equal(t, QRSubjective, typ)
	assert.Len(t, recs, 3)
}

func TestDecodeErrors(t *testing.T) {
	obj := testutil.ObjectivePayload
	tests := []struct {
		name string
		raw  string
		want error
		typ  QRType
	}{
		{"unknown marker", "!" + obj[1:], ErrUnknownSection, QRUnknown},
		{"empty payload", "", ErrUnknownSection, QRUnknown},
		{"old schema version", strings.Replace(obj, "+A12", "+A11", 1), ErrSchemaVersion, QRObjective},
		{"version gate before body", "+A11%garbage", ErrSchemaVersion, QRObjective},
		{"version gate without separator", "+A13$C4", ErrSchemaVersion, QRObjective},
		{"no version", "+C42%Z1", ErrSchemaVersion, QRObjective},
		{"no section separator", "+A12$C42", ErrMalformedToken, QRObjective},
		{"unknown enum code", strings.Replace(obj, "$X2$", "$X9$", 1), ErrEnumCode, QRObjective},
		{"unknown field code", strings.Replace(obj, "$Y4$", "$Q4$", 1), ErrUnknownCode, QRObjective},
		{"missing field", strings.Replace(obj, "$Y4", "", 1), ErrFieldSet, QRObjective},
		{"duplicate field", strings.Replace(obj, "$Y4", "$Y4$Y5", 1), ErrFieldSet, QRObjective},
		{"bad int", strings.Replace(obj, "$Y4$", "$Yfour$", 1), ErrMalformedToken, QRObjective},
		{"bad bool", strings.Replace(obj, "$WTRUE$", "$Wyes$", 1), ErrMalformedToken, QRObjective},
		{"empty token", strings.Replace(obj, "$Y4$", "$$", 1), ErrMalformedToken, QRObjective},
		{"ordinal out of range", strings.Replace(obj, "AR241", "AR741", 1), ErrOrdinalRange, QRObjective},
		{"truncated timeline", strings.TrimSuffix(obj, "TR122") + "TR12", ErrTimelineLength, QRObjective},
		{"stray timeline character", strings.Replace(obj, "$S140AB", "$S140ABx", 1), ErrTimelineLength, QRObjective},
		{"unknown action code", strings.Replace(obj, "120TA", "120ZZ", 1), ErrUnknownCode, QRObjective},
		{"time out of range", strings.Replace(obj, "$S140AB", "$S999AB", 1), ErrMalformedToken, QRObjective},
		{"too many teams", testutil.SubjectivePayload + "#A1$BTRUE$C1$D1$EFALSE$FFALSE$GFALSE", ErrMalformedToken, QRSubjective},
		{"subjective missing field", strings.Replace(testutil.SubjectivePayload, "$GFALSE#", "#", 1), ErrFieldSet, QRSubjective},
	}

	d := NewDecoder(testutil.Registry(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, recs, err := d.Decode(tt.raw)
			require.Error(t, err)
			assert.Nil(t, recs)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.typ, de.QRType)
			assert.Contains(t, err.Error(), tt.typ.String())
		})
	}
}

func TestTimelineDecode(t *testing.T) {
	d := NewDecoder(testutil.Registry(t))
	tc := d.timeline

	t.Run("empty timeline", func(t *testing.T) {
		got, err := tc.decode("")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("actions outside their phase are dropped", func(t *testing.T) {
		got, err := tc.decode("150TA145AA140TT135AA130TA")
		require.NoError(t, err)
		want := scouting.Timeline{
			{Time: 145, ActionType: "auto_intake_station"},
			{Time: 140, ActionType: "to_teleop", InTeleop: true},
			{Time: 130, ActionType: "tele_intake_station", InTeleop: true},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("decode mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("super-compressed expansion", func(t *testing.T) {
		got, err := tc.decode("140AR412100TT090TR632")
		require.NoError(t, err)
		assert.Equal(t, []string{"auto_fail_score_F4_L1", "to_teleop", "tele_fail_score_F6_L3"}, actionNames(got))
	})

	t.Run("length check runs before parsing", func(t *testing.T) {
		// ZZ is not a known code, but the dangling digit fails first.
		_, err := tc.decode("140ZZ1")
		assert.ErrorIs(t, err, ErrTimelineLength)
	})
}

func TestTimelineEncodeErrors(t *testing.T) {
	e := NewEncoder(testutil.Registry(t))
	tests := []struct {
		name string
		tl   scouting.Timeline
	}{
		{"unknown action", scouting.Timeline{{Time: 100, ActionType: "dance"}}},
		{"resolved name has no code", scouting.Timeline{{Time: 100, ActionType: "auto_intake_mark_algae"}}},
		{"negative time", scouting.Timeline{{Time: -1, ActionType: "fail"}}},
		{"time past match length", scouting.Timeline{{Time: 151, ActionType: "fail"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.Objective(1, 1, "x", tt.tl)
			_, err := e.EncodeObjective(rec)
			var ee *EncodeError
			require.True(t, errors.As(err, &ee), "got %v", err)
			assert.Equal(t, "timeline", ee.Field)
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	e := NewEncoder(testutil.Registry(t))

	t.Run("missing field", func(t *testing.T) {
		rec := testutil.SampleObjective()
		delete(rec, "cage_level")
		_, err := e.EncodeObjective(rec)
		assert.ErrorIs(t, err, ErrFieldSet)
	})

	t.Run("wrong version", func(t *testing.T) {
		rec := testutil.SampleObjective()
		rec["schema_version"] = 3
		_, err := e.EncodeObjective(rec)
		assert.ErrorIs(t, err, ErrSchemaVersion)
	})

	t.Run("separator inside a string", func(t *testing.T) {
		rec := testutil.SampleObjective()
		rec["scout_name"] = "a$b"
		_, err := e.EncodeObjective(rec)
		assert.Error(t, err)
	})

	t.Run("unknown enum name", func(t *testing.T) {
		rec := testutil.SampleObjective()
		rec["cage_level"] = "orbit"
		_, err := e.EncodeObjective(rec)
		assert.Error(t, err)
	})

	t.Run("too many teams", func(t *testing.T) {
		recs := append(testutil.SampleSubjective(), testutil.SampleSubjective()[0])
		_, err := e.EncodeSubjective(recs)
		assert.Error(t, err)
	})
}

func TestWithResolver(t *testing.T) {
	reg := testutil.Registry(t)
	d := NewDecoder(reg, WithResolver(timeline.NewResolver(reg)))

	got, err := d.DecodeObjective(testutil.ObjectivePayload)
	require.NoError(t, err)
	// The preload is coral, so the mark intake must be algae. The fail
	// marker fuses with the net shot after it.
	want := scouting.Timeline{
		{Time: 140, ActionType: "auto_intake_mark_algae"},
		{Time: 138, ActionType: "auto_score_F2_L4"},
		{Time: 135, ActionType: "to_teleop", InTeleop: true},
		{Time: 120, ActionType: "tele_intake_station", InTeleop: true},
		{Time: 110, ActionType: "tele_fail_net", InTeleop: true},
		{Time: 100, ActionType: "tele_fail_score_F1_L2", InTeleop: true},
	}
	if diff := cmp.Diff(want, got.Timeline()); diff != "" {
		t.Errorf("resolved timeline mismatch (-want +got):\n%s", diff)
	}
}

func actionNames(tl scouting.Timeline) []string {
	out := make([]string, len(tl))
	for i, a := range tl {
		out[i] = a.ActionType
	}
	return out
}
