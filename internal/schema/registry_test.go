package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frc-scouting/scoutqr/internal/fsutil"
)

func mustDefault(t *testing.T) *Registry {
	t.Helper()
	reg, err := Default()
	require.NoError(t, err)
	return reg
}

func TestDefault(t *testing.T) {
	reg := mustDefault(t)

	assert.Equal(t, 12, reg.Version)
	assert.Equal(t, "+", reg.ObjectiveStart)
	assert.Equal(t, "*", reg.SubjectiveStart)
	assert.Equal(t, Delimiters{Section: "%", Field: "$", Team: "#"}, reg.Delimiters)

	f, ok := reg.Generic.ByCode("C")
	require.True(t, ok)
	assert.Equal(t, FieldMatchNumber, f.Name)
	assert.Equal(t, TypeInt, f.Type.Kind)

	f, ok = reg.Objective.ByName("start_position")
	require.True(t, ok)
	assert.Equal(t, TypeEnum, f.Type.Kind)
	assert.Equal(t, "StartPosition", f.Type.Enum)

	f, ok = reg.Objective.ByName("auto_coral_marks")
	require.True(t, ok)
	assert.Equal(t, TypeList, f.Type.Kind)
	assert.Equal(t, TypeBool, f.Type.Elem.Kind)
	assert.Equal(t, 1, f.Type.Width)

	assert.Contains(t, reg.ObjectiveFieldSet(), FieldTimeline)
	assert.Contains(t, reg.ObjectiveFieldSet(), FieldSchemaVersion)
	assert.NotContains(t, reg.SubjectiveFieldSet(), FieldTimeline)
}

func TestEnumOrder(t *testing.T) {
	reg := mustDefault(t)
	cage, ok := reg.Enum("CageLevel")
	require.True(t, ok)

	assert.Equal(t, []string{"none", "park", "shallow", "deep"}, cage.Domain())
	name, ok := cage.Decode("S")
	assert.True(t, ok)
	assert.Equal(t, "shallow", name)
	code, ok := cage.Encode("deep")
	assert.True(t, ok)
	assert.Equal(t, "D", code)
	_, ok = cage.Decode("Q")
	assert.False(t, ok)
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		tag     string
		want    FieldType
		wantErr bool
	}{
		{tag: "int", want: FieldType{Kind: TypeInt}},
		{tag: "float", want: FieldType{Kind: TypeFloat}},
		{tag: "str", want: FieldType{Kind: TypeString}},
		{tag: "bool", want: FieldType{Kind: TypeBool}},
		{tag: "timeline", want: FieldType{Kind: TypeTimeline}},
		{tag: "Enum[CageLevel]", want: FieldType{Kind: TypeEnum, Enum: "CageLevel"}},
		{tag: "Enum[]", wantErr: true},
		{tag: "double", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseFieldType(tt.tag)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplate(t *testing.T) {
	tmpl, err := ParseTemplate("tele_{third}score_F{first}_L{second}")
	require.NoError(t, err)
	assert.Equal(t, "tele_fail_score_F3_L2", tmpl.Expand([MaxOrdinals]string{"3", "2", "fail_"}))
	assert.Equal(t, "tele_score_F6_L4", tmpl.Expand([MaxOrdinals]string{"6", "4", ""}))

	_, err = ParseTemplate("x_{fifth}")
	assert.Error(t, err)
	_, err = ParseTemplate("x_{first")
	assert.Error(t, err)
}

func TestSuperAction(t *testing.T) {
	reg := mustDefault(t)
	sa, ok := reg.Timeline.Super("AR")
	require.True(t, ok)
	assert.Equal(t, 3, sa.Width())

	name, ok := sa.Expand([]int{1, 4, 1})
	require.True(t, ok)
	assert.Equal(t, "auto_score_F1_L4", name)

	name, ok = sa.Expand([]int{5, 2, 2})
	require.True(t, ok)
	assert.Equal(t, "auto_fail_score_F5_L2", name)

	_, ok = sa.Expand([]int{7, 1, 1})
	assert.False(t, ok, "face 7 is out of range")
	_, ok = sa.Expand([]int{1, 1})
	assert.False(t, ok, "too few ordinals")

	got, digits, ok := reg.Timeline.SuperFor("tele_fail_score_F2_L3")
	require.True(t, ok)
	assert.Equal(t, "TR", got.Code)
	assert.Equal(t, []int{2, 3, 2}, digits)

	// 6 faces x 4 levels x success/fail
	assert.Len(t, sa.Names(), 48)
}

func TestTimelineCatalog(t *testing.T) {
	reg := mustDefault(t)
	tl := reg.Timeline

	assert.Equal(t, 3, tl.TimeWidth)
	assert.Equal(t, 2, tl.CodeWidth)
	assert.Equal(t, "to_teleop", tl.TeleopAction)

	name, ok := tl.ActionName("TD")
	require.True(t, ok)
	assert.Equal(t, "tele_net", name)
	code, ok := tl.ActionCode("fail")
	require.True(t, ok)
	assert.Equal(t, "FA", code)

	tokens := tl.Tokens().FindAllString("140AR141120AA100TT", -1)
	assert.Equal(t, []string{"140", "AR141", "120", "AA", "100", "TT"}, tokens)

	all := tl.Actions()
	assert.Contains(t, all, "auto_net")
	assert.Contains(t, all, "tele_score_F6_L4")
}

func TestPieceRules(t *testing.T) {
	reg := mustDefault(t)
	p := reg.Pieces

	tests := []struct {
		action   string
		category Category
		kind     string
	}{
		{"auto_intake_station", CategoryIntake, "coral"},
		{"tele_intake_ground", CategoryIntake, "unknown"},
		{"tele_intake_ground_algae", CategoryIntake, "algae"},
		{"auto_intake_mark_coral", CategoryIntake, "coral"},
		{"tele_intake_reef", CategoryIntake, "algae"},
		{"auto_score_F1_L4", CategoryScore, "coral"},
		{"tele_fail_score_F2_L1", CategoryScore, "coral"},
		{"tele_net", CategoryScore, "algae"},
		{"auto_processor", CategoryScore, "algae"},
		{"tele_drop_coral", CategoryScore, "coral"},
		{"to_teleop", CategoryOther, ""},
		{"fail", CategoryOther, ""},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			cat, kind := p.Classify(tt.action)
			assert.Equal(t, tt.category, cat)
			assert.Equal(t, tt.kind, kind)
		})
	}

	assert.Equal(t, "tele_intake_ground_coral", p.Resolve("tele_intake_ground", "coral"))
	assert.Equal(t, "auto_intake_mark_algae", p.Resolve("auto_intake_mark", "algae"))
	assert.Equal(t, "tele_intake_station", p.Resolve("tele_intake_station", "algae"), "concrete actions are not rewritten")
	assert.Equal(t, "auto_intake_mark", p.Unresolve("auto_intake_mark_algae"))
	assert.Equal(t, "tele_intake_ground", p.Unresolve("tele_intake_ground_coral"))
	assert.Equal(t, "tele_intake_ground", p.Unresolve("tele_intake_ground"))
	assert.Equal(t, "tele_intake_station", p.Unresolve("tele_intake_station"))

	other, ok := p.Other("coral")
	assert.True(t, ok)
	assert.Equal(t, "algae", other)
	assert.True(t, p.IsAmbiguous("unknown"))
	assert.Equal(t, "coral", p.Preload)
	assert.Equal(t, 2, p.Capacity)
}

func TestValidSubjectiveChunk(t *testing.T) {
	reg := mustDefault(t)

	assert.True(t, reg.ValidSubjectiveChunk("A254$BTRUE$C2$D3$EFALSE$FFALSE$GFALSE"))
	assert.False(t, reg.ValidSubjectiveChunk("A254$BTRUE$C4$D3$EFALSE$FFALSE$GFALSE"), "quickness 4 is out of range")
	assert.False(t, reg.ValidSubjectiveChunk("A254$BTRUE$C2$D0$EFALSE$FFALSE$GFALSE"), "awareness 0 is out of range")
	assert.False(t, reg.ValidSubjectiveChunk("A254$BTRUE$C22$D1"), "scores are single digits")
	assert.False(t, reg.ValidSubjectiveChunk("A254$BTRUE$D1"), "missing score")
}

func TestFailName(t *testing.T) {
	reg := mustDefault(t)
	assert.Equal(t, "tele_fail_net", reg.FailName("tele_net"))
	assert.Equal(t, "fail_start_incap", reg.FailName("start_incap"))
}

func TestLoadErrors(t *testing.T) {
	base := string(defaultSchema)

	tests := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{"zero version", "version: 12", "version: 0", "version"},
		{"duplicate section code", "scout_id: {code: Y", "scout_id: {code: Z", "duplicate code"},
		{"prefix code", "scout_id: {code: Y", "scout_id: {code: ZZ", "prefix"},
		{"unknown enum", "Enum[CageLevel]", "Enum[Barge]", "unknown enum"},
		{"bad action code", "fail: FA", "fail: F1", "uppercase"},
		{"duplicate action code", "fail: FA", "fail: AA", "duplicate timeline action code"},
		{"unknown teleop action", "teleop_action: to_teleop", "teleop_action: to_tele", "teleop action"},
		{"bad preload", "preload: coral", "preload: cube", "preload"},
		{"long separator", `field_separator: "$"`, `field_separator: "$$"`, "single characters"},
		{"unknown slot", "auto_{third}score", "auto_{fifth}score", "unknown slot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := strings.Replace(base, tt.from, tt.to, 1)
			require.NotEqual(t, base, doc, "replacement did not apply")
			_, err := Load([]byte(doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("schema/qr.yml", defaultSchema, 0o644))

	reg, err := LoadFile(mfs, "schema/qr.yml")
	require.NoError(t, err)
	assert.Equal(t, 12, reg.Version)

	_, err = LoadFile(mfs, "schema/missing.yml")
	assert.Error(t, err)
}
