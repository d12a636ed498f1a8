// Package schema loads the versioned QR schema registry: field codes and
// value types for each QR section, enum tables, the timeline action catalog,
// super-compressed action templates, fail-action names and game piece rules.
//
// A Registry is immutable once loaded and may be shared between goroutines.
package schema

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/frc-scouting/scoutqr/internal/fsutil"
)

// Reserved field names the codec and consolidator rely on.
const (
	FieldSchemaVersion = "schema_version"
	FieldMatchNumber   = "match_number"
	FieldTeamNumber    = "team_number"
	FieldScoutName     = "scout_name"
	FieldTimeline      = "timeline"
	FieldHasPreload    = "has_preload"
	FieldAllianceRed   = "alliance_color_is_red"
)

//go:embed defaults/qr_schema.yml
var defaultSchema []byte

// Field is one registry entry.
type Field struct {
	Name string
	Code string
	Type FieldType
}

// Section is an ordered set of fields with unique codes.
type Section struct {
	Name   string
	Fields []Field
	byCode map[string]int
	byName map[string]int
}

// ByCode looks up a field by its wire code.
func (s *Section) ByCode(code string) (Field, bool) {
	i, ok := s.byCode[code]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// ByName looks up a field by name.
func (s *Section) ByName(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Names returns field names in declaration order.
func (s *Section) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// EnumValue is one decompressed name and its wire code.
type EnumValue struct {
	Name string
	Code string
}

// Enum is an ordered name to code table.
type Enum struct {
	Name   string
	Values []EnumValue
	byCode map[string]string
	byName map[string]string
}

// Decode returns the name for a wire code.
func (e *Enum) Decode(code string) (string, bool) {
	n, ok := e.byCode[code]
	return n, ok
}

// Encode returns the wire code for a name.
func (e *Enum) Encode(name string) (string, bool) {
	c, ok := e.byName[name]
	return c, ok
}

// Domain returns the enum names in declaration order.
func (e *Enum) Domain() []string {
	out := make([]string, len(e.Values))
	for i, v := range e.Values {
		out[i] = v.Name
	}
	return out
}

// Delimiters are the separator characters of the wire format.
type Delimiters struct {
	Section string
	Field   string
	Team    string
}

// Registry is a compiled schema document.
type Registry struct {
	Version    int
	Delimiters Delimiters

	ObjectiveStart  string
	SubjectiveStart string

	Generic    *Section
	Objective  *Section
	Subjective *Section

	Enums       map[string]*Enum
	Timeline    *TimelineSpec
	FailActions map[string]string
	Pieces      *PieceRules

	// SubjectiveScores are the subjective fields that only accept 1, 2 or 3.
	SubjectiveScores []string
	// HumanPlayerFlag marks the team whose human player scored for the
	// alliance; its team number is copied to HumanPlayerTarget on every
	// record of the same subjective QR.
	HumanPlayerFlag   string
	HumanPlayerTarget string

	scoreChecks []*regexp.Regexp
}

// Enum returns the named enum table.
func (r *Registry) Enum(name string) (*Enum, bool) {
	e, ok := r.Enums[name]
	return e, ok
}

// ValidSubjectiveChunk reports whether every score field of a subjective
// team chunk holds a digit from 1 to 3.
func (r *Registry) ValidSubjectiveChunk(chunk string) bool {
	for _, re := range r.scoreChecks {
		if !re.MatchString(chunk) {
			return false
		}
	}
	return true
}

// FailName returns the fused action name for a fail marker followed by
// action.
func (r *Registry) FailName(action string) string {
	if name, ok := r.FailActions[action]; ok {
		return name
	}
	return "fail_" + action
}

// ObjectiveFieldSet is the exact key set of a decoded objective record.
func (r *Registry) ObjectiveFieldSet() []string {
	return mergedNames(r.Generic, r.Objective)
}

// SubjectiveFieldSet is the exact key set of a decoded subjective record,
// before the human player fixup.
func (r *Registry) SubjectiveFieldSet() []string {
	return mergedNames(r.Generic, r.Subjective)
}

func mergedNames(sections ...*Section) []string {
	var out []string
	for _, s := range sections {
		out = append(out, s.Names()...)
	}
	sort.Strings(out)
	return out
}

// Default returns the registry embedded in the binary.
func Default() (*Registry, error) {
	return Load(defaultSchema)
}

// LoadFile reads and compiles a registry document.
func LoadFile(fsys fsutil.FileSystem, path string) (*Registry, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	reg, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return reg, nil
}

// Load compiles a registry document.
func Load(data []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return compile(doc)
}

func compile(doc document) (*Registry, error) {
	if doc.SchemaFile.Version <= 0 {
		return nil, fmt.Errorf("schema_file.version must be positive")
	}
	r := &Registry{
		Version: doc.SchemaFile.Version,
		Delimiters: Delimiters{
			Section: doc.Delimiters.Section,
			Field:   doc.Delimiters.Field,
			Team:    doc.Delimiters.Team,
		},
		ObjectiveStart:    doc.QRStart.Objective,
		SubjectiveStart:   doc.QRStart.Subjective,
		Enums:             make(map[string]*Enum),
		FailActions:       doc.FailActions,
		SubjectiveScores:  doc.SubjectiveScores,
		HumanPlayerFlag:   doc.HumanPlayer.Flag,
		HumanPlayerTarget: doc.HumanPlayer.Target,
	}
	if r.FailActions == nil {
		r.FailActions = map[string]string{}
	}

	seps := []string{r.Delimiters.Section, r.Delimiters.Field, r.Delimiters.Team, r.ObjectiveStart, r.SubjectiveStart}
	for _, s := range seps {
		if len(s) != 1 {
			return nil, fmt.Errorf("delimiters and qr_start markers must be single characters, got %q", s)
		}
	}
	if r.ObjectiveStart == r.SubjectiveStart {
		return nil, fmt.Errorf("objective and subjective qr_start markers must differ")
	}

	for _, e := range doc.Enums {
		enum := &Enum{Name: e.Name, byCode: map[string]string{}, byName: map[string]string{}}
		for _, kv := range e.Values {
			if _, dup := enum.byCode[kv.Value]; dup {
				return nil, fmt.Errorf("enum %s: duplicate code %q", e.Name, kv.Value)
			}
			enum.Values = append(enum.Values, EnumValue{Name: kv.Key, Code: kv.Value})
			enum.byCode[kv.Value] = kv.Key
			enum.byName[kv.Key] = kv.Value
		}
		r.Enums[e.Name] = enum
	}

	var err error
	if r.Generic, err = r.compileSection("generic_data", doc.Generic); err != nil {
		return nil, err
	}
	if r.Objective, err = r.compileSection("objective_tim", doc.Objective); err != nil {
		return nil, err
	}
	if r.Subjective, err = r.compileSection("subjective_aim", doc.Subjective); err != nil {
		return nil, err
	}
	if _, ok := r.Generic.ByName(FieldSchemaVersion); !ok {
		return nil, fmt.Errorf("generic_data must declare %s", FieldSchemaVersion)
	}
	for _, s := range []*Section{r.Objective, r.Subjective} {
		for _, f := range s.Fields {
			if _, clash := r.Generic.ByName(f.Name); clash {
				return nil, fmt.Errorf("%s field %q also declared in generic_data", s.Name, f.Name)
			}
		}
	}
	for _, f := range r.Subjective.Fields {
		if f.Type.Kind == TypeTimeline {
			return nil, fmt.Errorf("subjective_aim field %q cannot be a timeline", f.Name)
		}
	}

	if r.Timeline, err = compileTimeline(doc.Timeline); err != nil {
		return nil, err
	}
	if r.Pieces, err = compilePieces(doc.GamePieces); err != nil {
		return nil, err
	}

	for _, name := range r.SubjectiveScores {
		f, ok := r.Subjective.ByName(name)
		if !ok {
			return nil, fmt.Errorf("subjective score %q is not a subjective_aim field", name)
		}
		sep := regexp.QuoteMeta(r.Delimiters.Field)
		re := regexp.MustCompile(fmt.Sprintf(`(?:^|%s)%s[1-3](?:%s|$)`, sep, regexp.QuoteMeta(f.Code), sep))
		r.scoreChecks = append(r.scoreChecks, re)
	}
	if r.HumanPlayerFlag != "" {
		f, ok := r.Subjective.ByName(r.HumanPlayerFlag)
		if !ok || f.Type.Kind != TypeBool {
			return nil, fmt.Errorf("human_player.flag %q must be a bool subjective_aim field", r.HumanPlayerFlag)
		}
		if r.HumanPlayerTarget == "" {
			return nil, fmt.Errorf("human_player.target is required when human_player.flag is set")
		}
	}
	return r, nil
}

func (r *Registry) compileSection(name string, doc sectionDoc) (*Section, error) {
	s := &Section{Name: name, byCode: map[string]int{}, byName: map[string]int{}}
	for _, f := range doc {
		if f.Code == "" || strings.ContainsAny(f.Code, r.Delimiters.Field+r.Delimiters.Section+r.Delimiters.Team) {
			return nil, fmt.Errorf("%s field %q: invalid code %q", name, f.Name, f.Code)
		}
		if len(f.Code) > 2 {
			return nil, fmt.Errorf("%s field %q: code %q longer than two characters", name, f.Name, f.Code)
		}
		if _, dup := s.byCode[f.Code]; dup {
			return nil, fmt.Errorf("%s: duplicate code %q", name, f.Code)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate field %q", name, f.Name)
		}
		if f.Type.Kind == TypeEnum {
			if _, ok := r.Enums[f.Type.Enum]; !ok {
				return nil, fmt.Errorf("%s field %q: unknown enum %q", name, f.Name, f.Type.Enum)
			}
		}
		if f.Type.Kind == TypeList && f.Type.Elem.Kind == TypeEnum {
			if _, ok := r.Enums[f.Type.Elem.Enum]; !ok {
				return nil, fmt.Errorf("%s field %q: unknown enum %q", name, f.Name, f.Type.Elem.Enum)
			}
		}
		s.byCode[f.Code] = len(s.Fields)
		s.byName[f.Name] = len(s.Fields)
		s.Fields = append(s.Fields, Field{Name: f.Name, Code: f.Code, Type: f.Type})
	}
	// Codes are matched by prefix; a one letter code must not start a two
	// letter one.
	for code := range s.byCode {
		for other := range s.byCode {
			if code != other && strings.HasPrefix(other, code) {
				return nil, fmt.Errorf("%s: code %q is a prefix of %q", name, code, other)
			}
		}
	}
	return s, nil
}
