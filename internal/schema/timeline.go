package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Slot names one positional sub-parameter of a super-compressed action.
type Slot int

const (
	SlotFirst Slot = iota
	SlotSecond
	SlotThird
	SlotFourth
)

// MaxOrdinals is the number of named template slots.
const MaxOrdinals = 4

var slotNames = [MaxOrdinals]string{"first", "second", "third", "fourth"}

func (s Slot) String() string {
	if s < 0 || int(s) >= MaxOrdinals {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotNames[s]
}

func slotByName(name string) (Slot, bool) {
	for i, n := range slotNames {
		if n == name {
			return Slot(i), true
		}
	}
	return 0, false
}

type templatePart struct {
	literal string
	slot    Slot
	isSlot  bool
}

// Template builds an action name from literal text and {first}..{fourth}
// slot references.
type Template struct {
	raw   string
	parts []templatePart
}

// ParseTemplate splits a template string into literal and slot parts.
func ParseTemplate(raw string) (Template, error) {
	t := Template{raw: raw}
	rest := raw
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			t.parts = append(t.parts, templatePart{literal: rest})
			break
		}
		if open > 0 {
			t.parts = append(t.parts, templatePart{literal: rest[:open]})
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return Template{}, fmt.Errorf("template %q: unterminated slot", raw)
		}
		name := rest[open+1 : open+end]
		slot, ok := slotByName(name)
		if !ok {
			return Template{}, fmt.Errorf("template %q: unknown slot %q", raw, name)
		}
		t.parts = append(t.parts, templatePart{slot: slot, isSlot: true})
		rest = rest[open+end+1:]
	}
	return t, nil
}

// Expand substitutes slot values into the template.
func (t Template) Expand(values [MaxOrdinals]string) string {
	var b strings.Builder
	for _, p := range t.parts {
		if p.isSlot {
			b.WriteString(values[p.slot])
		} else {
			b.WriteString(p.literal)
		}
	}
	return b.String()
}

func (t Template) String() string { return t.raw }

// SuperAction is an action code followed by single digit ordinals that are
// expanded through a template into the full action name.
type SuperAction struct {
	Code     string
	Template Template
	// ordinals[i] maps the digit written for slot i to its text.
	ordinals []map[int]string
	byName   map[string][]int
}

// Width is the number of ordinal digits following the action code.
func (s *SuperAction) Width() int { return len(s.ordinals) }

// Expand converts ordinal digits into the action name. ok is false when a
// digit is outside the declared range of its slot.
func (s *SuperAction) Expand(digits []int) (string, bool) {
	if len(digits) != len(s.ordinals) {
		return "", false
	}
	var values [MaxOrdinals]string
	for i, d := range digits {
		text, ok := s.ordinals[i][d]
		if !ok {
			return "", false
		}
		values[i] = text
	}
	return s.Template.Expand(values), true
}

// Compress returns the ordinal digits that expand to name.
func (s *SuperAction) Compress(name string) ([]int, bool) {
	digits, ok := s.byName[name]
	return digits, ok
}

// Names returns every action name this super action can expand to, sorted.
func (s *SuperAction) Names() []string {
	names := make([]string, 0, len(s.byName))
	for n := range s.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *SuperAction) index() error {
	s.byName = make(map[string][]int)
	digits := make([]int, len(s.ordinals))
	var walk func(i int) error
	walk = func(i int) error {
		if i == len(s.ordinals) {
			name, _ := s.Expand(digits)
			if _, dup := s.byName[name]; dup {
				return fmt.Errorf("super-compressed %s: ordinals %v and %v both expand to %q", s.Code, s.byName[name], digits, name)
			}
			s.byName[name] = append([]int(nil), digits...)
			return nil
		}
		keys := make([]int, 0, len(s.ordinals[i]))
		for d := range s.ordinals[i] {
			keys = append(keys, d)
		}
		sort.Ints(keys)
		for _, d := range keys {
			digits[i] = d
			if err := walk(i + 1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0)
}

// TimelineSpec is the compiled action catalog for the timeline sub-codec.
type TimelineSpec struct {
	TimeWidth    int
	CodeWidth    int
	MaxTime      int
	TeleopAction string

	codeToName map[string]string
	nameToCode map[string]string
	superCodes map[string]*SuperAction
	superNames map[string]*SuperAction
	plainNames []string
	tokens     *regexp.Regexp
}

// ActionName looks up a plain action code.
func (t *TimelineSpec) ActionName(code string) (string, bool) {
	n, ok := t.codeToName[code]
	return n, ok
}

// ActionCode looks up the code of a plain action name.
func (t *TimelineSpec) ActionCode(name string) (string, bool) {
	c, ok := t.nameToCode[name]
	return c, ok
}

// Super returns the super-compressed action with the given code.
func (t *TimelineSpec) Super(code string) (*SuperAction, bool) {
	s, ok := t.superCodes[code]
	return s, ok
}

// SuperFor finds the super-compressed action that expands to name and the
// ordinal digits producing it.
func (t *TimelineSpec) SuperFor(name string) (*SuperAction, []int, bool) {
	s, ok := t.superNames[name]
	if !ok {
		return nil, nil, false
	}
	digits, _ := s.Compress(name)
	return s, digits, true
}

// Tokens returns the pattern that partitions an encoded timeline into
// super-compressed blocks, times and plain codes.
func (t *TimelineSpec) Tokens() *regexp.Regexp { return t.tokens }

// Actions returns every action name the catalog can produce: plain names in
// declaration order followed by super-compressed expansions.
func (t *TimelineSpec) Actions() []string {
	out := append([]string(nil), t.plainNames...)
	codes := make([]string, 0, len(t.superCodes))
	for c := range t.superCodes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	for _, c := range codes {
		out = append(out, t.superCodes[c].Names()...)
	}
	return out
}

var upperCode = regexp.MustCompile(`^[A-Z]+$`)

func compileTimeline(doc timelineDoc) (*TimelineSpec, error) {
	spec := &TimelineSpec{
		TimeWidth:    doc.TimeWidth,
		CodeWidth:    doc.CodeWidth,
		MaxTime:      doc.MaxTime,
		TeleopAction: doc.TeleopAction,
		codeToName:   make(map[string]string),
		nameToCode:   make(map[string]string),
		superCodes:   make(map[string]*SuperAction),
		superNames:   make(map[string]*SuperAction),
	}
	if spec.TimeWidth <= 0 {
		spec.TimeWidth = 3
	}
	if spec.CodeWidth <= 0 {
		spec.CodeWidth = 2
	}
	if spec.MaxTime <= 0 {
		spec.MaxTime = 150
	}

	checkCode := func(code string) error {
		if len(code) != spec.CodeWidth || !upperCode.MatchString(code) {
			return fmt.Errorf("timeline action code %q must be %d uppercase letters", code, spec.CodeWidth)
		}
		if _, dup := spec.codeToName[code]; dup {
			return fmt.Errorf("duplicate timeline action code %q", code)
		}
		if _, dup := spec.superCodes[code]; dup {
			return fmt.Errorf("duplicate timeline action code %q", code)
		}
		return nil
	}

	for _, kv := range doc.Actions {
		if err := checkCode(kv.Value); err != nil {
			return nil, err
		}
		if _, dup := spec.nameToCode[kv.Key]; dup {
			return nil, fmt.Errorf("duplicate timeline action %q", kv.Key)
		}
		spec.codeToName[kv.Value] = kv.Key
		spec.nameToCode[kv.Key] = kv.Value
		spec.plainNames = append(spec.plainNames, kv.Key)
	}

	var superPatterns []string
	for _, sd := range doc.SuperCompressed {
		if err := checkCode(sd.Code); err != nil {
			return nil, err
		}
		tmpl, err := ParseTemplate(sd.Template)
		if err != nil {
			return nil, err
		}
		sa := &SuperAction{Code: sd.Code, Template: tmpl}
		if len(sd.Ordinals) == 0 || len(sd.Ordinals) > MaxOrdinals {
			return nil, fmt.Errorf("super-compressed %s: need 1 to %d ordinals, got %d", sd.Code, MaxOrdinals, len(sd.Ordinals))
		}
		for i := 0; i < len(sd.Ordinals); i++ {
			table, ok := sd.Ordinals[Slot(i).String()]
			if !ok {
				return nil, fmt.Errorf("super-compressed %s: ordinals must be contiguous from %q, missing %q", sd.Code, SlotFirst, Slot(i))
			}
			for d := range table {
				if d < 0 || d > 9 {
					return nil, fmt.Errorf("super-compressed %s: ordinal %s value %d is not a single digit", sd.Code, Slot(i), d)
				}
			}
			sa.ordinals = append(sa.ordinals, table)
		}
		if err := sa.index(); err != nil {
			return nil, err
		}
		for name := range sa.byName {
			if _, dup := spec.nameToCode[name]; dup {
				return nil, fmt.Errorf("super-compressed %s expands to plain action %q", sd.Code, name)
			}
			if other, dup := spec.superNames[name]; dup {
				return nil, fmt.Errorf("super-compressed %s and %s both expand to %q", other.Code, sd.Code, name)
			}
			spec.superNames[name] = sa
		}
		spec.superCodes[sd.Code] = sa
		superPatterns = append(superPatterns, fmt.Sprintf(`%s\d{%d}`, regexp.QuoteMeta(sd.Code), sa.Width()))
	}

	if spec.TeleopAction != "" {
		if _, ok := spec.nameToCode[spec.TeleopAction]; !ok {
			return nil, fmt.Errorf("teleop action %q is not in the action catalog", spec.TeleopAction)
		}
	}

	// Super-compressed blocks are listed first so their digits are not
	// mistaken for a time field.
	sort.Strings(superPatterns)
	alts := append(superPatterns, fmt.Sprintf(`\d{%d}`, spec.TimeWidth), fmt.Sprintf(`[A-Z]{%d}`, spec.CodeWidth))
	spec.tokens = regexp.MustCompile(strings.Join(alts, "|"))
	return spec, nil
}
