// Package codec converts between scout QR payloads and records.
//
// A payload starts with a section marker, then the generic header and the
// section body separated by the registry's section separator. Fields are
// separated by the field separator and written as a one or two character
// code followed by the value. Subjective bodies carry up to three team
// chunks separated by the team separator.
package codec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
)

// MaxTeamsPerQR is the number of team chunks a subjective QR may carry.
const MaxTeamsPerQR = 3

// TimelineResolver repairs a decoded timeline.
type TimelineResolver interface {
	Resolve(tl scouting.Timeline, hasPreload bool) scouting.Timeline
}

type boundField struct {
	schema.Field
	value valueCodec
}

// sectionCodec is a section's fields bound to their value codecs.
type sectionCodec struct {
	section *schema.Section
	fields  []boundField
	byCode  map[string]int
}

func bindSection(s *schema.Section, values valueTable) *sectionCodec {
	sc := &sectionCodec{section: s, byCode: make(map[string]int, len(s.Fields))}
	for i, f := range s.Fields {
		sc.fields = append(sc.fields, boundField{Field: f, value: values[f.Type.Kind]})
		sc.byCode[f.Code] = i
	}
	return sc
}

// lookup finds the field a token belongs to. Two character codes are tried
// first; the registry guarantees no code is a prefix of another.
func (sc *sectionCodec) lookup(token string) (boundField, string, bool) {
	for _, n := range []int{2, 1} {
		if len(token) < n {
			continue
		}
		if i, ok := sc.byCode[token[:n]]; ok {
			return sc.fields[i], token[n:], true
		}
	}
	return boundField{}, "", false
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithResolver runs every decoded objective timeline through r.
func WithResolver(r TimelineResolver) Option {
	return func(d *Decoder) { d.resolver = r }
}

// Decoder decodes QR payloads against one registry. It is safe for
// concurrent use.
type Decoder struct {
	reg        *schema.Registry
	timeline   *timelineCodec
	generic    *sectionCodec
	objective  *sectionCodec
	subjective *sectionCodec
	resolver   TimelineResolver

	objectiveSet  []string
	subjectiveSet []string
}

// NewDecoder binds a registry's field tables.
func NewDecoder(reg *schema.Registry, opts ...Option) *Decoder {
	tc := &timelineCodec{spec: reg.Timeline}
	values := newValueTable(reg, tc)
	d := &Decoder{
		reg:           reg,
		timeline:      tc,
		generic:       bindSection(reg.Generic, values),
		objective:     bindSection(reg.Objective, values),
		subjective:    bindSection(reg.Subjective, values),
		objectiveSet:  reg.ObjectiveFieldSet(),
		subjectiveSet: reg.SubjectiveFieldSet(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the decoder was built with.
func (d *Decoder) Registry() *schema.Registry { return d.reg }

// Type reports which section kind raw starts with.
func (d *Decoder) Type(raw string) QRType {
	switch {
	case strings.HasPrefix(raw, d.reg.ObjectiveStart):
		return QRObjective
	case strings.HasPrefix(raw, d.reg.SubjectiveStart):
		return QRSubjective
	default:
		return QRUnknown
	}
}

// Decode decodes a payload of either kind. Objective payloads yield one
// record and subjective payloads one per surviving team chunk.
func (d *Decoder) Decode(raw string) (QRType, []scouting.Record, error) {
	switch t := d.Type(raw); t {
	case QRObjective:
		r, err := d.DecodeObjective(raw)
		if err != nil {
			return t, nil, err
		}
		return t, []scouting.Record{r}, nil
	case QRSubjective:
		rs, err := d.DecodeSubjective(raw)
		return t, rs, err
	default:
		return t, nil, decodeErr(QRUnknown, ErrUnknownSection, "payload starts with %q", firstChar(raw))
	}
}

// DecodeObjective decodes one team-in-match payload.
func (d *Decoder) DecodeObjective(raw string) (scouting.Record, error) {
	const t = QRObjective
	header, body, err := d.split(t, raw, d.reg.ObjectiveStart)
	if err != nil {
		return nil, err
	}
	rec := scouting.Record{}
	if err := d.decodeFields(t, d.generic, header, rec); err != nil {
		return nil, err
	}
	if err := d.decodeFields(t, d.objective, body, rec); err != nil {
		return nil, err
	}
	if err := checkFieldSet(t, rec, d.objectiveSet); err != nil {
		return nil, err
	}
	if d.resolver != nil {
		preload, _ := rec.Bool(schema.FieldHasPreload)
		rec[schema.FieldTimeline] = d.resolver.Resolve(rec.Timeline(), preload)
	}
	return rec, nil
}

// DecodeSubjective decodes one alliance-in-match payload. Team chunks whose
// score fields are outside 1..3 are skipped.
func (d *Decoder) DecodeSubjective(raw string) ([]scouting.Record, error) {
	const t = QRSubjective
	header, body, err := d.split(t, raw, d.reg.SubjectiveStart)
	if err != nil {
		return nil, err
	}
	generic := scouting.Record{}
	if err := d.decodeFields(t, d.generic, header, generic); err != nil {
		return nil, err
	}

	chunks := strings.Split(body, d.reg.Delimiters.Team)
	if len(chunks) > MaxTeamsPerQR {
		return nil, decodeErr(t, ErrMalformedToken, "%d team chunks, at most %d allowed", len(chunks), MaxTeamsPerQR)
	}
	var out []scouting.Record
	for i, chunk := range chunks {
		if !d.reg.ValidSubjectiveChunk(chunk) {
			monitoring.Debug("skipped subjective team chunk", "index", i, "chunk", chunk)
			continue
		}
		rec := generic.Clone()
		if err := d.decodeFields(t, d.subjective, chunk, rec); err != nil {
			return nil, err
		}
		if err := checkFieldSet(t, rec, d.subjectiveSet); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	d.fixHumanPlayer(out)
	return out, nil
}

// fixHumanPlayer copies the team number of the first team flagged as the
// human player donor to every record of the QR.
func (d *Decoder) fixHumanPlayer(recs []scouting.Record) {
	if d.reg.HumanPlayerFlag == "" {
		return
	}
	for _, r := range recs {
		if flagged, _ := r.Bool(d.reg.HumanPlayerFlag); !flagged {
			continue
		}
		team, ok := r.Int(schema.FieldTeamNumber)
		if !ok {
			continue
		}
		for _, sibling := range recs {
			sibling[d.reg.HumanPlayerTarget] = team
		}
		return
	}
}

// split checks the marker and the schema version and returns the generic
// header and the body.
func (d *Decoder) split(t QRType, raw, marker string) (string, string, error) {
	if !strings.HasPrefix(raw, marker) {
		return "", "", decodeErr(t, ErrUnknownSection, "payload starts with %q, want %q", firstChar(raw), marker)
	}
	header, body, ok := strings.Cut(raw[len(marker):], d.reg.Delimiters.Section)
	if err := d.checkVersion(t, header); err != nil {
		return "", "", err
	}
	if !ok {
		return "", "", decodeErr(t, ErrMalformedToken, "no %q section separator", d.reg.Delimiters.Section)
	}
	return header, body, nil
}

// checkVersion gates decoding on the schema version before any other field
// is read.
func (d *Decoder) checkVersion(t QRType, header string) error {
	f, _ := d.reg.Generic.ByName(schema.FieldSchemaVersion)
	for _, tok := range strings.Split(header, d.reg.Delimiters.Field) {
		bf, value, ok := d.generic.lookup(tok)
		if !ok || bf.Code != f.Code {
			continue
		}
		v, err := strconv.Atoi(value)
		if err != nil {
			return decodeErr(t, ErrSchemaVersion, "version %q is not an int", value)
		}
		if v != d.reg.Version {
			return decodeErr(t, ErrSchemaVersion, "payload version %d, registry version %d", v, d.reg.Version)
		}
		return nil
	}
	return decodeErr(t, ErrSchemaVersion, "payload has no %s", schema.FieldSchemaVersion)
}

func (d *Decoder) decodeFields(t QRType, sc *sectionCodec, text string, rec scouting.Record) error {
	if text == "" {
		return nil
	}
	for _, tok := range strings.Split(text, d.reg.Delimiters.Field) {
		if tok == "" {
			return decodeErr(t, ErrMalformedToken, "empty %s token", sc.section.Name)
		}
		bf, value, ok := sc.lookup(tok)
		if !ok {
			return decodeErr(t, ErrUnknownCode, "%s token %q", sc.section.Name, tok)
		}
		if _, dup := rec[bf.Name]; dup {
			return decodeErr(t, ErrFieldSet, "%s written twice", bf.Name)
		}
		v, err := bf.value.decode(bf.Type, value)
		if err != nil {
			return &DecodeError{QRType: t, Err: fmt.Errorf("%s: %w", bf.Name, err)}
		}
		rec[bf.Name] = v
	}
	return nil
}

func checkFieldSet(t QRType, rec scouting.Record, want []string) error {
	have := make(map[string]bool, len(rec))
	for k := range rec {
		have[k] = true
	}
	var missing []string
	for _, name := range want {
		if !have[name] {
			missing = append(missing, name)
		}
		delete(have, name)
	}
	if len(missing) == 0 && len(have) == 0 {
		return nil
	}
	extra := make([]string, 0, len(have))
	for k := range have {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	return decodeErr(t, ErrFieldSet, "missing %v, unexpected %v", missing, extra)
}

func firstChar(s string) string {
	if s == "" {
		return ""
	}
	return s[:1]
}
