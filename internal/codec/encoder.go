package codec

import (
	"fmt"
	"strings"

	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
)

// Encoder writes records in the QR wire format. Fields are written in
// registry declaration order.
type Encoder struct {
	reg        *schema.Registry
	generic    *sectionCodec
	objective  *sectionCodec
	subjective *sectionCodec
}

// NewEncoder binds a registry's field tables.
func NewEncoder(reg *schema.Registry) *Encoder {
	tc := &timelineCodec{spec: reg.Timeline}
	values := newValueTable(reg, tc)
	return &Encoder{
		reg:        reg,
		generic:    bindSection(reg.Generic, values),
		objective:  bindSection(reg.Objective, values),
		subjective: bindSection(reg.Subjective, values),
	}
}

// EncodeObjective writes one team-in-match record.
func (e *Encoder) EncodeObjective(r scouting.Record) (string, error) {
	const t = QRObjective
	header, err := e.encodeFields(t, e.generic, r)
	if err != nil {
		return "", err
	}
	body, err := e.encodeFields(t, e.objective, r)
	if err != nil {
		return "", err
	}
	return e.reg.ObjectiveStart + header + e.reg.Delimiters.Section + body, nil
}

// EncodeSubjective writes up to three team records of one alliance. The
// generic header is taken from the first record; the human player target
// field is derived on decode and is not written.
func (e *Encoder) EncodeSubjective(rs []scouting.Record) (string, error) {
	const t = QRSubjective
	if len(rs) == 0 || len(rs) > MaxTeamsPerQR {
		return "", &EncodeError{QRType: t, Err: fmt.Errorf("need 1 to %d team records, got %d", MaxTeamsPerQR, len(rs))}
	}
	header, err := e.encodeFields(t, e.generic, rs[0])
	if err != nil {
		return "", err
	}
	chunks := make([]string, len(rs))
	for i, r := range rs {
		chunk, err := e.encodeFields(t, e.subjective, r)
		if err != nil {
			return "", err
		}
		chunks[i] = chunk
	}
	return e.reg.SubjectiveStart + header + e.reg.Delimiters.Section + strings.Join(chunks, e.reg.Delimiters.Team), nil
}

func (e *Encoder) encodeFields(t QRType, sc *sectionCodec, r scouting.Record) (string, error) {
	tokens := make([]string, 0, len(sc.fields))
	for _, bf := range sc.fields {
		v, ok := r[bf.Name]
		if !ok || v == nil {
			return "", &EncodeError{QRType: t, Field: bf.Name, Err: ErrFieldSet}
		}
		if bf.Name == schema.FieldSchemaVersion {
			if n, _ := asInt(v); n != e.reg.Version {
				return "", &EncodeError{QRType: t, Field: bf.Name, Err: fmt.Errorf("%w: record version %v, registry version %d", ErrSchemaVersion, v, e.reg.Version)}
			}
		}
		text, err := bf.value.encode(bf.Type, v)
		if err != nil {
			return "", &EncodeError{QRType: t, Field: bf.Name, Err: err}
		}
		if strings.ContainsAny(text, e.reg.Delimiters.Field+e.reg.Delimiters.Section+e.reg.Delimiters.Team) {
			return "", &EncodeError{QRType: t, Field: bf.Name, Err: fmt.Errorf("value %q contains a separator", text)}
		}
		tokens = append(tokens, bf.Code+text)
	}
	return strings.Join(tokens, e.reg.Delimiters.Field), nil
}
