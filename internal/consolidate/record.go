package consolidate

import (
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
	"github.com/frc-scouting/scoutqr/internal/timeline"
)

// Fields added to canonical records.
const (
	FieldIsSus     = "is_sus"
	FieldNumScouts = "num_scouts"
)

// DefaultSkip lists per-scout fields that have no canonical value.
var DefaultSkip = []string{"scout_id"}

// Consolidator reduces groups of per-scout records to canonical records.
type Consolidator struct {
	reg      *schema.Registry
	resolver *timeline.Resolver
	skip     map[string]bool
}

// New returns a Consolidator. Objective fields named in skip are left out of
// canonical records; nil means DefaultSkip.
func New(reg *schema.Registry, skip []string) *Consolidator {
	if skip == nil {
		skip = DefaultSkip
	}
	c := &Consolidator{reg: reg, resolver: timeline.NewResolver(reg), skip: make(map[string]bool, len(skip))}
	for _, s := range skip {
		c.skip[s] = true
	}
	return c
}

// Objective merges the records of one team in one match. The canonical
// record holds the match and team numbers, every objective field, is_sus and
// num_scouts. A field no scout reported is nil.
func (c *Consolidator) Objective(records []scouting.Record) scouting.Record {
	out := scouting.Record{FieldNumScouts: len(records)}
	if len(records) > 0 {
		out[schema.FieldMatchNumber] = records[0][schema.FieldMatchNumber]
	}

	// has_preload first: the timeline vote needs it.
	preload := false
	if f, ok := c.reg.Objective.ByName(schema.FieldHasPreload); ok {
		v := c.field(f.Type, collect(records, f.Name))
		out[f.Name] = v
		preload, _ = v.(bool)
	}

	sus := len(records) < MinTrustedScouts
	for _, f := range c.reg.Objective.Fields {
		if c.skip[f.Name] || f.Name == schema.FieldHasPreload {
			continue
		}
		if f.Type.Kind != schema.TypeTimeline {
			out[f.Name] = c.field(f.Type, collect(records, f.Name))
			continue
		}
		var timelines []scouting.Timeline
		for _, r := range records {
			if tl, ok := r[f.Name].(scouting.Timeline); ok {
				timelines = append(timelines, tl)
			}
		}
		if len(timelines) == 0 {
			out[f.Name] = nil
			continue
		}
		tl, tlSus := TimelineGroup(c.resolver, timelines, preload)
		out[f.Name] = tl
		sus = sus || tlSus
	}
	out[FieldIsSus] = sus
	return out
}

// Subjective merges the records of one team of one alliance in one match.
func (c *Consolidator) Subjective(records []scouting.Record) scouting.Record {
	out := scouting.Record{FieldNumScouts: len(records)}
	if len(records) > 0 {
		out[schema.FieldMatchNumber] = records[0][schema.FieldMatchNumber]
	}
	for _, f := range c.reg.Subjective.Fields {
		out[f.Name] = c.field(f.Type, collect(records, f.Name))
	}
	if target := c.reg.HumanPlayerTarget; target != "" {
		out[target] = c.field(schema.FieldType{Kind: schema.TypeInt}, collect(records, target))
	}
	return out
}

func collect(records []scouting.Record, name string) []any {
	var out []any
	for _, r := range records {
		if v, ok := r[name]; ok && v != nil {
			out = append(out, v)
		}
	}
	return out
}

// field consolidates one field's reported values. Values of the wrong Go
// type are ignored; nil is returned when nothing usable was reported.
func (c *Consolidator) field(ft schema.FieldType, values []any) any {
	switch ft.Kind {
	case schema.TypeInt:
		var ns []int
		for _, v := range values {
			if n, ok := v.(int); ok {
				ns = append(ns, n)
			}
		}
		if len(ns) == 0 {
			return nil
		}
		return Ints(ns)
	case schema.TypeFloat:
		var fs []float64
		for _, v := range values {
			switch tv := v.(type) {
			case float64:
				fs = append(fs, tv)
			case int:
				fs = append(fs, float64(tv))
			}
		}
		if len(fs) == 0 {
			return nil
		}
		return Numeric(fs, true)
	case schema.TypeBool:
		var bs []bool
		for _, v := range values {
			if b, ok := v.(bool); ok {
				bs = append(bs, b)
			}
		}
		if len(bs) == 0 {
			return nil
		}
		return Boolean(bs)
	case schema.TypeString, schema.TypeEnum:
		var ss []string
		for _, v := range values {
			if s, ok := v.(string); ok {
				ss = append(ss, s)
			}
		}
		if len(ss) == 0 {
			return nil
		}
		var domain []string
		if enum, ok := c.reg.Enum(ft.Enum); ok && ft.Kind == schema.TypeEnum {
			domain = enum.Domain()
		}
		return Categorical(ss, domain)
	case schema.TypeList:
		return c.list(ft, values)
	}
	return nil
}

// list consolidates fixed-width lists element by element.
func (c *Consolidator) list(ft schema.FieldType, values []any) any {
	var lists [][]any
	longest := 0
	for _, v := range values {
		if l, ok := v.([]any); ok {
			lists = append(lists, l)
			longest = max(longest, len(l))
		}
	}
	if len(lists) == 0 {
		return nil
	}
	out := make([]any, longest)
	for i := range out {
		var column []any
		for _, l := range lists {
			if i < len(l) && l[i] != nil {
				column = append(column, l[i])
			}
		}
		out[i] = c.field(*ft.Elem, column)
	}
	return out
}
