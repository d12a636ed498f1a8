package scouting

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/frc-scouting/scoutqr/internal/fsutil"
	"github.com/frc-scouting/scoutqr/internal/schema"
)

// Override replaces field values on the records of one team in one match,
// optionally limited to a single scout.
type Override struct {
	MatchNumber int            `yaml:"match_number"`
	TeamNumber  int            `yaml:"team_number"`
	ScoutName   string         `yaml:"scout_name,omitempty"`
	Fields      map[string]any `yaml:"fields"`
}

// LoadOverrides reads a YAML list of overrides.
func LoadOverrides(fsys fsutil.FileSystem, path string) ([]Override, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides %s: %w", path, err)
	}
	var out []Override
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse overrides %s: %w", path, err)
	}
	return out, nil
}

// ApplyOverrides merges overrides into matching objective records and
// returns how many records changed. Values are converted to the field's
// registry type; an override naming an unknown field or holding a value of
// the wrong type is an error and nothing is applied.
func ApplyOverrides(reg *schema.Registry, records []Record, overrides []Override) (int, error) {
	type resolved struct {
		o      Override
		values map[string]any
	}
	checked := make([]resolved, 0, len(overrides))
	for _, o := range overrides {
		values := make(map[string]any, len(o.Fields))
		for name, raw := range o.Fields {
			f, ok := reg.Objective.ByName(name)
			if !ok {
				f, ok = reg.Generic.ByName(name)
			}
			if !ok {
				return 0, fmt.Errorf("override for match %d team %d: unknown field %q", o.MatchNumber, o.TeamNumber, name)
			}
			v, err := coerce(reg, f, raw)
			if err != nil {
				return 0, fmt.Errorf("override for match %d team %d: %w", o.MatchNumber, o.TeamNumber, err)
			}
			values[name] = v
		}
		checked = append(checked, resolved{o: o, values: values})
	}

	changed := 0
	for _, r := range records {
		key, err := MatchTeamOf(r)
		if err != nil {
			continue
		}
		scout, _ := r.String(schema.FieldScoutName)
		hit := false
		for _, c := range checked {
			if c.o.MatchNumber != key.MatchNumber || c.o.TeamNumber != key.TeamNumber {
				continue
			}
			if c.o.ScoutName != "" && c.o.ScoutName != scout {
				continue
			}
			for name, v := range c.values {
				r[name] = v
			}
			hit = true
		}
		if hit {
			changed++
		}
	}
	return changed, nil
}

func coerce(reg *schema.Registry, f schema.Field, raw any) (any, error) {
	switch f.Type.Kind {
	case schema.TypeInt:
		if v, ok := raw.(int); ok {
			return v, nil
		}
	case schema.TypeFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
	case schema.TypeBool:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case schema.TypeString:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	case schema.TypeEnum:
		if v, ok := raw.(string); ok {
			enum, _ := reg.Enum(f.Type.Enum)
			if _, known := enum.Encode(v); known {
				return v, nil
			}
			return nil, fmt.Errorf("field %s: %q is not a %s value", f.Name, v, f.Type.Enum)
		}
	default:
		return nil, fmt.Errorf("field %s: %s fields cannot be overridden", f.Name, f.Type)
	}
	return nil, fmt.Errorf("field %s: value %v (%T) is not a %s", f.Name, raw, raw, f.Type)
}
