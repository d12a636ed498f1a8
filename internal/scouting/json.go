package scouting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/frc-scouting/scoutqr/internal/schema"
)

// RecordFromJSON parses a JSON object into a Record, converting each field
// the registry knows to its Go type. Unknown fields are kept as decoded by
// encoding/json.
func RecordFromJSON(reg *schema.Registry, data []byte) (Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	rec := make(Record, len(raw))
	for name, msg := range raw {
		v, err := fromJSON(fieldType(reg, name), msg)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		rec[name] = v
	}
	return rec, nil
}

func fieldType(reg *schema.Registry, name string) *schema.FieldType {
	for _, s := range []*schema.Section{reg.Generic, reg.Objective, reg.Subjective} {
		if f, ok := s.ByName(name); ok {
			return &f.Type
		}
	}
	return nil
}

func fromJSON(ft *schema.FieldType, msg json.RawMessage) (any, error) {
	if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
		return nil, nil
	}
	if ft == nil {
		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, err
		}
		// Counters such as num_scouts are not in the registry.
		if f, ok := v.(float64); ok && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int(f), nil
		}
		return v, nil
	}
	switch ft.Kind {
	case schema.TypeInt:
		var f float64
		if err := json.Unmarshal(msg, &f); err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
		return int(f), nil
	case schema.TypeFloat:
		var f float64
		err := json.Unmarshal(msg, &f)
		return f, err
	case schema.TypeBool:
		var b bool
		err := json.Unmarshal(msg, &b)
		return b, err
	case schema.TypeString, schema.TypeEnum:
		var s string
		err := json.Unmarshal(msg, &s)
		return s, err
	case schema.TypeTimeline:
		tl := Timeline{}
		err := json.Unmarshal(msg, &tl)
		return tl, err
	case schema.TypeList:
		var items []json.RawMessage
		if err := json.Unmarshal(msg, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := fromJSON(ft.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported field type %s", ft)
}
