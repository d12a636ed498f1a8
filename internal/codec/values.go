package codec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
)

// valueCodec converts one field value between its wire text and its decoded
// Go value. Decode errors wrap one of the package sentinels.
type valueCodec struct {
	decode func(ft schema.FieldType, raw string) (any, error)
	encode func(ft schema.FieldType, v any) (string, error)
}

// valueTable holds one valueCodec per type kind. It is built once per
// registry so that enum and timeline lookups are bound up front.
type valueTable map[schema.TypeKind]valueCodec

func newValueTable(reg *schema.Registry, tc *timelineCodec) valueTable {
	t := valueTable{
		schema.TypeInt:    {decode: decodeInt, encode: encodeInt},
		schema.TypeFloat:  {decode: decodeFloat, encode: encodeFloat},
		schema.TypeString: {decode: decodeString, encode: encodeString},
		schema.TypeBool:   {decode: decodeBool, encode: encodeBool},
		schema.TypeEnum: {
			decode: func(ft schema.FieldType, raw string) (any, error) {
				enum, _ := reg.Enum(ft.Enum)
				name, ok := enum.Decode(raw)
				if !ok {
					return nil, fmt.Errorf("%w: %q is not a %s code", ErrEnumCode, raw, ft.Enum)
				}
				return name, nil
			},
			encode: func(ft schema.FieldType, v any) (string, error) {
				name, ok := v.(string)
				if !ok {
					return "", fmt.Errorf("want %s name, got %T", ft.Enum, v)
				}
				enum, _ := reg.Enum(ft.Enum)
				code, ok := enum.Encode(name)
				if !ok {
					return "", fmt.Errorf("%q is not a %s value", name, ft.Enum)
				}
				return code, nil
			},
		},
		schema.TypeTimeline: {
			decode: func(_ schema.FieldType, raw string) (any, error) {
				return tc.decode(raw)
			},
			encode: func(_ schema.FieldType, v any) (string, error) {
				tl, ok := v.(scouting.Timeline)
				if !ok {
					return "", fmt.Errorf("want timeline, got %T", v)
				}
				return tc.encode(tl)
			},
		},
	}
	t[schema.TypeList] = valueCodec{decode: t.decodeList, encode: t.encodeList}
	return t
}

func decodeInt(_ schema.FieldType, raw string) (any, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not an int", ErrMalformedToken, raw)
	}
	return v, nil
}

func encodeInt(_ schema.FieldType, v any) (string, error) {
	n, ok := asInt(v)
	if !ok {
		return "", fmt.Errorf("want int, got %v (%T)", v, v)
	}
	return strconv.Itoa(n), nil
}

func decodeFloat(_ schema.FieldType, raw string) (any, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %q is not a float", ErrMalformedToken, raw)
	}
	return v, nil
}

func encodeFloat(_ schema.FieldType, v any) (string, error) {
	var f float64
	switch tv := v.(type) {
	case float64:
		f = tv
	case float32:
		f = float64(tv)
	default:
		n, ok := asInt(v)
		if !ok {
			return "", fmt.Errorf("want float, got %v (%T)", v, v)
		}
		f = float64(n)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func decodeString(_ schema.FieldType, raw string) (any, error) { return raw, nil }

func encodeString(_ schema.FieldType, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("want string, got %T", v)
	}
	return s, nil
}

func decodeBool(_ schema.FieldType, raw string) (any, error) {
	switch raw {
	case "TRUE", "1":
		return true, nil
	case "FALSE", "0":
		return false, nil
	}
	return nil, fmt.Errorf("%w: %q is not a bool", ErrMalformedToken, raw)
}

func encodeBool(_ schema.FieldType, v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", fmt.Errorf("want bool, got %T", v)
	}
	if b {
		return "TRUE", nil
	}
	return "FALSE", nil
}

// decodeList splits a fixed-width list into elements.
func (t valueTable) decodeList(ft schema.FieldType, raw string) (any, error) {
	if len(raw)%ft.Width != 0 {
		return nil, fmt.Errorf("%w: list %q is not a multiple of width %d", ErrMalformedToken, raw, ft.Width)
	}
	elem := t[ft.Elem.Kind]
	out := make([]any, 0, len(raw)/ft.Width)
	for i := 0; i < len(raw); i += ft.Width {
		v, err := elem.decode(*ft.Elem, raw[i:i+ft.Width])
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (t valueTable) encodeList(ft schema.FieldType, v any) (string, error) {
	items, ok := v.([]any)
	if !ok {
		return "", fmt.Errorf("want list, got %T", v)
	}
	var b strings.Builder
	for i, item := range items {
		var s string
		var err error
		if ft.Elem.Kind == schema.TypeBool {
			// Booleans inside lists take one character.
			bv, ok := item.(bool)
			if !ok {
				return "", fmt.Errorf("element %d: want bool, got %T", i, item)
			}
			s = "0"
			if bv {
				s = "1"
			}
		} else {
			s, err = t[ft.Elem.Kind].encode(*ft.Elem, item)
			if err != nil {
				return "", fmt.Errorf("element %d: %w", i, err)
			}
		}
		if len(s) > ft.Width {
			return "", fmt.Errorf("element %d: %q wider than %d", i, s, ft.Width)
		}
		if len(s) < ft.Width {
			if ft.Elem.Kind != schema.TypeInt {
				return "", fmt.Errorf("element %d: %q narrower than %d", i, s, ft.Width)
			}
			s = strings.Repeat("0", ft.Width-len(s)) + s
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func asInt(v any) (int, bool) {
	switch tv := v.(type) {
	case int:
		return tv, true
	case int64:
		return int(tv), true
	case int32:
		return int(tv), true
	case float64:
		if tv == math.Trunc(tv) {
			return int(tv), true
		}
	}
	return 0, false
}
