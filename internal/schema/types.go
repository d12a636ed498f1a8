package schema

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// TypeKind tags the value type of a registry field.
type TypeKind int

const (
	TypeInvalid TypeKind = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
	TypeEnum
	TypeList
	TypeTimeline
)

var typeKindNames = map[TypeKind]string{
	TypeInt:      "int",
	TypeFloat:    "float",
	TypeString:   "str",
	TypeBool:     "bool",
	TypeEnum:     "enum",
	TypeList:     "list",
	TypeTimeline: "timeline",
}

func (k TypeKind) String() string {
	if n, ok := typeKindNames[k]; ok {
		return n
	}
	return "invalid"
}

// FieldType describes how a field value is written on the wire.
//
// Enum is set for TypeEnum. Elem and Width are set for TypeList, where each
// element occupies exactly Width characters.
type FieldType struct {
	Kind  TypeKind
	Enum  string
	Elem  *FieldType
	Width int
}

func (t FieldType) String() string {
	switch t.Kind {
	case TypeEnum:
		return "Enum[" + t.Enum + "]"
	case TypeList:
		if t.Elem == nil {
			return "[list]"
		}
		return fmt.Sprintf("[list, %s, %d]", t.Elem, t.Width)
	default:
		return t.Kind.String()
	}
}

// ParseFieldType parses a scalar type tag: int, float, str, bool, timeline or
// Enum[Name].
func ParseFieldType(tag string) (FieldType, error) {
	tag = strings.TrimSpace(tag)
	switch tag {
	case "int":
		return FieldType{Kind: TypeInt}, nil
	case "float":
		return FieldType{Kind: TypeFloat}, nil
	case "str":
		return FieldType{Kind: TypeString}, nil
	case "bool":
		return FieldType{Kind: TypeBool}, nil
	case "timeline":
		return FieldType{Kind: TypeTimeline}, nil
	}
	if strings.HasPrefix(tag, "Enum[") && strings.HasSuffix(tag, "]") {
		name := strings.TrimSuffix(strings.TrimPrefix(tag, "Enum["), "]")
		if name == "" {
			return FieldType{}, fmt.Errorf("enum type %q has no name", tag)
		}
		return FieldType{Kind: TypeEnum, Enum: name}, nil
	}
	return FieldType{}, fmt.Errorf("unknown field type %q", tag)
}

// UnmarshalYAML accepts either a scalar tag or a compound
// [list, elementType, width] sequence.
func (t *FieldType) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseFieldType(node.Value)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case yaml.SequenceNode:
		if len(node.Content) != 3 || node.Content[0].Value != "list" {
			return fmt.Errorf("line %d: compound type must be [list, elementType, width]", node.Line)
		}
		elem, err := ParseFieldType(node.Content[1].Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		if elem.Kind == TypeTimeline || elem.Kind == TypeString {
			return fmt.Errorf("line %d: list elements must be fixed width scalars, got %s", node.Line, elem)
		}
		width, err := strconv.Atoi(node.Content[2].Value)
		if err != nil || width <= 0 {
			return fmt.Errorf("line %d: invalid list element width %q", node.Line, node.Content[2].Value)
		}
		*t = FieldType{Kind: TypeList, Elem: &elem, Width: width}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported type node", node.Line)
	}
}
