package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// document mirrors the YAML layout of a schema file.
type document struct {
	SchemaFile struct {
		Version int `yaml:"version"`
	} `yaml:"schema_file"`
	Delimiters struct {
		Section string `yaml:"section_separator"`
		Field   string `yaml:"field_separator"`
		Team    string `yaml:"team_separator"`
	} `yaml:"delimiters"`
	QRStart struct {
		Objective  string `yaml:"objective"`
		Subjective string `yaml:"subjective"`
	} `yaml:"qr_start"`
	Generic          sectionDoc `yaml:"generic_data"`
	Objective        sectionDoc `yaml:"objective_tim"`
	Subjective       sectionDoc `yaml:"subjective_aim"`
	SubjectiveScores []string   `yaml:"subjective_scores"`
	HumanPlayer      struct {
		Flag   string `yaml:"flag"`
		Target string `yaml:"target"`
	} `yaml:"human_player"`
	Enums       enumsDoc          `yaml:"enums"`
	Timeline    timelineDoc       `yaml:"timeline"`
	FailActions map[string]string `yaml:"fail_actions"`
	GamePieces  piecesDoc         `yaml:"game_pieces"`
}

type fieldDoc struct {
	Name string    `yaml:"-"`
	Code string    `yaml:"code"`
	Type FieldType `yaml:"type"`
}

// sectionDoc keeps the YAML mapping order, which is the wire order used when
// encoding.
type sectionDoc []fieldDoc

func (s *sectionDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: section must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var f fieldDoc
		if err := node.Content[i+1].Decode(&f); err != nil {
			return fmt.Errorf("field %q: %w", node.Content[i].Value, err)
		}
		f.Name = node.Content[i].Value
		*s = append(*s, f)
	}
	return nil
}

type keyValue struct {
	Key   string
	Value string
}

// orderedMap is a string mapping that remembers declaration order.
type orderedMap []keyValue

func (m *orderedMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		*m = append(*m, keyValue{Key: node.Content[i].Value, Value: node.Content[i+1].Value})
	}
	return nil
}

type enumDoc struct {
	Name   string
	Values orderedMap
}

type enumsDoc []enumDoc

func (e *enumsDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: enums must be a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var values orderedMap
		if err := node.Content[i+1].Decode(&values); err != nil {
			return fmt.Errorf("enum %q: %w", node.Content[i].Value, err)
		}
		*e = append(*e, enumDoc{Name: node.Content[i].Value, Values: values})
	}
	return nil
}

type superDoc struct {
	Code     string                    `yaml:"code"`
	Template string                    `yaml:"template"`
	Ordinals map[string]map[int]string `yaml:"ordinals"`
}

type timelineDoc struct {
	TimeWidth       int        `yaml:"time_width"`
	CodeWidth       int        `yaml:"code_width"`
	MaxTime         int        `yaml:"max_time"`
	TeleopAction    string     `yaml:"teleop_action"`
	Actions         orderedMap `yaml:"actions"`
	SuperCompressed []superDoc `yaml:"super_compressed"`
}

type pieceRuleDoc struct {
	Match    string            `yaml:"match"`
	Kind     string            `yaml:"kind"`
	Resolves map[string]string `yaml:"resolves"`
}

type piecesDoc struct {
	Kinds     []string       `yaml:"kinds"`
	Ambiguous string         `yaml:"ambiguous"`
	Preload   string         `yaml:"preload"`
	Capacity  int            `yaml:"capacity"`
	Intake    []pieceRuleDoc `yaml:"intake"`
	Score     []pieceRuleDoc `yaml:"score"`
}
