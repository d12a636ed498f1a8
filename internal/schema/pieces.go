package schema

import (
	"fmt"
	"strings"
)

// Category groups timeline actions by their effect on what a robot holds.
type Category int

const (
	CategoryOther Category = iota
	CategoryIntake
	CategoryScore
)

func (c Category) String() string {
	switch c {
	case CategoryIntake:
		return "intake"
	case CategoryScore:
		return "score"
	default:
		return "other"
	}
}

type pieceRule struct {
	match    string
	kind     string
	resolves map[string]string
}

// PieceRules maps action names to the game piece kind they intake or score.
// Rules are matched by substring in declaration order; intake rules are
// checked before score rules.
type PieceRules struct {
	Kinds     []string
	Ambiguous string
	Preload   string
	Capacity  int

	intake []pieceRule
	score  []pieceRule
}

// Classify reports whether action intakes or scores a piece and of what kind.
func (p *PieceRules) Classify(action string) (Category, string) {
	for _, r := range p.intake {
		if strings.Contains(action, r.match) {
			return CategoryIntake, r.kind
		}
	}
	for _, r := range p.score {
		if strings.Contains(action, r.match) {
			return CategoryScore, r.kind
		}
	}
	return CategoryOther, ""
}

// IsAmbiguous reports whether kind is the placeholder for an unknown piece.
func (p *PieceRules) IsAmbiguous(kind string) bool {
	return kind == p.Ambiguous
}

// Other returns the only concrete kind different from kind, if there is
// exactly one.
func (p *PieceRules) Other(kind string) (string, bool) {
	var other string
	n := 0
	for _, k := range p.Kinds {
		if k != kind {
			other = k
			n++
		}
	}
	if n != 1 {
		return "", false
	}
	return other, true
}

// Resolve rewrites an ambiguous action name to name the concrete kind. The
// name is returned unchanged when no ambiguous rule declares a resolution.
func (p *PieceRules) Resolve(action, kind string) string {
	for _, rules := range [][]pieceRule{p.intake, p.score} {
		for _, r := range rules {
			if !strings.Contains(action, r.match) {
				continue
			}
			if r.kind != p.Ambiguous {
				return action
			}
			if to, ok := r.resolves[kind]; ok {
				return strings.Replace(action, r.match, to, 1)
			}
			return action
		}
	}
	return action
}

// Unresolve maps an action renamed by Resolve back to its ambiguous name.
// Other names are returned unchanged.
func (p *PieceRules) Unresolve(action string) string {
	for _, rules := range [][]pieceRule{p.intake, p.score} {
		for _, r := range rules {
			for _, k := range p.Kinds {
				if to, ok := r.resolves[k]; ok && strings.Contains(action, to) {
					return strings.Replace(action, to, r.match, 1)
				}
			}
		}
	}
	return action
}

func compilePieces(doc piecesDoc) (*PieceRules, error) {
	p := &PieceRules{
		Kinds:     doc.Kinds,
		Ambiguous: doc.Ambiguous,
		Preload:   doc.Preload,
		Capacity:  doc.Capacity,
	}
	if p.Capacity <= 0 {
		p.Capacity = 2
	}
	known := make(map[string]bool, len(p.Kinds))
	for _, k := range p.Kinds {
		if k == "" || k == p.Ambiguous {
			return nil, fmt.Errorf("game piece kind %q is invalid", k)
		}
		known[k] = true
	}
	if p.Preload != "" && !known[p.Preload] {
		return nil, fmt.Errorf("preload kind %q is not a declared game piece", p.Preload)
	}

	build := func(section string, docs []pieceRuleDoc) ([]pieceRule, error) {
		out := make([]pieceRule, 0, len(docs))
		for _, d := range docs {
			if d.Match == "" {
				return nil, fmt.Errorf("%s rule has an empty match", section)
			}
			if !known[d.Kind] && d.Kind != p.Ambiguous {
				return nil, fmt.Errorf("%s rule %q: unknown kind %q", section, d.Match, d.Kind)
			}
			for k := range d.Resolves {
				if !known[k] {
					return nil, fmt.Errorf("%s rule %q: resolves unknown kind %q", section, d.Match, k)
				}
			}
			if len(d.Resolves) > 0 && d.Kind != p.Ambiguous {
				return nil, fmt.Errorf("%s rule %q: only ambiguous rules may declare resolves", section, d.Match)
			}
			out = append(out, pieceRule{match: d.Match, kind: d.Kind, resolves: d.Resolves})
		}
		return out, nil
	}

	var err error
	if p.intake, err = build("intake", doc.Intake); err != nil {
		return nil, err
	}
	if p.score, err = build("score", doc.Score); err != nil {
		return nil, err
	}
	return p, nil
}
