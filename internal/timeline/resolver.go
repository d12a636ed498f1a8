package timeline

import (
	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
)

// FailAction is the marker a scout records before the action that failed.
const FailAction = "fail"

// Rewrite names the concrete kind of an earlier ambiguous intake.
type Rewrite struct {
	Index int
	Kind  string
}

// Step is the outcome of applying one action to an inventory.
type Step struct {
	// Keep is false when the action is impossible and must be dropped.
	Keep bool
	// Rename is the new action name when the action itself was ambiguous
	// and its kind could be inferred. Empty means unchanged.
	Rename string
	// Rewrites lists earlier output actions whose kind is now known.
	Rewrites []Rewrite
}

// Resolver applies the registry's game piece rules to timelines.
type Resolver struct {
	rules    *schema.PieceRules
	failName func(string) string
}

// NewResolver builds a resolver from a registry.
func NewResolver(reg *schema.Registry) *Resolver {
	return &Resolver{rules: reg.Pieces, failName: reg.FailName}
}

// Rules returns the game piece rules the resolver uses.
func (r *Resolver) Rules() *schema.PieceRules { return r.rules }

// NewInventory returns the starting inventory for a match.
func (r *Resolver) NewInventory(hasPreload bool) Inventory {
	return NewInventory(r.rules, hasPreload)
}

// Step applies action, which would be written at output position index, to
// inv. The returned inventory is only meaningful when step.Keep is true.
func (r *Resolver) Step(inv Inventory, action string, index int) (Inventory, Step) {
	category, kind := r.rules.Classify(action)
	switch category {
	case schema.CategoryIntake:
		return r.intake(inv, action, kind, index)
	case schema.CategoryScore:
		return r.score(inv, action, kind)
	default:
		return inv, Step{Keep: true}
	}
}

func (r *Resolver) intake(inv Inventory, action, kind string, index int) (Inventory, Step) {
	if inv.Len() >= r.rules.Capacity {
		return inv, Step{}
	}
	if inv.Len() == 0 {
		return inv.push(Item{Kind: kind, Index: index}), Step{Keep: true}
	}

	ambiguous := r.rules.IsAmbiguous(kind)
	for _, held := range inv.items {
		if !ambiguous && held.Kind == kind {
			// Two pieces of one kind cannot be held at once.
			return inv, Step{}
		}
	}

	var step Step
	switch {
	case ambiguous:
		for _, held := range inv.items {
			if r.rules.IsAmbiguous(held.Kind) {
				continue
			}
			if other, ok := r.rules.Other(held.Kind); ok {
				kind = other
				step.Rename = r.rules.Resolve(action, other)
			}
			break
		}
	default:
		if other, ok := r.rules.Other(kind); ok {
			for i, held := range inv.items {
				if r.rules.IsAmbiguous(held.Kind) {
					inv = inv.setKind(i, other)
					step.Rewrites = append(step.Rewrites, Rewrite{Index: held.Index, Kind: other})
				}
			}
		}
	}
	step.Keep = true
	return inv.push(Item{Kind: kind, Index: index}), step
}

func (r *Resolver) score(inv Inventory, action, kind string) (Inventory, Step) {
	if inv.Len() == 0 {
		return inv, Step{}
	}

	if r.rules.IsAmbiguous(kind) {
		held := inv.items[0]
		step := Step{Keep: true}
		if !r.rules.IsAmbiguous(held.Kind) {
			step.Rename = r.rules.Resolve(action, held.Kind)
		}
		return inv.remove(0), step
	}

	if inv.Len() == 1 {
		held := inv.items[0]
		switch {
		case held.Kind == kind:
			return inv.remove(0), Step{Keep: true}
		case r.rules.IsAmbiguous(held.Kind):
			return inv.remove(0), Step{Keep: true, Rewrites: []Rewrite{{Index: held.Index, Kind: kind}}}
		default:
			return inv, Step{}
		}
	}

	for i, held := range inv.items {
		if !r.rules.IsAmbiguous(held.Kind) {
			continue
		}
		step := Step{Keep: true, Rewrites: []Rewrite{{Index: held.Index, Kind: kind}}}
		inv = inv.remove(i)
		// The pieces left behind cannot be the scored kind as well.
		if other, ok := r.rules.Other(kind); ok {
			for j, rest := range inv.items {
				if r.rules.IsAmbiguous(rest.Kind) {
					inv = inv.setKind(j, other)
					step.Rewrites = append(step.Rewrites, Rewrite{Index: rest.Index, Kind: other})
				}
			}
		}
		return inv, step
	}
	for i, held := range inv.items {
		if held.Kind == kind {
			return inv.remove(i), Step{Keep: true}
		}
	}
	return inv, Step{}
}

// Apply writes a kept step into out: earlier ambiguous actions named by the
// step's rewrites are renamed, then action (renamed if needed) is appended.
func (r *Resolver) Apply(out scouting.Timeline, action scouting.Action, step Step) scouting.Timeline {
	for _, rw := range step.Rewrites {
		if rw.Index < 0 || rw.Index >= len(out) {
			continue
		}
		out[rw.Index].ActionType = r.rules.Resolve(out[rw.Index].ActionType, rw.Kind)
	}
	if step.Rename != "" {
		action.ActionType = step.Rename
	}
	return append(out, action)
}

// ResolveInventory drops impossible actions in a single left to right pass.
// The input is not modified.
func (r *Resolver) ResolveInventory(tl scouting.Timeline, hasPreload bool) scouting.Timeline {
	out := make(scouting.Timeline, 0, len(tl))
	inv := r.NewInventory(hasPreload)
	for _, a := range tl {
		next, step := r.Step(inv, a.ActionType, len(out))
		if !step.Keep {
			monitoring.Debug("dropped impossible action", "time", a.Time, "action", a.ActionType, "held", inv.Kinds())
			continue
		}
		inv = next
		out = r.Apply(out, a, step)
	}
	return out
}

// ConsolidateFails fuses every fail marker that is not last with the action
// after it. The fused action keeps the marker's time.
func (r *Resolver) ConsolidateFails(tl scouting.Timeline) scouting.Timeline {
	out := make(scouting.Timeline, 0, len(tl))
	for i := 0; i < len(tl); i++ {
		a := tl[i]
		if a.ActionType == FailAction && i+1 < len(tl) {
			a.ActionType = r.failName(tl[i+1].ActionType)
			i++
		}
		out = append(out, a)
	}
	return out
}

// Resolve runs the inventory pass followed by fail consolidation.
func (r *Resolver) Resolve(tl scouting.Timeline, hasPreload bool) scouting.Timeline {
	return r.ConsolidateFails(r.ResolveInventory(tl, hasPreload))
}
