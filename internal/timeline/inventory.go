// Package timeline repairs per-scout action timelines. A single pass tracks
// which game pieces the robot holds, drops actions that are impossible given
// that inventory and names the piece kind of ambiguous intakes once a later
// action reveals it. A second pass fuses fail markers with the action that
// failed.
package timeline

import (
	"github.com/frc-scouting/scoutqr/internal/schema"
)

// Item is one held game piece. Index is the position in the output timeline
// of the action that produced it, or -1 for a preload.
type Item struct {
	Kind  string
	Index int
}

// Inventory is the set of pieces a robot holds. It is a value type: every
// operation returns a new Inventory and leaves the receiver unchanged.
type Inventory struct {
	items []Item
}

// NewInventory returns the starting inventory for a match.
func NewInventory(rules *schema.PieceRules, hasPreload bool) Inventory {
	if hasPreload && rules.Preload != "" {
		return Inventory{items: []Item{{Kind: rules.Preload, Index: -1}}}
	}
	return Inventory{}
}

// Len is the number of held pieces.
func (inv Inventory) Len() int { return len(inv.items) }

// Items returns a copy of the held pieces.
func (inv Inventory) Items() []Item {
	return append([]Item(nil), inv.items...)
}

// Kinds returns the kinds of the held pieces in intake order.
func (inv Inventory) Kinds() []string {
	out := make([]string, len(inv.items))
	for i, it := range inv.items {
		out[i] = it.Kind
	}
	return out
}

func (inv Inventory) push(it Item) Inventory {
	items := make([]Item, 0, len(inv.items)+1)
	items = append(items, inv.items...)
	return Inventory{items: append(items, it)}
}

func (inv Inventory) remove(i int) Inventory {
	items := make([]Item, 0, len(inv.items)-1)
	items = append(items, inv.items[:i]...)
	return Inventory{items: append(items, inv.items[i+1:]...)}
}

func (inv Inventory) setKind(i int, kind string) Inventory {
	items := append([]Item(nil), inv.items...)
	items[i].Kind = kind
	return Inventory{items: items}
}
