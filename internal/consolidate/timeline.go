package consolidate

import (
	"strings"

	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
	"github.com/frc-scouting/scoutqr/internal/timeline"
)

// MinTrustedScouts is the smallest group whose majority vote is trusted.
const MinTrustedScouts = 3

const failPrefix = "fail_"

// sameAction folds a failed attempt onto the action that was attempted and a
// resolved piece kind onto the ambiguous action, so "tele_fail_net" votes with
// "tele_net" and "auto_intake_mark_algae" with "auto_intake_mark".
func sameAction(rules *schema.PieceRules, actionType string) string {
	return rules.Unresolve(strings.Replace(actionType, failPrefix, "", 1))
}

type candidate struct {
	action  scouting.Action
	present bool
	vote    string
}

func (c candidate) key() string {
	if !c.present {
		return ""
	}
	return c.vote
}

// TimelineGroup merges several scouts' timelines of one robot in one match.
//
// Position by position, the scouts' actions vote. A unique winner is taken;
// a unique vote for "no more actions" ends the timeline. Without a unique
// winner the first remaining scout's action is used and the result is
// flagged suspicious. Every choice is checked against the robot's
// inventory; an impossible choice is struck from the vote and the vote is
// retried among the remaining actions until one fits or none are left. The
// result is also suspicious when fewer than MinTrustedScouts
// timelines were given.
func TimelineGroup(r *timeline.Resolver, timelines []scouting.Timeline, hasPreload bool) (scouting.Timeline, bool) {
	sus := len(timelines) < MinTrustedScouts
	out := scouting.Timeline{}
	inv := r.NewInventory(hasPreload)

	longest := 0
	for _, tl := range timelines {
		longest = max(longest, len(tl))
	}

	for i := 0; i < longest; i++ {
		live := make([]candidate, len(timelines))
		for j, tl := range timelines {
			if i < len(tl) {
				live[j] = candidate{action: tl[i], present: true, vote: sameAction(r.Rules(), tl[i].ActionType)}
			}
		}

		for len(live) > 0 {
			chosen, unique := vote(live)
			if unique && !chosen.present {
				return out, sus
			}
			if !unique {
				sus = true
			}
			next, step := r.Step(inv, chosen.action.ActionType, len(out))
			if !step.Keep {
				monitoring.Debug("struck impossible candidate", "position", i, "action", chosen.action.ActionType, "held", inv.Kinds())
				live = strike(live, chosen.key())
				continue
			}
			inv = next
			out = r.Apply(out, chosen.action, step)
			break
		}
	}
	return out, sus
}

// vote picks the candidate to try. unique reports whether one key had the
// most votes. When it did, the most common spelling of that action is
// returned; when it did not, the first present candidate is.
func vote(live []candidate) (candidate, bool) {
	keys := make([]string, len(live))
	for i, c := range live {
		keys[i] = c.key()
	}
	modal, _ := modes(keys)
	if len(modal) == 1 {
		var spellings []string
		for _, c := range live {
			if c.key() == modal[0] && c.present {
				spellings = append(spellings, c.action.ActionType)
			}
		}
		if len(spellings) == 0 {
			return candidate{}, true
		}
		best, _ := modes(spellings)
		for _, c := range live {
			if c.present && c.action.ActionType == best[0] {
				return c, true
			}
		}
	}
	for _, c := range live {
		if c.present {
			return c, false
		}
	}
	// Only reachable when every candidate is absent, which is a unique vote.
	return candidate{}, true
}

// strike removes every candidate voting for key. Absent candidates go too:
// once a vote has been struck, running out of candidates leaves the position
// empty rather than ending the timeline.
func strike(live []candidate, key string) []candidate {
	out := live[:0:0]
	for _, c := range live {
		if c.present && c.key() != key {
			out = append(out, c)
		}
	}
	return out
}
