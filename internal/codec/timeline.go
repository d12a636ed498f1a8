package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/schema"
	"github.com/frc-scouting/scoutqr/internal/scouting"
)

// timelineCodec reads and writes the fixed-width timeline field: for each
// action a zero padded time, an action code and, for super-compressed
// actions, one digit per ordinal.
type timelineCodec struct {
	spec *schema.TimelineSpec
}

// checkLength partitions raw into super-compressed blocks, times and plain
// codes and rejects it when the parts do not cover every character.
func (c *timelineCodec) checkLength(raw string) error {
	covered := 0
	for _, tok := range c.spec.Tokens().FindAllString(raw, -1) {
		covered += len(tok)
	}
	if covered != len(raw) {
		return fmt.Errorf("%w: %d of %d characters are valid tokens in %q", ErrTimelineLength, covered, len(raw), raw)
	}
	return nil
}

func (c *timelineCodec) decode(raw string) (scouting.Timeline, error) {
	out := scouting.Timeline{}
	if raw == "" {
		return out, nil
	}
	if err := c.checkLength(raw); err != nil {
		return nil, err
	}

	inTeleop := false
	pos := 0
	for pos < len(raw) {
		end := pos + c.spec.TimeWidth + c.spec.CodeWidth
		if end > len(raw) {
			return nil, fmt.Errorf("%w: truncated action at offset %d", ErrTimelineLength, pos)
		}
		timeText := raw[pos : pos+c.spec.TimeWidth]
		t, err := strconv.Atoi(timeText)
		if err != nil || t < 0 || t > c.spec.MaxTime {
			return nil, fmt.Errorf("%w: bad action time %q at offset %d", ErrMalformedToken, timeText, pos)
		}
		code := raw[pos+c.spec.TimeWidth : end]
		pos = end

		var name string
		if sa, ok := c.spec.Super(code); ok {
			if pos+sa.Width() > len(raw) {
				return nil, fmt.Errorf("%w: truncated %s ordinals", ErrTimelineLength, code)
			}
			digits := make([]int, sa.Width())
			for i := range digits {
				ch := raw[pos+i]
				if ch < '0' || ch > '9' {
					return nil, fmt.Errorf("%w: %s ordinal %q is not a digit", ErrMalformedToken, code, ch)
				}
				digits[i] = int(ch - '0')
			}
			pos += sa.Width()
			name, ok = sa.Expand(digits)
			if !ok {
				return nil, fmt.Errorf("%w: %s%s", ErrOrdinalRange, code, raw[pos-sa.Width():pos])
			}
		} else {
			name, ok = c.spec.ActionName(code)
			if !ok {
				return nil, fmt.Errorf("%w: timeline action %q", ErrUnknownCode, code)
			}
		}

		if name == c.spec.TeleopAction {
			inTeleop = true
		}
		if (inTeleop && strings.Contains(name, "auto")) || (!inTeleop && strings.Contains(name, "tele")) {
			monitoring.Debug("dropped action outside its phase", "time", t, "action", name, "in_teleop", inTeleop)
			continue
		}
		out = append(out, scouting.Action{Time: t, ActionType: name, InTeleop: inTeleop})
	}
	return out, nil
}

func (c *timelineCodec) encode(tl scouting.Timeline) (string, error) {
	var b strings.Builder
	for i, a := range tl {
		if a.Time < 0 || a.Time > c.spec.MaxTime {
			return "", fmt.Errorf("action %d: time %d outside 0..%d", i, a.Time, c.spec.MaxTime)
		}
		fmt.Fprintf(&b, "%0*d", c.spec.TimeWidth, a.Time)
		if code, ok := c.spec.ActionCode(a.ActionType); ok {
			b.WriteString(code)
			continue
		}
		sa, digits, ok := c.spec.SuperFor(a.ActionType)
		if !ok {
			return "", fmt.Errorf("action %d: %q has no timeline code", i, a.ActionType)
		}
		b.WriteString(sa.Code)
		for _, d := range digits {
			b.WriteByte(byte('0' + d))
		}
	}
	return b.String(), nil
}
