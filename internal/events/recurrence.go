// Package events expands recurrence rules into occurrences and turns events
// into calendar entries.
package events

import (
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/teambition/rrule-go"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

// ErrUnbounded is returned by Expand when it is given neither a window nor a
// limit.
var ErrUnbounded = errors.New("expansion needs a window or a limit")

const (
	DefaultPreviewLimit = 10
	MaxPreviewLimit     = 500

	// MaxSkipped bounds the occurrences Expand walks past before a window
	// starts. rrule-go cannot seek, so a fine-grained rule anchored far
	// before its window would otherwise iterate for seconds.
	MaxSkipped = 200_000
)

var propertyNames = []string{"DTSTART", "RRULE", "RDATE", "EXRULE", "EXDATE"}

// Rule is a parsed recurrence rule anchored at a start time. It is immutable
// and can be expanded concurrently.
type Rule struct {
	text    string
	lines   []string
	dtstart time.Time
	loc     *time.Location
}

// ParseRule accepts either a bare "FREQ=..." rule or RFC 5545 property lines.
// dtstart anchors the rule unless the text has its own DTSTART line; a zero
// dtstart means now.
func ParseRule(text string, dtstart time.Time, loc *time.Location) (*Rule, error) {
	if loc == nil {
		loc = time.UTC
	}
	if dtstart.IsZero() {
		dtstart = time.Now().In(loc)
	}
	lines := normalizeLines(text)
	if len(lines) == 0 {
		return nil, model.NewValidationError("recurrence_rule", "recurrence rule is required")
	}

	r := &Rule{text: strings.TrimSpace(text), lines: lines, dtstart: dtstart, loc: loc}
	set, err := r.set()
	if err != nil {
		return nil, model.NewValidationError("recurrence_rule", err.Error())
	}
	r.dtstart = set.GetDTStart()
	return r, nil
}

func (r *Rule) String() string { return r.text }

// DTStart is the anchor the rule's occurrences are computed from.
func (r *Rule) DTStart() time.Time { return r.dtstart }

// set builds a fresh rrule set. rrule-go sorts rdates in place when an
// iterator is created, so sets are never shared between expansions.
func (r *Rule) set() (*rrule.Set, error) {
	set, err := rrule.StrSliceToRRuleSetInLoc(r.lines, r.loc)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.ToUpper(r.lines[0]), "DTSTART") {
		set.DTStart(r.dtstart)
	}
	return set, nil
}

func normalizeLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !hasPropertyName(line) {
			line = "RRULE:" + line
		}
		out = append(out, line)
	}
	// rrule-go only honours a DTSTART given as the first line
	for i, line := range out {
		if i > 0 && strings.HasPrefix(strings.ToUpper(line), "DTSTART") {
			out[0], out[i] = out[i], out[0]
			break
		}
	}
	return out
}

func hasPropertyName(line string) bool {
	upper := strings.ToUpper(line)
	for _, name := range propertyNames {
		if !strings.HasPrefix(upper, name) || len(upper) == len(name) {
			continue
		}
		if c := upper[len(name)]; c == ':' || c == ';' {
			return true
		}
	}
	return false
}

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Expand yields the occurrences of rule inside window, at most limit of them.
// Either may be omitted (nil window, limit <= 0) but not both.
//
// The returned sequence is lazy. Ranging over it twice yields the same
// occurrences. Occurrences are generated from the rule's start, so with a
// window every earlier occurrence is walked first; after MaxSkipped of them
// the sequence ends.
func Expand(rule *Rule, window *Window, limit int) (iter.Seq[time.Time], error) {
	if window == nil && limit <= 0 {
		return nil, ErrUnbounded
	}
	if window != nil && !window.End.After(window.Start) {
		return nil, model.NewValidationError("window", "end must be after start")
	}
	if _, err := rule.set(); err != nil {
		return nil, model.NewValidationError("recurrence_rule", err.Error())
	}

	return func(yield func(time.Time) bool) {
		set, err := rule.set()
		if err != nil {
			return
		}
		next := set.Iterator()

		n, skipped := 0, 0
		for {
			t, ok := next()
			if !ok {
				return
			}
			if window != nil {
				if t.Before(window.Start) {
					if skipped++; skipped > MaxSkipped {
						log.Warn().Str("rule", rule.text).Time("window_start", window.Start).
							Msg("recurrence expansion gave up before reaching the window")
						return
					}
					continue
				}
				if !t.Before(window.End) {
					return
				}
			}
			if !yield(t) {
				return
			}
			n++
			if limit > 0 && n >= limit {
				return
			}
		}
	}, nil
}
