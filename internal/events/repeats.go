package events

import (
	"time"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

// MaxRepeats caps the repeats generated for one original.
const MaxRepeats = 1000

// GenerateRepeats builds the repeat events of a recurring original for the
// occurrences within horizon of its start. The first occurrence is the
// original itself and is skipped. Each repeat keeps the original's length.
//
// Timed rules are expanded in loc so that wall-clock times hold across
// daylight saving changes. A nil loc keeps the location of the start.
func GenerateRepeats(original model.Event, horizon time.Duration, loc *time.Location) ([]model.Event, error) {
	if original.RecurrenceRule == nil || *original.RecurrenceRule == "" {
		return nil, nil
	}

	anchor, loc, ok := anchorOf(original, loc)
	if !ok {
		return nil, model.NewValidationError("recurrence_rule", "recurring events need a start")
	}
	rule, err := ParseRule(*original.RecurrenceRule, anchor, loc)
	if err != nil {
		return nil, err
	}
	seq, err := Expand(rule, &Window{Start: anchor, End: anchor.Add(horizon)}, MaxRepeats+1)
	if err != nil {
		return nil, err
	}

	first := anchor.Truncate(time.Second)
	var out []model.Event
	for t := range seq {
		if t.Equal(first) {
			continue
		}
		if len(out) == MaxRepeats {
			break
		}
		out = append(out, repeatAt(original, t))
	}
	return out, nil
}

func anchorOf(e model.Event, loc *time.Location) (time.Time, *time.Location, bool) {
	if e.AllDay {
		if e.DateStarts == nil {
			return time.Time{}, nil, false
		}
		y, m, d := e.DateStarts.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), time.UTC, true
	}
	if e.Starts == nil {
		return time.Time{}, nil, false
	}
	if loc == nil {
		loc = e.Starts.Location()
	}
	return e.Starts.In(loc), loc, true
}

func repeatAt(original model.Event, at time.Time) model.Event {
	parentID := original.ID
	r := model.Event{
		TypeID:         original.TypeID,
		Title:          original.Title,
		AllDay:         original.AllDay,
		IsRepeat:       true,
		ParentID:       &parentID,
		ShowInCalendar: original.ShowInCalendar,
	}

	if original.AllDay {
		y, m, d := at.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		r.DateStarts = &start
		if original.DateEnds != nil {
			end := start.Add(original.DateEnds.Sub(*original.DateStarts))
			r.DateEnds = &end
		}
		return r
	}

	start := at
	r.Starts = &start
	if original.Ends != nil {
		end := start.Add(original.Duration())
		r.Ends = &end
	}
	return r
}
