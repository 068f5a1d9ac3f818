package events

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

type Classification string

const (
	ClassOriginal  Classification = "original"
	ClassVariation Classification = "variation"
	ClassRepeat    Classification = "repeat"
)

const colorBuckets = 12

const classPrefix = "fcc-"

// Classify tells generated repeats, edited occurrences (variations) and
// stand-alone or parent events (originals) apart.
func Classify(e model.Event) Classification {
	switch {
	case e.IsRepeat:
		return ClassRepeat
	case e.ParentID != nil:
		return ClassVariation
	default:
		return ClassOriginal
	}
}

// Entry is an event placed on a calendar.
type Entry struct {
	ID             int
	TypeID         int
	Title          string
	AllDay         bool
	Start          time.Time
	End            time.Time
	Classification Classification
	ColorBucket    int
	ShowInCalendar bool
}

// ToCalendarEntry localizes e into loc. All-day entries end at the start of
// the day after their last day; timed entries keep their instants.
func ToCalendarEntry(e model.Event, loc *time.Location) Entry {
	if loc == nil {
		loc = time.UTC
	}
	entry := Entry{
		ID:             e.ID,
		TypeID:         e.TypeID,
		Title:          e.Title,
		AllDay:         e.AllDay,
		Classification: Classify(e),
		ColorBucket:    ColorBucket(e.TypeID),
		ShowInCalendar: e.ShowInCalendar,
	}

	if e.AllDay {
		if e.DateStarts != nil {
			entry.Start = dateIn(*e.DateStarts, loc)
		}
		last := e.DateEnds
		if last == nil {
			last = e.DateStarts
		}
		if last != nil {
			entry.End = dateIn(*last, loc).AddDate(0, 0, 1)
		}
		return entry
	}

	if e.Starts != nil {
		entry.Start = e.Starts.In(loc)
		entry.End = entry.Start
	}
	if e.Ends != nil {
		entry.End = e.Ends.In(loc)
	}
	return entry
}

// ColorBucket maps a type id onto one of twelve colour classes.
func ColorBucket(typeID int) int {
	b := typeID % colorBuckets
	if b < 0 {
		b += colorBuckets
	}
	return b
}

// CalendarClasses are the css classes of an entry; typeName is the verbose
// name of the event's type.
func CalendarClasses(e Entry, typeName string) []string {
	classes := []string{
		slug.Make(typeName),
		fmt.Sprintf("color-%d", e.ColorBucket),
		"is-" + string(e.Classification),
	}
	if !e.ShowInCalendar {
		classes = append(classes, "do-not-show-in-calendar")
	}
	for i, c := range classes {
		classes[i] = classPrefix + c
	}
	return classes
}

// dateIn reads the calendar date of d, stored at midnight UTC, as midnight in
// loc.
func dateIn(d time.Time, loc *time.Location) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

// CalendarItem is the JSON shape calendar widgets consume.
type CalendarItem struct {
	Title     string   `json:"title"`
	AllDay    bool     `json:"allDay"`
	Start     string   `json:"start"`
	End       string   `json:"end"`
	URL       string   `json:"url"`
	ClassName []string `json:"className"`
}

func EventURL(id int) string {
	return fmt.Sprintf("/api/admin/events/%d", id)
}

func NewCalendarItem(e Entry, typeName string) CalendarItem {
	layout := time.RFC3339
	if e.AllDay {
		layout = time.DateOnly
	}
	return CalendarItem{
		Title:     e.Title,
		AllDay:    e.AllDay,
		Start:     e.Start.Format(layout),
		End:       e.End.Format(layout),
		URL:       EventURL(e.ID),
		ClassName: CalendarClasses(e, typeName),
	}
}
