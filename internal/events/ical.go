package events

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

const productID = "-//almanac//calendar export//EN"

// ExportICS serializes entries as a VCALENDAR named name. typeName resolves
// an entry's type to the category written on the event.
func ExportICS(name string, entries []Entry, typeName func(typeID int) string, stamp time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(name)

	for _, e := range entries {
		ev := cal.AddEvent(fmt.Sprintf("event-%d@almanac", e.ID))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(e.Title)
		ev.SetURL(EventURL(e.ID))
		if e.AllDay {
			ev.SetAllDayStartAt(e.Start)
			ev.SetAllDayEndAt(e.End)
		} else {
			ev.SetStartAt(e.Start)
			ev.SetEndAt(e.End)
		}
		if typeName != nil {
			if n := typeName(e.TypeID); n != "" {
				ev.SetProperty(ics.ComponentPropertyCategories, n)
			}
		}
	}
	return []byte(cal.Serialize())
}
