package events

import (
	"bytes"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

func TestGenerateRepeatsTimed(t *testing.T) {
	starts := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	ends := starts.Add(2 * time.Hour)
	original := model.Event{
		ID: 5, TypeID: 10, Title: "Standup", Starts: &starts, Ends: &ends,
		ShowInCalendar: true, RecurrenceRule: ptr("FREQ=WEEKLY;COUNT=4"),
	}

	repeats, err := GenerateRepeats(original, 365*24*time.Hour, time.UTC)
	require.NoError(t, err)
	require.Len(t, repeats, 3, "the first occurrence is the original")

	for i, r := range repeats {
		assert.True(t, r.IsRepeat)
		assert.Equal(t, 5, *r.ParentID)
		assert.Equal(t, "Standup", r.Title)
		assert.Nil(t, r.RecurrenceRule)
		assert.Equal(t, ClassRepeat, Classify(r))
		assert.True(t, r.Starts.Equal(starts.AddDate(0, 0, 7*(i+1))))
		assert.Equal(t, 2*time.Hour, r.Duration())
	}
}

func TestGenerateRepeatsKeepWallClockAcrossDST(t *testing.T) {
	sydney, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	// a start parsed from RFC 3339 carries a fixed offset, not a zone
	starts, err := time.Parse(time.RFC3339, "2024-03-01T10:00:00+11:00")
	require.NoError(t, err)
	ends := starts.Add(time.Hour)
	original := model.Event{
		ID: 8, TypeID: 10, Title: "Board meeting", Starts: &starts, Ends: &ends,
		RecurrenceRule: ptr("FREQ=WEEKLY;COUNT=8"),
	}

	repeats, err := GenerateRepeats(original, 365*24*time.Hour, sydney)
	require.NoError(t, err)
	require.Len(t, repeats, 7)

	// daylight saving ends in Sydney on 2024-04-07
	for _, r := range repeats {
		local := r.Starts.In(sydney)
		assert.Equal(t, 10, local.Hour(), local.Format(time.RFC3339))
		assert.Equal(t, time.Friday, local.Weekday())
		assert.Equal(t, time.Hour, r.Duration())
	}
	last := repeats[len(repeats)-1].Starts
	assert.True(t, last.Equal(time.Date(2024, 4, 19, 10, 0, 0, 0, sydney)))
	_, offset := last.Zone()
	assert.Equal(t, 10*60*60, offset)
}

func TestGenerateRepeatsAllDay(t *testing.T) {
	original := model.Event{
		ID: 6, TypeID: 10, Title: "Market", AllDay: true,
		DateStarts: date(2024, 1, 1), DateEnds: date(2024, 1, 2),
		RecurrenceRule: ptr("FREQ=MONTHLY"),
	}

	repeats, err := GenerateRepeats(original, 90*24*time.Hour, time.UTC)
	require.NoError(t, err)
	require.Len(t, repeats, 2, "February and March fall within the horizon")

	assert.Equal(t, *date(2024, 2, 1), *repeats[0].DateStarts)
	assert.Equal(t, *date(2024, 2, 2), *repeats[0].DateEnds)
	assert.Nil(t, repeats[0].Starts)
	assert.Equal(t, *date(2024, 3, 1), *repeats[1].DateStarts)
}

func TestGenerateRepeatsIsCapped(t *testing.T) {
	starts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	original := model.Event{ID: 1, Starts: &starts, RecurrenceRule: ptr("FREQ=HOURLY")}

	repeats, err := GenerateRepeats(original, 365*24*time.Hour, time.UTC)
	require.NoError(t, err)
	assert.Len(t, repeats, MaxRepeats)
}

func TestGenerateRepeatsWithoutRule(t *testing.T) {
	starts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repeats, err := GenerateRepeats(model.Event{Starts: &starts}, time.Hour, nil)
	assert.NoError(t, err)
	assert.Nil(t, repeats)

	_, err = GenerateRepeats(model.Event{RecurrenceRule: ptr("FREQ=DAILY")}, time.Hour, nil)
	assert.Error(t, err)
}

func TestExportICS(t *testing.T) {
	starts := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	ends := starts.Add(time.Hour)
	entries := []Entry{
		ToCalendarEntry(model.Event{ID: 1, TypeID: 10, Title: "Fair", AllDay: true, DateStarts: date(2024, 1, 10)}, time.UTC),
		ToCalendarEntry(model.Event{ID: 2, TypeID: 10, Title: "Talk", Starts: &starts, Ends: &ends}, time.UTC),
	}
	names := func(int) string { return "Simple event" }

	raw := ExportICS("Almanac", entries, names, starts)
	cal, err := ics.ParseCalendar(bytes.NewReader(raw))
	require.NoError(t, err)

	evs := cal.Events()
	require.Len(t, evs, 2)
	assert.Equal(t, "event-1@almanac", evs[0].Id())
	assert.Equal(t, "Fair", evs[0].GetProperty(ics.ComponentPropertySummary).Value)
	assert.Equal(t, "20240110", evs[0].GetProperty(ics.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240111", evs[0].GetProperty(ics.ComponentPropertyDtEnd).Value)
	assert.Equal(t, "Simple event", evs[0].GetProperty(ics.ComponentPropertyCategories).Value)

	start, err := evs[1].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(starts))
}
