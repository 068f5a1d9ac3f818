package events

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

var jan1 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func mustRule(t *testing.T, text string, dtstart time.Time) *Rule {
	t.Helper()
	r, err := ParseRule(text, dtstart, time.UTC)
	require.NoError(t, err)
	return r
}

func TestExpandDailyCountWithLimit(t *testing.T) {
	rule := mustRule(t, "FREQ=DAILY;COUNT=5", jan1)

	seq, err := Expand(rule, nil, 5)
	require.NoError(t, err)
	got := slices.Collect(seq)

	require.Len(t, got, 5)
	for i, occ := range got {
		assert.Equal(t, jan1.AddDate(0, 0, i), occ)
	}

	seq, err = Expand(rule, nil, 3)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 3)
}

func TestExpandWindowIsHalfOpen(t *testing.T) {
	rule := mustRule(t, "FREQ=DAILY", jan1)

	w := &Window{
		Start: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
	}
	seq, err := Expand(rule, w, 0)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC),
	}, slices.Collect(seq))

	// window and limit together
	seq, err = Expand(rule, w, 1)
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 1)
}

func TestExpandFarWindow(t *testing.T) {
	y2000 := time.Date(2000, 1, 1, 9, 0, 0, 0, time.UTC)
	window := &Window{Start: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2030, 1, 6, 0, 0, 0, 0, time.UTC)}

	seq, err := Expand(mustRule(t, "FREQ=DAILY", y2000), window, 0)
	require.NoError(t, err)
	got := slices.Collect(seq)
	require.Len(t, got, 5)
	assert.Equal(t, time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC), got[0])

	// millions of minutes lie between the anchor and the window
	seq, err = Expand(mustRule(t, "FREQ=MINUTELY", y2000), window, 5)
	require.NoError(t, err)
	assert.Empty(t, slices.Collect(seq))
}

func TestExpandIsRestartable(t *testing.T) {
	rule := mustRule(t, "FREQ=WEEKLY;BYDAY=MO,WE", jan1)
	seq, err := Expand(rule, nil, 6)
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Len(t, first, 6)
	assert.Equal(t, first, second)

	// stopping early does not affect the next range
	for range seq {
		break
	}
	assert.Equal(t, first, slices.Collect(seq))
}

func TestExpandRejectsUnboundedCalls(t *testing.T) {
	rule := mustRule(t, "FREQ=DAILY", jan1)

	_, err := Expand(rule, nil, 0)
	assert.ErrorIs(t, err, ErrUnbounded)

	_, err = Expand(rule, &Window{Start: jan1, End: jan1}, 0)
	var verr *model.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestParseRuleMalformed(t *testing.T) {
	for _, text := range []string{"FREQ=SOMETIMES", "RRULE:COUNT=3", "", "   \n "} {
		_, err := ParseRule(text, jan1, time.UTC)
		var verr *model.ValidationError
		require.True(t, errors.As(err, &verr), "rule %q", text)
		assert.Equal(t, "recurrence_rule", verr.Field)
		assert.NotEmpty(t, verr.Message)
	}

	_, err := ParseRule("FREQ=SOMETIMES", jan1, time.UTC)
	assert.Contains(t, err.Error(), "SOMETIMES", "the parser's message is carried through")
}

func TestParseRulePropertyLines(t *testing.T) {
	rule := mustRule(t, "RRULE:FREQ=WEEKLY;COUNT=2\nDTSTART:20240105T100000Z", jan1)
	assert.Equal(t, time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), rule.DTStart().UTC())

	seq, err := Expand(rule, nil, 10)
	require.NoError(t, err)
	got := slices.Collect(seq)
	require.Len(t, got, 2)
	assert.True(t, got[1].Equal(time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)))

	rule = mustRule(t, "FREQ=DAILY;COUNT=3\nEXDATE:20240102T090000Z", jan1)
	seq, err = Expand(rule, nil, 10)
	require.NoError(t, err)
	got = slices.Collect(seq)
	require.Len(t, got, 2)
	assert.True(t, got[1].Equal(jan1.AddDate(0, 0, 2)))
}

func TestHasPropertyName(t *testing.T) {
	assert.True(t, hasPropertyName("RRULE:FREQ=DAILY"))
	assert.True(t, hasPropertyName("dtstart;TZID=Europe/Paris:20240101T090000"))
	assert.False(t, hasPropertyName("FREQ=DAILY"))
	assert.False(t, hasPropertyName("RRULE"))
}

func TestPreview(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	res := Preview("FREQ=DAILY", 0, now)
	assert.Empty(t, res.Error)
	assert.Len(t, res.Occurrences, DefaultPreviewLimit)
	assert.Equal(t, now, res.Occurrences[0])

	res = Preview("FREQ=HOURLY", 10_000, now)
	assert.Len(t, res.Occurrences, MaxPreviewLimit)

	res = Preview("FREQ=SOMETIMES", 5, now)
	assert.Nil(t, res.Occurrences)
	assert.Contains(t, res.Error, "SOMETIMES")
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"`+res.Error+`"}`, string(raw))

	res = Preview("FREQ=DAILY;UNTIL=20200101T000000Z", 5, now)
	raw, err = json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{"occurrences":[]}`, string(raw))
}
