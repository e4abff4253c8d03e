package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStartOfWeek_MondayAnchor(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"wednesday", date(2024, time.January, 17), date(2024, time.January, 15)},
		{"monday is identity", date(2024, time.January, 15), date(2024, time.January, 15)},
		{"sunday belongs to previous monday", date(2024, time.January, 21), date(2024, time.January, 15)},
		{"crosses month boundary", date(2024, time.March, 1), date(2024, time.February, 26)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartOfWeek(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, time.Monday, got.Weekday())
		})
	}
}

func TestRange_Month_Always42Days(t *testing.T) {
	// Sweep several anchors including short/long months and leap year.
	anchors := []time.Time{
		date(2024, time.February, 14),
		date(2023, time.February, 1),
		date(2024, time.December, 31),
		date(2024, time.June, 15),
	}
	for _, anchor := range anchors {
		r := Range(ViewMonth, anchor, 0)

		assert.Equal(t, time.Monday, r.Start.Weekday(), "anchor %v", anchor)
		firstOfMonth := date(anchor.Year(), anchor.Month(), 1)
		assert.False(t, r.Start.After(firstOfMonth), "grid must start on or before the 1st")

		days := 0
		seen := map[string]bool{}
		for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
			days++
			seen[DateKey(d)] = true
		}
		assert.Equal(t, 42, days, "anchor %v", anchor)
		assert.Len(t, seen, 42, "all cell keys must be distinct")
	}
}

func TestRange_WeekDayAgenda(t *testing.T) {
	anchor := date(2024, time.January, 17) // Wednesday

	week := Range(ViewWeek, anchor, 0)
	assert.Equal(t, date(2024, time.January, 15), week.Start)
	assert.Equal(t, "2024-01-21", DateKey(week.End))

	day := Range(ViewDay, anchor, 0)
	assert.Equal(t, anchor, day.Start)
	assert.True(t, SameDate(day.Start, day.End))

	agenda := Range(ViewAgenda, anchor, 0)
	assert.Equal(t, anchor, agenda.Start)
	assert.Equal(t, "2024-02-15", DateKey(agenda.End), "30-day window is inclusive of the anchor day")

	custom := Range(ViewAgenda, anchor, 7)
	assert.Equal(t, "2024-01-23", DateKey(custom.End))
}

func TestRange_EndIsEndOfDay(t *testing.T) {
	r := Range(ViewDay, date(2024, time.May, 3), 0)
	assert.Equal(t, 23, r.End.Hour())
	assert.Equal(t, 59, r.End.Minute())
	assert.Equal(t, 59, r.End.Second())
}

func TestShift(t *testing.T) {
	anchor := date(2024, time.January, 31)

	assert.Equal(t, date(2024, time.March, 2), Shift(ViewMonth, anchor, 1),
		"Go month arithmetic normalizes Jan 31 + 1 month")
	assert.Equal(t, date(2024, time.February, 7), Shift(ViewWeek, anchor, 1))
	assert.Equal(t, date(2024, time.January, 30), Shift(ViewDay, anchor, -1))
	assert.Equal(t, date(2024, time.February, 1), Shift(ViewAgenda, anchor, 1))
}

func TestDateKeyRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	in := time.Date(2024, time.August, 9, 15, 30, 0, 0, loc)
	key := DateKey(in)
	assert.Equal(t, "2024-08-09", key)

	back, err := ParseDateKey(key, loc)
	require.NoError(t, err)
	assert.True(t, SameDate(in, back))
	assert.Equal(t, loc, back.Location())
}

func TestParseViewMode(t *testing.T) {
	assert.Equal(t, ViewWeek, ParseViewMode("week"))
	assert.Equal(t, ViewAgenda, ParseViewMode("agenda"))
	assert.Equal(t, ViewMonth, ParseViewMode(""))
	assert.Equal(t, ViewMonth, ParseViewMode("bogus"))
}

func TestLabels(t *testing.T) {
	d := date(2024, time.January, 2) // Tuesday
	assert.Equal(t, "Tu", WeekdayShort(d))
	assert.Equal(t, "Tu, 2. Jan 2024", LongDate(d))
	assert.Equal(t, "2. Jan", DayMonth(d))
	assert.Equal(t, []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}, WeekdayHeaders())

	r := Range(ViewWeek, d, 0)
	assert.Equal(t, "1. Jan – 7. Jan 2024", RangeLabel(ViewWeek, d, r))
	assert.Equal(t, "Jan 2024", RangeLabel(ViewMonth, d, r))
}
