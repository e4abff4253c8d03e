// Package dateutil provides the calendar-grid date math shared by all
// views: week anchoring, per-view visible ranges, navigation and the
// date-key/label formatting used as map keys and toolbar text.
package dateutil

import (
	"fmt"
	"time"

	"calweb/internal/model"
)

// ViewMode selects the shape of the visible grid.
type ViewMode string

const (
	ViewMonth  ViewMode = "month"
	ViewWeek   ViewMode = "week"
	ViewDay    ViewMode = "day"
	ViewAgenda ViewMode = "agenda"
)

// ParseViewMode validates a mode string, defaulting to month.
func ParseViewMode(s string) ViewMode {
	switch ViewMode(s) {
	case ViewWeek, ViewDay, ViewAgenda:
		return ViewMode(s)
	default:
		return ViewMonth
	}
}

// DefaultAgendaDays is the fixed lookahead window of the agenda view.
const DefaultAgendaDays = 30

// monthGridDays is the fixed 6x7 month grid.
const monthGridDays = 42

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// StartOfWeek returns the Monday 00:00:00 of the week containing t,
// ISO convention (Monday=0 ... Sunday=6), independent of locale.
func StartOfWeek(t time.Time) time.Time {
	day := (int(t.Weekday()) + 6) % 7
	return StartOfDay(t).AddDate(0, 0, -day)
}

// SameDate reports whether a and b fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Range computes the visible date range for a view mode and anchor
// date. agendaDays tunes the agenda window; values <= 0 mean
// DefaultAgendaDays.
//
//   - month:  StartOfWeek(first of month) .. +41 days, always 42 cells
//   - week:   StartOfWeek(anchor) .. +6 days
//   - day:    anchor's single day
//   - agenda: anchor midnight .. +agendaDays-1 days
func Range(mode ViewMode, anchor time.Time, agendaDays int) model.VisibleRange {
	if agendaDays <= 0 {
		agendaDays = DefaultAgendaDays
	}
	switch mode {
	case ViewWeek:
		start := StartOfWeek(anchor)
		return model.VisibleRange{Start: start, End: EndOfDay(start.AddDate(0, 0, 6))}
	case ViewDay:
		return model.VisibleRange{Start: StartOfDay(anchor), End: EndOfDay(anchor)}
	case ViewAgenda:
		start := StartOfDay(anchor)
		return model.VisibleRange{Start: start, End: EndOfDay(start.AddDate(0, 0, agendaDays-1))}
	default: // month
		firstOfMonth := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
		start := StartOfWeek(firstOfMonth)
		return model.VisibleRange{Start: start, End: EndOfDay(start.AddDate(0, 0, monthGridDays-1))}
	}
}

// Shift moves the anchor by delta view-steps: months for the month
// view, weeks for the week view, single days otherwise. No clamping.
func Shift(mode ViewMode, anchor time.Time, delta int) time.Time {
	switch mode {
	case ViewMonth:
		return anchor.AddDate(0, delta, 0)
	case ViewWeek:
		return anchor.AddDate(0, 0, delta*7)
	default:
		return anchor.AddDate(0, 0, delta)
	}
}

// DateKey formats t as YYYY-MM-DD in t's location. Keys are stable and
// lexically sortable.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDateKey parses a YYYY-MM-DD key back into a midnight time in
// loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", key, loc)
}

// WeekdayShort returns the fixed two-letter weekday label, Monday
// first.
func WeekdayShort(t time.Time) string {
	labels := [7]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}
	return labels[(int(t.Weekday())+6)%7]
}

// WeekdayHeaders returns the seven column headers for grid views.
func WeekdayHeaders() []string {
	return []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}
}

// MonthShort returns the fixed three-letter month abbreviation.
func MonthShort(t time.Time) string {
	return t.Format("Jan")
}

// TimeLabel formats the time-of-day as HH:MM.
func TimeLabel(t time.Time) string {
	return t.Format("15:04")
}

// LongDate renders e.g. "Mo, 2. Jan 2006" for day headers.
func LongDate(t time.Time) string {
	return fmt.Sprintf("%s, %d. %s %d", WeekdayShort(t), t.Day(), MonthShort(t), t.Year())
}

// DayMonth renders e.g. "2. Jan".
func DayMonth(t time.Time) string {
	return fmt.Sprintf("%d. %s", t.Day(), MonthShort(t))
}

// RangeLabel is the toolbar caption for the current view.
func RangeLabel(mode ViewMode, anchor time.Time, r model.VisibleRange) string {
	switch mode {
	case ViewMonth:
		return fmt.Sprintf("%s %d", MonthShort(anchor), anchor.Year())
	case ViewWeek, ViewAgenda:
		return fmt.Sprintf("%s – %s %d", DayMonth(r.Start), DayMonth(r.End), r.Start.Year())
	default:
		return LongDate(r.Start)
	}
}
