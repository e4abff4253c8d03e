// Package view renders the four calendar views as declarative,
// JSON-serializable grid descriptions. Renderers are pure functions of
// the projected snapshot, the visible range and the anchor date; they
// never mutate their inputs. Every chip and block carries a prefilled
// editor intent, so the consuming UI only forwards clicks.
package view

import (
	"fmt"
	"time"

	"calweb/internal/dateutil"
	"calweb/internal/layout"
	"calweb/internal/model"
)

// Options are the tunable rendering parameters. The defaults match the
// original UI.
type Options struct {
	// MonthMaxChips caps the chips shown per month cell before the
	// "+N more" affordance takes over.
	MonthMaxChips int
	// AgendaDays is the agenda view's lookahead window.
	AgendaDays int
	// Geometry maps timed events onto lane pixels.
	Geometry layout.Geometry
	// SnapMinutes rounds timed-lane clicks to this step.
	SnapMinutes int
}

// DefaultOptions returns the stock parameters: 4 chips, 30 days, 48px
// hours, 20px minimum block, 30-minute snapping.
func DefaultOptions() Options {
	return Options{
		MonthMaxChips: 4,
		AgendaDays:    dateutil.DefaultAgendaDays,
		Geometry:      layout.DefaultGeometry(),
		SnapMinutes:   layout.DefaultSnapMinutes,
	}
}

// Normalize fills zero values with defaults.
func (o Options) Normalize() Options {
	def := DefaultOptions()
	if o.MonthMaxChips <= 0 {
		o.MonthMaxChips = def.MonthMaxChips
	}
	if o.AgendaDays <= 0 {
		o.AgendaDays = def.AgendaDays
	}
	if o.Geometry.HourHeightPx <= 0 {
		o.Geometry.HourHeightPx = def.Geometry.HourHeightPx
	}
	if o.Geometry.MinBlockHeightPx <= 0 {
		o.Geometry.MinBlockHeightPx = def.Geometry.MinBlockHeightPx
	}
	if o.SnapMinutes <= 0 {
		o.SnapMinutes = def.SnapMinutes
	}
	return o
}

// Input is the state snapshot a renderer works from. Pairs must
// already be filtered to the selected calendars and the visible range.
type Input struct {
	Pairs              []model.CalendarEventPair
	Range              model.VisibleRange
	Anchor             time.Time
	Today              time.Time
	DefaultCalendarURL string
}

// Chip is one clickable event entry (month cells, all-day lanes,
// agenda rows, overflow lists).
type Chip struct {
	Summary   string             `json:"summary"`
	Color     string             `json:"color,omitempty"`
	TimeLabel string             `json:"timeLabel"`
	AllDay    bool               `json:"allDay"`
	Intent    model.EditorIntent `json:"intent"`
}

// Block is one timed event positioned inside a 24h lane.
type Block struct {
	Summary    string             `json:"summary"`
	Color      string             `json:"color,omitempty"`
	TimeRange  string             `json:"timeRange"`
	TopPx      float64            `json:"topPx"`
	HeightPx   float64            `json:"heightPx"`
	LeftPct    float64            `json:"leftPct"`
	WidthPct   float64            `json:"widthPct"`
	TrackIndex int                `json:"trackIndex"`
	TrackCount int                `json:"trackCount"`
	Intent     model.EditorIntent `json:"intent"`
}

// editIntent prefills the editor from an existing pair.
func editIntent(p model.CalendarEventPair) model.EditorIntent {
	return model.EditorIntent{
		Href:        p.Event.Href,
		ETag:        p.Event.ETag,
		CalendarURL: p.Calendar.URL,
		Summary:     p.Event.Summary,
		Description: p.Event.Description,
		Location:    p.Event.Location,
		Start:       p.Event.Start,
		End:         p.Event.End,
		AllDay:      p.Event.AllDay,
	}
}

func chipFor(p model.CalendarEventPair) Chip {
	label := "All day"
	if !p.Event.AllDay {
		label = dateutil.TimeLabel(p.Event.Start)
	}
	return Chip{
		Summary:   p.Event.Summary,
		Color:     colorOf(p.Calendar),
		TimeLabel: label,
		AllDay:    p.Event.AllDay,
		Intent:    editIntent(p),
	}
}

func colorOf(cal model.Calendar) string {
	if cal.Color == nil {
		return ""
	}
	return *cal.Color
}

// CellCreateIntent is the editor prefill for a click on empty month
// cell space: a one-hour slot starting at 09:00 local time that day.
func CellCreateIntent(day time.Time, calendarURL string) model.EditorIntent {
	start := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, day.Location())
	return model.EditorIntent{
		CalendarURL: calendarURL,
		Start:       start,
		End:         start.Add(time.Hour),
	}
}

// AllDayCreateIntent is the prefill for a click in the all-day lane:
// that day's midnight through the next.
func AllDayCreateIntent(day time.Time, calendarURL string) model.EditorIntent {
	start := dateutil.StartOfDay(day)
	return model.EditorIntent{
		CalendarURL: calendarURL,
		Start:       start,
		End:         start.AddDate(0, 0, 1),
		AllDay:      true,
	}
}

// TimedCreateIntent maps a click's vertical offset within a timed lane
// to a one-hour slot at the snapped time.
func TimedCreateIntent(day time.Time, offsetPx, laneHeightPx float64, calendarURL string, opts Options) model.EditorIntent {
	opts = opts.Normalize()
	minutes := layout.SnapToMinutes(offsetPx, laneHeightPx, opts.SnapMinutes)
	start := time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, day.Location())
	return model.EditorIntent{
		CalendarURL: calendarURL,
		Start:       start,
		End:         start.Add(time.Hour),
	}
}

// hourLabels is the 00:00 .. 23:00 gutter of the timed lane.
func hourLabels() []string {
	out := make([]string, 24)
	for h := range out {
		out[h] = fmt.Sprintf("%02d:00", h)
	}
	return out
}

func timeRangeLabel(start, end time.Time) string {
	return dateutil.TimeLabel(start) + "–" + dateutil.TimeLabel(end)
}
