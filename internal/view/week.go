package view

import (
	"time"

	"calweb/internal/dateutil"
	"calweb/internal/layout"
	"calweb/internal/model"
	"calweb/internal/projection"
)

// DayColumn is one day of the week/day views: an all-day lane plus a
// 24-hour timed lane with laid-out blocks.
type DayColumn struct {
	DateKey      string             `json:"dateKey"`
	Weekday      string             `json:"weekday"`
	Day          int                `json:"day"`
	Today        bool               `json:"today"`
	AllDay       []Chip             `json:"allDay"`
	AllDayIntent model.EditorIntent `json:"allDayIntent"`
	Blocks       []Block            `json:"blocks"`
}

// WeekGrid is the rendered week view: seven day columns sharing one
// hour gutter.
type WeekGrid struct {
	Label string      `json:"label"`
	Hours []string    `json:"hours"`
	Days  []DayColumn `json:"days"`
}

// Week renders the week view starting at the range's Monday.
func Week(in Input, opts Options) WeekGrid {
	opts = opts.Normalize()
	byKey := projection.GroupByDateKey(in.Pairs)

	grid := WeekGrid{
		Label: dateutil.RangeLabel(dateutil.ViewWeek, in.Anchor, in.Range),
		Hours: hourLabels(),
		Days:  make([]DayColumn, 0, 7),
	}
	for i := 0; i < 7; i++ {
		day := in.Range.Start.AddDate(0, 0, i)
		grid.Days = append(grid.Days, dayColumn(day, byKey[dateutil.DateKey(day)], in, opts))
	}
	return grid
}

// dayColumn splits one day's pairs into the all-day lane and the laid
// out timed lane.
func dayColumn(day time.Time, pairs []model.CalendarEventPair, in Input, opts Options) DayColumn {
	col := DayColumn{
		DateKey:      dateutil.DateKey(day),
		Weekday:      dateutil.WeekdayShort(day),
		Day:          day.Day(),
		Today:        dateutil.SameDate(day, in.Today),
		AllDay:       []Chip{},
		AllDayIntent: AllDayCreateIntent(day, in.DefaultCalendarURL),
		Blocks:       []Block{},
	}

	timed := make([]model.CalendarEventPair, 0, len(pairs))
	for _, p := range pairs {
		if p.Event.AllDay {
			col.AllDay = append(col.AllDay, chipFor(p))
			continue
		}
		timed = append(timed, p)
	}

	for _, placed := range layout.Assign(timed) {
		ev := placed.Pair.Event
		left, width := layout.TrackSpan(placed.TrackIndex, placed.TrackCount)
		col.Blocks = append(col.Blocks, Block{
			Summary:    ev.Summary,
			Color:      colorOf(placed.Pair.Calendar),
			TimeRange:  timeRangeLabel(ev.Start, ev.End),
			TopPx:      opts.Geometry.TopPx(ev.Start),
			HeightPx:   opts.Geometry.BlockHeightPx(ev.Start, ev.End),
			LeftPct:    left,
			WidthPct:   width,
			TrackIndex: placed.TrackIndex,
			TrackCount: placed.TrackCount,
			Intent:     editIntent(placed.Pair),
		})
	}
	return col
}
