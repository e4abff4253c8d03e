package view

import (
	"calweb/internal/dateutil"
	"calweb/internal/projection"
)

// DayGrid is the rendered single-day view.
type DayGrid struct {
	Label  string    `json:"label"`
	Hours  []string  `json:"hours"`
	Column DayColumn `json:"column"`
}

// Day renders one day as an all-day lane plus a timed lane.
func Day(in Input, opts Options) DayGrid {
	opts = opts.Normalize()
	day := in.Range.Start
	byKey := projection.GroupByDateKey(in.Pairs)
	return DayGrid{
		Label:  dateutil.RangeLabel(dateutil.ViewDay, in.Anchor, in.Range),
		Hours:  hourLabels(),
		Column: dayColumn(day, byKey[dateutil.DateKey(day)], in, opts),
	}
}
