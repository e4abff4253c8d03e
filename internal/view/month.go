package view

import (
	"fmt"

	"calweb/internal/dateutil"
	"calweb/internal/model"
	"calweb/internal/projection"
)

// MonthCell is one of the 42 cells of the month grid.
type MonthCell struct {
	DateKey string `json:"dateKey"`
	Day     int    `json:"day"`
	InMonth bool   `json:"inMonth"`
	Today   bool   `json:"today"`
	// Chips holds at most MonthMaxChips entries; More lists the rest
	// for the "+N more" affordance.
	Chips        []Chip             `json:"chips"`
	MoreCount    int                `json:"moreCount"`
	More         []Chip             `json:"more,omitempty"`
	MoreLabel    string             `json:"moreLabel,omitempty"`
	CreateIntent model.EditorIntent `json:"createIntent"`
}

// MonthGrid is the rendered month view: a fixed 6x7 grid starting at
// the Monday of the week containing the first of the month.
type MonthGrid struct {
	Label    string      `json:"label"`
	Weekdays []string    `json:"weekdays"`
	Cells    []MonthCell `json:"cells"`
}

// Month renders the month view. Cells outside the anchor month are
// flagged but still populated with their events.
func Month(in Input, opts Options) MonthGrid {
	opts = opts.Normalize()
	byKey := projection.GroupByDateKey(in.Pairs)
	month := in.Anchor.Month()

	grid := MonthGrid{
		Label:    dateutil.RangeLabel(dateutil.ViewMonth, in.Anchor, in.Range),
		Weekdays: dateutil.WeekdayHeaders(),
		Cells:    make([]MonthCell, 0, 42),
	}

	for i := 0; i < 42; i++ {
		day := in.Range.Start.AddDate(0, 0, i)
		key := dateutil.DateKey(day)
		cell := MonthCell{
			DateKey:      key,
			Day:          day.Day(),
			InMonth:      day.Month() == month,
			Today:        dateutil.SameDate(day, in.Today),
			Chips:        []Chip{},
			CreateIntent: CellCreateIntent(day, in.DefaultCalendarURL),
		}

		dayPairs := byKey[key]
		for idx, p := range dayPairs {
			if idx < opts.MonthMaxChips {
				cell.Chips = append(cell.Chips, chipFor(p))
				continue
			}
			cell.More = append(cell.More, chipFor(p))
		}
		cell.MoreCount = len(cell.More)
		if cell.MoreCount > 0 {
			cell.MoreLabel = fmt.Sprintf("+%d more", cell.MoreCount)
		}

		grid.Cells = append(grid.Cells, cell)
	}
	return grid
}
