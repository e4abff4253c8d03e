package view

import (
	"calweb/internal/dateutil"
	"calweb/internal/projection"
)

// AgendaRow is one event line under a day header.
type AgendaRow struct {
	Chip
	TimeRange string `json:"timeRange"`
}

// AgendaDay groups the rows of one non-empty day.
type AgendaDay struct {
	DateKey string      `json:"dateKey"`
	Label   string      `json:"label"`
	Rows    []AgendaRow `json:"rows"`
}

// AgendaList is the rendered agenda view: only days with at least one
// event inside the window, in ascending order.
type AgendaList struct {
	Label        string      `json:"label"`
	Days         []AgendaDay `json:"days"`
	EmptyMessage string      `json:"emptyMessage,omitempty"`
}

const agendaEmptyMessage = "No events in this period."

// Agenda renders the agenda window.
func Agenda(in Input, opts Options) AgendaList {
	byKey := projection.GroupByDateKey(projection.FilterRange(in.Pairs, in.Range))

	list := AgendaList{
		Label: dateutil.RangeLabel(dateutil.ViewAgenda, in.Anchor, in.Range),
		Days:  make([]AgendaDay, 0, len(byKey)),
	}

	for _, key := range projection.SortedKeys(byKey) {
		dayDate, err := dateutil.ParseDateKey(key, in.Anchor.Location())
		if err != nil {
			continue
		}
		day := AgendaDay{
			DateKey: key,
			Label:   dateutil.LongDate(dayDate),
		}
		for _, p := range byKey[key] {
			row := AgendaRow{Chip: chipFor(p)}
			if p.Event.AllDay {
				row.TimeRange = "All day"
			} else {
				row.TimeRange = dateutil.TimeLabel(p.Event.Start) + " – " + dateutil.TimeLabel(p.Event.End)
			}
			day.Rows = append(day.Rows, row)
		}
		list.Days = append(list.Days, day)
	}

	if len(list.Days) == 0 {
		list.EmptyMessage = agendaEmptyMessage
	}
	return list
}
