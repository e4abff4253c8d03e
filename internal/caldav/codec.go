package caldav

import (
	"errors"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	applog "calweb/internal/log"
	"calweb/internal/model"
)

const prodID = "-//calweb//NONSGML v1.0//EN"

// icsDateLayout is the DATE value form used for all-day bounds.
const icsDateLayout = "20060102"

// encodeEvent builds a single-VEVENT VCALENDAR from the canonical
// event form. A missing UID is filled in with a fresh one. All-day
// events are written with VALUE=DATE bounds; timed events as UTC
// date-times.
func encodeEvent(ev model.Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, prodID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	uid := ev.UID
	if uid == "" {
		uid = uuid.NewString()
	}

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, uid)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	vevent.Props.SetText(ical.PropSummary, ev.Summary)
	if ev.Description != "" {
		vevent.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		vevent.Props.SetText(ical.PropLocation, ev.Location)
	}

	if ev.AllDay {
		vevent.Props.Set(dateProp(ical.PropDateTimeStart, ev.Start))
		vevent.Props.Set(dateProp(ical.PropDateTimeEnd, ev.End))
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, ev.Start.UTC())
		vevent.Props.SetDateTime(ical.PropDateTimeEnd, ev.End.UTC())
	}

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

func dateProp(name string, t time.Time) *ical.Prop {
	p := ical.NewProp(name)
	p.SetValueType(ical.ValueDate)
	p.Value = t.Format(icsDateLayout)
	return p
}

// decodeEvents extracts the canonical events from a parsed VCALENDAR.
// Records missing UID or DTSTART are dropped with a log line so one
// bad object never aborts a whole fetch. A missing DTEND is
// synthesized (one day for all-day events, one hour otherwise).
func decodeEvents(cal *ical.Calendar, href, etag string, loc *time.Location) []model.Event {
	out := make([]model.Event, 0, 1)
	for _, raw := range cal.Events() {
		vevent := raw
		ev, err := decodeEvent(&vevent, loc)
		if err != nil {
			applog.Warn("dropping malformed calendar object", "href", href, "reason", err)
			continue
		}
		ev.Href = href
		ev.ETag = etag
		out = append(out, ev)
	}
	return out
}

func decodeEvent(vevent *ical.Event, loc *time.Location) (model.Event, error) {
	var ev model.Event

	uid, err := vevent.Props.Text(ical.PropUID)
	if err != nil || uid == "" {
		return ev, errors.New("missing UID")
	}
	ev.UID = uid

	startProp := vevent.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return ev, errors.New("missing DTSTART")
	}
	ev.AllDay = startProp.ValueType() == ical.ValueDate

	start, err := vevent.DateTimeStart(loc)
	if err != nil {
		return ev, err
	}
	ev.Start = start

	if vevent.Props.Get(ical.PropDateTimeEnd) != nil {
		end, err := vevent.DateTimeEnd(loc)
		if err != nil {
			return ev, err
		}
		ev.End = end
	} else if ev.AllDay {
		ev.End = start.AddDate(0, 0, 1)
	} else {
		ev.End = start.Add(time.Hour)
	}

	ev.Summary = textOrEmpty(vevent, ical.PropSummary)
	ev.Description = textOrEmpty(vevent, ical.PropDescription)
	ev.Location = textOrEmpty(vevent, ical.PropLocation)

	return ev, nil
}

func textOrEmpty(vevent *ical.Event, name string) string {
	s, err := vevent.Props.Text(name)
	if err != nil {
		return ""
	}
	return s
}
