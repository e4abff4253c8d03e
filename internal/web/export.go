package web

import (
	"net/http"
	"time"

	ics "github.com/arran4/golang-ical"

	"calweb/internal/model"
)

// handleExport serializes the currently visible events as a single
// iCalendar download, so a view can be handed to another client.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *session) {
	if err := sess.ctrl.Refresh(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}

	body := exportCalendar(sess.ctrl.VisiblePairs(), time.Now().UTC())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calweb-export.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// exportCalendar renders the pairs into a PUBLISH calendar. Events are
// exported as plain VEVENTs; calendar membership is flattened.
func exportCalendar(pairs []model.CalendarEventPair, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//calweb//NONSGML v1.0//EN")

	for _, p := range pairs {
		ev := cal.AddEvent(p.Event.UID)
		ev.SetDtStampTime(stamp)
		ev.SetSummary(p.Event.Summary)
		if p.Event.Description != "" {
			ev.SetDescription(p.Event.Description)
		}
		if p.Event.Location != "" {
			ev.SetLocation(p.Event.Location)
		}
		if p.Event.AllDay {
			ev.SetAllDayStartAt(p.Event.Start)
			ev.SetAllDayEndAt(p.Event.End)
		} else {
			ev.SetStartAt(p.Event.Start.UTC())
			ev.SetEndAt(p.Event.End.UTC())
		}
	}

	return cal.Serialize()
}
