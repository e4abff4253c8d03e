package model

import "time"

// Calendar is one remote calendar collection as reported by the CalDAV
// server (or the demo store). URL doubles as the unique identifier.
// The struct is immutable between full refreshes.
type Calendar struct {
	URL         string  `json:"url"`
	DisplayName string  `json:"displayName"`
	CTag        *string `json:"ctag"`
	Color       *string `json:"color"`
}

// Event is the canonical JSON form of a single, non-recurring calendar
// object. Href is empty only for an event that has not been created on
// the server yet; ETag is the opaque concurrency token required for
// update/delete.
type Event struct {
	Href        string    `json:"href,omitempty"`
	ETag        string    `json:"etag,omitempty"`
	UID         string    `json:"uid"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay"`
}

// Duration returns the event's length. Server-origin data may yield a
// non-positive duration; only edits are validated.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// CalendarEventPair joins an event with the calendar it belongs to for
// projection, layout and rendering. Never persisted.
type CalendarEventPair struct {
	Calendar Calendar `json:"calendar"`
	Event    Event    `json:"event"`
}

// VisibleRange is the date window covered by one view. Start is the
/// first instant shown; End is 23:59:59.999 local time of the last
// included day.
type VisibleRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range, inclusive on both
// bounds.
func (r VisibleRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// EditorIntent is the payload handed to the event editor when the user
// clicks a grid cell, a lane or an existing event chip. An empty Href
// signals "create"; a non-empty one "edit existing".
type EditorIntent struct {
	Href        string    `json:"href,omitempty"`
	ETag        string    `json:"etag,omitempty"`
	CalendarURL string    `json:"calendarUrl"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDay      bool      `json:"allDay"`
}

// Credentials identify one CalDAV account. Demo connections carry
// Demo=true and empty fields.
type Credentials struct {
	ServerURL string `json:"serverUrl"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Demo      bool   `json:"demo"`
}
