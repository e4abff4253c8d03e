// Package caldav is the boundary to the remote calendar store. The
// rest of the application depends only on the Client interface; the
// live implementation speaks CalDAV through emersion/go-webdav, the
// demo implementation serves a seeded in-memory dataset with identical
// semantics.
package caldav

import (
	"context"
	"time"

	"calweb/internal/model"
)

// Client is the collaborator contract consumed by the interaction
// controller. All calls are independent asynchronous operations; none
// of them retries on failure.
type Client interface {
	// ListCalendars returns the account's calendars, filtered to
	// collections that can hold event objects.
	ListCalendars(ctx context.Context) ([]model.Calendar, error)

	// ListEvents returns events of one calendar whose start falls
	// within [min, max]. Records that fail to parse into the
	// canonical form are dropped, not propagated as errors.
	ListEvents(ctx context.Context, calendarURL string, min, max time.Time) ([]model.Event, error)

	// CreateEvent stores a new event and returns its href and etag.
	CreateEvent(ctx context.Context, calendarURL string, ev model.Event) (href, etag string, err error)

	// UpdateEvent replaces the object at objectURL, guarded by etag.
	// An etag mismatch fails with model.ErrConflict.
	UpdateEvent(ctx context.Context, objectURL, etag string, ev model.Event) (newETag string, err error)

	// DeleteEvent removes the object at objectURL, guarded by etag.
	DeleteEvent(ctx context.Context, objectURL, etag string) error
}

// New returns the demo client for demo credentials and a live CalDAV
// client otherwise.
func New(creds model.Credentials) (Client, error) {
	if creds.Demo || creds.ServerURL == "demo" {
		return NewDemoClient(), nil
	}
	return NewLiveClient(creds)
}
