package caldav

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"calweb/internal/model"
)

// DemoClient serves a seeded in-memory dataset through the same
// interface and with the same semantics as the live client: hrefs and
// etags are synthesized, updates and deletes check the etag, and
// range queries filter on event start.
type DemoClient struct {
	mu        sync.Mutex
	calendars []model.Calendar
	events    map[string][]model.Event // keyed by calendar URL
}

const (
	demoWorkURL     = "demo://work"
	demoPersonalURL = "demo://personal"
)

// NewDemoClient builds a demo dataset spread around today: a handful
// of timed work events and personal entries including one all-day
// event.
func NewDemoClient() *DemoClient {
	blue, green := "#3b82f6", "#22c55e"
	ctag := "1"
	c := &DemoClient{
		calendars: []model.Calendar{
			{URL: demoWorkURL, DisplayName: "Work", CTag: &ctag, Color: &blue},
			{URL: demoPersonalURL, DisplayName: "Personal", CTag: &ctag, Color: &green},
		},
		events: make(map[string][]model.Event),
	}

	now := time.Now()
	base := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())
	seed := func(calURL string, offsetDays int, hours int, summary string, allDay bool) {
		start := base.AddDate(0, 0, offsetDays)
		end := start.Add(time.Duration(hours) * time.Hour)
		if allDay {
			start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
			end = start.AddDate(0, 0, 1)
		}
		uid := uuid.NewString()
		c.events[calURL] = append(c.events[calURL], model.Event{
			Href:    demoHref(calURL, uid),
			ETag:    newDemoETag(),
			UID:     uid,
			Summary: summary,
			Start:   start,
			End:     end,
			AllDay:  allDay,
		})
	}

	seed(demoWorkURL, -2, 1, "Team sync", false)
	seed(demoWorkURL, -1, 2, "Project kickoff", false)
	seed(demoWorkURL, 0, 1, "1:1 check-in", false)
	seed(demoWorkURL, 1, 1, "Architecture review", false)
	seed(demoWorkURL, 3, 2, "Sprint planning", false)
	seed(demoPersonalURL, 0, 0, "Birthday", true)
	seed(demoPersonalURL, 2, 1, "Doctor's appointment", false)
	seed(demoPersonalURL, 4, 1, "Run in the park", false)
	seed(demoPersonalURL, 6, 2, "Family dinner", false)
	seed(demoPersonalURL, -3, 1, "Groceries", false)

	return c
}

func demoHref(calURL, uid string) string {
	return calURL + "/evt-" + uid + ".ics"
}

func newDemoETag() string {
	return fmt.Sprintf("%q", uuid.NewString()[:8])
}

// calendarURLForHref recovers the owning calendar URL from an object
// href (demo hrefs are <calendarURL>/<name>.ics).
func calendarURLForHref(href string) string {
	idx := strings.LastIndex(href, "/")
	if idx < 0 {
		return href
	}
	return href[:idx]
}

func (c *DemoClient) ListCalendars(_ context.Context) ([]model.Calendar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Calendar, len(c.calendars))
	copy(out, c.calendars)
	return out, nil
}

func (c *DemoClient) ListEvents(_ context.Context, calendarURL string, min, max time.Time) ([]model.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasCalendar(calendarURL) {
		return nil, fmt.Errorf("calendar %s: %w", calendarURL, model.ErrNotFound)
	}
	out := make([]model.Event, 0)
	for _, ev := range c.events[calendarURL] {
		if ev.Start.Before(min) || ev.Start.After(max) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func (c *DemoClient) CreateEvent(_ context.Context, calendarURL string, ev model.Event) (string, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasCalendar(calendarURL) {
		return "", "", fmt.Errorf("calendar %s: %w", calendarURL, model.ErrNotFound)
	}
	if ev.UID == "" {
		ev.UID = uuid.NewString()
	}
	ev.Href = demoHref(calendarURL, ev.UID)
	ev.ETag = newDemoETag()
	c.events[calendarURL] = append(c.events[calendarURL], ev)
	return ev.Href, ev.ETag, nil
}

func (c *DemoClient) UpdateEvent(_ context.Context, objectURL, etag string, ev model.Event) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	calURL := calendarURLForHref(objectURL)
	list := c.events[calURL]
	for i := range list {
		if list[i].Href != objectURL {
			continue
		}
		if etag != "" && list[i].ETag != etag {
			return "", fmt.Errorf("update %s: %w", objectURL, model.ErrConflict)
		}
		ev.Href = objectURL
		ev.UID = list[i].UID
		ev.ETag = newDemoETag()
		list[i] = ev
		return ev.ETag, nil
	}
	return "", fmt.Errorf("object %s: %w", objectURL, model.ErrNotFound)
}

func (c *DemoClient) DeleteEvent(_ context.Context, objectURL, etag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	calURL := calendarURLForHref(objectURL)
	list := c.events[calURL]
	for i := range list {
		if list[i].Href != objectURL {
			continue
		}
		if etag != "" && list[i].ETag != etag {
			return fmt.Errorf("delete %s: %w", objectURL, model.ErrConflict)
		}
		c.events[calURL] = append(list[:i], list[i+1:]...)
		return nil
	}
	return fmt.Errorf("object %s: %w", objectURL, model.ErrNotFound)
}

func (c *DemoClient) hasCalendar(url string) bool {
	for _, cal := range c.calendars {
		if cal.URL == url {
			return true
		}
	}
	return false
}
