package caldav

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	webcaldav "github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	applog "calweb/internal/log"
	"calweb/internal/model"
)

// LiveClient adapts emersion/go-webdav's CalDAV client to the Client
// interface. Discovery (principal -> calendar home -> calendars)
// follows the usual PROPFIND chain; event queries use a VEVENT
// time-range REPORT.
type LiveClient struct {
	client   *webcaldav.Client
	endpoint string

	// homeSet is resolved lazily on the first ListCalendars call and
	// reused afterwards.
	homeSet string
}

func NewLiveClient(creds model.Credentials) (*LiveClient, error) {
	if creds.ServerURL == "" || creds.Username == "" || creds.Password == "" {
		return nil, model.Validationf("serverUrl, username and password are required")
	}
	httpClient := webdav.HTTPClientWithBasicAuth(
		&http.Client{Timeout: 30 * time.Second},
		creds.Username,
		creds.Password,
	)
	client, err := webcaldav.NewClient(httpClient, creds.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}
	return &LiveClient{client: client, endpoint: creds.ServerURL}, nil
}

func (c *LiveClient) ListCalendars(ctx context.Context) ([]model.Calendar, error) {
	if c.homeSet == "" {
		principal, err := c.client.FindCurrentUserPrincipal(ctx)
		if err != nil {
			return nil, fmt.Errorf("find principal: %w", err)
		}
		homeSet, err := c.client.FindCalendarHomeSet(ctx, principal)
		if err != nil {
			return nil, fmt.Errorf("find calendar home: %w", err)
		}
		c.homeSet = homeSet
	}

	cals, err := c.client.FindCalendars(ctx, c.homeSet)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}

	out := make([]model.Calendar, 0, len(cals))
	for _, cal := range cals {
		if !supportsEvents(cal.SupportedComponentSet) {
			continue
		}
		name := cal.Name
		if name == "" {
			name = cal.Path
		}
		out = append(out, model.Calendar{URL: cal.Path, DisplayName: name})
	}
	applog.Debug("caldav calendars listed", "endpoint", redactURL(c.endpoint), "count", len(out))
	return out, nil
}

// supportsEvents reports whether the collection accepts VEVENT
// objects. An empty component set means the server did not advertise
// one; treat that as event-capable.
func supportsEvents(components []string) bool {
	if len(components) == 0 {
		return true
	}
	for _, comp := range components {
		if comp == "VEVENT" {
			return true
		}
	}
	return false
}

func (c *LiveClient) ListEvents(ctx context.Context, calendarURL string, min, max time.Time) ([]model.Event, error) {
	query := &webcaldav.CalendarQuery{
		CompRequest: webcaldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Props: []string{"VERSION"},
			Comps: []webcaldav.CalendarCompRequest{{
				Name:     "VEVENT",
				AllProps: true,
			}},
		},
		CompFilter: webcaldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []webcaldav.CompFilter{{
				Name:  "VEVENT",
				Start: min.UTC(),
				End:   max.UTC(),
			}},
		},
	}

	objs, err := c.client.QueryCalendar(ctx, calendarURL, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar %s: %w", redactURL(calendarURL), err)
	}

	events := make([]model.Event, 0, len(objs))
	for _, obj := range objs {
		if obj.Data == nil {
			continue
		}
		for _, ev := range decodeEvents(obj.Data, obj.Path, obj.ETag, min.Location()) {
			// The CalDAV time-range filter matches overlap; the
			// contract wants start within [min, max].
			if ev.Start.Before(min) || ev.Start.After(max) {
				continue
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

func (c *LiveClient) CreateEvent(ctx context.Context, calendarURL string, ev model.Event) (string, string, error) {
	if ev.UID == "" {
		ev.UID = uuid.NewString()
	}
	path := joinObjectPath(calendarURL, ev.UID+".ics")

	obj, err := c.client.PutCalendarObject(ctx, path, encodeEvent(ev))
	if err != nil {
		return "", "", fmt.Errorf("create calendar object: %w", err)
	}
	return obj.Path, obj.ETag, nil
}

func (c *LiveClient) UpdateEvent(ctx context.Context, objectURL, etag string, ev model.Event) (string, error) {
	if ev.UID == "" {
		// Keep the object's UID stable across edits; hrefs are
		// <collection>/<uid>.ics for objects we created.
		base := objectURL[strings.LastIndex(objectURL, "/")+1:]
		ev.UID = strings.TrimSuffix(base, ".ics")
	}
	// go-webdav does not thread If-Match on PUT; conflicts are left
	// to the server's own etag handling.
	obj, err := c.client.PutCalendarObject(ctx, objectURL, encodeEvent(ev))
	if err != nil {
		return "", fmt.Errorf("update calendar object: %w", err)
	}
	return obj.ETag, nil
}

func (c *LiveClient) DeleteEvent(ctx context.Context, objectURL, _ string) error {
	if err := c.client.RemoveAll(ctx, objectURL); err != nil {
		return fmt.Errorf("delete calendar object: %w", err)
	}
	return nil
}

func joinObjectPath(collectionURL, name string) string {
	if strings.HasSuffix(collectionURL, "/") {
		return collectionURL + name
	}
	return collectionURL + "/" + name
}

// redactURL strips path, query and userinfo from a URL before it hits
// the log.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
