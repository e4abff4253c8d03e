// Package controller owns the mutable UI state of one connected
// session: the calendar list, the selected-calendar set, the current
// view mode and anchor date, and the latest fetched event snapshot.
// Renderers receive read-only copies of that state; all mutation goes
// through controller actions.
package controller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"calweb/internal/caldav"
	"calweb/internal/dateutil"
	applog "calweb/internal/log"
	"calweb/internal/model"
	"calweb/internal/projection"
	"calweb/internal/view"
)

// Controller drives one session's interaction cycle. All exported
// methods are safe for concurrent use; internally the state behaves
// like a single-threaded UI model guarded by one mutex.
type Controller struct {
	client caldav.Client
	loc    *time.Location
	opts   view.Options
	now    func() time.Time

	mu          sync.Mutex
	calendars   []model.Calendar
	selected    map[string]bool
	mode        dateutil.ViewMode
	anchor      time.Time
	eventsByCal map[string][]model.Event

	// refreshSeq implements latest-request-wins: every refresh and
	// every state mutation bumps it, and an in-flight refresh only
	// commits its results if the sequence is still its own.
	refreshSeq uint64

	// saving blocks duplicate concurrent writes of the same editor
	// intent.
	saving bool
}

// New creates a controller over the given collaborator. loc is the
// display timezone; nil means time.Local.
func New(client caldav.Client, loc *time.Location, opts view.Options) *Controller {
	if loc == nil {
		loc = time.Local
	}
	c := &Controller{
		client:      client,
		loc:         loc,
		opts:        opts.Normalize(),
		now:         time.Now,
		selected:    make(map[string]bool),
		mode:        dateutil.ViewMonth,
		eventsByCal: make(map[string][]model.Event),
	}
	c.anchor = c.now().In(loc)
	return c
}

// Init fetches the calendar directory, selects every calendar and
// loads the initial snapshot.
func (c *Controller) Init(ctx context.Context) error {
	cals, err := c.client.ListCalendars(ctx)
	if err != nil {
		return fmt.Errorf("list calendars: %w", err)
	}

	c.mu.Lock()
	c.calendars = cals
	c.selected = make(map[string]bool, len(cals))
	for _, cal := range cals {
		c.selected[cal.URL] = true
	}
	c.refreshSeq++
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Calendars returns the directory snapshot and the selected set.
func (c *Controller) Calendars() ([]model.Calendar, map[string]bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cals := make([]model.Calendar, len(c.calendars))
	copy(cals, c.calendars)
	selected := make(map[string]bool, len(c.selected))
	for k, v := range c.selected {
		selected[k] = v
	}
	return cals, selected
}

// SetSelected toggles one calendar. Any refresh already in flight is
// superseded; its late results will be discarded.
func (c *Controller) SetSelected(url string, on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on {
		c.selected[url] = true
	} else {
		delete(c.selected, url)
	}
	c.refreshSeq++
}

// SetView switches view mode and/or anchor date.
func (c *Controller) SetView(mode dateutil.ViewMode, anchor time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mode = mode
	c.anchor = anchor.In(c.loc)
	c.refreshSeq++
}

// Navigate shifts the anchor by delta view-steps (months, weeks or
// days depending on the mode).
func (c *Controller) Navigate(delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = dateutil.Shift(c.mode, c.anchor, delta)
	c.refreshSeq++
}

// Today re-anchors on the current date.
func (c *Controller) Today() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = c.now().In(c.loc)
	c.refreshSeq++
}

// Mode reports the active view mode.
func (c *Controller) Mode() dateutil.ViewMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Anchor reports the active anchor date.
func (c *Controller) Anchor() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchor
}

// VisibleRange derives the current window from mode and anchor.
func (c *Controller) VisibleRange() model.VisibleRange {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rangeLocked()
}

func (c *Controller) rangeLocked() model.VisibleRange {
	return dateutil.Range(c.mode, c.anchor, c.opts.AgendaDays)
}

// Refresh fetches events for every selected calendar concurrently and
// commits the merged snapshot atomically. One failing calendar fails
// the whole refresh and keeps the previous snapshot — a partially
// merged view is never rendered. If the controller state changed while
// the fetches were in flight, the late results are discarded.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.refreshSeq++
	seq := c.refreshSeq
	r := c.rangeLocked()
	urls := make([]string, 0, len(c.selected))
	for _, cal := range c.calendars {
		if c.selected[cal.URL] {
			urls = append(urls, cal.URL)
		}
	}
	c.mu.Unlock()

	fetched := make(map[string][]model.Event, len(urls))
	var fetchedMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, url := range urls {
		g.Go(func() error {
			events, err := c.client.ListEvents(gctx, url, r.Start, r.End)
			if err != nil {
				return fmt.Errorf("fetch events for %s: %w", url, err)
			}
			fetchedMu.Lock()
			fetched[url] = events
			fetchedMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refreshSeq != seq {
		applog.Debug("discarding superseded refresh", "seq", seq, "current", c.refreshSeq)
		return nil
	}
	c.eventsByCal = fetched
	return nil
}

// RenderedView is one view rendered for the current state. Exactly one
// of the grid fields is set, matching Mode.
type RenderedView struct {
	Mode   dateutil.ViewMode  `json:"mode"`
	Anchor time.Time          `json:"anchor"`
	Range  model.VisibleRange `json:"range"`
	Label  string             `json:"label"`

	Month  *view.MonthGrid  `json:"month,omitempty"`
	Week   *view.WeekGrid   `json:"week,omitempty"`
	Day    *view.DayGrid    `json:"day,omitempty"`
	Agenda *view.AgendaList `json:"agenda,omitempty"`
}

// Render projects the current snapshot through the view renderer for
// the active mode. It performs no I/O.
func (c *Controller) Render() RenderedView {
	c.mu.Lock()
	mode := c.mode
	anchor := c.anchor
	r := c.rangeLocked()
	pairs := projection.FilterRange(
		projection.SelectVisible(c.calendars, c.selected, c.eventsByCal), r)
	defaultCal := ""
	if len(c.calendars) > 0 {
		defaultCal = c.calendars[0].URL
	}
	today := c.now().In(c.loc)
	c.mu.Unlock()

	in := view.Input{
		Pairs:              pairs,
		Range:              r,
		Anchor:             anchor,
		Today:              today,
		DefaultCalendarURL: defaultCal,
	}
	out := RenderedView{
		Mode:   mode,
		Anchor: anchor,
		Range:  r,
		Label:  dateutil.RangeLabel(mode, anchor, r),
	}
	switch mode {
	case dateutil.ViewWeek:
		grid := view.Week(in, c.opts)
		out.Week = &grid
	case dateutil.ViewDay:
		grid := view.Day(in, c.opts)
		out.Day = &grid
	case dateutil.ViewAgenda:
		grid := view.Agenda(in, c.opts)
		out.Agenda = &grid
	default:
		grid := view.Month(in, c.opts)
		out.Month = &grid
	}
	return out
}

// DefaultIntent prefills a blank editor: first calendar, now through
// now+1h, timed.
func (c *Controller) DefaultIntent() model.EditorIntent {
	c.mu.Lock()
	defer c.mu.Unlock()
	calURL := ""
	if len(c.calendars) > 0 {
		calURL = c.calendars[0].URL
	}
	start := c.now().In(c.loc)
	return model.EditorIntent{
		CalendarURL: calURL,
		Start:       start,
		End:         start.Add(time.Hour),
	}
}

// CellIntent resolves a month-cell click to its editor prefill.
func (c *Controller) CellIntent(dateKey string) (model.EditorIntent, error) {
	day, calURL, err := c.resolveDay(dateKey)
	if err != nil {
		return model.EditorIntent{}, err
	}
	return view.CellCreateIntent(day, calURL), nil
}

// AllDayIntent resolves an all-day-lane click.
func (c *Controller) AllDayIntent(dateKey string) (model.EditorIntent, error) {
	day, calURL, err := c.resolveDay(dateKey)
	if err != nil {
		return model.EditorIntent{}, err
	}
	return view.AllDayCreateIntent(day, calURL), nil
}

// TimedIntent resolves a timed-lane click at the given vertical pixel
// offset.
func (c *Controller) TimedIntent(dateKey string, offsetPx, laneHeightPx float64) (model.EditorIntent, error) {
	day, calURL, err := c.resolveDay(dateKey)
	if err != nil {
		return model.EditorIntent{}, err
	}
	return view.TimedCreateIntent(day, offsetPx, laneHeightPx, calURL, c.opts), nil
}

func (c *Controller) resolveDay(dateKey string) (time.Time, string, error) {
	day, err := dateutil.ParseDateKey(dateKey, c.loc)
	if err != nil {
		return time.Time{}, "", model.Validationf("invalid date key")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	calURL := ""
	if len(c.calendars) > 0 {
		calURL = c.calendars[0].URL
	}
	return day, calURL, nil
}

// Save validates and dispatches one editor submission, then reloads
// the visible range. Validation failures surface before any
// collaborator call; a collaborator failure leaves the snapshot
// untouched so the editor can be retried with its data intact.
func (c *Controller) Save(ctx context.Context, intent model.EditorIntent) error {
	ev, err := c.buildEvent(intent)
	if err != nil {
		return err
	}

	if !c.beginWrite() {
		return model.Validationf("a save is already in progress")
	}
	defer c.endWrite()

	if intent.Href == "" {
		href, etag, err := c.client.CreateEvent(ctx, intent.CalendarURL, ev)
		if err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		applog.Info("event created", "href", href, "etag", etag)
	} else {
		etag, err := c.client.UpdateEvent(ctx, intent.Href, intent.ETag, ev)
		if err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		applog.Info("event updated", "href", intent.Href, "etag", etag)
	}

	return c.Refresh(ctx)
}

// buildEvent turns an editor intent into a validated canonical event.
func (c *Controller) buildEvent(intent model.EditorIntent) (model.Event, error) {
	var ev model.Event
	if intent.CalendarURL == "" {
		return ev, model.Validationf("calendar is required")
	}
	if intent.Start.IsZero() || intent.End.IsZero() {
		return ev, model.Validationf("start and end are required")
	}
	if !intent.End.After(intent.Start) {
		return ev, model.Validationf("end must be after start")
	}

	start := intent.Start.In(c.loc)
	end := intent.End.In(c.loc)
	if intent.AllDay {
		// Whole-day spans regardless of the clicked times; at least
		// one full day.
		start = dateutil.StartOfDay(start)
		end = dateutil.StartOfDay(end)
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	}

	ev = model.Event{
		Href:        intent.Href,
		ETag:        intent.ETag,
		UID:         "",
		Summary:     strings.TrimSpace(intent.Summary),
		Description: strings.TrimSpace(intent.Description),
		Location:    strings.TrimSpace(intent.Location),
		Start:       start,
		End:         end,
		AllDay:      intent.AllDay,
	}
	return ev, nil
}

// Delete removes one event and reloads the visible range. The
// confirmation step lives in the UI.
func (c *Controller) Delete(ctx context.Context, href, etag string) error {
	if href == "" {
		return model.Validationf("event href is required")
	}
	if !c.beginWrite() {
		return model.Validationf("a save is already in progress")
	}
	defer c.endWrite()

	if err := c.client.DeleteEvent(ctx, href, etag); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return c.Refresh(ctx)
}

// VisiblePairs returns the selected, range-filtered pairs of the
// current snapshot (used by the ICS export).
func (c *Controller) VisiblePairs() []model.CalendarEventPair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return projection.FilterRange(
		projection.SelectVisible(c.calendars, c.selected, c.eventsByCal), c.rangeLocked())
}

func (c *Controller) beginWrite() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saving {
		return false
	}
	c.saving = true
	return true
}

func (c *Controller) endWrite() {
	c.mu.Lock()
	c.saving = false
	c.mu.Unlock()
}
