package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calweb/internal/config"
	"calweb/internal/model"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg)
}

// connect performs the demo connect flow and returns the session
// cookie.
func connect(t *testing.T, s *Server) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/connect", strings.NewReader(`{"demo":true}`))
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func doJSON(s *Server, method, target string, cookie *http.Cookie, body any) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doJSON(s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestConnect_DemoFlow(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := connect(t, s)
	assert.NotEmpty(t, cookie.Value)

	rec := doJSON(s, http.MethodGet, "/api/calendars", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Calendars []model.Calendar `json:"calendars"`
		Selected  []string         `json:"selected"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Calendars, 2)
	assert.Len(t, resp.Selected, 2, "all calendars start selected")
}

func TestConnect_RequiresCredentialsWhenNotDemo(t *testing.T) {
	s := newTestServer(t, nil)
	rec := doJSON(s, http.MethodPost, "/api/connect", nil, map[string]any{
		"serverUrl": "https://dav.example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
}

func TestConnect_DemoOnlyIgnoresCredentials(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.DemoOnly = true })
	// Bogus live credentials still land in the demo dataset.
	rec := doJSON(s, http.MethodPost, "/api/connect", nil, map[string]any{
		"serverUrl": "https://nonexistent.invalid",
		"username":  "u",
		"password":  "p",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "demo://work")
}

func TestSessionRequired(t *testing.T) {
	s := newTestServer(t, nil)

	for _, target := range []string{"/api/calendars", "/api/view", "/api/export"} {
		rec := doJSON(s, http.MethodGet, target, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}

	rec := doJSON(s, http.MethodPost, "/api/events/save", nil, model.EditorIntent{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDisconnect_InvalidatesSession(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := connect(t, s)

	rec := doJSON(s, http.MethodPost, "/api/disconnect", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(s, http.MethodGet, "/api/calendars", cookie, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestView_ModesAndNavigation(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := connect(t, s)

	rec := doJSON(s, http.MethodGet, "/api/view?mode=month", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var month struct {
		Mode  string `json:"mode"`
		Month *struct {
			Cells []json.RawMessage `json:"cells"`
		} `json:"month"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &month))
	assert.Equal(t, "month", month.Mode)
	require.NotNil(t, month.Month)
	assert.Len(t, month.Month.Cells, 42)

	// Switching just the anchor keeps the mode.
	rec = doJSON(s, http.MethodGet, "/api/view?anchor=2024-04-10", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var anchored struct {
		Mode   string    `json:"mode"`
		Anchor time.Time `json:"anchor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &anchored))
	assert.Equal(t, "month", anchored.Mode)
	assert.Equal(t, 2024, anchored.Anchor.Year())

	// Navigation shifts the anchor.
	rec = doJSON(s, http.MethodGet, "/api/view?nav=next", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var next struct {
		Anchor time.Time `json:"anchor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &next))
	assert.Equal(t, time.May, next.Anchor.Month())

	rec = doJSON(s, http.MethodGet, "/api/view?nav=today", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(s, http.MethodGet, "/api/view?anchor=garbage", cookie, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventSaveDeleteFlow(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := connect(t, s)

	// Anchor a day view on a quiet date, create an event there.
	rec := doJSON(s, http.MethodGet, "/api/view?mode=day&anchor=2030-06-03", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(s, http.MethodPost, "/api/events/save", cookie, map[string]any{
		"calendarUrl": "demo://work",
		"summary":     "Planning",
		"start":       "2030-06-03T09:00:00Z",
		"end":         "2030-06-03T10:00:00Z",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var day struct {
		Day *struct {
			Column struct {
				Blocks []struct {
					Summary string `json:"summary"`
					Intent  struct {
						Href string `json:"href"`
						ETag string `json:"etag"`
					} `json:"intent"`
				} `json:"blocks"`
			} `json:"column"`
		} `json:"day"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	require.NotNil(t, day.Day)
	require.Len(t, day.Day.Column.Blocks, 1)
	block := day.Day.Column.Blocks[0]
	assert.Equal(t, "Planning", block.Summary)
	require.NotEmpty(t, block.Intent.Href)

	// Stale etag delete is a conflict.
	rec = doJSON(s, http.MethodPost, "/api/events/delete", cookie, map[string]string{
		"href": block.Intent.Href,
		"etag": `"stale"`,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Matching etag succeeds and the day is empty again.
	rec = doJSON(s, http.MethodPost, "/api/events/delete", cookie, map[string]string{
		"href": block.Intent.Href,
		"etag": block.Intent.ETag,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &day))
	assert.Empty(t, day.Day.Column.Blocks)
}

func TestEventSave_ValidationStatus(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := connect(t, s)

	rec := doJSON(s, http.MethodPost, "/api/events/save", cookie, map[string]any{
		"calendarUrl": "demo://work",
		"start":       "2030-06-03T10:00:00Z",
		"end":         "2030-06-03T09:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "end must be after start")
}

func TestEventDelete_NotFoundStatus(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := connect(t, s)

	rec := doJSON(s, http.MethodPost, "/api/events/delete", cookie, map[string]string{
		"href": "demo://work/evt-missing.ics",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditorIntent(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := connect(t, s)

	tests := []struct {
		name string
		body map[string]any
		want func(t *testing.T, intent model.EditorIntent)
	}{
		{"default", map[string]any{}, func(t *testing.T, intent model.EditorIntent) {
			assert.Equal(t, "demo://work", intent.CalendarURL)
			assert.Equal(t, time.Hour, intent.End.Sub(intent.Start))
		}},
		{"cell", map[string]any{"kind": "cell", "dateKey": "2030-06-03"}, func(t *testing.T, intent model.EditorIntent) {
			assert.Equal(t, 9, intent.Start.Hour())
			assert.False(t, intent.AllDay)
		}},
		{"allday", map[string]any{"kind": "allday", "dateKey": "2030-06-03"}, func(t *testing.T, intent model.EditorIntent) {
			assert.True(t, intent.AllDay)
			assert.Equal(t, 0, intent.Start.Hour())
			assert.Equal(t, 24*time.Hour, intent.End.Sub(intent.Start))
		}},
		{"timed", map[string]any{"kind": "timed", "dateKey": "2030-06-03", "offsetPx": 10 * 48.0, "laneHeightPx": 24 * 48.0}, func(t *testing.T, intent model.EditorIntent) {
			assert.Equal(t, 10, intent.Start.Hour())
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(s, http.MethodPost, "/api/editor/intent", cookie, tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var intent model.EditorIntent
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &intent))
			tt.want(t, intent)
		})
	}

	rec := doJSON(s, http.MethodPost, "/api/editor/intent", cookie, map[string]any{
		"kind": "cell", "dateKey": "bogus",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport_ServesICS(t *testing.T) {
	s := newTestServer(t, nil)
	cookie := connect(t, s)

	rec := doJSON(s, http.MethodGet, "/api/export", cookie, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "METHOD:PUBLISH")
	assert.Contains(t, body, "BEGIN:VEVENT")
}

func TestExportCalendar_AllDay(t *testing.T) {
	start := time.Date(2030, time.June, 3, 0, 0, 0, 0, time.UTC)
	body := exportCalendar([]model.CalendarEventPair{{
		Event: model.Event{
			UID:     "ad",
			Summary: "Holiday",
			Start:   start,
			End:     start.AddDate(0, 0, 1),
			AllDay:  true,
		},
	}}, time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC))

	assert.Contains(t, body, "SUMMARY:Holiday")
	assert.Contains(t, body, "DTSTART;VALUE=DATE:20300603")
	assert.Contains(t, body, "DTEND;VALUE=DATE:20300604")
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	})

	// Health stays open.
	rec := doJSON(s, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Everything else is guarded.
	rec = doJSON(s, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req := httptest.NewRequest(http.MethodPost, "/api/connect", strings.NewReader(`{"demo":true}`))
	req.SetBasicAuth("admin", "wrong")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/connect", strings.NewReader(`{"demo":true}`))
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatic_ServesUIButNotUnderAPI(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(s, http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>calweb</title>")

	rec = doJSON(s, http.MethodGet, "/api/nonexistent", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionStore_TTL(t *testing.T) {
	store := newSessionStore(10 * time.Millisecond)

	sess := store.create(nil)
	_, ok := store.get(sess.token)
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = store.get(sess.token)
	assert.False(t, ok, "expired session behaves as absent")

	// Purge sweeps what get() has not touched.
	s2 := store.create(nil)
	time.Sleep(20 * time.Millisecond)
	dropped := store.purge()
	assert.Equal(t, 1, dropped)
	_, ok = store.get(s2.token)
	assert.False(t, ok)
}

func TestWriteFailureMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{model.Validationf("bad"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", model.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", model.ErrConflict), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeFailure(rec, tt.err)
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}
}

// Guard against accidental route registration under a canceled
// context; Start must return promptly when ctx is done.
func TestStart_StopsOnContextCancel(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.Listen = "127.0.0.1:0" })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
