// Package web exposes the JSON API and the embedded static UI. It is
// thin plumbing: every handler resolves a session, delegates to the
// session's controller and serializes the result.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"calweb/internal/caldav"
	"calweb/internal/config"
	"calweb/internal/controller"
	"calweb/internal/dateutil"
	"calweb/internal/layout"
	applog "calweb/internal/log"
	"calweb/internal/model"
	"calweb/internal/view"
)

// Server wires the HTTP surface: session management, the calendar API
// and the static UI.
type Server struct {
	cfg      *config.Config
	loc      *time.Location
	opts     view.Options
	sessions *sessionStore
	cron     *cron.Cron
	mux      *http.ServeMux

	// newClient builds the collaborator for a set of credentials;
	// swapped out in tests.
	newClient func(model.Credentials) (caldav.Client, error)
}

//go:embed all:static
var embeddedStatic embed.FS

// NewServer constructs the server from a normalized config.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:       cfg,
		loc:       resolveLocationOrLocal(cfg.Timezone),
		opts:      optionsFromConfig(cfg.UI),
		sessions:  newSessionStore(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		cron:      cron.New(),
		mux:       http.NewServeMux(),
		newClient: caldav.New,
	}
	s.registerRoutes()
	return s
}

func optionsFromConfig(ui config.UIConfig) view.Options {
	return view.Options{
		MonthMaxChips: ui.MonthMaxChips,
		AgendaDays:    ui.AgendaDays,
		Geometry: layout.Geometry{
			HourHeightPx:     ui.HourHeightPx,
			MinBlockHeightPx: ui.MinBlockHeightPx,
		},
		SnapMinutes: ui.SnapMinutes,
	}.Normalize()
}

// Start runs the session purge schedule and serves HTTP until ctx is
// canceled.
func (s *Server) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.PurgeCron, func() { s.sessions.purge() }); err != nil {
		return err
	}
	s.cron.Start()
	defer s.cron.Stop()

	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		applog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Handler returns the routed handler, wrapped with basic auth when
// configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		applog.Info("HTTP basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	ba := s.cfg.BasicAuth
	return ba != nil && ba.Username != "" && ba.Password != ""
}

// basicAuthMiddleware guards everything except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calweb", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/connect", s.handleConnect)
	s.mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	s.mux.HandleFunc("GET /api/calendars", s.withSession(s.handleCalendars))
	s.mux.HandleFunc("POST /api/calendars/select", s.withSession(s.handleCalendarSelect))
	s.mux.HandleFunc("GET /api/view", s.withSession(s.handleView))
	s.mux.HandleFunc("POST /api/events/save", s.withSession(s.handleEventSave))
	s.mux.HandleFunc("POST /api/events/delete", s.withSession(s.handleEventDelete))
	s.mux.HandleFunc("POST /api/editor/intent", s.withSession(s.handleEditorIntent))
	s.mux.HandleFunc("GET /api/export", s.withSession(s.handleExport))

	s.mux.Handle("/", s.staticFileServer())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)

// withSession rejects requests without a live session cookie.
func (s *Server) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.fromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not connected")
			return
		}
		next(w, r, sess)
	}
}

// handleConnect validates credentials by listing calendars, then binds
// a new session.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if s.cfg.DemoOnly {
		creds = model.Credentials{Demo: true}
	}
	if !creds.Demo && creds.ServerURL != "demo" {
		if creds.ServerURL == "" || creds.Username == "" || creds.Password == "" {
			writeError(w, http.StatusBadRequest, "serverUrl, username and password are required")
			return
		}
	}

	client, err := s.newClient(creds)
	if err != nil {
		writeFailure(w, err)
		return
	}

	ctrl := controller.New(client, s.loc, s.opts)
	if err := ctrl.Init(r.Context()); err != nil {
		applog.Error("connect failed", err, "server", creds.ServerURL != "", "demo", creds.Demo)
		writeFailure(w, err)
		return
	}

	sess := s.sessions.create(ctrl)
	setSessionCookie(w, sess.token)
	applog.Info("session connected", "demo", creds.Demo || creds.ServerURL == "demo")

	cals, selected := ctrl.Calendars()
	writeJSON(w, http.StatusOK, connectResponse{
		Calendars: cals,
		Selected:  selectedList(cals, selected),
	})
}

type connectResponse struct {
	Calendars []model.Calendar `json:"calendars"`
	Selected  []string         `json:"selected"`
}

func selectedList(cals []model.Calendar, selected map[string]bool) []string {
	out := make([]string, 0, len(selected))
	for _, cal := range cals {
		if selected[cal.URL] {
			out = append(out, cal.URL)
		}
	}
	return out
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.delete(cookie.Value)
	}
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

type okResponse struct {
	OK bool `json:"ok"`
}

func (s *Server) handleCalendars(w http.ResponseWriter, _ *http.Request, sess *session) {
	cals, selected := sess.ctrl.Calendars()
	writeJSON(w, http.StatusOK, connectResponse{
		Calendars: cals,
		Selected:  selectedList(cals, selected),
	})
}

type selectRequest struct {
	URL      string `json:"url"`
	Selected bool   `json:"selected"`
}

// handleCalendarSelect toggles a calendar and responds with the
// re-rendered view.
func (s *Server) handleCalendarSelect(w http.ResponseWriter, r *http.Request, sess *session) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	sess.ctrl.SetSelected(req.URL, req.Selected)
	if err := sess.ctrl.Refresh(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.ctrl.Render())
}

// handleView applies navigation parameters, refreshes the visible
// range and renders it.
//
// GET /api/view?mode=month|week|day|agenda&anchor=YYYY-MM-DD&nav=prev|next|today
func (s *Server) handleView(w http.ResponseWriter, r *http.Request, sess *session) {
	q := r.URL.Query()
	if q.Get("mode") != "" || q.Get("anchor") != "" {
		mode := sess.ctrl.Mode()
		if m := q.Get("mode"); m != "" {
			mode = dateutil.ParseViewMode(m)
		}
		anchor := sess.ctrl.Anchor()
		if a := q.Get("anchor"); a != "" {
			parsed, err := dateutil.ParseDateKey(a, s.loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid anchor date")
				return
			}
			anchor = parsed
		}
		sess.ctrl.SetView(mode, anchor)
	}
	switch q.Get("nav") {
	case "prev":
		sess.ctrl.Navigate(-1)
	case "next":
		sess.ctrl.Navigate(1)
	case "today":
		sess.ctrl.Today()
	}

	if err := sess.ctrl.Refresh(r.Context()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.ctrl.Render())
}

func (s *Server) handleEventSave(w http.ResponseWriter, r *http.Request, sess *session) {
	var intent model.EditorIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.ctrl.Save(r.Context(), intent); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.ctrl.Render())
}

type deleteRequest struct {
	Href string `json:"href"`
	ETag string `json:"etag"`
}

func (s *Server) handleEventDelete(w http.ResponseWriter, r *http.Request, sess *session) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := sess.ctrl.Delete(r.Context(), req.Href, req.ETag); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.ctrl.Render())
}

type intentRequest struct {
	// Kind is cell (month grid), allday (all-day lane), timed (24h
	// lane) or blank for the default editor prefill.
	Kind         string  `json:"kind"`
	DateKey      string  `json:"dateKey"`
	OffsetPx     float64 `json:"offsetPx"`
	LaneHeightPx float64 `json:"laneHeightPx"`
}

// handleEditorIntent maps a grid click onto a prefilled editor intent.
func (s *Server) handleEditorIntent(w http.ResponseWriter, r *http.Request, sess *session) {
	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var (
		intent model.EditorIntent
		err    error
	)
	switch req.Kind {
	case "cell":
		intent, err = sess.ctrl.CellIntent(req.DateKey)
	case "allday":
		intent, err = sess.ctrl.AllDayIntent(req.DateKey)
	case "timed":
		intent, err = sess.ctrl.TimedIntent(req.DateKey, req.OffsetPx, req.LaneHeightPx)
	default:
		intent = sess.ctrl.DefaultIntent()
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// staticFileServer serves the embedded UI; /api/* never falls through
// to it.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		applog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static UI not available", http.StatusServiceUnavailable)
		})
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/api" || strings.HasPrefix(path, "/api/") {
			http.NotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		applog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

// writeFailure maps the error taxonomy onto HTTP statuses: validation
// 400, missing 404, etag conflict 409, anything else 500 with the
// message passed through.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
