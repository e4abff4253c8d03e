package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"calweb/internal/controller"
	applog "calweb/internal/log"
)

const sessionCookie = "calweb_session"

// session binds one connected account's controller to an opaque
// cookie token. Credentials never leave the server once connected.
type session struct {
	token    string
	ctrl     *controller.Controller
	lastSeen time.Time
}

// sessionStore is an in-memory TTL session registry. Expired entries
// are swept by the cron purge job.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
	}
}

func (s *sessionStore) create(ctrl *controller.Controller) *session {
	sess := &session{
		token:    uuid.NewString(),
		ctrl:     ctrl,
		lastSeen: time.Now(),
	}
	s.mu.Lock()
	s.sessions[sess.token] = sess
	s.mu.Unlock()
	return sess
}

// get returns the live session for a token and refreshes its idle
// timer. Expired sessions behave as absent.
func (s *sessionStore) get(token string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, false
	}
	if time.Since(sess.lastSeen) > s.ttl {
		delete(s.sessions, token)
		return nil, false
	}
	sess.lastSeen = time.Now()
	return sess, true
}

func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// purge removes idle-expired sessions and returns how many were
// dropped.
func (s *sessionStore) purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	dropped := 0
	for token, sess := range s.sessions {
		if time.Since(sess.lastSeen) > s.ttl {
			delete(s.sessions, token)
			dropped++
		}
	}
	if dropped > 0 {
		applog.Info("purged expired sessions", "count", dropped)
	}
	return dropped
}

// fromRequest resolves the session cookie on an incoming request.
func (s *sessionStore) fromRequest(r *http.Request) (*session, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return nil, false
	}
	return s.get(cookie.Value)
}

func setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
