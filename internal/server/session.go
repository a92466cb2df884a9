package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/desertthunder/scrobblex/internal/dashboard"
	"github.com/desertthunder/scrobblex/internal/models"
)

const clientIDCookieName = "client-id"

// session is the dashboard state of one browser.
type session struct {
	id     string
	view   *sseView
	ctrl   *dashboard.Controller
	loader *dashboard.Loader
	menus  *dashboard.Dropdowns

	mu       sync.Mutex
	username string
	period   models.Period
	theme    string
	errMsg   string
	dash     *models.Dashboard
	cancel   context.CancelFunc // in-flight dashboard build
}

// startBuild cancels a running build and returns the context of the new one.
func (s *session) startBuild(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()
	return ctx, cancel
}

func (s *session) close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.loader.Stop()
	s.ctrl.Teardown()
}

// sessionStore keys sessions by the client-id cookie and expires idle ones.
type sessionStore struct {
	mu       sync.Mutex
	byID     map[string]*session
	lastSeen map[string]time.Time
	ttl      time.Duration
	now      func() time.Time
	create   func(id string) (*session, error)
}

func newSessionStore(ttl time.Duration, now func() time.Time, create func(id string) (*session, error)) *sessionStore {
	return &sessionStore{
		byID:     make(map[string]*session),
		lastSeen: make(map[string]time.Time),
		ttl:      ttl,
		now:      now,
		create:   create,
	}
}

// get returns the session of the request's client, creating one (and the cookie) when needed.
func (s *sessionStore) get(w http.ResponseWriter, r *http.Request) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()

	if c, err := r.Cookie(clientIDCookieName); err == nil {
		if sess, ok := s.byID[c.Value]; ok {
			s.lastSeen[c.Value] = s.now()
			return sess, nil
		}
	}

	// Only ids this store minted are honored; unknown or expired ones get a new id.
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientIDCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	sess, err := s.create(id)
	if err != nil {
		return nil, err
	}
	s.byID[id] = sess
	s.lastSeen[id] = s.now()
	return sess, nil
}

// touch keeps a session alive, e.g. while its event stream is open.
func (s *sessionStore) touch(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[sess.id]; ok {
		s.lastSeen[sess.id] = s.now()
	}
}

// sweep closes sessions idle for longer than the TTL. Callers hold s.mu.
func (s *sessionStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, seen := range s.lastSeen {
		if seen.Before(cutoff) {
			s.byID[id].close()
			delete(s.byID, id)
			delete(s.lastSeen, id)
		}
	}
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// closeAll tears down every session.
func (s *sessionStore) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.byID {
		sess.close()
		delete(s.byID, id)
		delete(s.lastSeen, id)
	}
}
