package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeep/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeep/pkg/idx"
)

// SessionCookie is the name of the cookie carrying the session id.
const SessionCookie = "gatekeep_session"

// SessionStore keeps live sessions in process memory, keyed by their ULID.
// Single-node by design; a multi-node deployment would need a shared store
// behind the same interface.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.Session)}
}

// Get returns the session for the id, or nil.
func (s *SessionStore) Get(id string) *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Put registers a session under its current id.
func (s *SessionStore) Put(sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// Swap drops the old id and registers the session under its new one. The old
// cookie value stops resolving the moment this returns.
func (s *SessionStore) Swap(oldID string, sess *domain.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, oldID)
	s.sessions[sess.ID] = sess
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// newSession mints an anonymous session under a fresh id.
func newSession() *domain.Session {
	return &domain.Session{
		ID:        idx.New().String(),
		CreatedAt: time.Now(),
	}
}

func setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
