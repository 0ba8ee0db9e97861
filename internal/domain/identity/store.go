package identity

import (
	"context"
	"sync"
	"time"

	"github.com/medipay/medipay/internal/platform/auth"
)

type sessionState struct {
	user            User
	isAuthenticated bool
	expiresAt       time.Time
}

func (st *sessionState) live(now time.Time) bool {
	return st.isAuthenticated && (st.expiresAt.IsZero() || now.Before(st.expiresAt))
}

// SessionStore holds the authentication state of every live session. It is
// created once at startup and passed to the services that need it. Sessions
// past their expiry are swept every 5 minutes.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionState
	onExpire []func(sessionID string)
	now      func() time.Time
	done     chan struct{}
}

// NewSessionStore creates a store and starts its sweeper. Close stops it.
func NewSessionStore() *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*sessionState),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Adopt makes user the authenticated user of sessionID until expiresAt. A
// zero expiresAt never expires.
func (s *SessionStore) Adopt(sessionID string, user User, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = &sessionState{user: user, isAuthenticated: true, expiresAt: expiresAt}
}

// OnExpire registers fn to run for every session the sweeper drops.
func (s *SessionStore) OnExpire(fn func(sessionID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = append(s.onExpire, fn)
}

// Get returns the user of an authenticated, unexpired session.
func (s *SessionStore) Get(sessionID string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[sessionID]
	if !ok || !st.live(s.now()) {
		return User{}, false
	}
	return st.user, true
}

// Update applies fn to the user of sessionID and returns the result.
func (s *SessionStore) Update(sessionID string, fn func(u *User)) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok || !st.live(s.now()) {
		return User{}, false
	}
	fn(&st.user)
	return st.user, true
}

// Clear forgets sessionID.
func (s *SessionStore) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Count returns the number of tracked sessions, including expired ones not
// yet swept.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Resolve implements auth.SessionResolver.
func (s *SessionStore) Resolve(_ context.Context, sessionID string) (auth.Principal, bool) {
	u, ok := s.Get(sessionID)
	if !ok {
		return auth.Principal{}, false
	}
	return u.Principal(sessionID), true
}

// Close stops the sweeper. Only the first call has effect.
func (s *SessionStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *SessionStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup drops expired sessions and runs the expiry hooks outside the lock.
func (s *SessionStore) cleanup() int {
	now := s.now()

	s.mu.Lock()
	var expired []string
	for id, st := range s.sessions {
		if !st.live(now) {
			delete(s.sessions, id)
			expired = append(expired, id)
		}
	}
	hooks := s.onExpire
	s.mu.Unlock()

	for _, id := range expired {
		for _, fn := range hooks {
			fn(id)
		}
	}
	return len(expired)
}
