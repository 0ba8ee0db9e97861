package auth

import (
	"context"
	"sync"
	"time"
)

// RevocationStore records session tokens that were logged out before their
// natural expiry.
type RevocationStore interface {
	Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// revocationEntry stores metadata about a revoked session token.
type revocationEntry struct {
	ExpiresAt time.Time
	UserID    string
}

// MemoryRevocationStore keeps revoked token ids in memory with automatic
// cleanup of expired entries. Safe for concurrent access.
type MemoryRevocationStore struct {
	mu       sync.RWMutex
	entries  map[string]revocationEntry // JTI -> entry
	userJTIs map[string][]string        // userID -> []JTI
	now      func() time.Time
	done     chan struct{}
}

// NewMemoryRevocationStore creates a new store and starts a background
// goroutine that cleans up expired entries every 5 minutes.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries:  make(map[string]revocationEntry),
		userJTIs: make(map[string][]string),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Revoke adds a token id to the revocation list. The entry is dropped once
// expiresAt passes since the token is no longer accepted anyway.
func (s *MemoryRevocationStore) Revoke(_ context.Context, jti, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[jti] = revocationEntry{ExpiresAt: expiresAt, UserID: userID}
	if userID != "" {
		s.userJTIs[userID] = append(s.userJTIs[userID], jti)
	}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[jti]
	return ok, nil
}

// RevokedForUser returns the revoked token ids still tracked for userID.
func (s *MemoryRevocationStore) RevokedForUser(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.userJTIs[userID]))
	copy(out, s.userJTIs[userID])
	return out
}

// Count returns the number of currently revoked tokens.
func (s *MemoryRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Close stops the background cleanup goroutine. Only the first call has
// effect.
func (s *MemoryRevocationStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *MemoryRevocationStore) cleanupLoop() {
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

// cleanup removes entries whose tokens have expired.
func (s *MemoryRevocationStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, entry := range s.entries {
		if !now.After(entry.ExpiresAt) {
			continue
		}
		delete(s.entries, jti)
		if entry.UserID == "" {
			continue
		}
		jtis := s.userJTIs[entry.UserID]
		for i, id := range jtis {
			if id == jti {
				s.userJTIs[entry.UserID] = append(jtis[:i], jtis[i+1:]...)
				break
			}
		}
		if len(s.userJTIs[entry.UserID]) == 0 {
			delete(s.userJTIs, entry.UserID)
		}
	}
}
