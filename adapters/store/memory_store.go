package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cleardesk/walletauth/core"
)

// MemoryStore is an in-memory implementation of the session, profile and
// nonce stores, used in tests and dev mode. Semantics mirror the Postgres
// store: one session per address, profiles unique by address, nonces
// consumed at most once.
type MemoryStore struct {
	mu sync.RWMutex

	sessionsByID   map[string]core.WalletSession
	sessionByAddr  map[string]string // address -> session ID
	profiles       map[string]core.Profile
	consumedNonces map[string]time.Time // nonce -> mark expiry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessionsByID:   make(map[string]core.WalletSession),
		sessionByAddr:  make(map[string]string),
		profiles:       make(map[string]core.Profile),
		consumedNonces: make(map[string]time.Time),
	}
}

// UpsertSession writes the session, superseding any existing session for
// the same address.
func (s *MemoryStore) UpsertSession(ctx context.Context, session *core.WalletSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if oldID, ok := s.sessionByAddr[session.Address]; ok {
		delete(s.sessionsByID, oldID)
	}
	s.sessionsByID[session.ID] = *session
	s.sessionByAddr[session.Address] = session.ID
	return nil
}

// GetSession returns the session with the given ID.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (*core.WalletSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessionsByID[id]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", core.ErrInvalidToken)
	}
	return &session, nil
}

// DeleteSessionsForAddress removes all sessions for the address.
func (s *MemoryStore) DeleteSessionsForAddress(ctx context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.sessionByAddr[address]; ok {
		delete(s.sessionsByID, id)
		delete(s.sessionByAddr, address)
	}
	return nil
}

// DeleteExpiredSessions removes every session expiring before now.
func (s *MemoryStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, session := range s.sessionsByID {
		if session.ExpiresAt.Before(now) {
			delete(s.sessionsByID, id)
			delete(s.sessionByAddr, session.Address)
			deleted++
		}
	}
	return deleted, nil
}

// GetOrCreateProfile returns the profile for the address, creating it with
// the given display name if absent.
func (s *MemoryStore) GetOrCreateProfile(ctx context.Context, address, displayName string) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile, ok := s.profiles[address]; ok {
		return &profile, nil
	}
	profile := core.Profile{
		ID:          uuid.New().String(),
		Address:     address,
		DisplayName: displayName,
		CreatedAt:   time.Now(),
	}
	s.profiles[address] = profile
	return &profile, nil
}

// GetProfile returns the profile for the address.
func (s *MemoryStore) GetProfile(ctx context.Context, address string) (*core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[address]
	if !ok {
		return nil, fmt.Errorf("profile not found for %s", address)
	}
	return &profile, nil
}

// ConsumeNonce atomically marks the nonce as used for ttl.
func (s *MemoryStore) ConsumeNonce(ctx context.Context, nonce string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if expiry, ok := s.consumedNonces[nonce]; ok && now.Before(expiry) {
		return core.ErrChallengeUsed
	}
	s.consumedNonces[nonce] = now.Add(ttl)

	// Drop stale marks opportunistically.
	for n, expiry := range s.consumedNonces {
		if now.After(expiry) {
			delete(s.consumedNonces, n)
		}
	}
	return nil
}

// ProfileCount reports how many profiles exist, for test assertions.
func (s *MemoryStore) ProfileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// SessionCount reports how many sessions exist, for test assertions.
func (s *MemoryStore) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessionsByID)
}
