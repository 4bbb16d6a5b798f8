package ports

import (
	"context"
	"time"

	"github.com/cleardesk/walletauth/core"
)

// SessionStore persists wallet sessions. Implementations keep at most one
// session per address: UpsertSession replaces any prior row for the same
// address rather than accumulating history.
type SessionStore interface {
	// UpsertSession writes the session, superseding any existing session
	// for the same address.
	UpsertSession(ctx context.Context, session *core.WalletSession) error

	// GetSession returns the session with the given ID, or
	// core.ErrInvalidToken if no such session exists.
	GetSession(ctx context.Context, id string) (*core.WalletSession, error)

	// DeleteSessionsForAddress removes all sessions for the address.
	// Deleting a non-existent session is not an error.
	DeleteSessionsForAddress(ctx context.Context, address string) error

	// DeleteExpiredSessions removes every session with an expiry before
	// now and returns how many were deleted. Safe to run repeatedly.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// ProfileStore persists user profiles. The wallet address is unique; the
// constraint, not an application lock, is what makes concurrent first-time
// logins safe.
type ProfileStore interface {
	// GetOrCreateProfile returns the profile for the address, creating it
	// with the given display name if absent. A concurrent create by
	// another instance is treated as "already exists, re-fetch".
	GetOrCreateProfile(ctx context.Context, address, displayName string) (*core.Profile, error)

	// GetProfile returns the profile for the address, or
	// core.ErrProfilePersistence if none exists.
	GetProfile(ctx context.Context, address string) (*core.Profile, error)
}

// NonceStore tracks consumed challenge nonces so each challenge verifies at
// most once.
type NonceStore interface {
	// ConsumeNonce atomically marks the nonce as used, retaining the mark
	// for ttl. It returns core.ErrChallengeUsed if the nonce was already
	// consumed.
	ConsumeNonce(ctx context.Context, nonce string, ttl time.Duration) error
}
