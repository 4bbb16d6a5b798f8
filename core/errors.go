package core

import "errors"

var (
	// ErrInvalidAddress is returned when an address fails format validation.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrChallengeExpired is returned when the current time is past the
	// expiry embedded in the challenge message.
	ErrChallengeExpired = errors.New("challenge has expired")

	// ErrChallengeUsed is returned when a challenge nonce has already been
	// consumed by an earlier verification attempt.
	ErrChallengeUsed = errors.New("challenge has already been used")

	// ErrMalformedMessage is returned when a message does not match the
	// expected sign-in template.
	ErrMalformedMessage = errors.New("malformed sign-in message")

	// ErrSignatureMismatch is returned when the recovered signer does not
	// match the address embedded in the message.
	ErrSignatureMismatch = errors.New("signature does not match address")

	// ErrProfilePersistence is returned when the profile could not be
	// created or fetched after the signature was verified.
	ErrProfilePersistence = errors.New("profile persistence failed")

	// ErrSessionPersistence is returned when the session row could not be
	// written after the signature was verified.
	ErrSessionPersistence = errors.New("session persistence failed")

	// ErrStoreUnavailable is returned on transient infrastructure failures
	// from the persistence collaborator. It is the only error class
	// eligible for retry.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSessionExpired is returned when a session exists but is past its
	// expiry. Expired sessions are treated as absent, never auto-renewed.
	ErrSessionExpired = errors.New("session has expired")

	// ErrInvalidToken is returned when a bearer token fails to parse or
	// its session no longer exists.
	ErrInvalidToken = errors.New("invalid token")
)
