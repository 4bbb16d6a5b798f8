package core

import "time"

// Challenge is a time-boxed, single-use sign-in challenge. It is never
// persisted: the client holds the message and resubmits it together with a
// signature, and verification works purely off the embedded fields.
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Wallet address the challenge was issued for
	Nonce     string    // Random single-use token embedded in the message
	Message   string    // Exact byte content the wallet signs
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// WalletSession records a successful authentication for a wallet address.
// At most one session row exists per address; re-authentication supersedes
// the previous one.
type WalletSession struct {
	ID        string    // Unique session identifier
	Address   string    // Wallet address, lowercase hex
	Nonce     string    // Nonce of the challenge that produced this session
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // Past this the session is treated as absent
}

// Profile is the application's durable user record, keyed by wallet address.
// Created lazily on first successful authentication.
type Profile struct {
	ID          string
	Address     string // Wallet address, lowercase hex
	DisplayName string
	IsPublic    bool
	CreatedAt   time.Time
}
