package ports

import "github.com/cleardesk/walletauth/core"

// Tokenizer converts between wallet sessions and bearer tokens.
type Tokenizer interface {
	// SessionToToken mints a bearer token bound to the session.
	SessionToToken(session *core.WalletSession) (string, error)

	// TokenToSession parses a bearer token back into the session fields it
	// carries. It does not check whether the session row still exists.
	TokenToSession(token string) (*core.WalletSession, error)
}
