package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with session-specific ones. The
// JWT ID is the session row ID, which is how validation ties a token back
// to its (possibly superseded) session.
type SessionClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}
