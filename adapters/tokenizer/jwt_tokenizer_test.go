package tokenizer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleardesk/walletauth/core"
)

func testSession() *core.WalletSession {
	now := time.Now().UTC().Truncate(time.Second)
	return &core.WalletSession{
		ID:        uuid.New().String(),
		Address:   "0x8ba1f109551bd432803012645ac136ddd64dba72",
		Nonce:     "a3f8c2d94b1e6a7c5d8f0b2e4a6c8d0f",
		IssuedAt:  now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tk := NewJWTTokenizer([]byte("secret"))
	session := testSession()

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)

	parsed, err := tk.TokenToSession(token)
	require.NoError(t, err)

	assert.Equal(t, session.ID, parsed.ID)
	assert.Equal(t, session.Address, parsed.Address)
	assert.Equal(t, session.Nonce, parsed.Nonce)
	assert.True(t, session.IssuedAt.Equal(parsed.IssuedAt))
	assert.True(t, session.ExpiresAt.Equal(parsed.ExpiresAt))
}

func TestTokenFromOtherSecretRejected(t *testing.T) {
	token, err := NewJWTTokenizer([]byte("secret-a")).SessionToToken(testSession())
	require.NoError(t, err)

	_, err = NewJWTTokenizer([]byte("secret-b")).TokenToSession(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	tk := NewJWTTokenizer([]byte("secret"))
	session := testSession()
	session.IssuedAt = session.IssuedAt.Add(-48 * time.Hour)
	session.ExpiresAt = session.ExpiresAt.Add(-48 * time.Hour)

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)

	_, err = tk.TokenToSession(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	tk := NewJWTTokenizer([]byte("secret"))

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := tk.TokenToSession(token)
		assert.Error(t, err, "token %q", token)
	}
}
