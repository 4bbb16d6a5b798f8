package http

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cleardesk/walletauth/adapters/events"
	"github.com/cleardesk/walletauth/adapters/store"
	"github.com/cleardesk/walletauth/adapters/tokenizer"
	"github.com/cleardesk/walletauth/service"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	mem := store.NewMemoryStore()
	authService := service.NewAuthService(
		service.Config{
			Domain:    "cleardesk.example",
			URI:       "https://cleardesk.example",
			Statement: "Sign in to ClearDesk",
			ChainID:   1,
		},
		tokenizer.NewJWTTokenizer([]byte("test-secret")),
		mem, mem, mem,
		events.NopPublisher{},
		zap.NewNop(),
	)
	return SetupRouter(authService, zap.NewNop())
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	}
	return w, parsed
}

func signMessage(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[64] += 27
	return hexutil.Encode(sig)
}

func TestAuthFlowEndToEnd(t *testing.T) {
	router := newTestRouter()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	// Request a challenge.
	w, challenge := doJSON(t, router, http.MethodPost, "/auth/challenge", gin.H{"address": address}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	message := challenge["message"].(string)
	nonce := challenge["nonce"].(string)
	assert.Contains(t, message, address)
	assert.Contains(t, message, nonce)

	// Sign it and log in.
	w, login := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"message":   message,
		"signature": signMessage(t, key, message),
		"nonce":     nonce,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	token := login["token"].(string)
	assert.Equal(t, "Bearer", login["token_type"])
	assert.Equal(t, strings.ToLower(address), login["address"])

	profile := login["profile"].(map[string]interface{})
	assert.Equal(t, strings.ToLower(address), profile["address"])
	assert.Equal(t, "Trader-"+strings.ToUpper(address[len(address)-4:]), profile["display_name"])

	authHeader := map[string]string{"Authorization": "Bearer " + token}

	// The token authenticates API calls.
	w, me := doJSON(t, router, http.MethodGet, "/api/me", nil, authHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, strings.ToLower(address), me["address"])

	w, authorized := doJSON(t, router, http.MethodGet, "/api/authorize", nil, authHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, authorized["authorized"])

	// Sign out, after which the token no longer authenticates.
	w, _ = doJSON(t, router, http.MethodPost, "/auth/logout", nil, authHeader)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/api/me", nil, authHeader)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChallengeRejectsInvalidAddress(t *testing.T) {
	router := newTestRouter()

	w, _ := doJSON(t, router, http.MethodPost, "/auth/challenge", gin.H{"address": "0x123"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/auth/challenge", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginErrorMapping(t *testing.T) {
	router := newTestRouter()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	w, challenge := doJSON(t, router, http.MethodPost, "/auth/challenge", gin.H{"address": address}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	message := challenge["message"].(string)
	nonce := challenge["nonce"].(string)

	// Garbage message: 400.
	w, _ = doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"message":   "garbage",
		"signature": signMessage(t, key, "garbage"),
		"nonce":     nonce,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Signed by the wrong key: 401.
	w, body := doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"message":   message,
		"signature": signMessage(t, otherKey, message),
		"nonce":     nonce,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, body["error"], "sign again")

	// The failed attempt burned the challenge: a correct signature now
	// gets the replay rejection.
	w, body = doJSON(t, router, http.MethodPost, "/auth/login", gin.H{
		"message":   message,
		"signature": signMessage(t, key, message),
		"nonce":     nonce,
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, body["error"], "already used")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter()

	w, _ := doJSON(t, router, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer bogus"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter()

	w, body := doJSON(t, router, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}
