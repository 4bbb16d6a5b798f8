package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/cleardesk/walletauth/core"
	"github.com/cleardesk/walletauth/internal/eth"
	"github.com/cleardesk/walletauth/internal/siwe"
	"github.com/cleardesk/walletauth/ports"
)

const (
	// DefaultChallengeTTL bounds how long an issued challenge verifies.
	DefaultChallengeTTL = 15 * time.Minute
	// DefaultSessionTTL bounds how long a session authenticates after a
	// successful verification.
	DefaultSessionTTL = 24 * time.Hour

	storeRetryBackoff = 100 * time.Millisecond
)

// Config carries the sign-in message parameters. The message bytes are what
// wallets sign, so these must be identical across all instances.
type Config struct {
	Domain    string // origin shown in the message header line
	URI       string // request URI embedded in the message
	Statement string // human-readable statement, e.g. "Sign in to ClearDesk"
	ChainID   int64

	ChallengeTTL time.Duration // defaults to DefaultChallengeTTL
	SessionTTL   time.Duration // defaults to DefaultSessionTTL
}

// LoginResult is returned on successful verification.
type LoginResult struct {
	Profile *core.Profile
	Session *core.WalletSession
	Token   string
}

// AuthService issues wallet sign-in challenges and turns valid signatures
// over them into authenticated profiles and sessions.
type AuthService struct {
	tokenizer ports.Tokenizer
	sessions  ports.SessionStore
	profiles  ports.ProfileStore
	nonces    ports.NonceStore
	eventPub  ports.EventPublisher
	logger    *zap.Logger
	clock     clockwork.Clock

	cfg Config
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	cfg Config,
	tokenizer ports.Tokenizer,
	sessions ports.SessionStore,
	profiles ports.ProfileStore,
	nonces ports.NonceStore,
	eventPub ports.EventPublisher,
	logger *zap.Logger,
) *AuthService {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		tokenizer: tokenizer,
		sessions:  sessions,
		profiles:  profiles,
		nonces:    nonces,
		eventPub:  eventPub,
		logger:    logger,
		clock:     clockwork.NewRealClock(),
		cfg:       cfg,
	}
}

// CreateChallenge generates a new sign-in challenge for the address. The
// challenge is stateless: nothing is persisted until verification.
func (s *AuthService) CreateChallenge(address string) (*core.Challenge, error) {
	if !eth.ValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidAddress, address)
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	// RFC 3339 carries no sub-second precision, so truncate up front to
	// keep the struct timestamps equal to the embedded ones.
	issuedAt := s.clock.Now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.cfg.ChallengeTTL)

	msg := siwe.Message{
		Domain:    s.cfg.Domain,
		Address:   address,
		Statement: s.cfg.Statement,
		URI:       s.cfg.URI,
		ChainID:   s.cfg.ChainID,
		Nonce:     nonce,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}

	return &core.Challenge{
		ID:        uuid.New().String(),
		Address:   address,
		Nonce:     nonce,
		Message:   msg.Build(),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Login verifies a signature over a previously issued challenge message and
// establishes a session and profile for the embedded address.
//
// The nonce is consumed before signature recovery, so a challenge is burned
// by a failed attempt as well as a successful one.
func (s *AuthService) Login(ctx context.Context, message, signature, nonce string) (*LoginResult, error) {
	msg, err := siwe.Parse(message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedMessage, err)
	}
	if nonce != msg.Nonce {
		return nil, fmt.Errorf("%w: nonce does not match message", core.ErrMalformedMessage)
	}
	if !eth.ValidAddress(msg.Address) {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidAddress, msg.Address)
	}

	now := s.clock.Now()
	if now.After(msg.ExpiresAt) {
		return nil, fmt.Errorf("%w: expired at %s", core.ErrChallengeExpired, msg.ExpiresAt.Format(time.RFC3339))
	}

	// Retain the consumed mark a little past the challenge expiry so a
	// replay near the boundary still hits the mark.
	markTTL := msg.ExpiresAt.Sub(now) + time.Minute
	if err := s.nonces.ConsumeNonce(ctx, msg.Nonce, markTTL); err != nil {
		if errors.Is(err, core.ErrChallengeUsed) || errors.Is(err, core.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: consume nonce: %v", core.ErrStoreUnavailable, err)
	}

	signer, err := eth.RecoverPersonalSigner(message, signature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSignatureMismatch, err)
	}
	if !eth.EqualAddresses(signer.Hex(), msg.Address) {
		return nil, fmt.Errorf("%w: recovered %s", core.ErrSignatureMismatch, signer.Hex())
	}

	address := eth.NormalizeAddress(msg.Address)
	session := &core.WalletSession{
		ID:        uuid.New().String(),
		Address:   address,
		Nonce:     msg.Nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}

	if err := s.withStoreRetry(ctx, func(ctx context.Context) error {
		return s.sessions.UpsertSession(ctx, session)
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrSessionPersistence, err)
	}

	profile, err := s.getOrCreateProfile(ctx, address)
	if err != nil {
		// Signature was valid but we cannot hand back an authenticated
		// identity without its profile.
		return nil, fmt.Errorf("%w: %w", core.ErrProfilePersistence, err)
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("mint session token: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, address, session.ID); err != nil {
		s.logger.Warn("failed to publish login event",
			zap.String("address", address), zap.Error(err))
	}

	return &LoginResult{Profile: profile, Session: session, Token: token}, nil
}

// ValidateToken parses a bearer token and checks the session it references
// is still present and unexpired. A superseded or swept session fails here
// even if the token itself has not expired.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*core.WalletSession, error) {
	parsed, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	var session *core.WalletSession
	if err := s.withStoreRetry(ctx, func(ctx context.Context) error {
		got, err := s.sessions.GetSession(ctx, parsed.ID)
		if err != nil {
			return err
		}
		session = got
		return nil
	}); err != nil {
		if errors.Is(err, core.ErrInvalidToken) || errors.Is(err, core.ErrStoreUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load session: %v", core.ErrStoreUnavailable, err)
	}

	if s.clock.Now().After(session.ExpiresAt) {
		return nil, core.ErrSessionExpired
	}

	return session, nil
}

// Logout deletes the current session(s) for the address.
func (s *AuthService) Logout(ctx context.Context, address string) error {
	if !eth.ValidAddress(address) {
		return fmt.Errorf("%w: %q", core.ErrInvalidAddress, address)
	}
	normalized := eth.NormalizeAddress(address)

	if err := s.withStoreRetry(ctx, func(ctx context.Context) error {
		return s.sessions.DeleteSessionsForAddress(ctx, normalized)
	}); err != nil {
		return fmt.Errorf("%w: %w", core.ErrSessionPersistence, err)
	}

	if err := s.eventPub.PublishLogout(ctx, normalized); err != nil {
		s.logger.Warn("failed to publish logout event",
			zap.String("address", normalized), zap.Error(err))
	}

	return nil
}

// SweepExpiredSessions deletes sessions past their expiry. Idempotent.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) (int64, error) {
	deleted, err := s.sessions.DeleteExpiredSessions(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}
	return deleted, nil
}

// Profile returns the profile for an authenticated address.
func (s *AuthService) Profile(ctx context.Context, address string) (*core.Profile, error) {
	var profile *core.Profile
	err := s.withStoreRetry(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.profiles.GetProfile(ctx, eth.NormalizeAddress(address))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrProfilePersistence, err)
	}
	return profile, nil
}

func (s *AuthService) getOrCreateProfile(ctx context.Context, address string) (*core.Profile, error) {
	displayName := DefaultDisplayName(address)
	var profile *core.Profile
	err := s.withStoreRetry(ctx, func(ctx context.Context) error {
		var err error
		profile, err = s.profiles.GetOrCreateProfile(ctx, address, displayName)
		return err
	})
	return profile, err
}

// withStoreRetry runs fn, retrying once with constant backoff if it failed
// with core.ErrStoreUnavailable. Any other failure is terminal: retrying
// cannot change a cryptographic or temporal fact.
func (s *AuthService) withStoreRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(storeRetryBackoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, core.ErrStoreUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// DefaultDisplayName derives the deterministic display name a profile gets
// on first authentication, from the last four characters of the address.
func DefaultDisplayName(address string) string {
	suffix := address
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "Trader-" + strings.ToUpper(suffix)
}
