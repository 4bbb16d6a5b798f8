package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/cleardesk/walletauth/core"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore persists sessions and profiles in PostgreSQL. Concurrency
// safety for first-time logins comes from the unique constraint on
// profiles.wallet_address, not from application-level locking: requests
// race across independent instances.
type PostgresStore struct {
	db *sql.DB
}

// Open connects to PostgreSQL and configures the connection pool.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Migrate applies the embedded schema migrations.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// NewPostgresStore creates a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertSession writes the session, superseding any existing session for
// the same address.
func (s *PostgresStore) UpsertSession(ctx context.Context, session *core.WalletSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_sessions (id, wallet_address, nonce, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet_address) DO UPDATE
		SET id = EXCLUDED.id,
		    nonce = EXCLUDED.nonce,
		    issued_at = EXCLUDED.issued_at,
		    expires_at = EXCLUDED.expires_at
	`, session.ID, session.Address, session.Nonce, session.IssuedAt, session.ExpiresAt)
	if err != nil {
		return classify(fmt.Errorf("upsert session: %w", err))
	}
	return nil
}

// GetSession returns the session with the given ID.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*core.WalletSession, error) {
	var session core.WalletSession
	err := s.db.QueryRowContext(ctx, `
		SELECT id, wallet_address, nonce, issued_at, expires_at
		FROM wallet_sessions
		WHERE id = $1
	`, id).Scan(&session.ID, &session.Address, &session.Nonce, &session.IssuedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", core.ErrInvalidToken)
		}
		return nil, classify(fmt.Errorf("query session: %w", err))
	}
	return &session, nil
}

// DeleteSessionsForAddress removes all sessions for the address.
func (s *PostgresStore) DeleteSessionsForAddress(ctx context.Context, address string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM wallet_sessions WHERE wallet_address = $1
	`, address)
	if err != nil {
		return classify(fmt.Errorf("delete sessions: %w", err))
	}
	return nil
}

// DeleteExpiredSessions removes every session expiring before now.
func (s *PostgresStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM wallet_sessions WHERE expires_at < $1
	`, now)
	if err != nil {
		return 0, classify(fmt.Errorf("delete expired sessions: %w", err))
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

// GetOrCreateProfile returns the profile for the address, creating it with
// the given display name if absent. The insert uses ON CONFLICT DO NOTHING
// so a concurrent create by another instance degrades to a re-read.
func (s *PostgresStore) GetOrCreateProfile(ctx context.Context, address, displayName string) (*core.Profile, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (wallet_address, display_name)
		VALUES ($1, $2)
		ON CONFLICT (wallet_address) DO NOTHING
	`, address, displayName)
	if err != nil && !isUniqueViolation(err) {
		return nil, classify(fmt.Errorf("insert profile: %w", err))
	}

	return s.GetProfile(ctx, address)
}

// GetProfile returns the profile for the address.
func (s *PostgresStore) GetProfile(ctx context.Context, address string) (*core.Profile, error) {
	var profile core.Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, wallet_address, display_name, is_public, created_at
		FROM profiles
		WHERE wallet_address = $1
	`, address).Scan(&profile.ID, &profile.Address, &profile.DisplayName, &profile.IsPublic, &profile.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile not found for %s", address)
		}
		return nil, classify(fmt.Errorf("query profile: %w", err))
	}
	return &profile, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// classify tags transient infrastructure failures as core.ErrStoreUnavailable
// so the service layer can apply its bounded retry. Everything else is
// returned as-is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08: connection exceptions. Class 57: operator intervention
		// (e.g. shutdown in progress).
		if strings.HasPrefix(string(pqErr.Code), "08") || strings.HasPrefix(string(pqErr.Code), "57") {
			return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
		}
	}
	return err
}
