// Package config loads the service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the application configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":9000"`

	// DatabaseURL is the PostgreSQL connection string. Required.
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// RedisURL is the Redis connection string for the consumed-nonce
	// ledger and the event stream. Optional: without it the service runs
	// single-instance with in-memory nonces and no event publishing.
	RedisURL string `envconfig:"REDIS_URL"`

	// JWTSecret signs session bearer tokens. Must be identical across all
	// instances. Required.
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Sign-in message parameters. The message bytes are what wallets
	// sign, so these must be identical across all instances.
	SIWEDomain    string `envconfig:"SIWE_DOMAIN" default:"cleardesk.example"`
	SIWEURI       string `envconfig:"SIWE_URI" default:"https://cleardesk.example"`
	SIWEStatement string `envconfig:"SIWE_STATEMENT" default:"Sign in to ClearDesk"`
	ChainID       int64  `envconfig:"CHAIN_ID" default:"1"`

	ChallengeTTL  time.Duration `envconfig:"CHALLENGE_TTL" default:"15m"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SweepInterval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load reads configuration from environment variables prefixed with
// WALLETAUTH_, falling back to the unprefixed names.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("WALLETAUTH", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}
