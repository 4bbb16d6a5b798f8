package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cleardesk/walletauth/core"
)

// RedisNonceStore tracks consumed challenge nonces in Redis so a challenge
// verifies at most once across all instances. The mark carries a TTL, so
// storage stays bounded by the challenge window.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisNonceStore creates a new Redis-backed nonce store.
func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "walletauth:nonce:",
	}
}

// ConsumeNonce atomically marks the nonce as used via SET NX. A second
// consume within ttl fails with core.ErrChallengeUsed.
func (s *RedisNonceStore) ConsumeNonce(ctx context.Context, nonce string, ttl time.Duration) error {
	key := s.prefix + nonce

	set, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: consume nonce: %v", core.ErrStoreUnavailable, err)
	}
	if !set {
		return core.ErrChallengeUsed
	}
	return nil
}
