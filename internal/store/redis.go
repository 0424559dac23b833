// redis.go -- go-redis token registry.
//
// The registry is the source of truth for token liveness: a token whose hash
// has no entry here is dead, no matter what its signature says. Entries lapse
// by Redis TTL -- there is no background sweep.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/redis/go-redis/v9"
)

// tokenKeyPrefix namespaces registry entries in Redis.
const tokenKeyPrefix = "authtoken:"

// TokenKey derives the registry key for a raw token: SHA-256 of the token,
// base64url encoded. Raw bearer secrets are never stored -- leaking the
// registry yields hashes, not usable tokens.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenKeyPrefix + base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewRedisClient connects to Redis and verifies connectivity with a ping.
// Call once at startup from main.go; the client owns a connection pool and
// is safe for concurrent use.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	// Parse redisURL to get option values, if err return it
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opt)

	// Try and test client to ensure it works correctly
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// TokenRegistry maps hashed tokens to their owner and kind.
type TokenRegistry struct {
	rdb *redis.Client
}

// NewTokenRegistry wraps a shared Redis client in a registry.
func NewTokenRegistry(rdb *redis.Client) *TokenRegistry {
	return &TokenRegistry{rdb}
}

// Register stores a token's hash -> "user_id:kind" with TTL equal to the
// token's validity window. When the TTL lapses the token is dead; no
// explicit deletion needed.
func (s *TokenRegistry) Register(ctx context.Context, userID uuid.UUID, token string, kind TokenKind, ttl time.Duration) error {
	if ttl <= 0 {
		// SET with TTL=0 means no expiry in Redis -- never acceptable here.
		return fmt.Errorf("registering %s token: non-positive ttl %v", kind, ttl)
	}
	err := s.rdb.SetEx(ctx, TokenKey(token), encodeTokenContent(userID, kind), ttl).Err()
	if err != nil {
		return fmt.Errorf("registering %s token: %w", kind, err)
	}
	return nil
}

// Lookup resolves a raw token to its registry content.
// Returns ErrTokenNotFound for unknown or expired tokens (expected) and
// ErrCorruptTokenEntry when a stored value fails to parse (a bug, not a miss).
func (s *TokenRegistry) Lookup(ctx context.Context, token string) (*TokenContent, error) {
	value, err := s.rdb.Get(ctx, TokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("fetching token entry: %w", err)
	}
	return decodeTokenContent(value)
}

// DeleteKeys removes registry entries by their stored keys. Used by logout
// after the identity store enumerates the user's token keys -- the registry
// itself has no reverse index from user to tokens.
func (s *TokenRegistry) DeleteKeys(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting token entries: %w", err)
	}
	return nil
}
