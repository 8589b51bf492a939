package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore tracks revoked token IDs until their natural expiry
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RedisRevocationStore implements RevocationStore on top of Redis
type RedisRevocationStore struct {
	rc        *redis.Client
	keyPrefix string
}

// NewRedisRevocationStore creates a Redis-backed revocation store
func NewRedisRevocationStore(rc *redis.Client, keyPrefix string) RevocationStore {
	return &RedisRevocationStore{
		rc:        rc,
		keyPrefix: keyPrefix,
	}
}

func (s *RedisRevocationStore) key(tokenID string) string {
	return fmt.Sprintf("%s:revoked_token:%s", s.keyPrefix, tokenID)
}

// Revoke stores the token ID with a TTL matching the remaining token lifetime
func (s *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return s.rc.Set(ctx, s.key(tokenID), "1", ttl).Err()
}

// IsRevoked reports whether the token ID is in the revocation set
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.rc.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
