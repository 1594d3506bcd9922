package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/serverhub/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/serverhub/pkg/cache"
)

const revokedKeyPrefix = "serverhub:revoked:"

// RedisRevocationStore keeps revoked session token ids in Redis until
// the token would have expired anyway.
type RedisRevocationStore struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewRedisRevocationStore creates a Redis backed revocation store
func NewRedisRevocationStore(redisClient *redis.Client, logger *slog.Logger) *RedisRevocationStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRevocationStore{redis: redisClient, logger: logger}
}

// Revoke marks tokenID as revoked until expiresAt
func (r *RedisRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.redis.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl); err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}
	r.logger.Debug("session revoked", slog.String("token_id", tokenID), slog.Duration("ttl", ttl))
	return nil
}

// IsRevoked reports whether tokenID has been revoked
func (r *RedisRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ok, err := r.redis.Exists(ctx, revokedKeyPrefix+tokenID)
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return ok, nil
}

// MemoryRevocationStore is the single-process fallback used when no Redis
// URL is configured. Revocations do not survive a restart.
type MemoryRevocationStore struct {
	entries *cache.Cache[struct{}]
	now     func() time.Time
}

// NewMemoryRevocationStore creates an in-memory revocation store
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: cache.New[struct{}](), now: time.Now}
}

// Revoke marks tokenID as revoked until expiresAt
func (m *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil
	}
	m.entries.Sweep()
	m.entries.Set(tokenID, struct{}{}, ttl)
	return nil
}

// IsRevoked reports whether tokenID has been revoked
func (m *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := m.entries.Get(tokenID)
	return ok, nil
}
