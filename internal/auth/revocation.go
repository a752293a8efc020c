package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedPrefix = "nou:auth:revoked:"

// RedisRevocations keeps revoked token ids until their natural expiry.
type RedisRevocations struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevocations constructs the revocation store.
func NewRedisRevocations(client *redis.Client) *RedisRevocations {
	return &RedisRevocations{client: client, now: time.Now}
}

// Revoke marks tokenID as unusable until the given expiry.
func (r *RedisRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if r == nil || r.client == nil {
		return errors.New("auth: revocation store not initialised")
	}
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked.
func (r *RedisRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r == nil || r.client == nil {
		return false, errors.New("auth: revocation store not initialised")
	}
	n, err := r.client.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("auth: check revocation: %w", err)
	}
	return n > 0, nil
}
