package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "revoked_token:"

// RevocationStore tracks revoked token ids until they would have expired.
type RevocationStore struct {
	client *redis.Client
}

// NewRevocationStore wraps a Redis client. A nil client disables revocation
// tracking; tokens then remain valid until expiry.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

// Revoke records the token id until its natural expiry.
func (s *RevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if s == nil || s.client == nil {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, revocationKeyPrefix+jti, "1", ttl).Err()
}

// IsRevoked reports whether the token id was revoked. Lookup failures are
// treated as not revoked so an unreachable Redis does not lock everyone out.
func (s *RevocationStore) IsRevoked(ctx context.Context, jti string) bool {
	if s == nil || s.client == nil || jti == "" {
		return false
	}
	exists, err := s.client.Exists(ctx, revocationKeyPrefix+jti).Result()
	if err != nil {
		return false
	}
	return exists > 0
}
