package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	blacklistPrefix = "blacklisted_token:"

	// tokenExpiryBuffer keeps the blacklist entry alive slightly past
	// the token's own expiry to absorb clock skew.
	tokenExpiryBuffer = time.Minute
)

// TokenBlacklist records revoked access tokens in Redis until they
// expire on their own. Lookups fail open: if Redis is unreachable the
// token is treated as valid for its remaining lifetime.
type TokenBlacklist struct {
	client *redis.Client
	logger *zap.Logger
}

// NewTokenBlacklist creates a new TokenBlacklist
func NewTokenBlacklist(client *redis.Client, logger *zap.Logger) *TokenBlacklist {
	return &TokenBlacklist{client: client, logger: logger}
}

// Add blacklists a token until expiresAt plus a small buffer. Tokens
// already past expiry are ignored.
func (b *TokenBlacklist) Add(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl < 0 {
		ttl = 0
	}
	ttl += tokenExpiryBuffer

	if err := b.client.Set(ctx, blacklistPrefix+token, "1", ttl).Err(); err != nil {
		b.logger.Error("Failed to blacklist token", zap.Error(err))
	}
}

// IsBlacklisted reports whether a token has been revoked
func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, token string) bool {
	exists, err := b.client.Exists(ctx, blacklistPrefix+token).Result()
	if err != nil {
		b.logger.Error("Failed to check token blacklist", zap.Error(err))
		// Redis outage: tokens stay valid until their own expiry
		return false
	}
	return exists == 1
}
