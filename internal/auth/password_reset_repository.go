package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidResetToken covers unknown, wrong, superseded, and expired reset
// tokens uniformly.
var ErrInvalidResetToken = errors.New("invalid or expired password reset token")

// PasswordResetRepository stores password reset tokens in Redis keyed by
// email, hashed at rest. The key TTL enforces the 1-hour expiry window.
type PasswordResetRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPasswordResetRepository(client *redis.Client, ttl time.Duration) *PasswordResetRepository {
	return &PasswordResetRepository{client: client, ttl: ttl}
}

func passwordResetKey(email string) string {
	return fmt.Sprintf("password_reset:%s", email)
}

// Store saves a reset token for the email with the configured TTL,
// overwriting any token issued earlier.
func (r *PasswordResetRepository) Store(ctx context.Context, email, token string) error {
	if err := r.client.Set(ctx, passwordResetKey(email), hashToken(token), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store password reset token: %w", err)
	}

	return nil
}

// Consume validates {email, token} and deletes the token on match, so each
// token authorizes exactly one password change.
func (r *PasswordResetRepository) Consume(ctx context.Context, email, token string) error {
	key := passwordResetKey(email)

	stored, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrInvalidResetToken
	}
	if err != nil {
		return fmt.Errorf("failed to get password reset token: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(hashToken(token))) != 1 {
		return ErrInvalidResetToken
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete password reset token: %w", err)
	}

	return nil
}
