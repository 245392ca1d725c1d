package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidOTP covers unknown, wrong, superseded, and expired codes
// uniformly so a caller can't tell which case it hit.
var ErrInvalidOTP = errors.New("invalid or expired OTP")

// OTPRepository stores one-time passcodes in Redis keyed by email.
// The key TTL enforces the expiry window, so a lookup after expiry simply
// misses; nothing re-checks timestamps in the service layer.
type OTPRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewOTPRepository(client *redis.Client, ttl time.Duration) *OTPRepository {
	return &OTPRepository{client: client, ttl: ttl}
}

func otpKey(email string) string {
	return fmt.Sprintf("otp:%s", email)
}

// Issue generates a fresh 6-digit code for the email and stores it with the
// configured TTL. SET overwrites any live code, so the newest issuance always
// wins and at most one code per email survives concurrent resends.
func (r *OTPRepository) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateOTP()
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	if err := r.client.Set(ctx, otpKey(email), code, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store OTP: %w", err)
	}

	return code, nil
}

// Consume validates {email, code} and deletes the code on match. A miss,
// a mismatch, and an expired key all return ErrInvalidOTP.
func (r *OTPRepository) Consume(ctx context.Context, email, code string) error {
	key := otpKey(email)

	stored, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("failed to get OTP: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidOTP
	}

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete OTP: %w", err)
	}

	return nil
}
