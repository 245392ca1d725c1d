package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultWindow = 24 * time.Hour

// Limiter counts OTP issuances per email over a rolling window using a
// Redis sorted set: members are scored by issuance time, entries older than
// the window are trimmed before counting. This is a true rolling window, not
// a midnight-reset counter.
type Limiter struct {
	client *redis.Client
	window time.Duration
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client, window: defaultWindow}
}

func otpRequestsKey(email string) string {
	return fmt.Sprintf("otp_requests:%s", email)
}

// CountRecent returns the number of OTP issuances for the email within the
// rolling window.
func (l *Limiter) CountRecent(ctx context.Context, email string) (int, error) {
	key := otpRequestsKey(email)
	cutoff := time.Now().Add(-l.window).UnixNano()

	if err := l.client.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(cutoff, 10)).Err(); err != nil {
		return 0, fmt.Errorf("failed to trim OTP request window: %w", err)
	}

	count, err := l.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count OTP requests: %w", err)
	}

	return int(count), nil
}

// Record registers an OTP issuance for the email at the current time.
// The key expires one window after the newest entry, so idle emails cost
// nothing.
func (l *Limiter) Record(ctx context.Context, email string) error {
	key := otpRequestsKey(email)
	now := time.Now()

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score: float64(now.UnixNano()),
		// Random member so issuances in the same nanosecond still count twice.
		Member: uuid.NewString(),
	})
	pipe.Expire(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record OTP request: %w", err)
	}

	return nil
}
