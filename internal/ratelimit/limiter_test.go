package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*Limiter, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLimiter(client), client
}

func TestLimiterCountsRecordedIssuances(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	count, err := limiter.CountRecent(ctx, "u@x.com")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Record(ctx, "u@x.com"))
	}

	count, err = limiter.CountRecent(ctx, "u@x.com")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestLimiterIsolatesEmails(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	require.NoError(t, limiter.Record(ctx, "a@x.com"))
	require.NoError(t, limiter.Record(ctx, "a@x.com"))
	require.NoError(t, limiter.Record(ctx, "b@x.com"))

	count, err := limiter.CountRecent(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = limiter.CountRecent(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLimiterTrimsEntriesOutsideWindow(t *testing.T) {
	limiter, client := newTestLimiter(t)
	ctx := context.Background()

	// Two issuances from 25 hours ago, written directly with stale scores.
	stale := float64(time.Now().Add(-25 * time.Hour).UnixNano())
	require.NoError(t, client.ZAdd(ctx, "otp_requests:u@x.com",
		redis.Z{Score: stale, Member: "old-1"},
		redis.Z{Score: stale + 1, Member: "old-2"},
	).Err())

	require.NoError(t, limiter.Record(ctx, "u@x.com"))

	count, err := limiter.CountRecent(ctx, "u@x.com")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
