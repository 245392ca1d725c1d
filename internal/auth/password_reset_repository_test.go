package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResetTestRepo(t *testing.T) (*PasswordResetRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewPasswordResetRepository(client, time.Hour), mr
}

func TestResetTokenStoreAndConsume(t *testing.T) {
	repo, mr := newResetTestRepo(t)
	ctx := context.Background()

	token, err := generateRandomToken()
	require.NoError(t, err)
	require.NoError(t, repo.Store(ctx, "u@x.com", token))

	// Only the hash is at rest; the raw token never touches Redis.
	stored, err := mr.Get("password_reset:u@x.com")
	require.NoError(t, err)
	assert.Equal(t, hashToken(token), stored)
	assert.NotEqual(t, token, stored)

	require.NoError(t, repo.Consume(ctx, "u@x.com", token))

	// Single use.
	assert.ErrorIs(t, repo.Consume(ctx, "u@x.com", token), ErrInvalidResetToken)
}

func TestResetTokenConsumeWrongToken(t *testing.T) {
	repo, _ := newResetTestRepo(t)
	ctx := context.Background()

	token, err := generateRandomToken()
	require.NoError(t, err)
	require.NoError(t, repo.Store(ctx, "u@x.com", token))

	assert.ErrorIs(t, repo.Consume(ctx, "u@x.com", "not-the-token"), ErrInvalidResetToken)

	require.NoError(t, repo.Consume(ctx, "u@x.com", token))
}

func TestResetTokenStoreSupersedesPrevious(t *testing.T) {
	repo, _ := newResetTestRepo(t)
	ctx := context.Background()

	first, err := generateRandomToken()
	require.NoError(t, err)
	second, err := generateRandomToken()
	require.NoError(t, err)

	require.NoError(t, repo.Store(ctx, "u@x.com", first))
	require.NoError(t, repo.Store(ctx, "u@x.com", second))

	assert.ErrorIs(t, repo.Consume(ctx, "u@x.com", first), ErrInvalidResetToken)
	require.NoError(t, repo.Consume(ctx, "u@x.com", second))
}

func TestResetTokenExpires(t *testing.T) {
	repo, mr := newResetTestRepo(t)
	ctx := context.Background()

	token, err := generateRandomToken()
	require.NoError(t, err)
	require.NoError(t, repo.Store(ctx, "u@x.com", token))

	mr.FastForward(61 * time.Minute)

	assert.ErrorIs(t, repo.Consume(ctx, "u@x.com", token), ErrInvalidResetToken)
}
