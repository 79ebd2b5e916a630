package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaims_ClaimOnce(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	c := NewClaims(client, 0)
	c.now = func() time.Time { return submittedAt }

	first, err := c.Claim(ctx, "app-1")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, DefaultClaimTTL, mr.TTL(claimPrefix+"app-1"))

	second, err := c.Claim(ctx, "app-1")
	require.NoError(t, err)
	assert.False(t, second)

	other, err := c.Claim(ctx, "app-2")
	require.NoError(t, err)
	assert.True(t, other)

	require.NoError(t, c.Release(ctx, "app-1"))
	again, err := c.Claim(ctx, "app-1")
	require.NoError(t, err)
	assert.True(t, again)
}

func TestClaims_RedisFailures(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	c := NewClaims(client, time.Hour)
	c.now = func() time.Time { return submittedAt }

	mock.ExpectSetNX(claimPrefix+"app-1", "2024-06-15T10:00:00Z", time.Hour).SetErr(errors.New("connection refused"))
	_, err := c.Claim(ctx, "app-1")
	assert.ErrorContains(t, err, "claim notification")

	mock.ExpectDel(claimPrefix + "app-1").SetErr(errors.New("connection refused"))
	assert.ErrorContains(t, c.Release(ctx, "app-1"), "release notification claim")
	assert.NoError(t, mock.ExpectationsWereMet())
}
