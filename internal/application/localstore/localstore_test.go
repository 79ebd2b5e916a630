package localstore

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

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, m.Set(ctx, "app-1"))
	id, _ = m.Get(ctx)
	assert.Equal(t, "app-1", id)

	require.NoError(t, m.Clear(ctx))
	id, _ = m.Get(ctx)
	assert.Empty(t, id)
}

func TestRedis_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store, err := NewRedis(client, "device-7", time.Hour)
	require.NoError(t, err)

	id, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, store.Set(ctx, "app-1"))
	got, err := mr.Get(keyPrefix + "device-7")
	require.NoError(t, err)
	assert.Equal(t, "app-1", got)
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"device-7"))

	id, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "app-1", id)

	require.NoError(t, store.Set(ctx, ""))
	assert.False(t, mr.Exists(keyPrefix+"device-7"))
}

func TestRedis_Errors(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()

	store, err := NewRedis(client, "d", 0)
	require.NoError(t, err)

	mock.ExpectGet(keyPrefix + "d").SetErr(errors.New("connection refused"))
	_, err = store.Get(ctx)
	assert.ErrorContains(t, err, "read local id")

	mock.ExpectSet(keyPrefix+"d", "app-1", 0).SetErr(errors.New("readonly"))
	assert.ErrorContains(t, store.Set(ctx, "app-1"), "store local id")

	mock.ExpectDel(keyPrefix + "d").SetErr(errors.New("readonly"))
	assert.ErrorContains(t, store.Clear(ctx), "clear local id")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedis_Validation(t *testing.T) {
	_, err := NewRedis(nil, "d", 0)
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()
	_, err = NewRedis(client, "", 0)
	assert.Error(t, err)
}
