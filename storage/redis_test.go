package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKV(t *testing.T) {
	client, mock := redismock.NewClientMock()
	kv := NewRedisKV(client)
	ctx := context.Background()

	mock.ExpectGet(testKey).RedisNil()
	_, found, err := kv.Get(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, found)

	mock.ExpectSet(testKey, `{"version":2}`, 0).SetVal("OK")
	require.NoError(t, kv.Put(ctx, testKey, []byte(`{"version":2}`)))

	mock.ExpectGet(testKey).SetVal(`{"version":2}`)
	val, found, err := kv.Get(ctx, testKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"version":2}`, string(val))

	mock.ExpectDel(testKey).SetVal(1)
	require.NoError(t, kv.Delete(ctx, testKey))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	assert.Error(t, kv.Ping(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSnapshotDiscard(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewSnapshotStore(NewRedisKV(client), testKey, nil)

	mock.ExpectGet(testKey).SetVal(`{"version":1,"bookings":[],"listingsMap":[],"timestamp":1,"lastFetchTime":1}`)
	mock.ExpectDel(testKey).SetVal(1)

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisGetError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewSnapshotStore(NewRedisKV(client), testKey, nil)

	mock.ExpectGet(testKey).SetErr(errors.New("timeout"))
	_, err := store.Load(context.Background())
	assert.Error(t, err)
}
