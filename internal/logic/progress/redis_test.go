package progress

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewRedisStore(rdb, ttl)
}

func TestRedisStore(t *testing.T) {
	mr, store := newTestStore(t, time.Minute)

	status, err := store.GetSlotStatus(100)
	require.NoError(t, err)
	assert.Equal(t, SlotUnknown, status)

	require.NoError(t, store.MarkSlotStatus(100, SlotProcessed))
	status, err = store.GetSlotStatus(100)
	require.NoError(t, err)
	assert.Equal(t, SlotProcessed, status)

	assert.Equal(t, time.Minute, mr.TTL("anchorview:progress:slot:100"))

	require.NoError(t, store.MarkSlotStatus(100, SlotInvalid))
	status, err = store.GetSlotStatus(100)
	require.NoError(t, err)
	assert.Equal(t, SlotInvalid, status)
}

func TestRedisStore_UnknownValue(t *testing.T) {
	mr, store := newTestStore(t, 0)
	require.NoError(t, mr.Set("anchorview:progress:slot:7", "99"))

	status, err := store.GetSlotStatus(7)
	require.NoError(t, err)
	assert.Equal(t, SlotUnknown, status)

	require.NoError(t, mr.Set("anchorview:progress:slot:8", "abc"))
	_, err = store.GetSlotStatus(8)
	assert.Error(t, err)
}

func TestNopStore(t *testing.T) {
	var store Store = NopStore{}
	require.NoError(t, store.MarkSlotStatus(1, SlotProcessed))
	status, err := store.GetSlotStatus(1)
	require.NoError(t, err)
	assert.Equal(t, SlotUnknown, status)
}

func TestSlotStatus_String(t *testing.T) {
	assert.Equal(t, "processed", SlotProcessed.String())
	assert.Equal(t, "unknown", SlotStatus(42).String())
}
