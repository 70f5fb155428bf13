package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	slotPrefix     = "anchorview:progress:slot"
	defaultTTL     = 24 * time.Hour
	redisOpTimeout = 2 * time.Second
)

// RedisStore 管理 Redis 中的 slot 状态记录（幂等控制）
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (r *RedisStore) getKey(slot uint64) string {
	return slotPrefix + ":" + strconv.FormatUint(slot, 10)
}

// GetSlotStatus 获取 slot 的状态，未知值按 SlotUnknown 处理
func (r *RedisStore) GetSlotStatus(slot uint64) (SlotStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := r.rdb.Get(ctx, r.getKey(slot)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return SlotUnknown, nil
	case err != nil:
		return SlotUnknown, fmt.Errorf("redis get error: %w", err)
	}
	switch status := SlotStatus(val); status {
	case SlotProcessed, SlotInvalid, SlotPending:
		return status, nil
	default:
		return SlotUnknown, nil
	}
}

func (r *RedisStore) MarkSlotStatus(slot uint64, status SlotStatus) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	return r.rdb.Set(ctx, r.getKey(slot), int(status), r.ttl).Err()
}
