package txdetail

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"anchor-explorer-sol/internal/logic/domain"
	"anchor-explorer-sol/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	cachePrefix     = "anchorview:tx"
	defaultCacheTTL = 24 * time.Hour
)

// CachedProvider 在 Provider 前加一层 Redis 读穿缓存。
// 已确认的交易内容不会再变化，因此只缓存命中结果；Redis 异常时降级为直接查询。
type CachedProvider struct {
	next Provider
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedProvider(next Provider, rdb *redis.Client, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedProvider{next: next, rdb: rdb, ttl: ttl}
}

func (c *CachedProvider) getKey(signature string) string {
	return cachePrefix + ":" + signature
}

func (c *CachedProvider) Get(ctx context.Context, signature string) (*domain.TxDetail, error) {
	key := c.getKey(signature)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var detail domain.TxDetail
		if err := json.Unmarshal(raw, &detail); err == nil {
			return &detail, nil
		}
		logger.Warnf("[CachedProvider] corrupted cache entry %s, refetching", key)
	case errors.Is(err, redis.Nil):
	default:
		logger.Warnf("[CachedProvider] redis get %s failed: %v", key, err)
	}

	detail, err := c.next.Get(ctx, signature)
	if err != nil || detail == nil {
		return detail, err
	}

	data, err := json.Marshal(detail)
	if err != nil {
		logger.Warnf("[CachedProvider] marshal %s failed: %v", signature, err)
		return detail, nil
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warnf("[CachedProvider] redis set %s failed: %v", key, err)
	}
	return detail, nil
}
