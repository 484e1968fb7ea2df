// Package cache 提供带过期时间的键值缓存，用于避免每次请求都回源拉取平台热榜。
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache 是全函数：Get 未命中或已过期都返回 false，Set 无条件覆盖同名 key。
// ttl <= 0 的条目写入后立即视为过期。
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration)
}

// Key 平台热榜的缓存 key："<platform>_hot"
func Key(platform string) string {
	return platform + "_hot"
}

// Open 配置了 redisAddr 且能连通时使用 Redis，否则退回进程内缓存
func Open[V any](redisAddr, prefix string) Cache[V] {
	if redisAddr == "" {
		return NewMemory[V]()
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warn: redis ping failed, use in-process cache: %v", err)
		_ = rdb.Close()
		return NewMemory[V]()
	}
	return NewRedis[V](rdb, prefix)
}
