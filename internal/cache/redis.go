package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis 以 JSON 编码把值写入 Redis，过期交给 Redis 自身的 TTL。
// 多个实例共享同一个 Redis 时可以共用热榜缓存。Redis 出错时只记录日志并视为未命中。
type Redis[V any] struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis[V any](rdb *redis.Client, prefix string) *Redis[V] {
	return &Redis[V]{rdb: rdb, prefix: prefix}
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	bs, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("warn: redis get %s: %v", key, err)
		}
		return zero, false
	}

	var v V
	if err := json.Unmarshal(bs, &v); err != nil {
		log.Printf("warn: redis decode %s: %v", key, err)
		return zero, false
	}
	return v, true
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) {
	// Redis 中 0 表示永不过期，这里 ttl <= 0 意味着写入即过期，直接删掉旧值
	if ttl <= 0 {
		if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
			log.Printf("warn: redis del %s: %v", key, err)
		}
		return
	}

	bs, err := json.Marshal(value)
	if err != nil {
		log.Printf("warn: redis encode %s: %v", key, err)
		return
	}
	if err := r.rdb.Set(ctx, r.prefix+key, bs, ttl).Err(); err != nil {
		log.Printf("warn: redis set %s: %v", key, err)
	}
}
