package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// RedisCache shares the list cache across API replicas. Keys are namespaced
// by a generation counter; Invalidate bumps the counter so stale generations
// simply age out through their TTL.
//
// Redis failures degrade to cache misses.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "rsvphub:events:list:"}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) generation(ctx context.Context) int64 {
	gen, err := c.rdb.Get(ctx, c.prefix+"gen").Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		return -1
	}
	return gen
}

func (c *RedisCache) entryKey(gen int64, key string) string {
	return c.prefix + strconv.FormatInt(gen, 10) + ":" + key
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, int64, bool) {
	gen := c.generation(ctx)
	if gen < 0 {
		return nil, gen, false
	}

	b, err := c.rdb.Get(ctx, c.entryKey(gen, key)).Bytes()
	if err != nil {
		return nil, gen, false
	}
	return b, gen, true
}

// Set writes under the caller's generation. If an Invalidate ran in between,
// the entry lands in a retired namespace that no reader looks at.
func (c *RedisCache) Set(ctx context.Context, gen int64, key string, val []byte) {
	if gen < 0 {
		return
	}
	_ = c.rdb.Set(ctx, c.entryKey(gen, key), val, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	_ = c.rdb.Incr(ctx, c.prefix+"gen").Err()
}
