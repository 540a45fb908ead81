package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bandhanapp/bandhan-server/internal/config"
	"github.com/redis/go-redis/v9"
)

const counterTTL = time.Hour

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

func (c *RedisCache) Decr(ctx context.Context, key string) (int64, error) {
	return c.Client.Decr(ctx, key).Result()
}

// KeyForPendingInterests generates the key for a user's count of pending
// interests awaiting their decision.
func (c *RedisCache) KeyForPendingInterests(userID string) string {
	return fmt.Sprintf("interests:pending:%s", userID)
}

// KeyForUnreadNotifications generates the key for a user's unread
// notification count.
func (c *RedisCache) KeyForUnreadNotifications(userID string) string {
	return fmt.Sprintf("notifications:unread:%s", userID)
}

// GetCounter reads a cached counter. Cache miss returns (0, false, nil);
// the caller falls back to the database and calls SetCounter.
func (c *RedisCache) GetCounter(ctx context.Context, key string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, counterTTL).Err()
	return n, true, nil
}

// SetCounter stores a counter value with TTL.
func (c *RedisCache) SetCounter(ctx context.Context, key string, count int64) error {
	return c.Client.Set(ctx, key, count, counterTTL).Err()
}

// BumpCounter adjusts a counter by delta and refreshes its TTL. Best
// effort: callers treat failures as a cache miss on next read.
func (c *RedisCache) BumpCounter(ctx context.Context, key string, delta int64) {
	if delta >= 0 {
		_, _ = c.Client.IncrBy(ctx, key, delta).Result()
	} else {
		_, _ = c.Client.DecrBy(ctx, key, -delta).Result()
	}
	_ = c.Client.Expire(ctx, key, counterTTL).Err()
}
