package cache

import (
	"context"
	"time"

	"trekko-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client wraps a redis connection and degrades to a no-op when redis is
// unreachable or unconfigured. Callers treat a miss and an unavailable cache
// the same way.
type Client struct {
	rdb *redis.Client
	log *zap.Logger
}

func NewClient(cfg utils.RedisConfig, log *zap.Logger) *Client {
	if cfg.Addr == "" {
		log.Warn("Redis address not configured, cache disabled")
		return &Client{log: log}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, cache disabled", zap.Error(err))
		return &Client{log: log}
	}

	log.Info("Connected to Redis", zap.String("addr", cfg.Addr))
	return &Client{rdb: rdb, log: log}
}

// Get returns the cached value and whether it was found. Cache errors are
// logged and reported as misses.
func (c *Client) Get(ctx context.Context, key string) (string, bool) {
	if c.rdb == nil {
		return "", false
	}

	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.log.Warn("Cache get failed", zap.Error(err), zap.String("key", key))
		return "", false
	}

	return val, true
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if c.rdb == nil {
		return
	}

	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		c.log.Warn("Cache set failed", zap.Error(err), zap.String("key", key))
	}
}

func (c *Client) Delete(ctx context.Context, keys ...string) {
	if c.rdb == nil || len(keys) == 0 {
		return
	}

	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("Cache delete failed", zap.Error(err), zap.Strings("keys", keys))
	}
}

func (c *Client) Close() {
	if c.rdb != nil {
		c.rdb.Close()
	}
}
