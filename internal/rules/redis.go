package rules

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisVersionKey = "payroll:rules:version"

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rules/cache: ping: %w", err)
	}
	return client, nil
}

// RedisCache shares rule selections between processes. Keys carry a global version so
// Bump invalidates every cached selection at once.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, redisVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

func (c *RedisCache) key(ctx context.Context, key string) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", fmt.Errorf("rules/cache: version: %w", err)
	}
	return fmt.Sprintf("payroll:%s:v%d", key, ver), nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]RuleSpec, bool, error) {
	k, err := c.key(ctx, key)
	if err != nil {
		return nil, false, err
	}
	payload, err := c.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("rules/cache: get %s: %w", k, err)
	}
	var specs []RuleSpec
	if err := json.Unmarshal(payload, &specs); err != nil {
		return nil, false, fmt.Errorf("rules/cache: decode %s: %w", k, err)
	}
	return specs, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, specs []RuleSpec) error {
	k, err := c.key(ctx, key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(specs)
	if err != nil {
		return fmt.Errorf("rules/cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, k, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("rules/cache: set %s: %w", k, err)
	}
	return nil
}

// Bump invalidates all cached selections, e.g. after a catalog is republished.
func (c *RedisCache) Bump(ctx context.Context) (int64, error) {
	ver, err := c.client.Incr(ctx, redisVersionKey).Result()
	if err != nil {
		return 0, fmt.Errorf("rules/cache: bump: %w", err)
	}
	return ver, nil
}
