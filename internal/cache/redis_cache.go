package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"pharmacare/backend/internal/domain"
)

type RedisDashboardCache struct {
	client *redis.Client
}

func NewRedisDashboardCache(addr string, password string, db int) *RedisDashboardCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDashboardCache{client: client}
}

func (c *RedisDashboardCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDashboardCache) Close() error {
	return c.client.Close()
}

func (c *RedisDashboardCache) Get(ctx context.Context, key string) (*domain.Dashboard, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var dashboard domain.Dashboard
	if err := json.Unmarshal(val, &dashboard); err != nil {
		return nil, false, err
	}
	return &dashboard, true, nil
}

func (c *RedisDashboardCache) Set(ctx context.Context, key string, value *domain.Dashboard, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

// Invalidate drops every key under the dashboard prefix.
func (c *RedisDashboardCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	keys := make([]string, 0, 8)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
