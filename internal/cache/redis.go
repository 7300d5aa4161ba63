package cache

import (
	"Shortly-Backend/internal/config"
	"Shortly-Backend/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "mapping:"

// RedisCache implements Cache on top of Redis. Cache failures are
// logged and treated as misses so the redirect path never depends on
// Redis availability.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedis(cfg *config.Cache, log *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("connected to redis cache", zap.String("address", cfg.Address))

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		log:    log,
	}, nil
}

func (c *RedisCache) GetMapping(ctx context.Context, code string) (*domain.Mapping, bool) {
	data, err := c.client.Get(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", zap.String("short_code", code), zap.Error(err))
		}
		return nil, false
	}

	var m domain.Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		c.log.Warn("cache entry corrupted, dropping", zap.String("short_code", code), zap.Error(err))
		_ = c.client.Del(ctx, keyPrefix+code).Err()
		return nil, false
	}

	return &m, true
}

func (c *RedisCache) SetMapping(ctx context.Context, m *domain.Mapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	if err := c.client.Set(ctx, keyPrefix+m.ShortCode, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache mapping: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, code string) error {
	if err := c.client.Del(ctx, keyPrefix+code).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
