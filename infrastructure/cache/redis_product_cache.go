package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"fridge/models"
)

// RedisProductCache caches lookup results in Redis so they survive restarts
// and are shared between instances.
type RedisProductCache struct {
	client *redis.Client
}

// NewRedisProductCache connects to Redis and verifies the connection.
func NewRedisProductCache(addr, password string, db int) (*RedisProductCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisProductCache{client: client}, nil
}

func productKey(code string) string {
	return "fridge:product:" + strings.TrimSpace(code)
}

func (c *RedisProductCache) GetProduct(ctx context.Context, code string) (models.ProductRecord, bool, error) {
	raw, err := c.client.Get(ctx, productKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.ProductRecord{}, false, nil
	}
	if err != nil {
		return models.ProductRecord{}, false, err
	}
	var product models.ProductRecord
	if err := json.Unmarshal(raw, &product); err != nil {
		return models.ProductRecord{}, false, fmt.Errorf("decode cached product: %w", err)
	}
	return product, true, nil
}

func (c *RedisProductCache) SetProduct(ctx context.Context, code string, product models.ProductRecord, ttl time.Duration) error {
	raw, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(code), raw, ttl).Err()
}

func (c *RedisProductCache) Close() error {
	return c.client.Close()
}
