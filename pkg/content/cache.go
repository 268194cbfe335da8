package content

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const listCacheKey = "content:list"

// Cache is a read-through Redis cache for the full content list. Every write
// path invalidates it; a cache failure is never fatal, reads just fall back
// to the store.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a cache over an existing Redis client
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// GetList retrieves the cached content list. A nil slice with nil error is a miss.
func (c *Cache) GetList(ctx context.Context) ([]Content, error) {
	data, err := c.client.Get(ctx, listCacheKey).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var items []Content
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		// Corrupt entries are dropped so the next read repopulates
		c.client.Del(ctx, listCacheKey)
		return nil, fmt.Errorf("failed to unmarshal cached content: %w", err)
	}

	return items, nil
}

// SetList stores the content list
func (c *Cache) SetList(ctx context.Context, items []Content) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal content list: %w", err)
	}

	if err := c.client.Set(ctx, listCacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

// Invalidate drops the cached list
func (c *Cache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, listCacheKey).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
