package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alpe89/booking-poc/internal/travel"
	"github.com/redis/go-redis/v9"
)

// Cache holds catalog listing pages. Availability is intentionally never
// cached here: it must always be computed from booking rows.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

func pageKey(page, limit int) string {
	return fmt.Sprintf("travels:p%d:l%d", page, limit)
}

func (c *Cache) GetTravelPage(ctx context.Context, page, limit int) (*travel.Page, error) {
	val, err := c.client.Get(ctx, pageKey(page, limit)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p travel.Page
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Cache) SetTravelPage(ctx context.Context, page, limit int, p *travel.Page) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, pageKey(page, limit), data, c.ttl).Err()
}

var _ travel.Cache = (*Cache)(nil)
