package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wondermap/wondermap-api/internal/itinerary"
)

const (
	hoursTTL = 24 * time.Hour
	feedTTL  = 30 * time.Second

	hoursPrefix = "place-hours:"
	feedPrefix  = "posts:public:"
)

// Cache wraps a Redis client and stores place opening hours and the rendered
// public post feed.
type Cache struct {
	client   *redis.Client
	hoursTTL time.Duration
	feedTTL  time.Duration
}

// NewCache constructs a Cache with a 24-hour TTL for opening hours and a
// 30-second TTL for the public feed.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client, hoursTTL: hoursTTL, feedTTL: feedTTL}
}

func hoursKey(placeID string) string {
	return hoursPrefix + strings.TrimSpace(placeID)
}

func feedKey(limit int) string {
	return feedPrefix + strconv.Itoa(limit)
}

// GetHours retrieves cached opening hours for a place.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) GetHours(ctx context.Context, placeID string) (*itinerary.WeeklyHours, error) {
	val, err := c.client.Get(ctx, hoursKey(placeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get hours for place %s: %w", placeID, err)
	}

	var h itinerary.WeeklyHours
	if err := json.Unmarshal(val, &h); err != nil {
		return nil, fmt.Errorf("unmarshaling cached hours for place %s: %w", placeID, err)
	}
	return &h, nil
}

// SetHours stores opening hours for a place.
func (c *Cache) SetHours(ctx context.Context, placeID string, hours *itinerary.WeeklyHours) error {
	if hours == nil {
		return nil
	}

	b, err := json.Marshal(hours)
	if err != nil {
		return fmt.Errorf("marshaling hours for place %s: %w", placeID, err)
	}

	if err := c.client.Set(ctx, hoursKey(placeID), b, c.hoursTTL).Err(); err != nil {
		return fmt.Errorf("cache set hours for place %s: %w", placeID, err)
	}
	return nil
}

// GetPublicFeed returns the rendered public feed for limit.
// Returns nil, nil on a cache miss.
func (c *Cache) GetPublicFeed(ctx context.Context, limit int) ([]byte, error) {
	val, err := c.client.Get(ctx, feedKey(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get public feed: %w", err)
	}
	return val, nil
}

// SetPublicFeed stores the rendered public feed for limit.
func (c *Cache) SetPublicFeed(ctx context.Context, limit int, body []byte) error {
	if err := c.client.Set(ctx, feedKey(limit), body, c.feedTTL).Err(); err != nil {
		return fmt.Errorf("cache set public feed: %w", err)
	}
	return nil
}

// InvalidatePublicFeed drops every cached feed page so new or edited posts
// show up immediately.
func (c *Cache) InvalidatePublicFeed(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, feedPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning public feed keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete public feed: %w", err)
	}
	return nil
}
