// Package cache stores short-lived lookups in Redis.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Connect parses redisURL, creates a client, and verifies connectivity with a ping.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}
