package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hirehub/apiserver/config"
)

const (
	pingTimeout     = 5 * time.Second
	poolTimeout     = 30 * time.Second
	connMaxIdleTime = 5 * time.Minute
)

// Open connects to Redis. It returns nil, nil when no URL is configured so
// callers can fall back to in-process implementations.
func Open(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.PoolTimeout = poolTimeout
	opts.ConnMaxIdleTime = connMaxIdleTime

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
