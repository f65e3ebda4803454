package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"mediconnect/logger"
)

type RedisConfig struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	MinIdleConns int
	ReadTimeout  time.Duration
	MaxRetries   int
}

// NewRedisClient creates a Redis client with the provided configuration
// and pings it before returning.
func NewRedisClient(ctx context.Context, config RedisConfig, log *logger.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opt.PoolSize = config.PoolSize
	opt.MinIdleConns = config.MinIdleConns
	opt.DialTimeout = config.DialTimeout
	opt.ReadTimeout = config.ReadTimeout
	opt.MaxRetries = config.MaxRetries

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis server: %w", err)
	}

	log.WithComponent("redis").WithFields(map[string]interface{}{
		"pool_size":      config.PoolSize,
		"min_idle_conns": config.MinIdleConns,
		"dial_timeout":   config.DialTimeout.String(),
		"read_timeout":   config.ReadTimeout.String(),
		"max_retries":    config.MaxRetries,
	}).Info("Redis client initialized")
	return client, nil
}

// MonitorRedisPool logs pool statistics every interval until ctx is done.
func MonitorRedisPool(ctx context.Context, client *redis.Client, log *logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := client.PoolStats()
			log.WithComponent("redis").WithFields(map[string]interface{}{
				"total": stats.TotalConns,
				"idle":  stats.IdleConns,
				"stale": stats.StaleConns,
			}).Debug("Redis pool stats")
		}
	}
}
