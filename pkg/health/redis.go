package health

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisChecker checks Redis connectivity
type RedisChecker struct {
	client  redis.UniversalClient
	timeout time.Duration
}

// NewRedisChecker creates a new Redis health checker
func NewRedisChecker(client redis.UniversalClient, timeout time.Duration) *RedisChecker {
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &RedisChecker{client: client, timeout: timeout}
}

// Check performs the Redis health check
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pong, err := c.client.Ping(ctx).Result()
	if err != nil {
		return NewUnhealthyResult("redis", err).WithDuration(time.Since(start))
	}
	if pong != "PONG" {
		return NewUnhealthyResult("redis", nil).
			WithDuration(time.Since(start)).
			WithMetadata("error", "unexpected ping response")
	}

	return NewHealthyResult("redis", "connected").WithDuration(time.Since(start))
}

// Name returns the checker name
func (c *RedisChecker) Name() string {
	return "redis"
}
