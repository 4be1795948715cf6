package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the shared client backing the token queue and the QR cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis dials redis at addr. Timeouts stay short so a down redis
// degrades /healthz instead of stalling handlers; BRPOP consumers pass
// their block duration per call, which extends the read deadline.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     16,
		MinIdleConns: 2,
	})
	return &Redis{Client: client}
}

// Healthy reports whether a PING round-trips within ctx.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}
