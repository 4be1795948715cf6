// Package qr renders entry tokens as scannable PNGs. The token is an
// opaque string; rendering has no effect on attendance state. Rendered
// images are cached in redis for the token's validity window so repeated
// dashboard polls and the serving-time batch pre-render stay cheap.
package qr

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	qrcode "github.com/skip2/go-qrcode"

	"mess/internal/metrics"
)

// Renderer turns tokens into PNG bytes, with an optional redis cache.
type Renderer struct {
	cache *redis.Client
	ttl   time.Duration
	size  int
}

// NewRenderer builds a renderer. cache may be nil to render uncached.
func NewRenderer(cache *redis.Client, ttl time.Duration) *Renderer {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Renderer{cache: cache, ttl: ttl, size: 256}
}

func cacheKey(token string) string { return "qr:" + token }

// Render returns the PNG for a token, from cache when possible.
func (r *Renderer) Render(ctx context.Context, token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("token required")
	}
	if r.cache != nil {
		if png, err := r.cache.Get(ctx, cacheKey(token)).Bytes(); err == nil {
			metrics.QRRendersTotal.WithLabelValues("cache").Inc()
			return png, nil
		}
	}
	png, err := qrcode.Encode(token, qrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	metrics.QRRendersTotal.WithLabelValues("render").Inc()
	if r.cache != nil {
		// Cache write is best-effort: a failed SET only costs a re-render.
		_ = r.cache.Set(ctx, cacheKey(token), png, r.ttl).Err()
	}
	return png, nil
}

// Warm pre-renders a token into the cache, used by the worker after
// token issuance so the first scan never waits on encoding.
func (r *Renderer) Warm(ctx context.Context, token string) error {
	_, err := r.Render(ctx, token)
	return err
}
