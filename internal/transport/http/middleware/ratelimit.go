package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "campus-notice/internal/transport/http/response"
)

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTooMany, "too many requests"))
	}
}

// KeyLimiter is satisfied by ratelimit.FixedWindowLimiter and IPLimiter.
type KeyLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// IPLimiter keeps one token bucket per key in process memory.
type IPLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets map[string]*bucket
	ttl     time.Duration
	lastGC  time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func NewIPLimiter(rps rate.Limit, burst int) *IPLimiter {
	return &IPLimiter{rps: rps, burst: burst, buckets: map[string]*bucket{}, ttl: 10 * time.Minute, lastGC: time.Now()}
}

func (l *IPLimiter) Allow(_ context.Context, key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	// 定期清理长时间不活跃的 key
	if now.Sub(l.lastGC) > l.ttl {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastGC = now
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// RateLimitPerIP 每 IP 限速
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	return LimitBy(NewIPLimiter(rps, burst), "")
}

// LimitBy throttles per client IP (and scope) with any KeyLimiter; nil disables it.
func LimitBy(l KeyLimiter, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if scope != "" {
			key = scope + ":" + key
		}
		if l.Allow(c.Request.Context(), key) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusOK, resp.Error(resp.CodeTooMany, "too many attempts, try again later"))
	}
}
