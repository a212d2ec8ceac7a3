package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFixedWindowLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	limiter, err := NewFixedWindowLimiter(rdb, "test:ratelimit", 2, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	ctx := context.Background()
	if !limiter.Allow(ctx, "login:10.0.0.1") || !limiter.Allow(ctx, "login:10.0.0.1") {
		t.Fatalf("first two attempts should pass")
	}
	if limiter.Allow(ctx, "login:10.0.0.1") {
		t.Fatalf("third attempt should be blocked")
	}
	if !limiter.Allow(ctx, "login:10.0.0.2") {
		t.Fatalf("other keys have their own window")
	}
}

func TestFixedWindowLimiterFailClosed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()

	limiter, err := NewFixedWindowLimiter(rdb, "", 1, time.Second)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	mr.Close()
	if limiter.Allow(context.Background(), "k") {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestFixedWindowLimiterRequiresClient(t *testing.T) {
	if l, err := NewFixedWindowLimiter(nil, "", 1, time.Second); err == nil || l != nil {
		t.Fatalf("expected constructor error without redis")
	}
	var nilLimiter *FixedWindowLimiter
	if nilLimiter.Allow(context.Background(), "k") {
		t.Fatalf("nil limiter must not allow")
	}
}
