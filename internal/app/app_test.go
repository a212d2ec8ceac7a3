package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"campus-notice/internal/core/config"
	"campus-notice/internal/core/ratelimit"
	mdw "campus-notice/internal/transport/http/middleware"
)

func testConfig() *config.Config {
	return &config.Config{
		App:    config.App{Name: "campus-notice", Env: "test"},
		JWT:    config.JWT{Secret: "s", Issuer: "campus-notice", SessionTTLHours: 1, UserVerifyTTLHours: 1, AdminVerifyTTLHours: 1},
		DB:     config.DB{Driver: "sqlite", DSN: ":memory:", AutoMigrate: true, LogLevel: "silent"},
		Access: config.Access{AdminRollNumbers: []string{"A1"}},
		Notify: config.Notify{Queue: "memory", Buffer: 8, MaxRetries: 1, Workers: 1},
		Limits: config.Limits{AuthAttemptsPerMinute: 5},
	}
}

func TestNewInMemory(t *testing.T) {
	a, err := New(context.Background(), testConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := a.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if _, ok := a.Attempts.(*mdw.IPLimiter); !ok {
		t.Fatalf("without redis the auth limiter should be in-process, got %T", a.Attempts)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if !a.StartWorker(ctx) {
		t.Fatalf("a memory queue always gets an inline worker")
	}
	if a.Registry() == nil {
		t.Fatalf("registry should be built")
	}
	cancel()
	a.Close()
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Redis.Addr = mr.Addr()
	cfg.Notify.Queue = "redis"
	cfg.Notify.Stream = "test:mail"
	cfg.Notify.Group = "mailer"
	cfg.Notify.InlineWorker = false

	a, err := New(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()
	if _, ok := a.Attempts.(*ratelimit.FixedWindowLimiter); !ok {
		t.Fatalf("with redis the auth limiter should be shared, got %T", a.Attempts)
	}
	if a.StartWorker(context.Background()) {
		t.Fatalf("redis queue without inlineWorker should leave delivery to the mailer")
	}
}

func TestNewRejectsRedisQueueWithoutRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Notify.Queue = "redis"
	if _, err := New(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Fatalf("expected an error")
	}
}
