package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"campus-notice/internal/core/config"
	"campus-notice/internal/core/logger"
	"campus-notice/internal/core/server"
	"campus-notice/internal/notify"
	mdw "campus-notice/internal/transport/http/middleware"
)

// mailer consumes the shared mail queue (redis or amqp) and delivers over SMTP.
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()
	log = log.With(zap.String("svc", "mailer"))

	if cfg.Notify.Queue == "" || cfg.Notify.Queue == "memory" {
		log.Fatal("mailer needs a shared queue: set notify.queue to redis or amqp")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rdb redis.UniversalClient
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	q, err := notify.NewQueue(cfg.Notify, rdb)
	if err != nil {
		log.Fatal("mail queue", zap.Error(err))
	}
	defer q.Close()

	// 仅暴露 /metrics 与 /health
	r := server.NewRouter(log, server.Options{Name: "mailer", Mode: gin.ReleaseMode})
	r.Use(mdw.Recovery(log))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", mdw.MetricsHandler())
	srv := server.BuildServer(server.Addr(cfg.App.Mailer.Host, cfg.App.Mailer.Port), r, 5*time.Second, 10*time.Second, 60*time.Second)
	go func() {
		if err := server.Serve(ctx, srv, log, 5*time.Second); err != nil {
			log.Warn("mailer metrics server", zap.Error(err))
		}
	}()

	log.Info("mailer starting", zap.String("queue", cfg.Notify.Queue), zap.Int("workers", cfg.Notify.Workers))
	w := notify.NewWorker(q, notify.NewSender(cfg.Mail, log.Named("mail")), log, max(1, cfg.Notify.Workers))
	if err := w.Run(ctx); err != nil {
		log.Error("mailer stopped with error", zap.Error(err))
		return
	}
	log.Info("mailer stopped gracefully")
}
