package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"campus-notice/internal/core/auth"
	"campus-notice/internal/core/cache"
	"campus-notice/internal/core/config"
	"campus-notice/internal/core/database"
	"campus-notice/internal/core/ratelimit"
	"campus-notice/internal/notify"
	"campus-notice/internal/repo"
	"campus-notice/internal/service"
	"campus-notice/internal/transport/http/handler"
	mdw "campus-notice/internal/transport/http/middleware"
	"campus-notice/internal/transport/http/router"
)

// App holds the process-wide dependencies shared by cmd/api, cmd/admin and cmd/mailer.
type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Redis    redis.UniversalClient // nil when redis.addr is empty
	Queue    notify.Queue
	Notifier *notify.Dispatcher

	Verify   *service.Verification
	Threads  *service.Threads
	Dir      *service.Directory
	Attempts mdw.KeyLimiter

	workerWG sync.WaitGroup
}

// New opens the database, Redis (optional) and the mail queue, then builds the services.
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: l}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Logger:             l,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	a.DB = db
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	// 自动迁移
	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	var profileCache *cache.Cache
	if cfg.Redis.Addr != "" {
		profileCache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		a.Redis = profileCache.RDB
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := a.Redis.Ping(pctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Notify.Queue == "redis" && a.Redis == nil {
		a.Close()
		return nil, errors.New("notify.queue=redis requires redis.addr")
	}
	q, err := notify.NewQueue(cfg.Notify, a.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("mail queue: %w", err)
	}
	a.Queue = q
	a.Notifier = notify.NewDispatcher(q, l.Named("notify"))

	a.Attempts = a.attemptLimiter()

	users, admins, threads := repo.NewUserRepo(db), repo.NewAdminRepo(db), repo.NewThreadRepo(db)
	profiles := service.NewProfiles(users, admins, profileCache)
	tokens := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer)
	policy := service.Policy{
		AdminRollNumbers: cfg.Access.AdminRollNumbers,
		AdminEmails:      cfg.Access.AdminEmails,
		UserVerifyTTL:    cfg.JWT.UserVerifyTTL(),
		AdminVerifyTTL:   cfg.JWT.AdminVerifyTTL(),
		SessionTTL:       cfg.JWT.SessionTTL(),
	}
	if len(policy.AdminRollNumbers) == 0 {
		l.Warn("access.adminRollNumbers is empty: nobody can register as admin")
	}
	mails := notify.NewComposer(cfg.Mail, cfg.Frontend)
	a.Verify = service.NewVerification(users, admins, profiles, tokens, a.Notifier, mails, policy, l.Named("verification"))
	a.Threads = service.NewThreads(threads, users, admins, profiles, l.Named("threads"))
	a.Dir = service.NewDirectory(users, admins)
	return a, nil
}

// attemptLimiter throttles login/register per client IP: shared through Redis when
// available, per process otherwise.
func (a *App) attemptLimiter() mdw.KeyLimiter {
	n := a.Cfg.Limits.AuthAttemptsPerMinute
	if n <= 0 {
		return nil
	}
	if a.Redis != nil {
		lim, err := ratelimit.NewFixedWindowLimiter(a.Redis, a.Cfg.App.Name+":auth", n, time.Minute)
		if err == nil {
			return lim
		}
		a.Log.Warn("redis auth limiter unavailable, using in-process limiter", zap.Error(err))
	}
	return mdw.NewIPLimiter(rate.Every(time.Minute/time.Duration(n)), n)
}

// Registry mounts both surfaces; each engine only picks the modules it understands.
func (a *App) Registry() *router.Registry {
	return router.NewRegistry(
		handler.NewStudentHandler(a.Verify, a.Threads, a.Dir, a.Attempts),
		handler.NewAdminHandler(a.Verify, a.Threads, a.Dir, a.Attempts),
	)
}

func (a *App) RouterOptions() router.Options {
	mode := "debug"
	if a.Cfg.App.Env == "prod" || a.Cfg.App.Env == "production" {
		mode = "release"
	}
	return router.Options{
		Mode:        mode,
		CORSOrigins: a.Cfg.Frontend.CORSOrigins,
		Limits:      a.Cfg.Limits,
		Health:      a.Ping,
	}
}

// Ping checks the database and, when configured, Redis.
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// StartWorker runs the mail worker in the background until ctx is done.
// An in-memory queue is only reachable from this process, so it always gets a worker.
func (a *App) StartWorker(ctx context.Context) bool {
	if !a.Cfg.Notify.InlineWorker && a.Cfg.Notify.Queue != "" && a.Cfg.Notify.Queue != "memory" {
		return false
	}
	w := a.NewWorker()
	a.workerWG.Add(1)
	go func() {
		defer a.workerWG.Done()
		if err := w.Run(ctx); err != nil {
			a.Log.Error("mail worker exited", zap.Error(err))
		}
	}()
	return true
}

func (a *App) NewWorker() *notify.Worker {
	workers := a.Cfg.Notify.Workers
	if workers <= 0 {
		workers = 1
	}
	return notify.NewWorker(a.Queue, notify.NewSender(a.Cfg.Mail, a.Log.Named("mail")), a.Log.Named("mailer"), workers)
}

// Close waits for in-flight notifications and the worker, then releases connections.
func (a *App) Close() {
	if a.Notifier != nil {
		a.Notifier.Wait()
	}
	a.workerWG.Wait()
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			a.Log.Warn("close mail queue", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
