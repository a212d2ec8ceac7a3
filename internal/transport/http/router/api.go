package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"campus-notice/internal/core/config"
	"campus-notice/internal/core/server"
	mdw "campus-notice/internal/transport/http/middleware"
	resp "campus-notice/internal/transport/http/response"
)

// Options configures the middleware chain shared by both engines.
type Options struct {
	Mode        string
	CORSOrigins []string
	Limits      config.Limits
	// Health is probed by GET /health; nil means always healthy.
	Health func(ctx context.Context) error
}

func newEngine(l *zap.Logger, name string, o Options) *gin.Engine {
	r := server.NewRouter(l, server.Options{Name: name, Mode: o.Mode, CORSOrigins: o.CORSOrigins})

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.Recovery(l),
		mdw.RateLimit(rate.Limit(o.Limits.RPS), o.Limits.Burst),
		mdw.ConcurrencyLimit(o.Limits.Concurrency),
		mdw.MaxBodyBytes(o.Limits.MaxBodyBytes),
		mdw.Timeout(time.Duration(o.Limits.RequestTimeoutSec)*time.Second),
		mdw.Metrics(name),
		mdw.AccessLog(l, "/health", "/metrics"),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if o.Health != nil {
			if err := o.Health(c.Request.Context()); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusOK, resp.Error(resp.CodeUnavailable, "unhealthy"))
				return
			}
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"ok": 1}))
	})
	r.GET("/metrics", mdw.MetricsHandler())
	return r
}

// NewAPIEngine builds the student-facing engine under /api/v1.
func NewAPIEngine(l *zap.Logger, o Options, reg *Registry) *gin.Engine {
	r := newEngine(l, "api", o)
	api := r.Group("/api/v1")
	reg.MountAllAPI(api)
	return r
}
