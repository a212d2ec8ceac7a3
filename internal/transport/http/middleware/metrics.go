package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// KeyErrKind is set by handlers to the kind of the envelope error they returned.
const KeyErrKind = "errKind"

var (
	httpReqTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Count of HTTP requests"},
		[]string{"engine", "path", "method", "status"},
	)
	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"engine", "path", "method"},
	)
	// 信封里的业务错误（HTTP 状态码始终是 200）
	httpErrKinds = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_envelope_errors_total", Help: "Envelope errors by kind"},
		[]string{"engine", "path", "kind"},
	)
)

func init() { prometheus.MustRegister(httpReqTotal, httpLatency, httpErrKinds) }

func Metrics(engine string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpReqTotal.WithLabelValues(engine, path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLatency.WithLabelValues(engine, path, c.Request.Method).Observe(time.Since(start).Seconds())
		if kind := c.GetString(KeyErrKind); kind != "" {
			httpErrKinds.WithLabelValues(engine, path, kind).Inc()
		}
	}
}

// MetricsHandler exposes the default registry.
func MetricsHandler() gin.HandlerFunc { return gin.WrapH(promhttp.Handler()) }
