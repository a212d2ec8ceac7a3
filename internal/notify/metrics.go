package notify

import "github.com/prometheus/client_golang/prometheus"

var (
	mailEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mail_enqueued_total", Help: "Mail handed to the queue by result"},
		[]string{"result"},
	)
	mailDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mail_delivery_attempts_total", Help: "Mail delivery attempts by result"},
		[]string{"result"},
	)
	mailRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "mail_retries_total", Help: "Mail put back on the queue after a failed delivery"},
	)
	mailDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "mail_dropped_total", Help: "Mail given up on after exhausting retries"},
	)
)

func init() { prometheus.MustRegister(mailEnqueued, mailDelivered, mailRetries, mailDropped) }
