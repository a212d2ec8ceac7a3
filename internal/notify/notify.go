// Package notify is the best-effort mail sink: callers hand a Mail to a Notifier and
// move on; a Worker drains the queue and delivers through a Sender.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"campus-notice/pkg/utils"
)

var ErrQueueFull = errors.New("mail queue full")

type Mail struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	ReplyTo  string `json:"replyTo,omitempty"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	Attempts int    `json:"attempts"`
}

// Notifier submits mail without reporting the outcome to the caller.
type Notifier interface {
	Notify(ctx context.Context, m Mail)
}

// Queue carries mail between the API processes and the delivery worker.
type Queue interface {
	Publish(ctx context.Context, m Mail) error
	// Consume blocks until ctx is done, calling h from up to workers goroutines.
	// A non-nil error from h schedules a retry until the retry budget is spent.
	Consume(ctx context.Context, workers int, h func(context.Context, Mail) error) error
	Close() error
}

type Sender interface {
	Send(ctx context.Context, m Mail) error
}

// Dispatcher is the Notifier used by services: publishing happens on a detached goroutine.
type Dispatcher struct {
	q       Queue
	log     *zap.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(q Queue, l *zap.Logger) *Dispatcher {
	if l == nil {
		l = zap.NewNop()
	}
	return &Dispatcher{q: q, log: l, timeout: 5 * time.Second}
}

func (d *Dispatcher) Notify(ctx context.Context, m Mail) {
	if m.ID == "" {
		m.ID = utils.NewID()
	}
	if d.q == nil {
		mailEnqueued.WithLabelValues("dropped").Inc()
		d.log.Warn("mail dropped: no queue", zap.String("to", m.To), zap.String("subject", m.Subject))
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		// 与请求生命周期解绑：请求结束不应取消投递
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		if err := d.q.Publish(pctx, m); err != nil {
			mailEnqueued.WithLabelValues("error").Inc()
			d.log.Warn("mail enqueue failed",
				zap.String("mailId", m.ID), zap.String("to", m.To), zap.String("subject", m.Subject), zap.Error(err))
			return
		}
		mailEnqueued.WithLabelValues("ok").Inc()
	}()
}

// Wait blocks until every pending publish has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// retryable bumps the attempt counter and reports whether m should go back on the queue.
func retryable(m *Mail, maxRetries int) bool {
	m.Attempts++
	if m.Attempts < maxRetries {
		mailRetries.Inc()
		return true
	}
	mailDropped.Inc()
	return false
}
