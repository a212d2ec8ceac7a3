package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campus-notice/internal/core/config"
)

type Worker struct {
	q       Queue
	s       Sender
	log     *zap.Logger
	workers int
}

func NewWorker(q Queue, s Sender, l *zap.Logger, workers int) *Worker {
	return &Worker{q: q, s: s, log: l, workers: workers}
}

// Run consumes until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("mail worker started", zap.Int("workers", w.workers))
	err := w.q.Consume(ctx, w.workers, w.deliver)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.log.Info("mail worker stopped")
	return err
}

func (w *Worker) deliver(ctx context.Context, m Mail) error {
	if err := w.s.Send(ctx, m); err != nil {
		mailDelivered.WithLabelValues("error").Inc()
		w.log.Warn("mail delivery failed",
			zap.String("mailId", m.ID), zap.String("to", m.To), zap.Int("attempt", m.Attempts+1), zap.Error(err))
		return err
	}
	mailDelivered.WithLabelValues("ok").Inc()
	w.log.Debug("mail delivered", zap.String("mailId", m.ID), zap.String("to", m.To))
	return nil
}

// NewQueue builds the configured queue backend; rdb is required for "redis".
func NewQueue(c config.Notify, rdb redis.UniversalClient) (Queue, error) {
	switch c.Queue {
	case "", "memory":
		return NewMemoryQueue(c.Buffer, c.MaxRetries), nil
	case "redis":
		return NewRedisQueue(rdb, RedisQueueConfig{Stream: c.Stream, Group: c.Group, MaxRetries: c.MaxRetries})
	case "amqp":
		return NewAMQPQueue(c.AMQPURL, c.AMQPQueue, c.MaxRetries)
	default:
		return nil, fmt.Errorf("unknown notify.queue %q", c.Queue)
	}
}
