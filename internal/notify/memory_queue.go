package notify

import (
	"context"
	"sync"
)

// MemoryQueue is an in-process queue; mail is lost on restart.
type MemoryQueue struct {
	ch         chan Mail
	maxRetries int
}

func NewMemoryQueue(buffer, maxRetries int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 256
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &MemoryQueue{ch: make(chan Mail, buffer), maxRetries: maxRetries}
}

func (q *MemoryQueue) Publish(ctx context.Context, m Mail) error {
	select {
	case q.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, workers int, h func(context.Context, Mail) error) error {
	if workers <= 0 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case m := <-q.ch:
					if err := h(ctx, m); err != nil && retryable(&m, q.maxRetries) {
						select {
						case q.ch <- m:
						default:
							mailDropped.Inc() // 队列已满，放弃重试
						}
					}
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (q *MemoryQueue) Close() error { return nil }

// Len reports how many mails are waiting.
func (q *MemoryQueue) Len() int { return len(q.ch) }
