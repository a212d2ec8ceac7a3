package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPQueue uses a durable RabbitMQ queue on the default exchange.
type AMQPQueue struct {
	conn       *amqp.Connection
	pub        *amqp.Channel
	mu         sync.Mutex // amqp.Channel 不支持并发发布
	queue      string
	maxRetries int
}

func NewAMQPQueue(url, queue string, maxRetries int) (*AMQPQueue, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("amqp url required")
	}
	if queue == "" {
		queue = "campus-notice.mail"
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, pub: ch, queue: queue, maxRetries: maxRetries}, nil
}

func (q *AMQPQueue) Publish(ctx context.Context, m Mail) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pub.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    m.ID,
		Body:         body,
	})
}

func (q *AMQPQueue) Consume(ctx context.Context, workers int, h func(context.Context, Mail) error) error {
	if workers <= 0 {
		workers = 1
	}
	ch, err := q.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := ch.Qos(workers, 0, false); err != nil {
		return err
	}
	deliveries, err := ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
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
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					q.handle(ctx, d, h)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (q *AMQPQueue) handle(ctx context.Context, d amqp.Delivery, h func(context.Context, Mail) error) {
	var m Mail
	if err := json.Unmarshal(d.Body, &m); err != nil {
		mailDropped.Inc()
		_ = d.Nack(false, false)
		return
	}
	if err := h(ctx, m); err == nil || !retryable(&m, q.maxRetries) {
		_ = d.Ack(false)
		return
	}
	// 重新发布带 attempts 的副本；发布失败则让 broker 重投原消息
	if err := q.Publish(ctx, m); err != nil {
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pub != nil {
		_ = q.pub.Close()
	}
	return q.conn.Close()
}
