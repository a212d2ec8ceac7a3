package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"campus-notice/pkg/utils"
)

type RedisQueueConfig struct {
	Stream     string
	Group      string
	Consumer   string
	MaxRetries int
	Block      time.Duration
	ClaimIdle  time.Duration
	MaxLen     int64
	ReadCount  int64
}

// RedisQueue keeps mail in a Redis stream read through a consumer group,
// so several mailer processes can share the work.
type RedisQueue struct {
	client       redis.UniversalClient
	stream       string
	group        string
	consumerBase string
	maxRetries   int
	block        time.Duration
	claimIdle    time.Duration
	maxLen       int64
	readCount    int64
}

func NewRedisQueue(client redis.UniversalClient, cfg RedisQueueConfig) (*RedisQueue, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	stream := strings.TrimSpace(cfg.Stream)
	if stream == "" {
		return nil, errors.New("queue stream required")
	}
	group := strings.TrimSpace(cfg.Group)
	if group == "" {
		group = "mailer"
	}
	consumer := strings.TrimSpace(cfg.Consumer)
	if consumer == "" {
		consumer = utils.NewID()
	}
	q := &RedisQueue{
		client:       client,
		stream:       stream,
		group:        group,
		consumerBase: consumer,
		maxRetries:   cfg.MaxRetries,
		block:        cfg.Block,
		claimIdle:    cfg.ClaimIdle,
		maxLen:       cfg.MaxLen,
		readCount:    cfg.ReadCount,
	}
	if q.maxRetries <= 0 {
		q.maxRetries = 3
	}
	if q.block <= 0 {
		q.block = 5 * time.Second
	}
	if q.claimIdle <= 0 {
		q.claimIdle = 30 * time.Second
	}
	if q.maxLen <= 0 {
		q.maxLen = 10000
	}
	if q.readCount <= 0 {
		q.readCount = 10
	}
	return q, nil
}

func (q *RedisQueue) Publish(ctx context.Context, m Mail) error {
	return q.add(ctx, q.client, m)
}

func (q *RedisQueue) add(ctx context.Context, c redis.Cmdable, m Mail) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]any{"mail": string(payload)},
	}).Err()
}

func (q *RedisQueue) Consume(ctx context.Context, workers int, h func(context.Context, Mail) error) error {
	if workers <= 0 {
		workers = 1
	}
	q.ensureGroup(ctx)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(consumer string) {
			defer wg.Done()
			q.consumeLoop(ctx, consumer, h)
		}(fmt.Sprintf("%s-%d", q.consumerBase, i))
	}
	wg.Wait()
	return ctx.Err()
}

func (q *RedisQueue) Close() error { return nil }

// ensureGroup 从 0 开始建组，消费者上线前发布的邮件也会被投递；
// BUSYGROUP 表示组已存在，其它错误会在消费时暴露
func (q *RedisQueue) ensureGroup(ctx context.Context) {
	_ = q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
}

func (q *RedisQueue) consumeLoop(ctx context.Context, consumer string, h func(context.Context, Mail) error) {
	for ctx.Err() == nil {
		// 先接管其他消费者遗留太久的消息
		if msgs, err := q.claimPending(ctx, consumer); err == nil {
			for _, msg := range msgs {
				q.handleMessage(ctx, msg, h)
			}
		}

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: consumer,
			Streams:  []string{q.stream, ">"},
			Count:    q.readCount,
			Block:    q.block,
		}).Result()
		if err != nil {
			if strings.HasPrefix(err.Error(), "NOGROUP") {
				q.ensureGroup(ctx) // stream 被删除后重建
			}
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				select {
				case <-ctx.Done():
				case <-time.After(time.Second):
				}
			}
			continue
		}
		for _, s := range streams {
			for _, msg := range s.Messages {
				q.handleMessage(ctx, msg, h)
			}
		}
	}
}

func (q *RedisQueue) claimPending(ctx context.Context, consumer string) ([]redis.XMessage, error) {
	res, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  q.claimIdle,
		Start:    "0-0",
		Count:    q.readCount,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return res, err
}

func (q *RedisQueue) handleMessage(ctx context.Context, msg redis.XMessage, h func(context.Context, Mail) error) {
	raw, _ := msg.Values["mail"].(string)
	var m Mail
	if raw == "" || json.Unmarshal([]byte(raw), &m) != nil {
		mailDropped.Inc()
		q.ackAndDel(ctx, msg.ID)
		return
	}
	if err := h(ctx, m); err == nil || !retryable(&m, q.maxRetries) {
		q.ackAndDel(ctx, msg.ID)
		return
	}
	// 失败后带着新的 attempts 重新入队，原消息 ack 掉；事务失败则原消息留在 PEL 里等待接管
	_ = q.requeueAndAck(ctx, msg.ID, m)
}

func (q *RedisQueue) ackAndDel(ctx context.Context, msgID string) {
	_, _ = q.client.XAck(ctx, q.stream, q.group, msgID).Result()
	_, _ = q.client.XDel(ctx, q.stream, msgID).Result()
}

func (q *RedisQueue) requeueAndAck(ctx context.Context, msgID string, m Mail) error {
	pipe := q.client.TxPipeline()
	if err := q.add(ctx, pipe, m); err != nil {
		return err
	}
	pipe.XAck(ctx, q.stream, q.group, msgID)
	pipe.XDel(ctx, q.stream, msgID)
	_, err := pipe.Exec(ctx)
	return err
}
