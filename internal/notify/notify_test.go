package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campus-notice/internal/core/config"
	"campus-notice/internal/domain"
)

type recordingSender struct {
	mu       sync.Mutex
	failures int // 前 N 次返回错误
	calls    []Mail
}

func (s *recordingSender) Send(_ context.Context, m Mail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, m)
	if len(s.calls) <= s.failures {
		return errors.New("smtp down")
	}
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestDispatcherWorkerRetriesOnMemoryQueue(t *testing.T) {
	q := NewMemoryQueue(8, 3)
	d := NewDispatcher(q, zap.NewNop())
	s := &recordingSender{failures: 1}
	w := NewWorker(q, s, zap.NewNop(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// 请求 ctx 已取消也不影响投递
	reqCtx, reqCancel := context.WithCancel(context.Background())
	reqCancel()
	d.Notify(reqCtx, Mail{To: "s100@campus.edu", Subject: "hello"})
	d.Wait()

	waitFor(t, func() bool { return s.count() == 2 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("worker run: %v", err)
	}
	if s.calls[1].Attempts != 1 || s.calls[0].ID == "" || s.calls[0].ID != s.calls[1].ID {
		t.Fatalf("unexpected attempts %+v", s.calls)
	}
}

func TestMemoryQueueGivesUpAfterRetries(t *testing.T) {
	q := NewMemoryQueue(8, 2)
	s := &recordingSender{failures: 100}
	w := NewWorker(q, s, zap.NewNop(), 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := q.Publish(ctx, Mail{ID: "m1", To: "x@campus.edu"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, func() bool { return s.count() == 2 })
	time.Sleep(50 * time.Millisecond)
	if s.count() != 2 || q.Len() != 0 {
		t.Fatalf("expected exactly 2 attempts and an empty queue, got %d attempts, len %d", s.count(), q.Len())
	}
}

func TestDispatcherWithoutQueue(t *testing.T) {
	d := NewDispatcher(nil, nil)
	d.Notify(context.Background(), Mail{To: "x@campus.edu"})
	d.Wait()
}

func TestRedisQueueDeliversAndRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	q, err := NewRedisQueue(rdb, RedisQueueConfig{
		Stream:     "test:mail",
		Group:      "mailer",
		Consumer:   "c1",
		MaxRetries: 3,
		Block:      50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 消费者启动前发布的邮件也要送达
	if err := q.Publish(ctx, Mail{ID: "m1", To: "s100@campus.edu", Subject: "hi"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	s := &recordingSender{failures: 1}
	go func() { _ = NewWorker(q, s, zap.NewNop(), 1).Run(ctx) }()

	waitFor(t, func() bool { return s.count() == 2 })
	s.mu.Lock()
	second := s.calls[1]
	s.mu.Unlock()
	if second.ID != "m1" || second.Attempts != 1 {
		t.Fatalf("unexpected retried mail %+v", second)
	}
	waitFor(t, func() bool {
		n, _ := rdb.XLen(context.Background(), "test:mail").Result()
		return n == 0
	})
}

func TestNewRedisQueueValidation(t *testing.T) {
	if _, err := NewRedisQueue(nil, RedisQueueConfig{Stream: "s"}); err == nil {
		t.Fatalf("expected error without client")
	}
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	if _, err := NewRedisQueue(rdb, RedisQueueConfig{}); err == nil {
		t.Fatalf("expected error without stream")
	}
}

func TestNewQueueBackends(t *testing.T) {
	q, err := NewQueue(config.Notify{Queue: "memory"}, nil)
	if err != nil || q == nil {
		t.Fatalf("memory queue: %v", err)
	}
	if _, err := NewQueue(config.Notify{Queue: "kafka"}, nil); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	if _, err := NewQueue(config.Notify{Queue: "redis", Stream: "s"}, nil); err == nil {
		t.Fatalf("redis backend needs a client")
	}
}

func TestComposer(t *testing.T) {
	c := NewComposer(
		config.Mail{From: "no-reply@campus.edu"},
		config.Frontend{StudentBaseURL: "https://students.campus.edu", AdminBaseURL: "https://admin.campus.edu"},
	)
	u := &domain.User{Email: "s100@campus.edu", Username: "Ravi", RollNumber: "S100"}
	a := &domain.Admin{Email: "warden@campus.edu", AdminName: "Warden", PhoneNumber: "9999999999"}

	m := c.UserVerification(u, "tok.en")
	if m.To != u.Email || !strings.Contains(m.HTML, "https://students.campus.edu/verifyEmail?token=tok.en") {
		t.Fatalf("unexpected verification mail %+v", m)
	}
	if !strings.Contains(c.AdminVerification(a, "t").HTML, "https://admin.campus.edu/verifyEmail?token=t") {
		t.Fatalf("admin verification should link to the admin frontend")
	}

	fan := c.PendingApproval(u, []string{"a1@campus.edu", "a2@campus.edu"})
	if len(fan) != 2 || fan[1].To != "a2@campus.edu" || !strings.Contains(fan[0].HTML, "/unverifiedStudents") {
		t.Fatalf("unexpected fan-out %+v", fan)
	}

	denied := c.AccessDenied(u, a, `<script>alert(1)</script>`)
	if strings.Contains(denied.HTML, "<script>") {
		t.Fatalf("feedback must be escaped: %s", denied.HTML)
	}
	if !strings.Contains(denied.HTML, "9999999999") || denied.ReplyTo != a.Email {
		t.Fatalf("denied mail should carry the admin contact: %+v", denied)
	}
	if !strings.Contains(c.AccessApproved(u, a).HTML, "https://students.campus.edu/login") {
		t.Fatalf("approved mail should link to login")
	}
}

func TestSMTPSenderBuildsMessage(t *testing.T) {
	s := NewSMTPSender(config.Mail{Host: "smtp.campus.edu", Port: 587, From: "no-reply@campus.edu"})
	if _, err := s.message(Mail{To: "s100@campus.edu", Subject: "x", HTML: "<p>x</p>"}); err != nil {
		t.Fatalf("message: %v", err)
	}
	if _, err := s.message(Mail{To: "not an address"}); err == nil {
		t.Fatalf("expected invalid recipient error")
	}
}
