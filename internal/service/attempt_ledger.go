package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// AttemptLedger 记录已提交的作答凭证，保证每张凭证只能提交一次
type AttemptLedger interface {
	// Consume 首次消费返回 true
	Consume(ctx context.Context, ticketID string, ttl time.Duration) (bool, error)
	// Release 提交失败时归还凭证
	Release(ctx context.Context, ticketID string) error
}

func NewAttemptLedger(rdb *redis.Client) AttemptLedger {
	if rdb != nil {
		return &RedisLedger{Client: rdb, Prefix: "quizgen:attempt:"}
	}
	return NewMemoryLedger()
}

// RedisLedger 多实例部署时使用
type RedisLedger struct {
	Client *redis.Client
	Prefix string
}

func (l *RedisLedger) Consume(ctx context.Context, ticketID string, ttl time.Duration) (bool, error) {
	return l.Client.SetNX(ctx, l.Prefix+ticketID, time.Now().Unix(), ttl).Result()
}

func (l *RedisLedger) Release(ctx context.Context, ticketID string) error {
	return l.Client.Del(ctx, l.Prefix+ticketID).Err()
}

// MemoryLedger 单实例使用，过期条目在写入时顺带清理
type MemoryLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]time.Time), now: time.Now}
}

func (l *MemoryLedger) Consume(ctx context.Context, ticketID string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, exp := range l.entries {
		if now.After(exp) {
			delete(l.entries, id)
		}
	}
	if _, used := l.entries[ticketID]; used {
		return false, nil
	}
	l.entries[ticketID] = now.Add(ttl)
	return true, nil
}

func (l *MemoryLedger) Release(ctx context.Context, ticketID string) error {
	l.mu.Lock()
	delete(l.entries, ticketID)
	l.mu.Unlock()
	return nil
}
