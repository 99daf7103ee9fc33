/*
 * @module service/rate_limiter/window_limiter
 * @description 进程内滑动窗口限流器，按集成维度跟踪剩余配额与重置时间
 * @architecture 工具层 - 限流能力
 * @documentReference ai_docs/rate_limit_design.md
 * @stateFlow 申请配额 -> 配额耗尽时等待重置 -> 依据上游响应元数据回填配额
 * @rules 配额耗尽时Acquire等待计算出的延迟后放行，而不是立即失败
 * @dependencies sync, time, context
 * @refs service/connector/base.go
 */

package rate_limiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Quota 单个键的配额状态
type Quota struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Limiter 限流器统一接口
type Limiter interface {
	// Acquire 申请一次调用配额，配额耗尽时阻塞到窗口重置或ctx取消
	Acquire(ctx context.Context, key string) error

	// Observe 依据上游响应元数据（如X-RateLimit-Remaining头）回填配额状态
	Observe(key string, remaining int, resetAt time.Time)
}

// WindowLimiter 进程内滑动窗口限流器
type WindowLimiter struct {
	mu          sync.Mutex
	quotas      map[string]*Quota
	maxRequests int
	window      time.Duration
	now         func() time.Time
}

// NewWindowLimiter 创建窗口限流器
func NewWindowLimiter(maxRequests int, window time.Duration) *WindowLimiter {
	if maxRequests <= 0 {
		maxRequests = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &WindowLimiter{
		quotas:      make(map[string]*Quota),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
	}
}

// Acquire 申请一次调用配额
func (l *WindowLimiter) Acquire(ctx context.Context, key string) error {
	for {
		delay, ok := l.tryAcquire(key)
		if ok {
			return nil
		}

		slog.Debug("配额耗尽，等待窗口重置", "key", key, "delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// 窗口重置后重新申请
		}
	}
}

// tryAcquire 尝试扣减配额，耗尽时返回需等待的延迟
func (l *WindowLimiter) tryAcquire(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	q, exists := l.quotas[key]
	if !exists || !now.Before(q.ResetAt) {
		q = &Quota{
			Limit:     l.maxRequests,
			Remaining: l.maxRequests,
			ResetAt:   now.Add(l.window),
		}
		l.quotas[key] = q
	}

	if q.Remaining <= 0 {
		delay := q.ResetAt.Sub(now)
		if delay < time.Millisecond {
			delay = time.Millisecond
		}
		return delay, false
	}

	q.Remaining--
	return 0, true
}

// Observe 依据上游响应元数据回填配额状态
func (l *WindowLimiter) Observe(key string, remaining int, resetAt time.Time) {
	if remaining < 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	q, exists := l.quotas[key]
	if !exists {
		q = &Quota{Limit: l.maxRequests}
		l.quotas[key] = q
	}

	q.Remaining = remaining
	if !resetAt.IsZero() {
		q.ResetAt = resetAt
	}
}

// Snapshot 返回指定键的配额快照，不存在时返回nil
func (l *WindowLimiter) Snapshot(key string) *Quota {
	l.mu.Lock()
	defer l.mu.Unlock()

	q, exists := l.quotas[key]
	if !exists {
		return nil
	}
	copied := *q
	return &copied
}
