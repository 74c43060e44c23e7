package collector

import (
	"context"
	"sync"
	"time"
)

// Throttle 是 RateLimited 的通用实现：两次请求之间至少间隔 Interval。
// 多个 goroutine 同时调用时按到达顺序依次排队。
type Throttle struct {
	Interval time.Duration

	mu   sync.Mutex
	next time.Time
}

func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.Interval <= 0 {
		return ctx.Err()
	}

	t.mu.Lock()
	now := time.Now()
	at := t.next
	if at.Before(now) {
		at = now
	}
	t.next = at.Add(t.Interval)
	t.mu.Unlock()

	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
