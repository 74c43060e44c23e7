package session

import (
	"context"
	"fmt"
	"time"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/selector"
)

type outcome struct {
	order   int
	target  selector.Target
	records []domain.Record
	err     error
	elapsed time.Duration
}

// PanicError 表示 collector 在调用中 panic（已被恢复）。
type PanicError struct {
	Collector string
	Value     any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("collector %s panic: %v", e.Collector, e.Value)
}

// invoke 调用单个 collector：先自我限速（若支持），再 Fetch/Search。
// 空记录视为明确未找到；panic 被恢复为 PanicError。
func (r *Runner) invoke(ctx context.Context, sessionID string, order int, t selector.Target, search bool) (o outcome) {
	o = outcome{order: order, target: t}
	started := time.Now()
	if r.opts.Observer != nil {
		r.opts.Observer.OnCollectorStart(sessionID, t.Collector)
	}
	defer func() {
		if v := recover(); v != nil {
			o.records = nil
			o.err = scrapeerr.New(scrapeerr.CategoryUnknown, t.Collector, "panic", &PanicError{Collector: t.Collector, Value: v})
		}
		o.elapsed = time.Since(started)
		if r.opts.Observer != nil {
			r.opts.Observer.OnCollectorDone(sessionID, t.Collector, len(o.records), o.err, o.elapsed)
		}
	}()

	c, ok := r.reg.Get(t.Collector)
	if !ok {
		o.err = fmt.Errorf("collector 未注册：%q", t.Collector)
		return o
	}

	if rl, ok := c.(collector.RateLimited); ok {
		if err := rl.Wait(ctx); err != nil {
			o.err = err
			return o
		}
	}

	if search {
		recs, err := c.(collector.Searcher).Search(ctx, t.Query)
		if err != nil {
			o.err = err
			return o
		}
		for _, rec := range recs {
			if rec.IsEmpty() {
				continue
			}
			if rec.Source == "" {
				rec.Source = t.Collector
			}
			o.records = append(o.records, rec)
		}
		if len(o.records) == 0 {
			o.err = collector.ErrNotFound
		}
		return o
	}

	rec, err := c.Fetch(ctx, t.Query)
	if err != nil {
		o.err = err
		return o
	}
	if rec.IsEmpty() {
		o.err = collector.ErrNotFound
		return o
	}
	if rec.Source == "" {
		rec.Source = t.Collector
	}
	o.records = []domain.Record{rec}
	return o
}
