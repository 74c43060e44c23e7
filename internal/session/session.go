// Package session 驱动一次抓取会话：按计划调用 collector，收集 PartialResult 与失败。
//
// 两种调度方式：
//   - 顺序（提前结束）：按优先级逐个调用，必需字段凑齐后跳过剩余的低优先级 collector
//   - 有界并发：每个 collector 一个 goroutine，结果经带缓冲的 channel 汇入；
//     超过截止时间，或已有结果且宽限期已过，就停止等待
//
// 停止等待不等于取消：仍在进行的调用会在后台结束，其结果写入缓冲 channel 后被丢弃。
// 单个 collector 的失败总是在本地恢复并记入 Aggregator，会话继续执行。
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/logging"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/merge"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/selector"
)

const (
	DefaultDeadline    = 30 * time.Second
	DefaultGrace       = 5 * time.Second
	DefaultMaxParallel = 4
)

// Options 是会话的调度参数。零值字段使用默认值。
type Options struct {
	// Deadline 是整个会话的硬截止时间。
	Deadline time.Duration
	// Grace：并发模式下，已有至少一个结果且会话已运行超过 Grace 时停止等待。
	Grace time.Duration
	// MaxParallel 限制并发模式下同时进行的调用数。
	MaxParallel int

	Logger   *slog.Logger
	Observer Observer
}

func (o Options) withDefaults() Options {
	if o.Deadline <= 0 {
		o.Deadline = DefaultDeadline
	}
	if o.Grace <= 0 {
		o.Grace = DefaultGrace
	}
	if o.MaxParallel <= 0 {
		o.MaxParallel = DefaultMaxParallel
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

// Plan 描述一次会话要调用的 collector。
type Plan struct {
	Category domain.Category
	Targets  []selector.Target
	Mode     selector.Mode
	Required []domain.Field
	// Search=true 时调用 Searcher.Search（每个 collector 可返回多条候选）。
	Search bool
}

// Result 是一次会话的产出。
//
// Partials 按咨询顺序（Order）排列；全部失败时为空，Errors 非空。
// Skipped 是顺序模式下因必需字段已凑齐而未调用的 collector；
// Abandoned 是并发模式下停止等待时尚未完成的 collector。
type Result struct {
	SessionID string
	Partials  []domain.PartialResult
	Errors    *scrapeerr.Aggregator
	Attempted []string
	Skipped   []string
	Abandoned []string
	Elapsed   time.Duration
}

// Succeeded 返回至少产出一条结果的 collector（按咨询顺序去重）。
func (r Result) Succeeded() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, p := range r.Partials {
		if _, ok := seen[p.Collector]; ok {
			continue
		}
		seen[p.Collector] = struct{}{}
		out = append(out, p.Collector)
	}
	return out
}

type Runner struct {
	reg  collector.Registry
	opts Options
}

func NewRunner(reg collector.Registry, opts Options) *Runner {
	return &Runner{reg: reg, opts: opts.withDefaults()}
}

// Run 执行计划。返回的 error 只表示配置/编程错误（例如计划引用了未注册的 collector）；
// collector 的失败全部记入 Result.Errors。
func (r *Runner) Run(ctx context.Context, plan Plan) (Result, error) {
	for _, t := range plan.Targets {
		c, ok := r.reg.Get(t.Collector)
		if !ok {
			return Result{}, fmt.Errorf("collector 未注册：%q", t.Collector)
		}
		if plan.Search {
			if _, ok := c.(collector.Searcher); !ok {
				return Result{}, fmt.Errorf("collector %q 不支持搜索", t.Collector)
			}
		}
	}

	res := Result{
		SessionID: uuid.NewString(),
		Errors:    scrapeerr.NewAggregator(),
	}
	logger := r.opts.Logger.With(
		logging.String(logging.FieldSessionID, res.SessionID),
		logging.String(logging.FieldCategory, string(plan.Category)),
		logging.String("mode", string(plan.Mode)),
	)
	started := time.Now()
	logger.Debug("session started",
		logging.Int("collectors", len(plan.Targets)),
		logging.Bool("search", plan.Search))

	ctx, cancel := context.WithTimeout(ctx, r.opts.Deadline)
	defer cancel()

	if plan.Mode == selector.ModeFanOut {
		r.fanOut(ctx, plan, &res, logger)
	} else {
		r.sequential(ctx, plan, &res, logger)
	}

	sort.SliceStable(res.Partials, func(i, j int) bool { return res.Partials[i].Order < res.Partials[j].Order })
	res.Elapsed = time.Since(started)

	logger.Info("session finished",
		logging.Int("partials", len(res.Partials)),
		logging.Int("errors", res.Errors.Count()),
		logging.Strings("skipped", res.Skipped),
		logging.Strings("abandoned", res.Abandoned),
		logging.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (r *Runner) sequential(ctx context.Context, plan Plan, res *Result, logger *slog.Logger) {
	for i, t := range plan.Targets {
		if err := ctx.Err(); err != nil {
			// 截止时间到或调用方取消：剩余 collector 记为网络失败。
			for _, rest := range plan.Targets[i:] {
				res.Attempted = append(res.Attempted, rest.Collector)
				res.Abandoned = append(res.Abandoned, rest.Collector)
				res.Errors.Add(scrapeerr.Classify(rest.Collector, err))
			}
			return
		}

		res.Attempted = append(res.Attempted, t.Collector)
		o := r.invoke(ctx, res.SessionID, i, t, plan.Search)
		r.record(res, o, logger)

		if len(o.records) > 0 && merge.Satisfied(res.Partials, plan.Required) {
			for _, rest := range plan.Targets[i+1:] {
				res.Skipped = append(res.Skipped, rest.Collector)
			}
			if len(res.Skipped) > 0 {
				logger.Debug("required fields satisfied, skipping remaining collectors",
					logging.String(logging.FieldCollector, t.Collector),
					logging.Strings("skipped", res.Skipped))
			}
			return
		}
	}
}

func (r *Runner) fanOut(ctx context.Context, plan Plan, res *Result, logger *slog.Logger) {
	n := len(plan.Targets)
	if n == 0 {
		return
	}
	sem := semaphore.NewWeighted(int64(r.opts.MaxParallel))
	// 缓冲区容纳全部结果：停止等待后，后台完成的调用不会阻塞。
	results := make(chan outcome, n)

	sid := res.SessionID
	for i, t := range plan.Targets {
		res.Attempted = append(res.Attempted, t.Collector)
		go func(i int, t selector.Target) {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- outcome{order: i, target: t, err: err}
				return
			}
			defer sem.Release(1)
			results <- r.invoke(ctx, sid, i, t, plan.Search)
		}(i, t)
	}

	done := make([]bool, n)
	pending := n
	grace := time.NewTimer(r.opts.Grace)
	defer grace.Stop()
	graceC := grace.C
	graceElapsed := false

	var stopErr error
wait:
	for pending > 0 {
		select {
		case o := <-results:
			done[o.order] = true
			pending--
			r.record(res, o, logger)
			if graceElapsed && len(res.Partials) > 0 {
				break wait
			}
		case <-graceC:
			graceElapsed = true
			graceC = nil
			if len(res.Partials) > 0 {
				break wait
			}
		case <-ctx.Done():
			stopErr = ctx.Err()
			break wait
		}
	}

	for i, t := range plan.Targets {
		if done[i] {
			continue
		}
		res.Abandoned = append(res.Abandoned, t.Collector)
		if stopErr != nil {
			res.Errors.Add(scrapeerr.Classify(t.Collector, stopErr))
		}
	}
	if len(res.Abandoned) > 0 {
		logger.Info("stopped waiting for collectors",
			logging.Strings("abandoned", res.Abandoned),
			logging.Bool("deadline", stopErr != nil))
	}
}

// record 把一次调用的结果写入 Result。只在会话 goroutine 中调用。
func (r *Runner) record(res *Result, o outcome, logger *slog.Logger) {
	if o.err != nil {
		se := scrapeerr.Classify(o.target.Collector, o.err)
		res.Errors.Add(se)
		logger.Warn("collector failed",
			logging.String(logging.FieldCollector, o.target.Collector),
			logging.String("error_category", string(se.Category)),
			logging.String("error_code", se.Code),
			logging.Duration("elapsed", o.elapsed),
			logging.Error(o.err))
		return
	}
	for _, rec := range o.records {
		res.Partials = append(res.Partials, domain.PartialResult{
			Collector: o.target.Collector,
			Order:     o.order,
			Record:    rec,
		})
	}
	logger.Debug("collector succeeded",
		logging.String(logging.FieldCollector, o.target.Collector),
		logging.Int("records", len(o.records)),
		logging.Duration("elapsed", o.elapsed))
}
