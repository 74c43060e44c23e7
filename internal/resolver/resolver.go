// Package resolver 是对外的唯一入口：把一次查询解析为一条合并记录或一个结果集。
//
// 流程：Normalizer 分类 -> SourceSelector 选 collector -> 会话调度 -> 合并；
// 自由文本查询得到多个候选时再做打分消歧与结果集处理。
//
// Resolve 对部分失败不报错：调用方要么拿到记录/结果集，要么拿到 *NotFoundError
// （带诊断摘要），要么拿到 *InternalError。
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/logging"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/match"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/merge"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/normalize"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/selector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/session"
)

// Config 是构造 Resolver 的依赖。除 Registry 外都有默认值。
type Config struct {
	Registry   collector.Registry
	Table      *selector.Table
	Normalizer normalize.Normalizer
	Tags       merge.TagNormalizer
	Scorer     *match.Scorer
	Session    session.Options
	Logger     *slog.Logger
}

type Resolver struct {
	reg        collector.Registry
	table      *selector.Table
	normalizer normalize.Normalizer
	merger     *merge.Engine
	scorer     *match.Scorer
	runner     *session.Runner
	logger     *slog.Logger
}

// New 构造 Resolver。表中未注册的 collector 会被剔除（例如未启用的站点）。
func New(cfg Config) (*Resolver, error) {
	names := cfg.Registry.Names()
	if len(names) == 0 {
		return nil, fmt.Errorf("至少需要注册一个 collector")
	}
	table := cfg.Table
	if table == nil {
		table = selector.DefaultTable()
	}
	table = table.Restrict(names)

	if cfg.Normalizer == nil {
		cfg.Normalizer = normalize.Default{}
	}
	logger := logging.NewComponentLogger(cfg.Logger, "resolver")
	if cfg.Scorer == nil {
		cfg.Scorer = match.NewScorer(0, nil, logger)
	}
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = logging.NewComponentLogger(cfg.Logger, "session")
	}
	return &Resolver{
		reg:        cfg.Registry,
		table:      table,
		normalizer: cfg.Normalizer,
		merger:     merge.New(table, cfg.Tags),
		scorer:     cfg.Scorer,
		runner:     session.NewRunner(cfg.Registry, cfg.Session),
		logger:     logger,
	}, nil
}

// Outcome 是 Resolve 的成功输出，Record 与 Results 恰有一个非空。
// 单条模式下通常只有 Record；候选是真正的重复时改为 Results，并附带 DuplicateAmbiguous 的 Notice。
type Outcome struct {
	Query    string
	ID       domain.NormalizedID
	Strategy string

	Record  *domain.Record
	Results *domain.ResultSet
	Notice  *scrapeerr.StructuredError

	// Diagnostics 非空表示部分数据源失败（结果仍然可用）。
	Diagnostics *scrapeerr.Summary
	SessionIDs  []string
}

// Resolve 解析 query。
func (r *Resolver) Resolve(ctx context.Context, query string, opts Options) (Outcome, error) {
	if opts.Mode == "" {
		opts.Mode = ReturnSingle
	}
	if opts.Mode != ReturnSingle && opts.Mode != ReturnMultiple {
		return Outcome{}, &InternalError{Op: "options", Err: fmt.Errorf("未知的 mode：%q", opts.Mode)}
	}

	id := r.classify(query, opts.CategoryHint)
	run := &attempt{
		r:      r,
		id:     id,
		opts:   opts,
		errs:   scrapeerr.NewAggregator(),
		logger: r.logger.With(logging.String("query", strings.TrimSpace(query)), logging.String(logging.FieldCategory, string(id.Category))),
	}

	for _, st := range run.strategies() {
		out, found, err := st.apply(ctx, run)
		if err != nil {
			return Outcome{}, err
		}
		if !found {
			continue
		}
		out.Query = query
		out.ID = id
		out.Strategy = st.name
		out.SessionIDs = run.sessions
		if run.errs.HasErrors() {
			sum := run.errs.Summary()
			out.Diagnostics = &sum
		}
		run.logger.Info("query resolved",
			logging.String("strategy", st.name),
			logging.Bool("multiple", out.Results != nil),
			logging.Int("failed_sources", run.errs.Count()))
		return out, nil
	}

	sum := run.errs.Summary()
	run.logger.Info("query not found",
		logging.Strings("failed_sources", sum.FailedSources),
		logging.String("summary", sum.Message))
	return Outcome{}, &NotFoundError{Query: query, ID: id, Summary: sum}
}

func (r *Resolver) classify(query string, hint domain.Category) domain.NormalizedID {
	id := r.normalizer.Classify(query)
	if hint == "" || hint == id.Category {
		return id
	}
	if hint == domain.CategorySearch {
		return domain.NormalizedID{Raw: query, PrimaryID: strings.TrimSpace(query), Category: domain.CategorySearch}
	}
	if id.PrimaryID == "" {
		id.PrimaryID = strings.TrimSpace(query)
	}
	id.Category = hint
	return id
}
