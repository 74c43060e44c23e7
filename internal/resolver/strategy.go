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
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/resultset"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/selector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/session"
)

// attempt 是一次 Resolve 的可变状态：跨策略累积失败与会话 ID。
type attempt struct {
	r        *Resolver
	id       domain.NormalizedID
	opts     Options
	errs     *scrapeerr.Aggregator
	sessions []string
	logger   *slog.Logger
}

// strategy 是一次回退尝试。found=false 表示交给下一个策略；err 只用于内部错误。
type strategy struct {
	name  string
	apply func(ctx context.Context, a *attempt) (Outcome, bool, error)
}

// strategies 按顺序：主标识查询 -> 备用写法查询 -> 自由文本搜索。
func (a *attempt) strategies() []strategy {
	return []strategy{
		{name: "primary", apply: lookupPrimary},
		{name: "alternate", apply: lookupAlternate},
		{name: "search", apply: freeTextSearch},
	}
}

func lookupPrimary(ctx context.Context, a *attempt) (Outcome, bool, error) {
	if a.id.IsSearch() || a.id.PrimaryID == "" {
		return Outcome{}, false, nil
	}
	return a.lookup(ctx, a.id)
}

func lookupAlternate(ctx context.Context, a *attempt) (Outcome, bool, error) {
	if a.id.IsSearch() || a.id.AlternateID == "" || strings.EqualFold(a.id.AlternateID, a.id.PrimaryID) {
		return Outcome{}, false, nil
	}
	alt := a.id
	alt.PrimaryID = a.id.AlternateID
	return a.lookup(ctx, alt)
}

// lookup 按分类规则调度 collector 并合并结果。
func (a *attempt) lookup(ctx context.Context, id domain.NormalizedID) (Outcome, bool, error) {
	rule, ok := a.r.table.Rule(a.id.Category)
	if !ok {
		return Outcome{}, false, nil
	}
	targets := a.r.table.Select(a.id.Category, id)
	if len(targets) == 0 {
		return Outcome{}, false, nil
	}
	res, err := a.run(ctx, session.Plan{
		Category: a.id.Category,
		Targets:  targets,
		Mode:     rule.Mode,
		Required: rule.Required,
	})
	if err != nil {
		return Outcome{}, false, err
	}
	if len(res.Partials) == 0 {
		return Outcome{}, false, nil
	}

	merged := a.r.merger.Merge(a.id, res.Partials)
	if a.opts.Mode == ReturnMultiple {
		rs := a.pipeline([]domain.Record{merged})
		return Outcome{Results: &rs}, true, nil
	}
	return Outcome{Record: &merged}, true, nil
}

// freeTextSearch 用 search 分类的 collector 搜索原始查询，合并同 ID 候选后消歧。
func freeTextSearch(ctx context.Context, a *attempt) (Outcome, bool, error) {
	q := strings.TrimSpace(a.id.Raw)
	if q == "" {
		q = a.id.PrimaryID
	}
	if q == "" {
		return Outcome{}, false, nil
	}
	rule, ok := a.r.table.Rule(domain.CategorySearch)
	if !ok {
		return Outcome{}, false, nil
	}
	var targets []selector.Target
	for _, t := range a.r.table.Select(domain.CategorySearch, domain.NormalizedID{Raw: q, PrimaryID: q, Category: domain.CategorySearch}) {
		c, ok := a.r.reg.Get(t.Collector)
		if !ok {
			continue
		}
		if _, ok := c.(collector.Searcher); ok {
			targets = append(targets, t)
		}
	}
	if len(targets) == 0 {
		return Outcome{}, false, nil
	}

	res, err := a.run(ctx, session.Plan{
		Category: domain.CategorySearch,
		Targets:  targets,
		Mode:     rule.Mode,
		Required: rule.Required,
		Search:   true,
	})
	if err != nil {
		return Outcome{}, false, err
	}
	cands := a.group(res.Partials)
	if !a.id.IsSearch() {
		// 标识查询走到搜索时，只接受标识相同的候选；标题相近的其它作品不能充当答案。
		cands = sameID(cands, a.id)
	}
	if len(cands) == 0 {
		return Outcome{}, false, nil
	}

	_, isDate := match.ParseDateQuery(q)
	if isDate {
		// 日期查询：只保留同一天发行的候选，之后不再打分。
		cands, _ = a.r.scorer.Select(match.Query{Title: q}, cands)
		if len(cands) == 0 {
			return Outcome{}, false, nil
		}
	}

	if a.opts.Mode == ReturnMultiple {
		rs := a.pipeline(cands)
		return Outcome{Results: &rs}, true, nil
	}

	if !a.opts.Filter.IsZero() {
		cands = resultset.Filter(cands, a.opts.Filter)
		if len(cands) == 0 {
			return Outcome{}, false, nil
		}
	}
	picked := a.resolveAmbiguity(cands, q, isDate)
	if len(picked) == 1 {
		return Outcome{Record: &picked[0]}, true, nil
	}
	rs := resultset.Paginate(resultset.Sort(picked, a.opts.Sort), a.opts.Page, a.opts.PageSize)
	source := strings.Join(res.Succeeded(), "+")
	notice := scrapeerr.NoConfidentMatch(source)
	if sameTitle(picked) {
		notice = scrapeerr.New(scrapeerr.CategoryDuplicateAmbiguous, source, "", nil)
	}
	return Outcome{Results: &rs, Notice: notice}, true, nil
}

func sameID(cands []domain.Record, id domain.NormalizedID) []domain.Record {
	out := cands[:0:0]
	for _, c := range cands {
		cid := strings.ToUpper(strings.TrimSpace(c.ID))
		if cid == "" {
			continue
		}
		if cid == strings.ToUpper(id.PrimaryID) || (id.AlternateID != "" && cid == strings.ToUpper(id.AlternateID)) {
			out = append(out, c)
		}
	}
	return out
}

// sameTitle 报告记录是否共享同一个规范化标题（真正的同名重复）。
func sameTitle(rs []domain.Record) bool {
	if len(rs) == 0 {
		return false
	}
	first := match.Normalize(rs[0].Title)
	if first == "" {
		return false
	}
	for _, r := range rs[1:] {
		if match.Normalize(r.Title) != first {
			return false
		}
	}
	return true
}

func (a *attempt) resolveAmbiguity(cands []domain.Record, q string, isDate bool) []domain.Record {
	if a.opts.Date == "" || isDate {
		return resultset.ResolveAmbiguity(cands, q, isDate, a.r.scorer)
	}
	// 已知目标日期时让日期参与打分。
	if len(cands) <= 1 {
		return cands
	}
	picked, _ := a.r.scorer.Select(match.Query{Title: q, Date: a.opts.Date}, cands)
	if len(picked) == 0 {
		return cands
	}
	return resultset.ResolveAmbiguity(cands, picked[0].Title, false, a.r.scorer)
}

// group 把同一作品（同 ID）的多个候选合并为一条；没有 ID 的候选各自成组。
// 组的顺序为首次出现的顺序（Partials 已按咨询顺序排列）。
func (a *attempt) group(partials []domain.PartialResult) []domain.Record {
	var keys []string
	groups := make(map[string][]domain.PartialResult)
	for i, p := range partials {
		key := strings.ToUpper(strings.TrimSpace(p.Record.ID))
		if key == "" {
			key = fmt.Sprintf("\x00%d", i)
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], p)
	}
	out := make([]domain.Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, a.r.merger.Merge(domain.NormalizedID{Category: domain.CategorySearch}, groups[k]))
	}
	return out
}

// pipeline 是多结果模式的处理链：过滤 -> 去重 -> 排序 -> 分页。
func (a *attempt) pipeline(rs []domain.Record) domain.ResultSet {
	out := resultset.Filter(rs, a.opts.Filter)
	out = resultset.Dedupe(out, a.opts.Dedupe)
	out = resultset.Sort(out, a.opts.Sort)
	return resultset.Paginate(out, a.opts.Page, a.opts.PageSize)
}

func (a *attempt) run(ctx context.Context, plan session.Plan) (session.Result, error) {
	res, err := a.r.runner.Run(ctx, plan)
	if err != nil {
		return session.Result{}, &InternalError{Op: "session", Err: err}
	}
	a.sessions = append(a.sessions, res.SessionID)
	for _, e := range res.Errors.Errors() {
		a.errs.Add(e)
	}
	a.logger.Debug("session done",
		logging.String(logging.FieldSessionID, res.SessionID),
		logging.Strings("succeeded", res.Succeeded()),
		logging.Strings("skipped", res.Skipped))
	return res, nil
}
