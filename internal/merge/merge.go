// Package merge 把多个 collector 的 PartialResult 合并为一条记录。
//
// 规则（按字段类别）：
// - 标量：按 priority 迭代，第一个非空值胜出，低优先级永远不会覆盖
// - 列表（演员、预览图、预告片）：第一个非空“列表”胜出，不跨来源拼接
// - 标签（genres）：所有来源取并集，经 TagNormalizer 规范化后去重
// - 海报：先在“干净”来源中按优先级取，再退回带水印的来源
// - Mosaic：无来源提供时按标识分类推导
//
// 合并结果只取决于 PartialResult 的集合与 priority 配置，与到达顺序无关。
package merge

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

// Ranker 提供 collector 的合并优先级与水印标记（selector.Table 实现了它）。
type Ranker interface {
	Priority(collector string) int
	Watermarked(collector string) bool
}

// TagNormalizer 规范化一组标签。只在 genres 并集步骤中使用。
type TagNormalizer interface {
	Normalize(tags []string) []string
}

type Engine struct {
	ranks Ranker
	tags  TagNormalizer
}

// New 构造合并引擎。tags 为 nil 时使用 NewTagNormalizer(nil)。
func New(ranks Ranker, tags TagNormalizer) *Engine {
	if tags == nil {
		tags = NewTagNormalizer(nil)
	}
	return &Engine{ranks: ranks, tags: tags}
}

// ordered 返回按 (priority, name, order) 排序的副本。
func (e *Engine) ordered(partials []domain.PartialResult) []domain.PartialResult {
	out := append([]domain.PartialResult(nil), partials...)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := e.ranks.Priority(out[i].Collector), e.ranks.Priority(out[j].Collector)
		if pi != pj {
			return pi < pj
		}
		if out[i].Collector != out[j].Collector {
			return out[i].Collector < out[j].Collector
		}
		return out[i].Order < out[j].Order
	})
	return out
}

// Merge 合并 partials。id 用于补全缺失的 ID 与推导 Mosaic。
//
// Source 是实际提供了至少一个字段的 collector 名，按咨询顺序（Order）以 '+' 连接。
func (e *Engine) Merge(id domain.NormalizedID, partials []domain.PartialResult) domain.Record {
	ps := e.ordered(partials)
	var out domain.Record
	used := make([]bool, len(ps))

	// pick 返回第一个提供字段 f 的下标（按优先级），并标记为贡献者。
	pick := func(f domain.Field) int {
		for i, p := range ps {
			if p.Record.Has(f) {
				used[i] = true
				return i
			}
		}
		return -1
	}

	if i := pick(domain.FieldTitle); i >= 0 {
		out.Title = ps[i].Record.Title
	}
	if i := pick(domain.FieldOriginalTitle); i >= 0 {
		out.OriginalTitle = ps[i].Record.OriginalTitle
	}
	if i := pick(domain.FieldReleaseDate); i >= 0 {
		out.ReleaseDate = ps[i].Record.ReleaseDate
	}
	if i := pick(domain.FieldYear); i >= 0 {
		out.Year = ps[i].Record.Year
	}
	if i := pick(domain.FieldStudio); i >= 0 {
		out.Studio = ps[i].Record.Studio
	}
	if i := pick(domain.FieldSeries); i >= 0 {
		out.Series = ps[i].Record.Series
	}
	if i := pick(domain.FieldOverview); i >= 0 {
		out.Overview = ps[i].Record.Overview
	}
	if i := pick(domain.FieldRating); i >= 0 {
		out.Rating = ps[i].Record.Rating
	}
	if i := pick(domain.FieldRuntime); i >= 0 {
		out.Runtime = ps[i].Record.Runtime
	}
	if i := pick(domain.FieldDirector); i >= 0 {
		out.Director = ps[i].Record.Director
	}
	if i := pick(domain.FieldWebsite); i >= 0 {
		out.Website = ps[i].Record.Website
	}
	if i := pick(domain.FieldBackdrop); i >= 0 {
		out.BackdropURL = ps[i].Record.BackdropURL
	}
	if i := pick(domain.FieldPreviewImages); i >= 0 {
		out.PreviewImageURLs = append([]string(nil), ps[i].Record.PreviewImageURLs...)
	}
	if i := pick(domain.FieldPreviewVideos); i >= 0 {
		out.PreviewVideoURLs = append([]domain.PreviewVideo(nil), ps[i].Record.PreviewVideoURLs...)
	}
	if i := pick(domain.FieldActors); i >= 0 {
		out.Actors = append([]string(nil), ps[i].Record.Actors...)
	}
	if i := pick(domain.FieldMosaic); i >= 0 {
		v := *ps[i].Record.Mosaic
		out.Mosaic = &v
	} else if derivable(id.Category) {
		v := !id.Category.Uncensored()
		out.Mosaic = &v
	}

	if i := e.pickPoster(ps); i >= 0 {
		used[i] = true
		out.PosterURL = ps[i].Record.PosterURL
	}

	out.Genres = e.unionGenres(ps, used)

	for _, p := range ps {
		if p.Record.ID != "" {
			out.ID = p.Record.ID
			break
		}
	}
	if out.ID == "" && !id.IsSearch() {
		out.ID = id.PrimaryID
	}

	out.Source = provenance(ps, used)
	return out
}

// derivable 报告能否从分类推导 Mosaic（只对标识类查询成立）。
func derivable(c domain.Category) bool {
	switch c {
	case domain.CategoryNormal, domain.CategoryUncensored, domain.CategoryFC2:
		return true
	}
	return false
}

func (e *Engine) pickPoster(ps []domain.PartialResult) int {
	for i, p := range ps {
		if p.Record.PosterURL != "" && !e.ranks.Watermarked(p.Collector) {
			return i
		}
	}
	for i, p := range ps {
		if p.Record.PosterURL != "" {
			return i
		}
	}
	return -1
}

func (e *Engine) unionGenres(ps []domain.PartialResult, used []bool) []string {
	fold := cases.Fold()
	var out []string
	seen := make(map[string]struct{})
	for i, p := range ps {
		if len(p.Record.Genres) == 0 {
			continue
		}
		for _, g := range e.tags.Normalize(p.Record.Genres) {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			key := fold.String(g)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, g)
			used[i] = true
		}
	}
	return out
}

func provenance(ps []domain.PartialResult, used []bool) string {
	type src struct {
		name  string
		order int
	}
	var srcs []src
	seen := make(map[string]struct{})
	for i, p := range ps {
		if !used[i] {
			continue
		}
		if _, ok := seen[p.Collector]; ok {
			continue
		}
		seen[p.Collector] = struct{}{}
		srcs = append(srcs, src{name: p.Collector, order: p.Order})
	}
	sort.SliceStable(srcs, func(i, j int) bool {
		if srcs[i].order != srcs[j].order {
			return srcs[i].order < srcs[j].order
		}
		return srcs[i].name < srcs[j].name
	})
	names := make([]string, 0, len(srcs))
	for _, s := range srcs {
		names = append(names, s.name)
	}
	return strings.Join(names, "+")
}

// Satisfied 报告 partials 的并集是否已覆盖全部 fields（顺序调度的提前结束条件）。
// fields 为空时恒为 false：没有必需字段就不提前结束。
func Satisfied(partials []domain.PartialResult, fields []domain.Field) bool {
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		ok := false
		for _, p := range partials {
			if p.Record.Has(f) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Missing 返回 partials 尚未覆盖的字段（保持 fields 顺序）。
func Missing(partials []domain.PartialResult, fields []domain.Field) []domain.Field {
	var out []domain.Field
	for _, f := range fields {
		ok := false
		for _, p := range partials {
			if p.Record.Has(f) {
				ok = true
				break
			}
		}
		if !ok {
			out = append(out, f)
		}
	}
	return out
}
