package scrapeerr

import (
	"fmt"
	"strings"
	"sync"
)

// Aggregator 收集一次会话中所有 collector 的失败。并发安全。
//
// 这里不做重试：凭据刷新、镜像切换等都属于各 collector 自己的职责。
type Aggregator struct {
	mu   sync.Mutex
	errs []*StructuredError
}

func NewAggregator() *Aggregator { return &Aggregator{} }

func (a *Aggregator) Add(e *StructuredError) {
	if a == nil || e == nil {
		return
	}
	a.mu.Lock()
	a.errs = append(a.errs, e)
	a.mu.Unlock()
}

func (a *Aggregator) HasErrors() bool { return a.Count() > 0 }

func (a *Aggregator) Count() int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.errs)
}

// Errors 返回按添加顺序排列的副本。
func (a *Aggregator) Errors() []*StructuredError {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*StructuredError(nil), a.errs...)
}

// Summary 是聚合后的诊断信息（失败报告中对外展示的部分）。
type Summary struct {
	Total int `json:"total"`

	// FailedSources 按首次出现顺序去重。
	FailedSources []string `json:"failed_sources"`
	// Categories 按首次出现顺序去重；ByCategory/BySource 是分组明细。
	Categories  []Category            `json:"categories"`
	ByCategory  map[Category][]string `json:"by_category"`
	BySource    map[string][]Category `json:"by_source"`
	Details     map[string][]string   `json:"details"`
	Suggestions []string              `json:"suggestions"`

	// Message 是一行双语摘要：中文 / English。
	Message string `json:"message"`
}

func (a *Aggregator) Summary() Summary {
	errs := a.Errors()

	s := Summary{
		Total:         len(errs),
		ByCategory:    make(map[Category][]string),
		BySource:      make(map[string][]Category),
		Details:       make(map[string][]string),
		FailedSources: []string{},
		Categories:    []Category{},
		Suggestions:   []string{},
	}

	seenSrc := make(map[string]struct{})
	seenSug := make(map[string]struct{})
	for _, e := range errs {
		if _, ok := seenSrc[e.Source]; !ok {
			seenSrc[e.Source] = struct{}{}
			s.FailedSources = append(s.FailedSources, e.Source)
		}
		if _, ok := s.ByCategory[e.Category]; !ok {
			s.Categories = append(s.Categories, e.Category)
		}
		s.ByCategory[e.Category] = appendUnique(s.ByCategory[e.Category], e.Source)
		s.BySource[e.Source] = appendUniqueCat(s.BySource[e.Source], e.Category)
		if len(e.Messages) > 0 {
			s.Details[e.Source] = appendUnique(s.Details[e.Source], e.Messages[0])
		}
		for _, sug := range e.Suggestions {
			if _, ok := seenSug[sug]; ok {
				continue
			}
			seenSug[sug] = struct{}{}
			s.Suggestions = append(s.Suggestions, sug)
		}
	}
	s.Message = s.oneLine()
	return s
}

func (s Summary) oneLine() string {
	if s.Total == 0 {
		return "没有可用的数据源 / No applicable sources"
	}
	parts := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		parts = append(parts, fmt.Sprintf("%s×%d", c, len(s.ByCategory[c])))
	}
	groups := strings.Join(parts, ", ")
	n := len(s.FailedSources)
	return fmt.Sprintf("%d 个数据源失败（%s）：%s / %d source(s) failed (%s): %s",
		n, groups, strings.Join(s.FailedSources, ", "),
		n, groups, strings.Join(s.FailedSources, ", "))
}

func appendUnique(in []string, v string) []string {
	for _, s := range in {
		if s == v {
			return in
		}
	}
	return append(in, v)
}

func appendUniqueCat(in []Category, v Category) []Category {
	for _, c := range in {
		if c == v {
			return in
		}
	}
	return append(in, v)
}
