// Package selector 把“查询分类”映射为有序的 collector 列表。
//
// Table 是启动时构造一次的只读配置：构造后不再修改，所有访问器都返回副本。
// 同一个 priority 全序同时决定回退顺序与合并优先级。
package selector

import (
	"fmt"
	"math"
	"sort"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

// Mode 是一次会话的调度方式。
type Mode string

const (
	// ModeSequential：按优先级逐个调用，必需字段凑齐即提前结束（便宜的标识查询）。
	ModeSequential Mode = "sequential"
	// ModeFanOut：并发调用全部 collector，受截止时间与宽限期约束（昂贵的自由文本搜索）。
	ModeFanOut Mode = "fanout"
)

// Param 指定传给 collector 的是主标识还是备用写法。
type Param string

const (
	ParamPrimary   Param = "primary"
	ParamAlternate Param = "alternate"
)

// Descriptor 是 collector 的静态描述。Priority 越小越优先。
// Watermarked 标记该站点的封面通常带水印（海报字段只在没有干净来源时才采用）。
type Descriptor struct {
	Name        string
	Priority    int
	Watermarked bool
}

type Entry struct {
	Collector string
	Param     Param
}

// Rule 描述某个分类使用哪些 collector、怎样调度、哪些字段必需。
type Rule struct {
	Entries  []Entry
	Mode     Mode
	Required []domain.Field
}

// Target 是 Select 的一项输出：调用哪个 collector、传什么参数。
type Target struct {
	Collector string
	Query     string
	Priority  int
}

type Table struct {
	descs map[string]Descriptor
	rules map[domain.Category]Rule
}

// NewTable 校验并冻结配置。配置错误属于致命错误，直接返回。
func NewTable(descs []Descriptor, rules map[domain.Category]Rule) (*Table, error) {
	t := &Table{
		descs: make(map[string]Descriptor, len(descs)),
		rules: make(map[domain.Category]Rule, len(rules)),
	}
	byPriority := make(map[int]string, len(descs))
	for _, d := range descs {
		d.Name = collector.NormName(d.Name)
		if d.Name == "" {
			return nil, fmt.Errorf("collector 名称不能为空")
		}
		if _, ok := t.descs[d.Name]; ok {
			return nil, fmt.Errorf("重复的 collector：%q", d.Name)
		}
		if other, ok := byPriority[d.Priority]; ok {
			return nil, fmt.Errorf("collector %q 与 %q 的 priority 相同（%d）：priority 必须是全序", d.Name, other, d.Priority)
		}
		byPriority[d.Priority] = d.Name
		t.descs[d.Name] = d
	}

	for cat, r := range rules {
		switch r.Mode {
		case ModeSequential, ModeFanOut:
		case "":
			r.Mode = ModeSequential
		default:
			return nil, fmt.Errorf("分类 %q 的 mode 无效：%q", cat, r.Mode)
		}
		entries := make([]Entry, 0, len(r.Entries))
		seen := make(map[string]struct{}, len(r.Entries))
		for _, e := range r.Entries {
			e.Collector = collector.NormName(e.Collector)
			if _, ok := t.descs[e.Collector]; !ok {
				return nil, fmt.Errorf("分类 %q 引用了未声明的 collector：%q", cat, e.Collector)
			}
			if _, ok := seen[e.Collector]; ok {
				return nil, fmt.Errorf("分类 %q 重复引用 collector：%q", cat, e.Collector)
			}
			seen[e.Collector] = struct{}{}
			switch e.Param {
			case ParamPrimary, ParamAlternate:
			case "":
				e.Param = ParamPrimary
			default:
				return nil, fmt.Errorf("分类 %q 的 collector %q 参数无效：%q", cat, e.Collector, e.Param)
			}
			entries = append(entries, e)
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return t.descs[entries[i].Collector].Priority < t.descs[entries[j].Collector].Priority
		})
		t.rules[cat] = Rule{
			Entries:  entries,
			Mode:     r.Mode,
			Required: append([]domain.Field(nil), r.Required...),
		}
	}
	return t, nil
}

// Select 返回该分类按优先级排序的 (collector, 参数) 列表。
// 未知分类返回空列表（不是错误）：调用方按“没有候选数据源”处理。
func (t *Table) Select(cat domain.Category, id domain.NormalizedID) []Target {
	if t == nil {
		return nil
	}
	r, ok := t.rules[cat]
	if !ok {
		return nil
	}
	out := make([]Target, 0, len(r.Entries))
	for _, e := range r.Entries {
		q := id.PrimaryID
		if e.Param == ParamAlternate && id.AlternateID != "" {
			q = id.AlternateID
		}
		out = append(out, Target{
			Collector: e.Collector,
			Query:     q,
			Priority:  t.descs[e.Collector].Priority,
		})
	}
	return out
}

// Rule 返回分类规则的副本。
func (t *Table) Rule(cat domain.Category) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	r, ok := t.rules[cat]
	if !ok {
		return Rule{}, false
	}
	return Rule{
		Entries:  append([]Entry(nil), r.Entries...),
		Mode:     r.Mode,
		Required: append([]domain.Field(nil), r.Required...),
	}, true
}

func (t *Table) Descriptor(name string) (Descriptor, bool) {
	if t == nil {
		return Descriptor{}, false
	}
	d, ok := t.descs[collector.NormName(name)]
	return d, ok
}

// Priority 返回 collector 的优先级；未声明的排在最后。
func (t *Table) Priority(name string) int {
	if d, ok := t.Descriptor(name); ok {
		return d.Priority
	}
	return math.MaxInt
}

// Watermarked 报告该 collector 的封面是否通常带水印。
func (t *Table) Watermarked(name string) bool {
	d, ok := t.Descriptor(name)
	return ok && d.Watermarked
}

// Restrict 返回只保留 names 中 collector 的新表（用于剔除未注册的数据源）。
// 原表不受影响。
func (t *Table) Restrict(names []string) *Table {
	keep := make(map[string]struct{}, len(names))
	for _, n := range names {
		keep[collector.NormName(n)] = struct{}{}
	}
	out := &Table{
		descs: make(map[string]Descriptor, len(t.descs)),
		rules: make(map[domain.Category]Rule, len(t.rules)),
	}
	for n, d := range t.descs {
		if _, ok := keep[n]; ok {
			out.descs[n] = d
		}
	}
	for cat, r := range t.rules {
		entries := make([]Entry, 0, len(r.Entries))
		for _, e := range r.Entries {
			if _, ok := keep[e.Collector]; ok {
				entries = append(entries, e)
			}
		}
		out.rules[cat] = Rule{Entries: entries, Mode: r.Mode, Required: append([]domain.Field(nil), r.Required...)}
	}
	return out
}

// Categories 返回已配置的分类（字典序）。
func (t *Table) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(t.rules))
	for c := range t.rules {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
