package collector

import (
	"fmt"
	"sort"
	"strings"
)

// Registry 是 collector 的只读注册表（按 name 索引）。
// 用 map 做 O(1) 查找；collector 数量极小，保持简单即可。
type Registry struct {
	byName map[string]Collector
}

func NewRegistry(collectors ...Collector) (Registry, error) {
	byName := make(map[string]Collector, len(collectors))
	for _, c := range collectors {
		if c == nil {
			return Registry{}, fmt.Errorf("collector 不能为空")
		}
		name := NormName(c.Name())
		if name == "" {
			return Registry{}, fmt.Errorf("collector.Name 不能为空")
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 collector：%q", name)
		}
		byName[name] = c
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (Collector, bool) {
	if r.byName == nil {
		return nil, false
	}
	c, ok := r.byName[NormName(name)]
	return c, ok
}

// Names 返回已注册的 collector 名称（字典序）。
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for n := range r.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NormName 是 collector 名称的唯一规范化规则（小写 + 去空白）。
func NormName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
