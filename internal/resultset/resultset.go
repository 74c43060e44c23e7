// Package resultset 对多条记录做过滤、排序、去重、分页与消歧。
//
// 所有函数都是纯函数：不修改输入切片，任意输入都有定义良好的输出。
package resultset

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/match"
)

const DefaultPageSize = 20

// FilterSpec 的每个条件都是可选的；零值表示不过滤。
// 字符串条件不区分大小写；Actor/Genre 要求列表中有一项相等，Studio 要求相等，
// Keyword 要求标题或原标题包含该词。
type FilterSpec struct {
	Actor    string
	Genre    string
	Studio   string
	Keyword  string
	YearFrom int
	YearTo   int
}

func (f FilterSpec) IsZero() bool {
	return f == FilterSpec{}
}

func Filter(rs []domain.Record, f FilterSpec) []domain.Record {
	out := make([]domain.Record, 0, len(rs))
	fold := cases.Fold()
	eq := func(a, b string) bool { return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b)) }
	anyEq := func(list []string, want string) bool {
		for _, v := range list {
			if eq(v, want) {
				return true
			}
		}
		return false
	}
	keyword := match.Normalize(f.Keyword)

	for _, r := range rs {
		if f.Actor != "" && !anyEq(r.Actors, f.Actor) {
			continue
		}
		if f.Genre != "" && !anyEq(r.Genres, f.Genre) {
			continue
		}
		if f.Studio != "" && !eq(r.Studio, f.Studio) {
			continue
		}
		if keyword != "" &&
			!strings.Contains(match.Normalize(r.Title), keyword) &&
			!strings.Contains(match.Normalize(r.OriginalTitle), keyword) {
			continue
		}
		y := recordYear(r)
		if f.YearFrom > 0 && (y == 0 || y < f.YearFrom) {
			continue
		}
		if f.YearTo > 0 && (y == 0 || y > f.YearTo) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// recordYear 优先使用 Year，缺失时从 ReleaseDate 取年份。
func recordYear(r domain.Record) int {
	if r.Year > 0 {
		return r.Year
	}
	if len(r.ReleaseDate) >= 4 {
		y := 0
		for _, c := range r.ReleaseDate[:4] {
			if c < '0' || c > '9' {
				return 0
			}
			y = y*10 + int(c-'0')
		}
		return y
	}
	return 0
}

type SortSpec struct {
	Key  string // title|release_date|year|rating|runtime|id
	Desc bool
}

var sortKeys = map[string]func(a, b domain.Record) int{
	"title": func(a, b domain.Record) int {
		return strings.Compare(match.Normalize(a.Title), match.Normalize(b.Title))
	},
	"release_date": func(a, b domain.Record) int { return strings.Compare(a.ReleaseDate, b.ReleaseDate) },
	"year":         func(a, b domain.Record) int { return recordYear(a) - recordYear(b) },
	"rating": func(a, b domain.Record) int {
		switch {
		case a.Rating < b.Rating:
			return -1
		case a.Rating > b.Rating:
			return 1
		}
		return 0
	},
	"runtime": func(a, b domain.Record) int { return a.Runtime - b.Runtime },
	"id":      func(a, b domain.Record) int { return strings.Compare(a.ID, b.ID) },
}

// SortKeys 返回受支持的排序键（字典序）。
func SortKeys() []string {
	out := make([]string, 0, len(sortKeys))
	for k := range sortKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Sort 稳定排序；未知键原样返回（副本）。
func Sort(rs []domain.Record, s SortSpec) []domain.Record {
	out := append([]domain.Record(nil), rs...)
	cmp, ok := sortKeys[strings.ToLower(strings.TrimSpace(s.Key))]
	if !ok {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if s.Desc {
			return cmp(out[j], out[i]) < 0
		}
		return cmp(out[i], out[j]) < 0
	})
	return out
}

type DedupeKey string

const (
	DedupeByID      DedupeKey = "id"
	DedupeByTitle   DedupeKey = "title"
	DedupeByIDTitle DedupeKey = "id+title"
)

// Dedupe 稳定去重：保留每个键第一次出现的记录。未知键按 id 去重。
// 键为空的记录（例如没有 ID）一律保留。
func Dedupe(rs []domain.Record, key DedupeKey) []domain.Record {
	keyOf := func(r domain.Record) string { return strings.ToUpper(strings.TrimSpace(r.ID)) }
	switch key {
	case DedupeByTitle:
		keyOf = func(r domain.Record) string { return match.Normalize(r.Title) }
	case DedupeByIDTitle:
		keyOf = func(r domain.Record) string {
			id, t := strings.ToUpper(strings.TrimSpace(r.ID)), match.Normalize(r.Title)
			if id == "" && t == "" {
				return ""
			}
			return id + "\x00" + t
		}
	}
	out := make([]domain.Record, 0, len(rs))
	seen := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		k := keyOf(r)
		if k != "" {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, r)
	}
	return out
}

// Paginate 切出一页。pageSize<=0 时使用 DefaultPageSize；越界页码夹到合法范围。
func Paginate(rs []domain.Record, page, pageSize int) domain.ResultSet {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	total := len(rs)
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		pages = 1
	}
	page = min(max(page, 1), pages)

	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)
	return domain.ResultSet{
		Items:      append([]domain.Record(nil), rs[start:end]...),
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// ResolveAmbiguity 从候选中挑出应返回给调用方的子集：
//   - 只有一条：原样返回
//   - 日期查询：全部返回（上游已按日期过滤）
//   - 标题查询：交给 scorer；有把握的匹配连同同标题的其他候选一起返回（真正的重复，由调用方区分），
//     没有把握时返回全部候选
func ResolveAmbiguity(rs []domain.Record, query string, isDateQuery bool, scorer *match.Scorer) []domain.Record {
	all := append([]domain.Record(nil), rs...)
	if len(rs) <= 1 || isDateQuery {
		return all
	}
	if scorer == nil {
		scorer = match.NewScorer(0, nil, nil)
	}
	picked, _ := scorer.Select(match.Query{Title: query}, rs)
	if len(picked) == 0 {
		return all
	}

	titles := make(map[string]struct{}, len(picked))
	for _, p := range picked {
		titles[match.Normalize(p.Title)] = struct{}{}
	}
	var out []domain.Record
	for _, r := range rs {
		if _, ok := titles[match.Normalize(r.Title)]; ok {
			out = append(out, r)
		}
	}
	return out
}
