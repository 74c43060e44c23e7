package resolver

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/resultset"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
)

type fakeCollector struct {
	name string
	rec  domain.Record
	err  error

	mu      sync.Mutex
	queries []string
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Fetch(_ context.Context, id string) (domain.Record, error) {
	f.mu.Lock()
	f.queries = append(f.queries, id)
	f.mu.Unlock()
	return f.rec, f.err
}

func (f *fakeCollector) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type fakeSearcher struct {
	*fakeCollector
	results []domain.Record
}

func (f *fakeSearcher) Search(_ context.Context, q string) ([]domain.Record, error) {
	f.mu.Lock()
	f.queries = append(f.queries, "search:"+q)
	f.mu.Unlock()
	return f.results, f.err
}

func mustResolver(t *testing.T, cs ...collector.Collector) *Resolver {
	t.Helper()
	reg, err := collector.NewRegistry(cs...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	r, err := New(Config{Registry: reg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestResolve_IdentifierEndToEnd(t *testing.T) {
	fanza := &fakeCollector{name: "fanza", rec: domain.Record{
		ID: "ABC-123", Title: "FZ title", Actors: []string{"Alice"}, PosterURL: "https://fanza/p.jpg",
	}}
	javlibrary := &fakeCollector{name: "javlibrary", err: collector.ErrNotFound}
	javbus := &fakeCollector{name: "javbus", rec: domain.Record{
		ID: "ABC-123", Title: "JB title", PosterURL: "https://javbus/wm.jpg", Genres: []string{"Drama", "drama"},
	}}
	javdb := &fakeCollector{name: "javdb", rec: domain.Record{Title: "DB"}}
	r := mustResolver(t, fanza, javlibrary, javbus, javdb)

	out, err := r.Resolve(context.Background(), "abc-123", Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.ID.Category != domain.CategoryNormal || out.Strategy != "primary" {
		t.Fatalf("分类或策略不符合预期：%+v", out)
	}
	if got := fanza.calls(); !reflect.DeepEqual(got, []string{"abc00123"}) {
		t.Fatalf("fanza 应使用备用写法查询：%v", got)
	}
	if got := javbus.calls(); !reflect.DeepEqual(got, []string{"ABC-123"}) {
		t.Fatalf("javbus 应使用主标识查询：%v", got)
	}
	if len(javdb.calls()) != 0 {
		t.Fatalf("必需字段已凑齐时 javdb 不应被调用")
	}

	rec := out.Record
	if rec == nil {
		t.Fatalf("单条模式应返回 Record")
	}
	if rec.Title != "FZ title" || rec.PosterURL != "https://fanza/p.jpg" || !reflect.DeepEqual(rec.Actors, []string{"Alice"}) {
		t.Fatalf("合并结果不符合预期：%+v", rec)
	}
	if !reflect.DeepEqual(rec.Genres, []string{"Drama"}) {
		t.Fatalf("genres 不符合预期：%v", rec.Genres)
	}
	if rec.Source != "fanza+javbus" {
		t.Fatalf("来源标记不符合预期：%q", rec.Source)
	}
	if rec.Mosaic == nil || !*rec.Mosaic {
		t.Fatalf("普通番号应推导为有码")
	}
	if out.Diagnostics == nil || !reflect.DeepEqual(out.Diagnostics.FailedSources, []string{"javlibrary"}) {
		t.Fatalf("部分失败应附带诊断：%+v", out.Diagnostics)
	}
}

func TestResolve_TotalFailureIsTypedNotFound(t *testing.T) {
	cs := []collector.Collector{
		&fakeCollector{name: "fanza", err: &collector.HTTPStatusError{StatusCode: 403, Detail: "not available in your region"}},
		&fakeCollector{name: "javlibrary", err: &collector.BlockedError{Reason: "cloudflare"}},
		&fakeCollector{name: "javbus", err: collector.ErrNotFound},
		&fakeCollector{name: "javdb", err: &collector.HTTPStatusError{StatusCode: 503}},
	}
	r := mustResolver(t, cs...)

	_, err := r.Resolve(context.Background(), "ABC-123", Options{})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("期望 *NotFoundError，得到 %T: %v", err, err)
	}
	if want := []string{"fanza", "javlibrary", "javbus", "javdb"}; !reflect.DeepEqual(nf.Summary.FailedSources, want) {
		t.Fatalf("FailedSources=%v，期望 %v", nf.Summary.FailedSources, want)
	}
	cats := nf.Summary.BySource
	if cats["fanza"][0] != scrapeerr.CategoryRegionalRestricted || cats["javlibrary"][0] != scrapeerr.CategoryProxyRequired ||
		cats["javbus"][0] != scrapeerr.CategoryNotFound || cats["javdb"][0] != scrapeerr.CategorySiteError {
		t.Fatalf("分类不符合预期：%v", cats)
	}
	if nf.Summary.Message == "" || len(nf.Summary.Suggestions) == 0 {
		t.Fatalf("应带双语摘要与建议：%+v", nf.Summary)
	}
	var ie *InternalError
	if errors.As(err, &ie) {
		t.Fatalf("数据源失败不应是内部错误")
	}
}

func TestResolve_UnknownQueryHasNoCandidates(t *testing.T) {
	r := mustResolver(t, &fakeCollector{name: "javbus"})
	_, err := r.Resolve(context.Background(), "   ", Options{})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Summary.Total != 0 {
		t.Fatalf("空查询应返回空诊断的 NotFound：%v", err)
	}
}

func TestResolve_AlternateFallback(t *testing.T) {
	javbus := &fakeCollector{name: "javbus", err: collector.ErrNotFound}
	r := mustResolver(t, javbus)
	_, _ = r.Resolve(context.Background(), "123456-789", Options{})
	if got := javbus.calls(); !reflect.DeepEqual(got, []string{"123456-789", "123456_789"}) {
		t.Fatalf("主标识失败后应尝试备用写法：%v", got)
	}
}

func TestResolve_SearchPicksExactTitle(t *testing.T) {
	javbus := &fakeSearcher{fakeCollector: &fakeCollector{name: "javbus"}, results: []domain.Record{
		{ID: "AAA-001", Title: "Summer Story"},
		{ID: "BBB-002", Title: "Summer Story 2"},
	}}
	javdb := &fakeSearcher{fakeCollector: &fakeCollector{name: "javdb"}, results: []domain.Record{
		{ID: "aaa-001", Title: "Summer Story!", Genres: []string{"Drama"}},
	}}
	r := mustResolver(t, javbus, javdb)

	out, err := r.Resolve(context.Background(), "summer story", Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Strategy != "search" || out.Record == nil {
		t.Fatalf("应通过搜索得到单条记录：%+v", out)
	}
	if out.Record.ID != "AAA-001" || out.Record.Source != "javbus+javdb" || !reflect.DeepEqual(out.Record.Genres, []string{"Drama"}) {
		t.Fatalf("同 ID 候选应先合并：%+v", out.Record)
	}
	if got := javbus.calls(); !reflect.DeepEqual(got, []string{"search:summer story"}) {
		t.Fatalf("搜索参数不符合预期：%v", got)
	}
}

func TestResolve_SearchDuplicatesReturnSetWithNotice(t *testing.T) {
	javbus := &fakeSearcher{fakeCollector: &fakeCollector{name: "javbus"}, results: []domain.Record{
		{ID: "AAA-001", Title: "Summer Story"},
		{ID: "CCC-003", Title: "summer story"},
		{ID: "BBB-002", Title: "Winter"},
	}}
	r := mustResolver(t, javbus)

	out, err := r.Resolve(context.Background(), "Summer Story", Options{Sort: resultset.SortSpec{Key: "id"}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Record != nil || out.Results == nil || out.Notice == nil {
		t.Fatalf("真正的重复应返回结果集与提示：%+v", out)
	}
	if out.Notice.Category != scrapeerr.CategoryDuplicateAmbiguous || out.Notice.Code != "duplicate_ambiguous" {
		t.Fatalf("提示分类不符合预期：%+v", out.Notice)
	}
	var ids []string
	for _, it := range out.Results.Items {
		ids = append(ids, it.ID)
	}
	if !reflect.DeepEqual(ids, []string{"AAA-001", "CCC-003"}) {
		t.Fatalf("结果集不符合预期：%v", ids)
	}
}

func TestResolve_SearchWithoutConfidentMatchReturnsAllCandidates(t *testing.T) {
	javbus := &fakeSearcher{fakeCollector: &fakeCollector{name: "javbus"}, results: []domain.Record{
		{ID: "AAA-001", Title: "Alpha"},
		{ID: "BBB-002", Title: "Beta"},
	}}
	r := mustResolver(t, javbus)

	out, err := r.Resolve(context.Background(), "zzzzzzzzzzzzzz qqqq", Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Record != nil || out.Results == nil || out.Results.Total != 2 {
		t.Fatalf("没有可信匹配时应返回全部候选：%+v", out)
	}
	if out.Notice == nil || out.Notice.Code != scrapeerr.CodeNoConfidentMatch {
		t.Fatalf("提示应说明没有可信匹配：%+v", out.Notice)
	}
	for _, m := range out.Notice.Messages {
		if strings.Contains(m, "same title") || strings.Contains(m, "同名") {
			t.Fatalf("不同标题的候选不应被描述为同名重复：%v", out.Notice.Messages)
		}
	}
}

func TestResolve_IdentifierSearchFallbackRequiresSameID(t *testing.T) {
	// Fetch 返回空记录（视为未找到），只有搜索有结果。
	javbus := &fakeSearcher{fakeCollector: &fakeCollector{name: "javbus"}, results: []domain.Record{
		{ID: "ABC-1234", Title: "Completely different work"},
	}}
	r := mustResolver(t, javbus)

	out, err := r.Resolve(context.Background(), "ABC-123", Options{})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("搜索只返回其它番号时应为 NotFound，实际 out=%+v err=%v", out, err)
	}

	javbus.results = []domain.Record{
		{ID: "ABC-1234", Title: "Completely different work"},
		{ID: "abc-123", Title: "The right one"},
	}
	out, err = r.Resolve(context.Background(), "ABC-123", Options{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Strategy != "search" || out.Record == nil || out.Record.Title != "The right one" {
		t.Fatalf("应只采用同番号的搜索候选：%+v", out)
	}
}

func TestResolve_MultipleModePaginates(t *testing.T) {
	var results []domain.Record
	for _, id := range []string{"E-5", "A-1", "C-3", "B-2", "D-4", "A-1"} {
		results = append(results, domain.Record{ID: id, Title: "t " + id})
	}
	javdb := &fakeSearcher{fakeCollector: &fakeCollector{name: "javdb"}, results: results}
	r := mustResolver(t, javdb)

	out, err := r.Resolve(context.Background(), "anything", Options{Mode: ReturnMultiple, Sort: resultset.SortSpec{Key: "id"}, Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	rs := out.Results
	if rs == nil || rs.Total != 5 || rs.Page != 2 || !rs.HasNext || !rs.HasPrev {
		t.Fatalf("分页不符合预期：%+v", rs)
	}
	if rs.Items[0].ID != "C-3" || rs.Items[1].ID != "D-4" {
		t.Fatalf("排序或分页内容不符合预期：%+v", rs.Items)
	}
}

func TestResolve_CategoryHintForcesSearch(t *testing.T) {
	javbus := &fakeSearcher{fakeCollector: &fakeCollector{name: "javbus"}, results: []domain.Record{{ID: "ABC-123", Title: "x"}}}
	r := mustResolver(t, javbus)
	out, err := r.Resolve(context.Background(), "ABC-123", Options{CategoryHint: domain.CategorySearch})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Strategy != "search" || out.ID.Category != domain.CategorySearch {
		t.Fatalf("分类提示应生效：%+v", out)
	}
	if got := javbus.calls(); !reflect.DeepEqual(got, []string{"search:ABC-123"}) {
		t.Fatalf("不应再按标识查询：%v", got)
	}
}

func TestResolve_InvalidModeIsInternalError(t *testing.T) {
	r := mustResolver(t, &fakeCollector{name: "javbus"})
	_, err := r.Resolve(context.Background(), "ABC-123", Options{Mode: "weird"})
	var ie *InternalError
	if !errors.As(err, &ie) {
		t.Fatalf("期望 *InternalError，得到 %T", err)
	}
}

func TestNew_RequiresCollectors(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatalf("没有 collector 时应返回错误")
	}
}
