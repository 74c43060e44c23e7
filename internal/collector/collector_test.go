package collector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/cache"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
)

type stubCollector struct {
	name  string
	rec   domain.Record
	err   error
	calls int
	waits int
}

func (c *stubCollector) Name() string { return c.name }

func (c *stubCollector) Fetch(ctx context.Context, id string) (domain.Record, error) {
	c.calls++
	if c.err != nil {
		return domain.Record{}, c.err
	}
	r := c.rec
	r.ID = id
	return r, nil
}

func (c *stubCollector) Wait(ctx context.Context) error {
	c.waits++
	return nil
}

type stubSearcher struct {
	stubCollector
	results []domain.Record
}

func (s *stubSearcher) Search(ctx context.Context, query string) ([]domain.Record, error) {
	return s.results, nil
}

func TestRegistry_NormalizesAndRejectsDuplicates(t *testing.T) {
	reg, err := NewRegistry(&stubCollector{name: "JavBus"}, &stubCollector{name: "javdb"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, ok := reg.Get(" javbus "); !ok {
		t.Fatalf("应能按规范化名称查到 collector")
	}
	if !reflect.DeepEqual(reg.Names(), []string{"javbus", "javdb"}) {
		t.Fatalf("Names 不符合预期：%v", reg.Names())
	}

	if _, err := NewRegistry(&stubCollector{name: "a"}, &stubCollector{name: "A"}); err == nil {
		t.Fatalf("期望重复名称报错")
	}
	if _, err := NewRegistry(&stubCollector{name: " "}); err == nil {
		t.Fatalf("期望空名称报错")
	}
	if _, err := NewRegistry(nil); err == nil {
		t.Fatalf("期望 nil collector 报错")
	}
}

func TestErrors_ClassifyThroughTaxonomy(t *testing.T) {
	if c := scrapeerr.Classify("x", fmt.Errorf("wrap: %w", ErrNotFound)).Category; c != scrapeerr.CategoryNotFound {
		t.Fatalf("ErrNotFound 应归类为 NotFound，实际 %s", c)
	}
	if c := scrapeerr.Classify("x", &BlockedError{Reason: "driver-verify"}).Category; c != scrapeerr.CategoryProxyRequired {
		t.Fatalf("BlockedError 应归类为 ProxyRequired，实际 %s", c)
	}
	if c := scrapeerr.Classify("x", &HTTPStatusError{StatusCode: 404}).Category; c != scrapeerr.CategoryNotFound {
		t.Fatalf("HTTP 404 应归类为 NotFound，实际 %s", c)
	}
	if c := scrapeerr.Classify("x", &ParseError{URL: "u", Err: errors.New("no title")}).Category; c != scrapeerr.CategorySiteError {
		t.Fatalf("ParseError 应归类为 SiteError，实际 %s", c)
	}
	if !IsNotFound(fmt.Errorf("x: %w", ErrNotFound)) {
		t.Fatalf("IsNotFound 应识别包装后的 ErrNotFound")
	}
}

func TestThrottle_SpacesCalls(t *testing.T) {
	th := &Throttle{Interval: 30 * time.Millisecond}
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := th.Wait(context.Background()); err != nil {
			t.Fatalf("不期望错误：%v", err)
		}
	}
	if el := time.Since(start); el < 55*time.Millisecond {
		t.Fatalf("三次调用应至少间隔两个周期，实际 %v", el)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	slow := &Throttle{Interval: time.Hour}
	_ = slow.Wait(context.Background())
	if err := slow.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("ctx 取消后应返回 context.Canceled，实际 %v", err)
	}
}

func TestWithCache_HitSkipsNetworkAndWait(t *testing.T) {
	store := cache.New(t.TempDir(), false, 0)
	inner := &stubCollector{name: "javdb", rec: domain.Record{Title: "T"}}

	c := WithCache(inner, store, nil)
	if _, ok := c.(RateLimited); ok {
		t.Fatalf("包装后不应暴露 RateLimited")
	}
	if _, ok := c.(Searcher); ok {
		t.Fatalf("内层不是 Searcher 时包装后也不应是")
	}

	for i := 0; i < 2; i++ {
		rec, err := c.Fetch(context.Background(), "ABC-123")
		if err != nil || rec.Title != "T" {
			t.Fatalf("Fetch 不符合预期：%+v %v", rec, err)
		}
	}
	if inner.calls != 1 || inner.waits != 1 {
		t.Fatalf("第二次应命中缓存：calls=%d waits=%d", inner.calls, inner.waits)
	}
}

func TestWithCache_ReadOnlyStoreIsQuiet(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := cache.New(t.TempDir(), true, 0)
	inner := &stubCollector{name: "javbus", rec: domain.Record{Title: "T"}}
	c := WithCache(inner, store, logger)

	rec, err := c.Fetch(context.Background(), "ABC-123")
	if err != nil || rec.Title != "T" {
		t.Fatalf("Fetch 不符合预期：%+v %v", rec, err)
	}
	if strings.Contains(logs.String(), "record cache write failed") {
		t.Fatalf("只读缓存拒绝写入不应记为失败：\n%s", logs.String())
	}
}

func TestWithCache_DoesNotCacheFailuresOrEmpty(t *testing.T) {
	store := cache.New(t.TempDir(), false, 0)
	inner := &stubCollector{name: "javbus", err: ErrNotFound}
	c := WithCache(inner, store, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(context.Background(), "ABC-123"); !IsNotFound(err) {
			t.Fatalf("期望 ErrNotFound，实际 %v", err)
		}
	}
	if inner.calls != 2 {
		t.Fatalf("失败结果不应缓存：calls=%d", inner.calls)
	}
}

func TestWithCache_KeepsSearcher(t *testing.T) {
	inner := &stubSearcher{stubCollector: stubCollector{name: "javdb"}, results: []domain.Record{{ID: "A-1"}}}
	c := WithCache(inner, cache.New("", false, 0), nil)
	s, ok := c.(Searcher)
	if !ok {
		t.Fatalf("内层是 Searcher 时包装后也应是")
	}
	got, err := s.Search(context.Background(), "q")
	if err != nil || len(got) != 1 {
		t.Fatalf("Search 不符合预期：%v %v", got, err)
	}
	if inner.waits != 1 {
		t.Fatalf("Search 前应调用内层 Wait：waits=%d", inner.waits)
	}
}
