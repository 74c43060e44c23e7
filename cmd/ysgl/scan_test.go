package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

// byIDCollector 按番号返回记录；未登记的番号返回 ErrNotFound。
type byIDCollector struct {
	name string
	recs map[string]domain.Record

	mu    sync.Mutex
	calls []string
}

func (c *byIDCollector) Name() string { return c.name }

func (c *byIDCollector) Fetch(_ context.Context, id string) (domain.Record, error) {
	c.mu.Lock()
	c.calls = append(c.calls, id)
	c.mu.Unlock()
	if rec, ok := c.recs[strings.ToUpper(id)]; ok {
		return rec, nil
	}
	return domain.Record{}, collector.ErrNotFound
}

func writeVideo(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写文件失败：%v", err)
	}
}

func TestScan_JSONGroupsAndResolves(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, filepath.Join(root, "in", "ABC-123.mp4"))
	writeVideo(t, filepath.Join(root, "in", "XYZ-001-cd1.mp4"))
	writeVideo(t, filepath.Join(root, "in", "XYZ-001-cd2.mp4"))
	writeVideo(t, filepath.Join(root, "in", "random clip.mp4"))
	writeVideo(t, filepath.Join(root, "out", "ABC-123", "ABC-123.mp4"))

	c := &byIDCollector{name: "javbus", recs: map[string]domain.Record{
		"ABC-123": fullRecord("ABC-123", "javbus"),
	}}
	res := runCLI(t, t.TempDir(), []collector.Collector{c}, "scan", root, "--format", "json", "-j", "4")

	var ee *exitError
	if !errors.As(res.err, &ee) || ee.code != 1 {
		t.Fatalf("存在未找到的番号时应以退出码 1 结束：%v\nstderr=%s", res.err, res.stderr)
	}
	var out scanView
	if err := json.Unmarshal([]byte(res.stdout), &out); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\n%s", err, res.stdout)
	}
	if len(out.Items) != 2 {
		t.Fatalf("期望 2 个番号，实际 %+v", out.Items)
	}
	abc, xyz := out.Items[0], out.Items[1]
	if abc.ID != "ABC-123" || abc.Status != scanStatusOK || abc.Title != "夏の物語" || abc.Source != "javbus" {
		t.Fatalf("ABC-123 结果不符合预期：%+v", abc)
	}
	if len(abc.Files) != 1 {
		t.Fatalf("out/ 下的文件不应被扫描：%+v", abc.Files)
	}
	if xyz.ID != "XYZ-001" || xyz.Status != scanStatusNotFound || len(xyz.Files) != 2 {
		t.Fatalf("XYZ-001 结果不符合预期：%+v", xyz)
	}
	if len(out.Unmatched) != 1 || out.Unmatched[0] != filepath.Join("in", "random clip.mp4") {
		t.Fatalf("未识别文件不符合预期：%+v", out.Unmatched)
	}
}

func TestScan_TableAllFoundExitsZero(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, filepath.Join(root, "ABC-123.mkv"))

	c := &byIDCollector{name: "javbus", recs: map[string]domain.Record{
		"ABC-123": fullRecord("ABC-123", "javbus"),
	}}
	res := runCLI(t, t.TempDir(), []collector.Collector{c}, "scan", root)
	if res.err != nil {
		t.Fatalf("不期望错误：%v\nstderr=%s", res.err, res.stderr)
	}
	for _, want := range []string{"ABC-123", scanStatusOK, "javbus"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("表格缺少 %q：\n%s", want, res.stdout)
		}
	}
}

func TestScan_EmptyDirNeedsNoCollectors(t *testing.T) {
	root := t.TempDir()
	writeVideo(t, filepath.Join(root, "holiday.mp4"))

	c := &byIDCollector{name: "javbus"}
	res := runCLI(t, t.TempDir(), []collector.Collector{c}, "scan", root, "--format", "json")
	if res.err != nil {
		t.Fatalf("不期望错误：%v", res.err)
	}
	if len(c.calls) != 0 {
		t.Fatalf("没有可识别番号时不应访问数据源：%v", c.calls)
	}
	if !strings.Contains(res.stdout, "holiday.mp4") {
		t.Fatalf("应列出未识别文件：\n%s", res.stdout)
	}
}

func TestScan_BadFlags(t *testing.T) {
	for _, args := range [][]string{
		{"scan", t.TempDir(), "--jobs", "0"},
		{"scan", t.TempDir(), "--format", "nfo"},
	} {
		res := runCLI(t, t.TempDir(), nil, args...)
		var ee *exitError
		if !errors.As(res.err, &ee) || ee.code != 2 {
			t.Fatalf("%v 应以退出码 2 结束：%v", args, res.err)
		}
	}
}
