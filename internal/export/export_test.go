package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

func coverJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 80, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 80; x++ {
			img.Set(x, y, color.RGBA{uint8(x), 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode 失败：%v", err)
	}
	return buf.Bytes()
}

func TestExport_WritesNFOFanartPoster(t *testing.T) {
	cover := coverJPEG(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(cover)
	}))
	t.Cleanup(srv.Close)

	root := t.TempDir()
	e := &Exporter{Client: srv.Client()}
	rec := domain.Record{ID: "abc-123", Title: "T", BackdropURL: srv.URL + "/pl.jpg"}

	res, err := e.Export(context.Background(), rec, root)
	if err != nil {
		t.Fatalf("Export 失败：%v", err)
	}
	if res.Dir != filepath.Join(root, "ABC-123") {
		t.Fatalf("目录不符合预期：%q", res.Dir)
	}
	if strings.Join(res.Written, ",") != "ABC-123.nfo,fanart.jpg,poster.jpg" {
		t.Fatalf("写入列表不符合预期：%v", res.Written)
	}
	fanart, err := os.ReadFile(filepath.Join(res.Dir, FanartName))
	if err != nil || !bytes.Equal(fanart, cover) {
		t.Fatalf("fanart 应为原图：%v", err)
	}
	poster, err := os.ReadFile(filepath.Join(res.Dir, PosterName))
	if err != nil {
		t.Fatalf("读取 poster 失败：%v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(poster))
	if err != nil || img.Bounds().Dx() != 40 {
		t.Fatalf("poster 应为右半边：%v", err)
	}

	// 第二次导出：全部已存在，不再下载。
	res, err = e.Export(context.Background(), rec, root)
	if err != nil {
		t.Fatalf("重复导出失败：%v", err)
	}
	if len(res.Written) != 0 || len(res.Existing) != 3 {
		t.Fatalf("重复导出不应覆盖：%+v", res)
	}
	if hits.Load() != 1 {
		t.Fatalf("图片只应下载一次，实际 %d", hits.Load())
	}
}

func TestExport_NoImageWritesOnlyNFO(t *testing.T) {
	res, err := (&Exporter{}).Export(context.Background(), domain.Record{ID: "FC2-PPV-1"}, t.TempDir())
	if err != nil {
		t.Fatalf("Export 失败：%v", err)
	}
	if len(res.Written) != 1 || res.Written[0] != "FC2-PPV-1.nfo" {
		t.Fatalf("只应写入 NFO：%v", res.Written)
	}
}

func TestExport_DirectoryBlocksNFO(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "ABC-2", "ABC-2.nfo"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	_, err := (&Exporter{}).Export(context.Background(), domain.Record{ID: "abc-2"}, root)
	if err == nil || !strings.Contains(err.Error(), "非普通文件") {
		t.Fatalf("同名目录应报类型冲突：%v", err)
	}
}

func TestExport_FileBlocksExportDir(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "ABC-3"), []byte("x"), 0o644); err != nil {
		t.Fatalf("写文件失败：%v", err)
	}
	_, err := (&Exporter{}).Export(context.Background(), domain.Record{ID: "ABC-3"}, root)
	if err == nil || !strings.Contains(err.Error(), "创建导出目录失败") {
		t.Fatalf("同名文件应阻止导出：%v", err)
	}
}

func TestExport_Errors(t *testing.T) {
	if _, err := (&Exporter{}).Export(context.Background(), domain.Record{Title: "x"}, t.TempDir()); err == nil {
		t.Fatalf("缺少 ID 应报错")
	}
	if _, err := (&Exporter{}).Export(context.Background(), domain.Record{ID: "../x"}, t.TempDir()); err == nil {
		t.Fatalf("ID 含路径分隔符应报错")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	root := t.TempDir()
	res, err := (&Exporter{Client: srv.Client()}).Export(context.Background(), domain.Record{ID: "ABC-1", PosterURL: srv.URL + "/x.jpg"}, root)
	if err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Fatalf("下载失败应报错：%v", err)
	}
	// NFO 已写入，不回滚。
	if len(res.Written) != 1 {
		t.Fatalf("NFO 应已写入：%+v", res)
	}
}

func TestIsJavbusURL(t *testing.T) {
	if !isJavbusURL("https://www.javbus.com/pics/cover/a.jpg") || isJavbusURL("https://javdb.com/a.jpg") {
		t.Fatalf("javbus 域名判断不符合预期")
	}
}
