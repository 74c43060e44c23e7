// Package export 把合并后的记录落盘为媒体库可识别的目录：
// <root>/<ID>/<ID>.nfo、fanart.jpg、poster.jpg。
//
// 已存在的文件不覆盖（原子写 + no-overwrite），重复导出是安全的。
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/fsx"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/imgx"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/logging"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/nfo"
)

const (
	FanartName = "fanart.jpg"
	PosterName = "poster.jpg"

	maxImageBytes = 32 << 20
)

// Result 记录本次导出写入与跳过（已存在）的文件。
type Result struct {
	Dir      string   `json:"dir"`
	Written  []string `json:"written"`
	Existing []string `json:"existing"`
}

type Exporter struct {
	Client *http.Client
	Logger *slog.Logger
}

// Export 写出 NFO 与图片。记录没有 ID 时无法确定目录名，直接报错。
//
// 图片规则：fanart 取 BackdropURL（缺失时用 PosterURL）；poster 由 fanart 裁切得到，不单独下载。
// 没有任何图片地址时只写 NFO。
func (e *Exporter) Export(ctx context.Context, rec domain.Record, root string) (Result, error) {
	id := strings.ToUpper(strings.TrimSpace(rec.ID))
	if id == "" {
		return Result{}, errors.New("记录缺少 ID，无法导出")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return Result{}, fmt.Errorf("ID 不能作为目录名：%q", id)
	}
	logger := logging.NewComponentLogger(e.Logger, "export")
	res := Result{Dir: filepath.Join(filepath.Clean(root), id)}
	if err := fsx.EnsureDir(res.Dir); err != nil {
		return res, fmt.Errorf("创建导出目录失败：%w", err)
	}

	b, err := nfo.Encode(rec)
	if err != nil {
		return res, err
	}
	if err := res.write(id+".nfo", b); err != nil {
		return res, err
	}

	src := strings.TrimSpace(rec.BackdropURL)
	if src == "" {
		src = strings.TrimSpace(rec.PosterURL)
	}
	if src == "" {
		logger.Info("record has no image url", logging.String("id", id))
		return res, nil
	}

	var fanart []byte
	if existing, err := os.ReadFile(filepath.Join(res.Dir, FanartName)); err == nil {
		fanart = existing
		res.Existing = append(res.Existing, FanartName)
	} else {
		fanart, err = e.download(ctx, src, rec.Website)
		if err != nil {
			return res, fmt.Errorf("下载 fanart 失败：%w", err)
		}
		if err := res.write(FanartName, fanart); err != nil {
			return res, err
		}
	}

	if _, err := os.Stat(filepath.Join(res.Dir, PosterName)); err == nil {
		res.Existing = append(res.Existing, PosterName)
		return res, nil
	}
	poster, err := imgx.Poster(fanart)
	if err != nil {
		return res, fmt.Errorf("生成 poster 失败：%w", err)
	}
	if err := res.write(PosterName, poster); err != nil {
		return res, err
	}
	logger.Debug("record exported", logging.String("id", id), logging.String("dir", res.Dir))
	return res, nil
}

func (r *Result) write(name string, b []byte) error {
	err := fsx.WriteFile(filepath.Join(r.Dir, name), b, fsx.Create)
	switch {
	case err == nil:
		r.Written = append(r.Written, name)
		return nil
	case errors.Is(err, os.ErrExist):
		r.Existing = append(r.Existing, name)
		return nil
	case fsx.IsPathTypeConflict(err):
		return fmt.Errorf("%s 已被非普通文件占用，请手动处理：%w", name, err)
	default:
		return fmt.Errorf("写入 %s 失败：%w", name, err)
	}
}

func (e *Exporter) download(ctx context.Context, u, referer string) ([]byte, error) {
	c := e.Client
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	// JavBus 的图片要求 Referer 为详情页，且 Cookie 含 age=verified。
	if isJavbusURL(u) {
		if strings.TrimSpace(referer) != "" {
			req.Header.Set("Referer", referer)
		}
		req.Header.Set("Cookie", "age=verified")
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

func isJavbusURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "javbus.com" || strings.HasSuffix(host, ".javbus.com")
}
