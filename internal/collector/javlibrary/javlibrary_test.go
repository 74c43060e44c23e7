package javlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
)

const detailHTML = `<html><head><title>ABC-123 夏の物語 - JAVLibrary</title></head><body>
<div id="video_title"><h3 class="post-title text"><a href="/cn/?v=javliabc" rel="bookmark">ABC-123 夏の物語</a></h3></div>
<div id="video_jacket"><img id="video_jacket_img" src="//pics.dmm.co.jp/mono/movie/adult/abc123/abc123pl.jpg"></div>
<div id="video_info">
  <div id="video_id" class="item"><table><tr><td class="header">识别码:</td><td class="text">ABC-123</td></tr></table></div>
  <div id="video_date" class="item"><table><tr><td class="header">发行日期:</td><td class="text">2023-07-14</td></tr></table></div>
  <div id="video_length" class="item"><table><tr><td class="header">长度:</td><td><span class="text">120</span> 分钟</td></tr></table></div>
  <div id="video_director" class="item"><table><tr><td class="header">导演:</td><td class="text"><span class="director"><a href="#">監督B</a></span></td></tr></table></div>
  <div id="video_maker" class="item"><table><tr><td class="header">制作商:</td><td class="text"><span class="maker"><a href="#">Prestige</a></span></td></tr></table></div>
  <div id="video_review" class="item"><table><tr><td class="header">使用者评价:</td><td><span class="score">(8.20)</span></td></tr></table></div>
  <div id="video_genres" class="item"><table><tr><td class="header">类别:</td><td class="text"><span class="genre"><a href="#">剧情</a></span> <span class="genre"><a href="#">单体作品</a></span></td></tr></table></div>
  <div id="video_cast" class="item"><table><tr><td class="header">演员:</td><td class="text"><span class="cast"><span class="star"><a href="#">Alice</a></span></span></td></tr></table></div>
</div>
<div class="previewthumbs"><img src="https://pics.dmm.co.jp/digital/video/abc123/abc123jp-1.jpg"></div>
</body></html>`

const listHTML = `<html><body><div class="videothumblist"><div class="videos">
<div class="video"><a href="./?v=javlidupa" title="DUP-001A"><div class="id">DUP-001A</div><div class="title">A</div></a></div>
<div class="video"><a href="./?v=javlidup" title="DUP-001"><div class="id">DUP-001</div><div class="title">B</div></a></div>
</div></div></body></html>`

const emptyListHTML = `<html><body><div class="videothumblist"><div class="videos"></div></div><p>搜寻没有结果</p></body></html>`

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cn/vl_searchbyid.php", func(w http.ResponseWriter, r *http.Request) {
		switch strings.ToUpper(r.URL.Query().Get("keyword")) {
		case "ABC-123":
			http.Redirect(w, r, "/cn/?v=javliabc", http.StatusFound)
		case "DUP-001":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(listHTML))
		case "CF-001":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<html><body>Just a moment... cf-challenge</body></html>`))
		default:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(emptyListHTML))
		}
	})
	mux.HandleFunc("/cn/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Query().Get("v") {
		case "javliabc":
			_, _ = w.Write([]byte(detailHTML))
		case "javlidup":
			_, _ = w.Write([]byte(strings.ReplaceAll(detailHTML, "ABC-123", "DUP-001")))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_RedirectToDetail(t *testing.T) {
	srv := newServer(t)
	rec, err := New(srv.Client(), srv.URL, time.Millisecond).Fetch(context.Background(), "ABC-123")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec.ID != "ABC-123" || rec.Title != "夏の物語" || rec.Source != Name {
		t.Fatalf("基本字段不符合预期：%+v", rec)
	}
	if rec.ReleaseDate != "2023-07-14" || rec.Year != 2023 || rec.Runtime != 120 || rec.Rating != 8.2 {
		t.Fatalf("数值字段不符合预期：%+v", rec)
	}
	if rec.Director != "監督B" || rec.Studio != "Prestige" {
		t.Fatalf("制作信息不符合预期：%+v", rec)
	}
	if !reflect.DeepEqual(rec.Actors, []string{"Alice"}) || !reflect.DeepEqual(rec.Genres, []string{"剧情", "单体作品"}) {
		t.Fatalf("列表字段不符合预期：%v %v", rec.Actors, rec.Genres)
	}
	if rec.PosterURL != "https://pics.dmm.co.jp/mono/movie/adult/abc123/abc123pl.jpg" {
		t.Fatalf("封面不符合预期：%q", rec.PosterURL)
	}
	if len(rec.PreviewImageURLs) != 1 {
		t.Fatalf("预览图不符合预期：%v", rec.PreviewImageURLs)
	}
}

func TestFetch_ListPagePicksExactID(t *testing.T) {
	srv := newServer(t)
	rec, err := New(srv.Client(), srv.URL, time.Millisecond).Fetch(context.Background(), "dup-001")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec.ID != "DUP-001" {
		t.Fatalf("应进入番号完全一致的详情页：%+v", rec)
	}
	if !strings.Contains(rec.Website, "v=javlidup") || strings.Contains(rec.Website, "javlidupa") {
		t.Fatalf("Website 不符合预期：%q", rec.Website)
	}
}

func TestFetch_EmptyListIsNotFound(t *testing.T) {
	srv := newServer(t)
	_, err := New(srv.Client(), srv.URL, time.Millisecond).Fetch(context.Background(), "NONE-404")
	if !collector.IsNotFound(err) {
		t.Fatalf("没有候选时应返回 ErrNotFound：%v", err)
	}
}

func TestFetch_ChallengePageIsProxyRequired(t *testing.T) {
	srv := newServer(t)
	_, err := New(srv.Client(), srv.URL, time.Millisecond).Fetch(context.Background(), "CF-001")
	if err == nil {
		t.Fatalf("403 应返回错误")
	}
	se := scrapeerr.Classify(Name, err)
	if se.Category != scrapeerr.CategoryProxyRequired || se.HTTPStatus != http.StatusForbidden {
		t.Fatalf("分类不符合预期：%s/%d（%v）", se.Category, se.HTTPStatus, err)
	}
}

func TestFetch_CanceledContext(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.Client(), srv.URL, time.Millisecond).Fetch(ctx, "ABC-123")
	if err == nil {
		t.Fatalf("ctx 已取消时应返回错误")
	}
	if got := scrapeerr.Classify(Name, err).Category; got != scrapeerr.CategoryNetwork {
		t.Fatalf("取消应归为 NetworkError：%s（%v）", got, err)
	}
}

func TestParse_NonDetailPage(t *testing.T) {
	_, err := Parse("ABC-123", []byte(emptyListHTML), "https://example.invalid/")
	if got := scrapeerr.Classify(Name, err).Category; got != scrapeerr.CategorySiteError {
		t.Fatalf("非详情页应归为 SiteError：%s（%v）", got, err)
	}
}
