// Package javlibrary 实现 JavLibrary 的番号检索与详情页解析。
//
// 抓取由 colly 驱动：按番号检索时站点要么 302 到详情页，要么给出候选列表，
// 两种页面分别由不同的 OnHTML 回调处理。
package javlibrary

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector/htmlutil"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/httpx"
)

const (
	Name            = "javlibrary"
	DefaultBaseURL  = "https://www.javlibrary.com"
	DefaultLang     = "cn"
	DefaultInterval = time.Second
	DefaultTimeout  = 20 * time.Second
)

type Collector struct {
	// Client 提供 Transport（代理、重试、UA）与超时；colly 自己管理 cookie 与重定向。
	Client   *http.Client
	BaseURL  string
	Lang     string
	Throttle *collector.Throttle
}

func New(c *http.Client, baseURL string, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Collector{Client: c, BaseURL: baseURL, Lang: DefaultLang, Throttle: &collector.Throttle{Interval: interval}}
}

func (*Collector) Name() string { return Name }

func (c *Collector) Wait(ctx context.Context) error { return c.Throttle.Wait(ctx) }

func (c *Collector) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		u = DefaultBaseURL
	}
	lang := strings.Trim(strings.TrimSpace(c.Lang), "/")
	if lang == "" {
		lang = DefaultLang
	}
	return strings.TrimRight(u, "/") + "/" + lang
}

// Fetch 访问 <base>/<lang>/vl_searchbyid.php?keyword=<ID>。
func (c *Collector) Fetch(ctx context.Context, id string) (domain.Record, error) {
	if c.Client == nil {
		return domain.Record{}, errors.New("http client 不能为空")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Record{}, errors.New("id 不能为空")
	}

	var (
		rec      domain.Record
		found    bool
		parseErr error
		httpErr  error
		next     string
	)
	col := c.newColly(ctx)
	col.OnHTML("#video_title", func(e *colly.HTMLElement) {
		if found {
			return
		}
		r, err := parseDetail(id, e.DOM.Closest("html"), e.Request.URL.String())
		if err != nil {
			parseErr = err
			return
		}
		rec, found = r, true
	})
	col.OnHTML("div.videos div.video", func(e *colly.HTMLElement) {
		if next != "" {
			return
		}
		if strings.EqualFold(htmlutil.Space(e.ChildText("div.id")), id) {
			next = e.Request.AbsoluteURL(e.ChildAttr("a", "href"))
		}
	})
	col.OnError(func(r *colly.Response, err error) {
		if r == nil || r.StatusCode == 0 {
			return
		}
		detail := htmlutil.Space(string(r.Body))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		httpErr = &collector.HTTPStatusError{URL: r.Request.URL.String(), StatusCode: r.StatusCode, Location: r.Headers.Get("Location"), Detail: detail}
	})

	searchURL := c.baseURL() + "/vl_searchbyid.php?keyword=" + url.QueryEscape(id)
	if err := col.Visit(searchURL); err != nil {
		return domain.Record{}, firstErr(httpErr, ctx.Err(), err)
	}
	if !found && next != "" {
		if err := col.Visit(next); err != nil {
			return domain.Record{}, firstErr(httpErr, ctx.Err(), err)
		}
	}
	if found {
		return rec, nil
	}
	if parseErr != nil {
		return domain.Record{}, parseErr
	}
	return domain.Record{}, collector.ErrNotFound
}

// Parse 把详情页 HTML 解析为 Record。纯函数。
func Parse(id string, html []byte, pageURL string) (domain.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.Record{}, &collector.ParseError{URL: pageURL, Err: err}
	}
	return parseDetail(id, doc.Selection, pageURL)
}

func parseDetail(id string, doc *goquery.Selection, pageURL string) (domain.Record, error) {
	code := strings.ToUpper(htmlutil.Space(doc.Find("#video_id td.text").First().Text()))
	title := htmlutil.Space(doc.Find("#video_title h3 a").First().Text())
	if title == "" {
		title = htmlutil.Space(doc.Find("#video_title h3").First().Text())
	}
	if code != "" {
		title = strings.TrimSpace(strings.TrimPrefix(title, code))
	}
	if title == "" {
		return domain.Record{}, &collector.ParseError{URL: pageURL, Err: errors.New("标题为空（疑似非详情页）")}
	}

	rec := domain.Record{
		ID:          code,
		Title:       title,
		ReleaseDate: htmlutil.Space(doc.Find("#video_date td.text").First().Text()),
		Runtime:     htmlutil.FirstInt(doc.Find("#video_length span.text").First().Text()),
		Director:    htmlutil.Space(doc.Find("#video_director span.director a").First().Text()),
		Studio:      htmlutil.Space(doc.Find("#video_maker span.maker a").First().Text()),
		Rating:      htmlutil.FirstFloat(doc.Find("#video_review span.score").First().Text()),
		Website:     pageURL,
		Source:      Name,
	}
	if rec.ID == "" {
		rec.ID = strings.ToUpper(strings.TrimSpace(id))
	}
	rec.Year = htmlutil.Year(rec.ReleaseDate)
	if src, ok := doc.Find("#video_jacket_img").First().Attr("src"); ok {
		rec.PosterURL = htmlutil.ResolveURL(pageURL, src)
		rec.BackdropURL = rec.PosterURL
	}

	var actors, genres []string
	doc.Find("#video_cast span.star a").Each(func(_ int, s *goquery.Selection) {
		actors = append(actors, s.Text())
	})
	doc.Find("#video_genres span.genre a").Each(func(_ int, s *goquery.Selection) {
		genres = append(genres, s.Text())
	})
	rec.Actors = htmlutil.List(actors)
	rec.Genres = htmlutil.List(genres)

	var previews []string
	doc.Find("div.previewthumbs img").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok {
			previews = append(previews, htmlutil.ResolveURL(pageURL, src))
		}
	})
	rec.PreviewImageURLs = htmlutil.List(previews)
	return rec, nil
}

// newColly 为单次调用构造 colly collector；ctx 通过 Transport 注入每个请求。
func (c *Collector) newColly(ctx context.Context) *colly.Collector {
	col := colly.NewCollector(
		colly.UserAgent(httpx.RandomUserAgent()),
		colly.AllowURLRevisit(),
	)
	base := c.Client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	col.WithTransport(ctxTransport{ctx: ctx, base: base})
	timeout := c.Client.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	col.SetRequestTimeout(timeout)
	return col
}

type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.ctx.Err(); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
