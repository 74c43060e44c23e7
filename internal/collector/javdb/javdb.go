// Package javdb 实现 JavDB 的搜索、详情页抓取与解析。
//
// JavDB 必须先搜索再进入详情页（不能直接拼详情 URL），且对请求频率敏感：
// Collector 实现 collector.RateLimited，编排层在每次调用前先 Wait。
package javdb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector/htmlutil"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

const (
	Name           = "javdb"
	DefaultBaseURL = "https://javdb.com"
	// DefaultInterval 是两次调用之间的最小间隔。
	DefaultInterval = 1500 * time.Millisecond
)

type Collector struct {
	Client *http.Client
	// BaseURL 允许指定可用域名（例如 javdb565.com），用于绕过区域不可达。
	BaseURL  string
	Throttle *collector.Throttle
}

// New 构造 collector。interval<=0 时使用 DefaultInterval。
func New(c *http.Client, baseURL string, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Collector{Client: c, BaseURL: baseURL, Throttle: &collector.Throttle{Interval: interval}}
}

func (*Collector) Name() string { return Name }

// Wait 实现 collector.RateLimited。
func (c *Collector) Wait(ctx context.Context) error { return c.Throttle.Wait(ctx) }

func (c *Collector) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (c *Collector) searchURL(q string) string {
	return c.baseURL() + "/search?q=" + url.QueryEscape(q) + "&f=all"
}

// Fetch 先搜索再进入详情页：<base>/search?q=<ID>&f=all
func (c *Collector) Fetch(ctx context.Context, id string) (domain.Record, error) {
	if c.Client == nil {
		return domain.Record{}, errors.New("http client 不能为空")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Record{}, errors.New("id 不能为空")
	}

	su := c.searchURL(id)
	searchHTML, err := fetchURL(ctx, c.Client, su)
	if err != nil {
		return domain.Record{}, err
	}
	cands, err := ParseSearch(searchHTML, su)
	if err != nil {
		return domain.Record{}, err
	}
	var pageURL string
	for _, cand := range cands {
		if strings.EqualFold(cand.ID, id) {
			pageURL = cand.Website
			break
		}
	}
	if pageURL == "" {
		return domain.Record{}, collector.ErrNotFound
	}

	b, err := fetchURL(ctx, c.Client, pageURL)
	if err != nil {
		return domain.Record{}, err
	}
	return Parse(id, b, pageURL)
}

// Search 返回搜索列表中的全部候选。
func (c *Collector) Search(ctx context.Context, query string) ([]domain.Record, error) {
	if c.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query 不能为空")
	}
	su := c.searchURL(query)
	b, err := fetchURL(ctx, c.Client, su)
	if err != nil {
		return nil, err
	}
	return ParseSearch(b, su)
}

// ParseSearch 解析搜索结果列表。纯函数。
func ParseSearch(html []byte, pageURL string) ([]domain.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &collector.ParseError{URL: pageURL, Err: err}
	}
	var out []domain.Record
	doc.Find("div.movie-list div.item a.box").Each(func(_ int, s *goquery.Selection) {
		titleSel := s.Find("div.video-title").First()
		id := strings.ToUpper(strings.TrimSpace(titleSel.Find("strong").First().Text()))
		if id == "" {
			return
		}
		title := htmlutil.Space(strings.TrimPrefix(htmlutil.Space(titleSel.Text()), titleSel.Find("strong").First().Text()))
		href, _ := s.Attr("href")
		cover, _ := s.Find("div.cover img").First().Attr("src")
		release := strings.TrimSpace(s.Find("div.meta").First().Text())
		rec := domain.Record{
			ID:          id,
			Title:       title,
			ReleaseDate: release,
			Year:        htmlutil.Year(release),
			Rating:      htmlutil.FirstFloat(s.Find("div.score span.value").First().Text()),
			Website:     htmlutil.ResolveURL(pageURL, href),
			PosterURL:   htmlutil.ResolveURL(pageURL, cover),
			Source:      Name,
		}
		out = append(out, rec)
	})
	return out, nil
}

// Parse 把详情页 HTML 解析为 Record。纯函数。
func Parse(id string, html []byte, pageURL string) (domain.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.Record{}, &collector.ParseError{URL: pageURL, Err: err}
	}

	// 标题有时显示中文翻译（current-title），隐藏的 origin-title 才是原标题。
	// goquery 不执行 CSS，display:none 的文本同样可读。
	current := htmlutil.Space(doc.Find("h2.title strong.current-title").First().Text())
	origin := htmlutil.Space(doc.Find("h2.title span.origin-title").First().Text())
	title := origin
	if title == "" {
		title = current
	}
	if title == "" {
		return domain.Record{}, &collector.ParseError{URL: pageURL, Err: errors.New("标题为空（疑似非详情页）")}
	}

	rec := domain.Record{
		ID:      strings.ToUpper(strings.TrimSpace(id)),
		Title:   title,
		Website: pageURL,
		Source:  Name,
	}
	if origin != "" && current != "" && current != origin {
		rec.OriginalTitle = origin
		rec.Title = current
	}

	var actors, tags []string
	doc.Find("nav.movie-panel-info .panel-block").Each(func(_ int, s *goquery.Selection) {
		value := s.Find("span.value").First()
		switch htmlutil.Header(s.Find("strong").First().Text()) {
		case "番號", "番号", "ID":
			if v := strings.TrimSpace(value.Text()); v != "" {
				rec.ID = strings.ToUpper(htmlutil.Space(v))
			}
		case "日期", "Date", "Released Date":
			rec.ReleaseDate = strings.TrimSpace(value.Text())
		case "時長", "时长", "Length", "Duration":
			rec.Runtime = htmlutil.FirstInt(value.Text())
		case "導演", "导演", "Director":
			rec.Director = strings.TrimSpace(value.Find("a").First().Text())
		case "片商", "Maker", "Studio":
			rec.Studio = strings.TrimSpace(value.Find("a").First().Text())
		case "系列", "Series":
			rec.Series = strings.TrimSpace(value.Find("a").First().Text())
		case "評分", "评分", "Rating":
			rec.Rating = htmlutil.FirstFloat(value.Text())
		case "演員", "演员", "Actor(s)", "Actors", "Cast":
			value.Find("a").Each(func(_ int, a *goquery.Selection) {
				actors = append(actors, a.Text())
			})
		case "類別", "类别", "Tags", "Genres":
			value.Find("a").Each(func(_ int, a *goquery.Selection) {
				tags = append(tags, a.Text())
			})
		}
	})
	rec.Year = htmlutil.Year(rec.ReleaseDate)
	rec.Actors = htmlutil.List(actors)
	rec.Genres = htmlutil.List(tags)

	if href, ok := doc.Find(".column-video-cover a[data-fancybox='gallery']").First().Attr("href"); ok {
		rec.PosterURL = htmlutil.ResolveURL(pageURL, href)
	}
	if rec.PosterURL == "" {
		if src, ok := doc.Find(".column-video-cover img.video-cover").First().Attr("src"); ok {
			rec.PosterURL = htmlutil.ResolveURL(pageURL, src)
		}
	}
	rec.BackdropURL = rec.PosterURL

	var previews []string
	doc.Find(".preview-images a.tile-item").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && !strings.HasPrefix(href, "#") {
			previews = append(previews, htmlutil.ResolveURL(pageURL, href))
		}
	})
	rec.PreviewImageURLs = htmlutil.List(previews)

	doc.Find("#preview-video source").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return
		}
		q, _ := s.Attr("size")
		rec.PreviewVideoURLs = append(rec.PreviewVideoURLs, domain.PreviewVideo{Quality: strings.TrimSpace(q), URL: htmlutil.ResolveURL(pageURL, src)})
	})
	return rec, nil
}

func fetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := htmlutil.Space(string(b))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		return nil, &collector.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location"), Detail: detail}
	}
	return b, nil
}
