// Package javbus 实现 JavBus 的详情页抓取、解析与关键词搜索。
//
// JavBus 的封面带站点水印；详情页可以直接按番号拼 URL。
package javbus

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector/htmlutil"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

const (
	Name           = "javbus"
	DefaultBaseURL = "https://www.javbus.com"
)

type Collector struct {
	Client *http.Client
	// BaseURL 允许指定镜像域名；为空时使用 DefaultBaseURL。
	BaseURL string
}

func New(c *http.Client, baseURL string) *Collector {
	return &Collector{Client: c, BaseURL: baseURL}
}

func (*Collector) Name() string { return Name }

func (c *Collector) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// Fetch 直接进入详情页：<base>/<ID>
func (c *Collector) Fetch(ctx context.Context, id string) (domain.Record, error) {
	if c.Client == nil {
		return domain.Record{}, errors.New("http client 不能为空")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Record{}, errors.New("id 不能为空")
	}

	pageURL := c.baseURL() + "/" + url.PathEscape(id)
	// 未通过“成年确认”时站点通常返回 302 到 /doc/driver-verify，
	// 但 302 的 body 往往仍是完整详情页。禁用重定向，直接解析 302 body。
	c2 := *c.Client
	c2.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	b, err := fetchURL(ctx, &c2, pageURL)
	if err != nil {
		return domain.Record{}, err
	}
	return Parse(id, b, pageURL)
}

// Parse 把详情页 HTML 解析为 Record。纯函数。
func Parse(id string, html []byte, pageURL string) (domain.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.Record{}, &collector.ParseError{URL: pageURL, Err: err}
	}

	// 先确认是详情页：識別碼必须存在且匹配（避免把验证页/拦截页当成成功）。
	got := strings.TrimSpace(infoValue(doc, "識別碼", "识别码", "ID"))
	if got == "" {
		return domain.Record{}, &collector.ParseError{URL: pageURL, Err: errors.New("未找到識別碼（疑似验证页或非详情页）")}
	}
	if !strings.EqualFold(got, id) {
		return domain.Record{}, &collector.ParseError{URL: pageURL, Err: errors.New("識別碼不匹配：" + got)}
	}

	title := htmlutil.Space(doc.Find("h3").First().Text())
	if title == "" {
		return domain.Record{}, &collector.ParseError{URL: pageURL, Err: errors.New("标题为空")}
	}
	if len(title) > len(got) && strings.EqualFold(title[:len(got)], got) {
		title = strings.TrimSpace(title[len(got):])
	}

	release := infoValue(doc, "發行日期", "发行日期", "Release Date", "発売日")

	// “發行商”更像对外的厂牌；缺失时回退“製作商”。
	studio := infoValue(doc, "發行商", "发行商", "Label", "Publisher")
	if studio == "" {
		studio = infoValue(doc, "製作商", "制作商", "Studio", "Maker")
	}
	series := infoValue(doc, "系列", "Series")

	var actors []string
	doc.Find("div.star-name a").Each(func(_ int, s *goquery.Selection) {
		actors = append(actors, s.Text())
	})

	genres := keywordTags(doc, got, studio, series)
	if len(genres) == 0 {
		doc.Find("a").Each(func(_ int, s *goquery.Selection) {
			if href, _ := s.Attr("href"); strings.Contains(href, "/genre/") {
				genres = append(genres, s.Text())
			}
		})
	}

	cover := ""
	if href, ok := doc.Find("a.bigImage").First().Attr("href"); ok {
		cover = htmlutil.ResolveURL(pageURL, href)
	}

	var previews []string
	doc.Find("#sample-waterfall a.sample-box").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			previews = append(previews, htmlutil.ResolveURL(pageURL, href))
		}
	})

	rec := domain.Record{
		ID:               strings.ToUpper(got),
		Title:            title,
		ReleaseDate:      release,
		Year:             htmlutil.Year(release),
		Studio:           studio,
		Series:           series,
		Runtime:          htmlutil.FirstInt(infoValue(doc, "長度", "长度", "Length", "時長", "时长")),
		Director:         infoValue(doc, "導演", "导演", "Director"),
		Website:          pageURL,
		PosterURL:        cover,
		BackdropURL:      cover,
		PreviewImageURLs: htmlutil.List(previews),
		Actors:           htmlutil.List(actors),
		Genres:           htmlutil.List(genres),
		Source:           Name,
	}
	if strings.Contains(pageURL, "/uncensored") || doc.Find("li.active a[href*='/uncensored']").Length() > 0 {
		v := false
		rec.Mosaic = &v
	}
	return rec, nil
}

// Search 使用站点搜索：<base>/search/<query>。无结果时站点返回 404。
func (c *Collector) Search(ctx context.Context, query string) ([]domain.Record, error) {
	if c.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query 不能为空")
	}
	searchURL := c.baseURL() + "/search/" + url.PathEscape(query)
	b, err := fetchURL(ctx, c.Client, searchURL)
	if err != nil {
		var se *collector.HTTPStatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return nil, collector.ErrNotFound
		}
		return nil, err
	}
	return ParseSearch(b, searchURL)
}

// ParseSearch 解析搜索结果列表。纯函数。
func ParseSearch(html []byte, pageURL string) ([]domain.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &collector.ParseError{URL: pageURL, Err: err}
	}
	var out []domain.Record
	doc.Find("a.movie-box").Each(func(_ int, s *goquery.Selection) {
		dates := s.Find("div.photo-info date")
		id := strings.TrimSpace(dates.Eq(0).Text())
		if id == "" {
			return
		}
		title, _ := s.Find("div.photo-frame img").First().Attr("title")
		href, _ := s.Attr("href")
		thumb, _ := s.Find("div.photo-frame img").First().Attr("src")
		release := strings.TrimSpace(dates.Eq(1).Text())
		out = append(out, domain.Record{
			ID:          strings.ToUpper(id),
			Title:       htmlutil.Space(title),
			ReleaseDate: release,
			Year:        htmlutil.Year(release),
			Website:     htmlutil.ResolveURL(pageURL, href),
			PosterURL:   htmlutil.ResolveURL(pageURL, thumb),
			Source:      Name,
		})
	})
	return out, nil
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

	// 先读 body：302 且 body 为详情页的情况必须拿到内容才能判断。
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.Request != nil && resp.Request.URL != nil && strings.Contains(resp.Request.URL.Path, "/doc/driver-verify") {
		return nil, &collector.BlockedError{URL: resp.Request.URL.String(), Reason: "driver-verify"}
	}
	loc := strings.TrimSpace(resp.Header.Get("Location"))
	if resp.StatusCode >= 300 && resp.StatusCode < 400 && strings.Contains(loc, "/doc/driver-verify") {
		// 只有 body 明确是验证页才算拦截；否则继续解析 302 body。
		if bytes.Contains(b, []byte(`id="ageVerify"`)) || bytes.Contains(b, []byte("/doc/driver-verify")) {
			return nil, &collector.BlockedError{URL: loc, Reason: "driver-verify"}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return nil, &collector.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: loc, Detail: snippet(b)}
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}

func snippet(b []byte) string {
	const n = 200
	s := htmlutil.Space(string(b))
	if len(s) > n {
		s = s[:n]
	}
	return s
}

// infoValue 在 div.info 的 <p> 中按表头查值：优先取链接文本，否则取去掉表头后的纯文本。
func infoValue(doc *goquery.Document, headers ...string) string {
	set := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		set[htmlutil.Header(h)] = struct{}{}
	}

	var out string
	doc.Find("div.movie div.info p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := htmlutil.Space(s.Find("span.header").First().Text())
		if _, ok := set[htmlutil.Header(raw)]; !ok {
			return true
		}
		if a := strings.TrimSpace(s.Find("a").First().Text()); a != "" {
			out = a
			return false
		}
		out = strings.TrimSpace(strings.TrimPrefix(htmlutil.Space(s.Text()), raw))
		return false
	})
	return out
}

// keywordTags 从 <meta name="keywords"> 中提取标签：形如 ID,Studio,Series,Tag1,Tag2,...
// 只剔除已知的 ID/厂牌/系列，剩下的视为标签。
func keywordTags(doc *goquery.Document, id, studio, series string) []string {
	content, ok := doc.Find("meta[name='keywords']").First().Attr("content")
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(content, ",") {
		s := strings.TrimSpace(p)
		if s == "" || strings.EqualFold(s, id) || (studio != "" && s == studio) || (series != "" && s == series) {
			continue
		}
		out = append(out, s)
	}
	return out
}
