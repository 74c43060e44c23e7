// Package nfo 把合并后的 Record 编码为 Kodi/Jellyfin/Emby 可读取的 NFO（XML）。
package nfo

import (
	"encoding/xml"
	"strings"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector/htmlutil"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

const (
	DefaultCountry = "JP"
	DefaultMPAA    = "R18+"

	tagUncensored = "Uncensored"
	tagCensored   = "Censored"
)

type movie struct {
	XMLName xml.Name `xml:"movie"`

	Title         string `xml:"title"`
	OriginalTitle string `xml:"originaltitle,omitempty"`
	SortTitle     string `xml:"sorttitle"`
	Num           string `xml:"num"`
	Plot          string `xml:"plot,omitempty"`

	Studio   string `xml:"studio,omitempty"`
	Set      string `xml:"set,omitempty"`
	Director string `xml:"director,omitempty"`

	Premiered string `xml:"premiered,omitempty"`
	Year      int    `xml:"year,omitempty"`
	Runtime   int    `xml:"runtime,omitempty"`

	MPAA    string `xml:"mpaa,omitempty"`
	Country string `xml:"country,omitempty"`

	Rating float64 `xml:"rating,omitempty"`

	Thumbs []thumb  `xml:"thumb,omitempty"`
	Fanart *fanart  `xml:"fanart,omitempty"`
	Actors []actor  `xml:"actor,omitempty"`
	Tags   []string `xml:"tag,omitempty"`
	Genres []string `xml:"genre,omitempty"`

	Trailer string `xml:"trailer,omitempty"`
	Website string `xml:"website,omitempty"`
	Source  string `xml:"source,omitempty"`
}

type thumb struct {
	Aspect string `xml:"aspect,attr,omitempty"`
	URL    string `xml:",chardata"`
}

type fanart struct {
	Thumbs []thumb `xml:"thumb"`
}

type actor struct {
	Name string `xml:"name"`
	Role string `xml:"role,omitempty"`
}

// Encode 把 Record 转成 NFO。
//
// 规则：
// - 字段缺失允许为空；列表去空白、去重、保持输入顺序
// - title 以 ID 开头（更利于媒体库识别）；title 为空时回退到 ID
// - 图片直接引用远程地址：poster 对应 <thumb aspect="poster">，backdrop 与预览图进入 <fanart>
// - Mosaic 已知时追加 Censored/Uncensored 标签
func Encode(rec domain.Record) ([]byte, error) {
	id := strings.TrimSpace(rec.ID)
	title := strings.TrimSpace(rec.Title)
	if title == "" {
		title = id
	} else if id != "" && !strings.HasPrefix(strings.ToUpper(title), strings.ToUpper(id)) {
		title = id + " " + title
	}

	m := movie{
		Title:         title,
		OriginalTitle: strings.TrimSpace(rec.OriginalTitle),
		SortTitle:     id,
		Num:           id,
		Plot:          strings.TrimSpace(rec.Overview),

		Studio:   strings.TrimSpace(rec.Studio),
		Set:      strings.TrimSpace(rec.Series),
		Director: strings.TrimSpace(rec.Director),

		Premiered: strings.TrimSpace(rec.ReleaseDate),
		Year:      rec.Year,
		Runtime:   rec.Runtime,

		MPAA:    DefaultMPAA,
		Country: DefaultCountry,
		Rating:  rec.Rating,

		Genres:  htmlutil.List(rec.Genres),
		Website: strings.TrimSpace(rec.Website),
		Source:  rec.Source,
	}
	if m.Year == 0 {
		m.Year = htmlutil.Year(m.Premiered)
	}

	if p := strings.TrimSpace(rec.PosterURL); p != "" {
		m.Thumbs = append(m.Thumbs, thumb{Aspect: "poster", URL: p})
	}
	var art []thumb
	for _, u := range htmlutil.List(append([]string{rec.BackdropURL}, rec.PreviewImageURLs...)) {
		art = append(art, thumb{URL: u})
	}
	if len(art) > 0 {
		m.Fanart = &fanart{Thumbs: art}
	}
	if len(rec.PreviewVideoURLs) > 0 {
		m.Trailer = strings.TrimSpace(rec.PreviewVideoURLs[0].URL)
	}

	actors := htmlutil.List(rec.Actors)
	for _, a := range actors {
		m.Actors = append(m.Actors, actor{Name: a, Role: a})
	}

	// tag 追加演员名，便于媒体库按人名过滤。
	tags := append(append([]string(nil), rec.Genres...), actors...)
	if rec.Mosaic != nil {
		if *rec.Mosaic {
			tags = append(tags, tagCensored)
		} else {
			tags = append(tags, tagUncensored)
		}
	}
	m.Tags = htmlutil.List(tags)

	b, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"
	return append([]byte(header), b...), nil
}
