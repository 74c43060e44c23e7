package domain

import "strings"

// PreviewVideo 是一个预告片地址（不同站点清晰度命名不一致，原样保存）。
type PreviewVideo struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// Record 是 collector 返回、MergeEngine 产出的统一元数据结构。
//
// 约束：
// - 每个字段都可以独立缺失：字符串为空、数值为 0、切片为 nil、Mosaic 为 nil 即视为“未提供”
// - Source 是来源标记：单个 collector 的名字，或合并后按咨询顺序以 '+' 连接
type Record struct {
	ID            string  `json:"id"`
	Title         string  `json:"title,omitempty"`
	OriginalTitle string  `json:"original_title,omitempty"`
	ReleaseDate   string  `json:"release_date,omitempty"` // ISO date, e.g. "2025-11-27"
	Year          int     `json:"year,omitempty"`
	Studio        string  `json:"studio,omitempty"`
	Series        string  `json:"series,omitempty"`
	Overview      string  `json:"overview,omitempty"`
	Rating        float64 `json:"rating,omitempty"`
	Runtime       int     `json:"runtime,omitempty"` // 分钟
	Director      string  `json:"director,omitempty"`
	Website       string  `json:"website,omitempty"`

	PosterURL   string `json:"poster_url,omitempty"`
	BackdropURL string `json:"backdrop_url,omitempty"`

	PreviewImageURLs []string       `json:"preview_image_urls,omitempty"`
	PreviewVideoURLs []PreviewVideo `json:"preview_video_urls,omitempty"`
	Actors           []string       `json:"actors,omitempty"`
	Genres           []string       `json:"genres,omitempty"`

	Mosaic *bool `json:"mosaic,omitempty"`

	Source string `json:"source"`
}

// Field 命名 Record 中可被“必需字段”引用的字段。
type Field string

const (
	FieldTitle         Field = "title"
	FieldOriginalTitle Field = "original_title"
	FieldReleaseDate   Field = "release_date"
	FieldYear          Field = "year"
	FieldStudio        Field = "studio"
	FieldSeries        Field = "series"
	FieldOverview      Field = "overview"
	FieldRating        Field = "rating"
	FieldRuntime       Field = "runtime"
	FieldDirector      Field = "director"
	FieldWebsite       Field = "website"
	FieldPoster        Field = "poster_url"
	FieldBackdrop      Field = "backdrop_url"
	FieldPreviewImages Field = "preview_image_urls"
	FieldPreviewVideos Field = "preview_video_urls"
	FieldActors        Field = "actors"
	FieldGenres        Field = "genres"
	FieldMosaic        Field = "mosaic"
)

var knownFields = map[Field]struct{}{
	FieldTitle: {}, FieldOriginalTitle: {}, FieldReleaseDate: {}, FieldYear: {},
	FieldStudio: {}, FieldSeries: {}, FieldOverview: {}, FieldRating: {},
	FieldRuntime: {}, FieldDirector: {}, FieldWebsite: {}, FieldPoster: {},
	FieldBackdrop: {}, FieldPreviewImages: {}, FieldPreviewVideos: {},
	FieldActors: {}, FieldGenres: {}, FieldMosaic: {},
}

// ParseField 校验字段名（配置文件中的 required 列表使用）。
func ParseField(s string) (Field, bool) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	_, ok := knownFields[f]
	return f, ok
}

// Has 报告该字段是否有值。未知字段一律视为缺失。
func (r Record) Has(f Field) bool {
	switch f {
	case FieldTitle:
		return strings.TrimSpace(r.Title) != ""
	case FieldOriginalTitle:
		return strings.TrimSpace(r.OriginalTitle) != ""
	case FieldReleaseDate:
		return strings.TrimSpace(r.ReleaseDate) != ""
	case FieldYear:
		return r.Year != 0
	case FieldStudio:
		return strings.TrimSpace(r.Studio) != ""
	case FieldSeries:
		return strings.TrimSpace(r.Series) != ""
	case FieldOverview:
		return strings.TrimSpace(r.Overview) != ""
	case FieldRating:
		return r.Rating != 0
	case FieldRuntime:
		return r.Runtime != 0
	case FieldDirector:
		return strings.TrimSpace(r.Director) != ""
	case FieldWebsite:
		return strings.TrimSpace(r.Website) != ""
	case FieldPoster:
		return strings.TrimSpace(r.PosterURL) != ""
	case FieldBackdrop:
		return strings.TrimSpace(r.BackdropURL) != ""
	case FieldPreviewImages:
		return len(r.PreviewImageURLs) > 0
	case FieldPreviewVideos:
		return len(r.PreviewVideoURLs) > 0
	case FieldActors:
		return len(r.Actors) > 0
	case FieldGenres:
		return len(r.Genres) > 0
	case FieldMosaic:
		return r.Mosaic != nil
	default:
		return false
	}
}

// IsEmpty 报告记录是否不含任何元数据（ID 与 Source 不算）。
// collector 返回空记录且 err==nil 时，编排层按“明确未找到”处理。
func (r Record) IsEmpty() bool {
	for f := range knownFields {
		if r.Has(f) {
			return false
		}
	}
	return true
}

// PartialResult 是单个 collector 的原始回答。
//
// Order 是该 collector 在本次咨询列表中的下标（咨询顺序），
// 用于生成来源标记；合并优先级另由 collector 的 priority 决定。
type PartialResult struct {
	Collector string
	Order     int
	Record    Record
}
