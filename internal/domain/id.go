package domain

import "strings"

// Category 决定一次查询可用哪些 collector、以及它们的先后顺序。
type Category string

const (
	CategoryNormal     Category = "normal-numbered"
	CategoryUncensored Category = "uncensored-numbered"
	CategoryFC2        Category = "fc2"
	CategorySearch     Category = "search"
	CategoryUnknown    Category = "unknown"
)

// ParseCategory 解析外部传入的分类提示；无法识别时 ok=false。
func ParseCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryNormal, CategoryUncensored, CategoryFC2, CategorySearch, CategoryUnknown:
		return c, true
	default:
		return "", false
	}
}

// Uncensored 报告该分类的作品默认是否无码（用于推导 Mosaic）。
func (c Category) Uncensored() bool {
	return c == CategoryUncensored || c == CategoryFC2
}

// NormalizedID 是 Normalizer 对一次查询的分类结果。创建后不可变。
//
// PrimaryID 是规范化后的主标识（如 ABC-123）；AlternateID 是部分站点使用的
// 另一种写法（如 abc00123），可能为空。
type NormalizedID struct {
	Raw         string
	PrimaryID   string
	AlternateID string
	Category    Category
}

// IsSearch 表示这是一次自由文本查询（没有可作为主键的标识）。
func (id NormalizedID) IsSearch() bool {
	return id.Category == CategorySearch
}
