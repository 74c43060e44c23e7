package resolver

import (
	"fmt"
	"strings"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/resultset"
)

// ReturnMode 决定 Resolve 输出单条记录还是分页结果集。
type ReturnMode string

const (
	ReturnSingle   ReturnMode = "single"
	ReturnMultiple ReturnMode = "multiple"
)

func ParseReturnMode(s string) (ReturnMode, error) {
	switch m := ReturnMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "", ReturnSingle:
		return ReturnSingle, nil
	case ReturnMultiple:
		return m, nil
	default:
		return "", fmt.Errorf("mode 只能是 single 或 multiple：%q", s)
	}
}

// Options 是一次 Resolve 的参数。零值表示：自动分类、单条模式、不过滤、不排序、第 1 页。
type Options struct {
	// CategoryHint 非空时覆盖 Normalizer 的分类结果。
	CategoryHint domain.Category
	Mode         ReturnMode
	Filter       resultset.FilterSpec
	Sort         resultset.SortSpec
	Dedupe       resultset.DedupeKey
	Page         int
	PageSize     int
	// Date 是已知的目标发行日期，用于候选打分。
	Date string
}
