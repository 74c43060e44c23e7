// Package normalize 是 Normalizer 的默认实现：把原始查询分类为 domain.NormalizedID。
//
// 规则是纯函数：相同输入 => 相同输出；识别不出标识时归为自由文本搜索。
package normalize

import (
	"regexp"
	"strings"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

// Normalizer 是外部分类器的契约。
type Normalizer interface {
	Classify(raw string) domain.NormalizedID
}

// Default 识别常见番号形态；顺序即优先级（更具体的规则在前）。
type Default struct{}

var (
	// FC2-PPV-1234567 / FC2PPV 1234567 / fc2-1234567
	fc2RE = regexp.MustCompile(`(?i)\bfc2[\s._-]*(?:ppv[\s._-]*)?([0-9]{5,8})\b`)
	// HEYZO-1234
	heyzoRE = regexp.MustCompile(`(?i)\bheyzo[\s._-]*([0-9]{4})\b`)
	// 123456-789 / 123456_01（无码片商常见的 日期-序号 形态）
	uncensoredRE = regexp.MustCompile(`\b([0-9]{6})[-_]([0-9]{2,3})\b`)
	// 字母段 + 分隔符变体 + 数字段；要求至少一个分隔符，避免把 "SAMPLE123" 误判。
	normalRE = regexp.MustCompile(`(?i)\b([a-z]{2,6})[\s._-]+([0-9]{2,5})\b`)
)

func (Default) Classify(raw string) domain.NormalizedID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.NormalizedID{Raw: raw, Category: domain.CategoryUnknown}
	}

	if m := fc2RE.FindStringSubmatch(s); m != nil {
		return domain.NormalizedID{
			Raw:         raw,
			PrimaryID:   "FC2-PPV-" + m[1],
			AlternateID: m[1],
			Category:    domain.CategoryFC2,
		}
	}
	if m := heyzoRE.FindStringSubmatch(s); m != nil {
		return domain.NormalizedID{
			Raw:       raw,
			PrimaryID: "HEYZO-" + m[1],
			Category:  domain.CategoryUncensored,
		}
	}
	if m := uncensoredRE.FindStringSubmatch(s); m != nil && isIdentifierOnly(s, m[0]) {
		return domain.NormalizedID{
			Raw:         raw,
			PrimaryID:   m[1] + "-" + m[2],
			AlternateID: m[1] + "_" + m[2],
			Category:    domain.CategoryUncensored,
		}
	}
	if m := normalRE.FindStringSubmatch(s); m != nil && isIdentifierOnly(s, m[0]) {
		prefix := strings.ToUpper(m[1])
		num := strings.TrimLeft(m[2], "0")
		if num == "" {
			num = "0"
		}
		primary := prefix + "-" + pad(num, 3)
		return domain.NormalizedID{
			Raw:         raw,
			PrimaryID:   primary,
			AlternateID: strings.ToLower(prefix) + pad(num, 5),
			Category:    domain.CategoryNormal,
		}
	}

	return domain.NormalizedID{Raw: raw, PrimaryID: s, Category: domain.CategorySearch}
}

// isIdentifierOnly：标识两侧只允许出现少量噪音（如文件名里的 "-C"、"[高清]"），
// 否则这是一句包含番号样式片段的自由文本，仍按搜索处理。
func isIdentifierOnly(s, match string) bool {
	rest := strings.Replace(s, match, " ", 1)
	words := strings.Fields(strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || r == '.' || r == '[' || r == ']' || r == '(' || r == ')' {
			return ' '
		}
		return r
	}, rest))
	return len(words) <= 1
}

func pad(num string, width int) string {
	if len(num) >= width {
		return num
	}
	return strings.Repeat("0", width-len(num)) + num
}
