package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalize 把标题规范化为可比较的形式：
// 全角/半角折叠、NFKC、case-fold，标点与空白折叠为单个空格。
func Normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = norm.NFKC.String(width.Fold.String(s))
	s = cases.Fold().String(s)
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

func tokens(normalized string) []string {
	return strings.Fields(normalized)
}
