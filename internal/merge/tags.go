package merge

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// TagAliases 把站点特有的标签写法映射为统一名称。键按 case-fold 后比较。
type TagAliases map[string]string

// DefaultTagNormalizer 做三件事：全角/半角折叠并 NFKC 规范化；合并多余空白；
// 按别名表替换；未命中别名的标签只把词首字母大写，其余字母保持原样（VR、BDSM 不变）。
type DefaultTagNormalizer struct {
	aliases map[string]string
}

// NewTagNormalizer 构造默认标签规范化器。aliases 可为 nil。
func NewTagNormalizer(aliases TagAliases) *DefaultTagNormalizer {
	fold := cases.Fold()
	m := make(map[string]string, len(aliases))
	for k, v := range aliases {
		k = fold.String(cleanTag(k))
		v = cleanTag(v)
		if k == "" || v == "" {
			continue
		}
		m[k] = v
	}
	return &DefaultTagNormalizer{aliases: m}
}

func (n *DefaultTagNormalizer) Normalize(tags []string) []string {
	fold := cases.Fold()
	title := cases.Title(language.Und, cases.NoLower)
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = cleanTag(t)
		if t == "" {
			continue
		}
		if v, ok := n.aliases[fold.String(t)]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, title.String(t))
	}
	return out
}

func cleanTag(s string) string {
	s = norm.NFKC.String(width.Fold.String(s))
	return strings.Join(strings.Fields(s), " ")
}
