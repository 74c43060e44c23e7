package match

import (
	"sort"
	"strings"
)

// levenshtein 计算按 rune 的编辑距离。
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// ratio 返回 [0,100] 的相似度：100*(1 - 距离/较长串长度)。
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	n := max(len(ra), len(rb))
	if n == 0 {
		return 100
	}
	return 100 * (1 - float64(levenshtein(ra, rb))/float64(n))
}

// tokenSortRatio 对词排序后再比较，消除词序差异。
func tokenSortRatio(a, b string) float64 {
	ta, tb := tokens(a), tokens(b)
	sort.Strings(ta)
	sort.Strings(tb)
	return ratio(strings.Join(ta, " "), strings.Join(tb, " "))
}

// similarity 是两个已规范化字符串的模糊相似度。
func similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return max(ratio(a, b), tokenSortRatio(a, b))
}
