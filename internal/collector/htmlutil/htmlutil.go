// Package htmlutil 收集各站点 collector 共用的 HTML 文本处理函数。
package htmlutil

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Space 把连续空白折叠为单个空格。
func Space(s string) string { return strings.Join(strings.Fields(s), " ") }

// Header 规范化“字段名:”形式的表头（去掉中英文冒号）。
func Header(s string) string {
	s = Space(s)
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, "：")
	return strings.TrimSpace(s)
}

// List 去空白、去空串、去重（保持顺序）。结果为空时返回 nil。
func List(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = Space(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// FirstInt 提取第一段连续数字（如 “155分鐘” -> 155）。
func FirstInt(s string) int {
	start := -1
	for i, r := range s {
		if r >= '0' && r <= '9' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			n, _ := strconv.Atoi(s[start:i])
			return n
		}
	}
	if start < 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[start:])
	return n
}

// FirstFloat 提取第一个小数（如 “4.47分, 由123人評價” -> 4.47）。
func FirstFloat(s string) float64 {
	start, end := -1, -1
	dot := false
loop:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			if start < 0 {
				start = i
			}
			end = i + 1
		case r == '.' && start >= 0 && !dot:
			dot = true
		default:
			if start >= 0 {
				break loop
			}
		}
	}
	if start < 0 {
		return 0
	}
	f, _ := strconv.ParseFloat(s[start:end], 64)
	return f
}

// Year 从 ISO 日期中取年份；无法解析时为 0。
func Year(date string) int {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(date))
	if err != nil {
		return 0
	}
	return t.Year()
}

// ResolveURL 把相对链接解析为绝对地址；协议相对地址补 https。
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}
