package match

import (
	"regexp"
	"strings"
	"time"
)

var dateShapes = []struct {
	re     *regexp.Regexp
	layout string
}{
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "2006-01-02"},
	{regexp.MustCompile(`^\d{4}\.\d{2}\.\d{2}$`), "2006.01.02"},
	{regexp.MustCompile(`^\d{4}/\d{2}/\d{2}$`), "2006/01/02"},
	{regexp.MustCompile(`^\d{8}$`), "20060102"},
	{regexp.MustCompile(`^\d{2}\.\d{2}\.\d{2}$`), "06.01.02"},
}

// ParseDateQuery 识别“日期形状”的查询，返回 ISO 日期（2006-01-02）。
// 不是合法日期时 ok=false。
func ParseDateQuery(q string) (string, bool) {
	q = strings.TrimSpace(q)
	for _, s := range dateShapes {
		if !s.re.MatchString(q) {
			continue
		}
		t, err := time.Parse(s.layout, q)
		if err != nil {
			return "", false
		}
		return t.Format("2006-01-02"), true
	}
	return "", false
}

// sameDate 比较两个日期字符串（任意受支持格式）。
func sameDate(a, b string) bool {
	da, ok := ParseDateQuery(a)
	if !ok {
		return false
	}
	db, ok := ParseDateQuery(b)
	return ok && da == db
}
