package collector

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
)

// ErrNotFound 表示数据源明确没有该作品。
var ErrNotFound error = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string                     { return "not found" }
func (notFoundError) ErrorCategory() scrapeerr.Category { return scrapeerr.CategoryNotFound }

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// Detail 保存响应体的一小段文本，供分类时识别“地区限制”之类的提示。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
	Detail     string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP %d", e.StatusCode)
	if loc := strings.TrimSpace(e.Location); loc != "" {
		b.WriteString(" location=" + loc)
	}
	if d := strings.TrimSpace(e.Detail); d != "" {
		b.WriteString(" detail=" + d)
	}
	return b.String()
}

func (e *HTTPStatusError) HTTPStatus() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// BlockedError 表示请求被站点引导到了“验证/拦截”页面（通常意味着需要浏览器执行 JS 或人工验证）。
// 不尝试绕过，直接归类为 ProxyRequired，让用户配置代理。
type BlockedError struct {
	URL    string
	Reason string // 例如 "driver-verify"
}

func (e *BlockedError) Error() string {
	if e == nil {
		return "blocked"
	}
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}

func (e *BlockedError) ErrorCategory() scrapeerr.Category { return scrapeerr.CategoryProxyRequired }

// ParseError 表示页面抓到了但无法解析（站点结构变化，或返回了非详情页）。
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) ErrorCategory() scrapeerr.Category { return scrapeerr.CategorySiteError }

// IsNotFound 判断 err 是否表达“未找到”。
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
