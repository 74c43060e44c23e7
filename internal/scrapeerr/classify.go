package scrapeerr

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// 403 页面中出现这些关键词时按“地区限制”处理，否则按“需要代理”处理。
var regionKeywords = []string{
	"region", "country", "geo", "not available in your area", "your area",
	"地区", "地域", "國家", "国家", "海外",
}

// Classify 把 collector 返回的普通 error 归类为 StructuredError。
//
// 优先级（固定）：
// 1) 已是 *StructuredError：直接采用（补齐 source）
// 2) 错误实现 Categorized：采用 collector 声明的语义分类
// 3) 错误实现 StatusCoder：按 HTTP 状态码推断
// 4) ctx 超时/取消、net 错误、TLS：NetworkError
// 5) 本地权限：PermissionError
// 6) 其它：Unknown
func Classify(source string, err error) *StructuredError {
	if err == nil {
		return New(CategoryUnknown, source, "nil_error", nil)
	}

	var se *StructuredError
	if errors.As(err, &se) {
		cp := *se
		if cp.Source == "" {
			cp.Source = strings.ToLower(strings.TrimSpace(source))
		}
		return &cp
	}

	status := 0
	var sc StatusCoder
	if errors.As(err, &sc) {
		status = sc.HTTPStatus()
	}

	var cz Categorized
	if errors.As(err, &cz) {
		out := New(cz.ErrorCategory(), source, "", err)
		out.HTTPStatus = status
		return out
	}

	if status != 0 {
		cat, code := classifyStatus(status, err.Error())
		out := New(cat, source, code, err)
		out.HTTPStatus = status
		return out
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return New(CategoryNetwork, source, "timeout", err)
	case errors.Is(err, context.Canceled):
		return New(CategoryNetwork, source, "canceled", err)
	case errors.Is(err, os.ErrPermission):
		return New(CategoryPermission, source, "", err)
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return New(CategoryNetwork, source, "timeout", err)
		}
		return New(CategoryNetwork, source, "", err)
	}
	var rhe tls.RecordHeaderError
	if errors.As(err, &rhe) {
		return New(CategoryNetwork, source, "tls", err)
	}

	low := strings.ToLower(err.Error())
	switch {
	case strings.Contains(low, "timeout"):
		return New(CategoryNetwork, source, "timeout", err)
	case strings.Contains(low, "tls") || strings.Contains(low, "handshake") || strings.Contains(low, "ssl"):
		return New(CategoryNetwork, source, "tls", err)
	case strings.Contains(low, "connection refused") || strings.Contains(low, "no such host"):
		return New(CategoryNetwork, source, "", err)
	}
	return New(CategoryUnknown, source, "", err)
}

func classifyStatus(status int, detail string) (Category, string) {
	code := fmt.Sprintf("http_%d", status)
	switch {
	case status == 401 || status == 407:
		return CategoryCredential, code
	case status == 403:
		if hasRegionKeyword(detail) {
			return CategoryRegionalRestricted, code
		}
		return CategoryProxyRequired, code
	case status == 404 || status == 410:
		return CategoryNotFound, code
	case status == 451:
		return CategoryRegionalRestricted, code
	case status == 429:
		return CategorySiteError, code
	case status >= 500:
		return CategorySiteError, code
	case status >= 400:
		return CategorySiteError, code
	default:
		// 3xx 落到这里通常是被引导到验证页。
		return CategoryProxyRequired, code
	}
}

func hasRegionKeyword(s string) bool {
	low := strings.ToLower(s)
	for _, k := range regionKeywords {
		if strings.Contains(low, k) {
			return true
		}
	}
	return false
}
