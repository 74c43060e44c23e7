// Package scrapeerr 定义单个 collector 失败的分类（taxonomy）与会话级的错误聚合。
//
// collector 只返回普通 error，不感知这里的分类；分类由编排层调用 Classify 完成。
// 需要表达语义的 collector 可以让自己的错误实现 Categorized，Classify 会优先采用。
package scrapeerr

import (
	"fmt"
	"strings"
	"time"
)

// Category 是失败分类。
type Category string

const (
	CategoryNetwork            Category = "NetworkError"
	CategoryProxyRequired      Category = "ProxyRequired"
	CategoryRegionalRestricted Category = "RegionalRestriction"
	CategoryNotFound           Category = "NotFound"
	CategorySiteError          Category = "SiteError"
	CategoryPermission         Category = "PermissionError"
	CategoryCredential         Category = "CredentialError"
	CategoryDuplicateAmbiguous Category = "DuplicateAmbiguous"
	CategoryUnknown            Category = "Unknown"
)

// Categorized 由 collector 的错误可选实现，用于直接声明语义分类。
type Categorized interface {
	ErrorCategory() Category
}

// StatusCoder 由携带 HTTP 状态码的错误实现（例如 collector.HTTPStatusError）。
type StatusCoder interface {
	HTTPStatus() int
}

// StructuredError 是一次 collector 失败的结构化描述。
//
// Messages 固定为 [中文, English] 两条；Suggestions 同样是双语的可操作建议。
type StructuredError struct {
	Category    Category
	Source      string
	Code        string
	Messages    []string
	Suggestions []string
	HTTPStatus  int
	Timestamp   time.Time

	Err error
}

func (e *StructuredError) Error() string {
	if e == nil {
		return "scrape error"
	}
	msg := ""
	if len(e.Messages) > 0 {
		msg = e.Messages[0]
	}
	if e.Err != nil {
		return fmt.Sprintf("source=%s category=%s code=%s: %s: %v", e.Source, e.Category, e.Code, msg, e.Err)
	}
	return fmt.Sprintf("source=%s category=%s code=%s: %s", e.Source, e.Category, e.Code, msg)
}

func (e *StructuredError) Unwrap() error { return e.Err }

// New 按分类生成带默认双语文案与建议的 StructuredError。
func New(cat Category, source, code string, err error) *StructuredError {
	source = strings.ToLower(strings.TrimSpace(source))
	t := templateFor(cat)
	zh := fmt.Sprintf(t.zh, displaySource(source))
	en := fmt.Sprintf(t.en, displaySource(source))
	if code == "" {
		code = t.code
	}
	return &StructuredError{
		Category:    cat,
		Source:      source,
		Code:        code,
		Messages:    []string{zh, en},
		Suggestions: append([]string(nil), t.suggestions...),
		Timestamp:   time.Now().UTC(),
		Err:         err,
	}
}

func displaySource(s string) string {
	if s == "" {
		return "<unknown>"
	}
	return s
}
