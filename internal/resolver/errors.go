package resolver

import (
	"fmt"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
)

// NotFoundError 表示所有适用的数据源都没有给出结果（或没有适用的数据源）。
// Summary 是分组、去重后的失败诊断，附带双语说明与建议。
type NotFoundError struct {
	Query   string
	ID      domain.NormalizedID
	Summary scrapeerr.Summary
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "not found"
	}
	return fmt.Sprintf("未找到 / not found: query=%q category=%s: %s", e.Query, e.ID.Category, e.Summary.Message)
}

// InternalError 表示配置或编程错误（不是数据源失败）。
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	if e == nil {
		return "internal error"
	}
	return fmt.Sprintf("内部错误 / internal error: %s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
