// Package collector 定义“单一数据源”的统一契约。
//
// 站点差异被限制在各 collector 子包内部；编排层只依赖 Collector 接口与 domain.Record。
package collector

import (
	"context"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

// Collector 按规范化标识从一个数据源抓取并解析元数据。
//
// 约束：
// - Fetch 是同步调用；返回普通 error，不需要了解 scrapeerr 的分类
// - 未找到时返回 ErrNotFound（或空 Record + nil），编排层统一按 NotFound 处理
// - 重试、镜像切换、凭据刷新都属于 collector 自己的职责
type Collector interface {
	Name() string
	Fetch(ctx context.Context, id string) (domain.Record, error)
}

// Searcher 是可选能力：支持自由文本搜索的 collector 返回 0..N 个候选。
type Searcher interface {
	Search(ctx context.Context, query string) ([]domain.Record, error)
}

// RateLimited 是可选能力：collector 在自己发请求前自我限速。
// 编排层通过类型断言发现该能力，在调用 Fetch/Search 前先调用 Wait。
type RateLimited interface {
	Wait(ctx context.Context) error
}
