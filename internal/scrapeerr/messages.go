package scrapeerr

import "fmt"

// 文案集中在这里：编排层与 CLI 只做展示，不再各自拼接提示。
type template struct {
	code        string
	zh          string
	en          string
	suggestions []string
}

var templates = map[Category]template{
	CategoryNetwork: {
		code: "network_error",
		zh:   "%s 网络请求失败（超时或连接中断）",
		en:   "%s request failed (timeout or connection reset)",
		suggestions: []string{
			"检查网络或代理后重试 / Check your network or proxy and retry",
		},
	},
	CategoryProxyRequired: {
		code: "proxy_required",
		zh:   "%s 拒绝访问（可能触发反爬或需要代理）",
		en:   "%s refused the request (anti-bot or proxy required)",
		suggestions: []string{
			"配置 proxy_url 代理后重试 / Configure proxy_url and retry",
			"降低并发或稍后重试 / Lower concurrency or retry later",
		},
	},
	CategoryRegionalRestricted: {
		code: "regional_restriction",
		zh:   "%s 在当前地区不可用",
		en:   "%s is not available in your region",
		suggestions: []string{
			"使用目标地区的代理 / Use a proxy located in the site's region",
		},
	},
	CategoryNotFound: {
		code: "not_found",
		zh:   "%s 未找到该作品",
		en:   "%s has no entry for this item",
		suggestions: []string{
			"确认番号拼写，或改用标题搜索 / Check the identifier spelling or search by title",
		},
	},
	CategorySiteError: {
		code: "site_error",
		zh:   "%s 站点返回异常（服务端错误或页面结构变化）",
		en:   "%s returned an error (server failure or layout change)",
		suggestions: []string{
			"稍后重试 / Retry later",
		},
	},
	CategoryPermission: {
		code: "permission_error",
		zh:   "%s 本地权限不足",
		en:   "%s hit a local permission error",
		suggestions: []string{
			"检查缓存目录的读写权限 / Check read/write permission of the cache directory",
		},
	},
	CategoryCredential: {
		code: "credential_error",
		zh:   "%s 需要登录或凭据已失效",
		en:   "%s requires login or the credential expired",
		suggestions: []string{
			"更新该站点的凭据 / Refresh the credential for this site",
		},
	},
	CategoryDuplicateAmbiguous: {
		code: "duplicate_ambiguous",
		zh:   "%s 返回了多个同名候选，无法自动确定唯一结果",
		en:   "%s returned several candidates with the same title",
		suggestions: []string{
			"补充发行日期或番号以区分 / Add a release date or identifier to disambiguate",
		},
	},
	CategoryUnknown: {
		code: "unknown",
		zh:   "%s 发生未知错误",
		en:   "%s failed with an unknown error",
		suggestions: []string{
			"查看日志获取详细信息 / See logs for details",
		},
	},
}

func templateFor(cat Category) template {
	if t, ok := templates[cat]; ok {
		return t
	}
	return templates[CategoryUnknown]
}

// CodeNoConfidentMatch 标记“候选标题都与查询不够相似”的结果集。
// 分类仍是 DuplicateAmbiguous（需要调用方挑选），但文案与同名重复不同。
const CodeNoConfidentMatch = "no_confident_match"

var noConfidentMatch = template{
	code: CodeNoConfidentMatch,
	zh:   "%s 的候选与查询都不够相似，未自动挑选",
	en:   "%s returned candidates but none matched the query confidently",
	suggestions: []string{
		"改用番号或更完整的标题查询 / Query by identifier or a fuller title",
	},
}

// NoConfidentMatch 生成“无可信匹配”的提示：返回的是完整候选列表，而非同名重复。
func NoConfidentMatch(source string) *StructuredError {
	e := New(CategoryDuplicateAmbiguous, source, CodeNoConfidentMatch, nil)
	name := displaySource(e.Source)
	e.Messages = []string{fmt.Sprintf(noConfidentMatch.zh, name), fmt.Sprintf(noConfidentMatch.en, name)}
	e.Suggestions = append([]string(nil), noConfidentMatch.suggestions...)
	return e
}
