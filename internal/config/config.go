// Package config 发现、读取并合并 ysgl.toml、.env 与 CLI 参数，产出实现层直接消费的最终配置。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/httpx"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/match"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/selector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/session"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	FileName    = "ysgl.toml"
	EnvFileName = ".env"

	EnvProxyURL     = "YSGL_PROXY_URL"
	EnvJavDBBaseURL = "YSGL_JAVDB_BASE_URL"
	EnvLogLevel     = "YSGL_LOG_LEVEL"
	EnvCacheDir     = "YSGL_CACHE_DIR"
)

// CLIArgs 是 CLI 暴露的配置入口，保留“是否显式指定”的信息以实现覆盖优先级。
type CLIArgs struct {
	// ConfigPath 非空时必须存在；为空时读取 <cwd>/ysgl.toml（可选）。
	ConfigPath string
	// EnvFile 非空时必须存在；为空时读取 <cwd>/.env（可选）。
	EnvFile string

	LogLevel    string
	LogLevelSet bool

	ProxyURL string
	ProxySet bool
}

// FileConfig 对应 ysgl.toml 的解析结构。时长字段使用 Go duration 字符串（如 "30s"）。
type FileConfig struct {
	Session    SessionConfig              `toml:"session"`
	Match      MatchConfig                `toml:"match"`
	HTTP       HTTPConfig                 `toml:"http"`
	Cache      CacheConfig                `toml:"cache"`
	Logging    LoggingConfig              `toml:"logging"`
	Collectors map[string]CollectorConfig `toml:"collectors"`
	Categories map[string]CategoryConfig  `toml:"categories"`
	Tags       TagsConfig                 `toml:"tags"`
}

type SessionConfig struct {
	Deadline    string `toml:"deadline"`
	Grace       string `toml:"grace"`
	MaxParallel int    `toml:"max_parallel"`
}

type MatchConfig struct {
	Threshold       *float64 `toml:"threshold"`
	ExcludeKeywords []string `toml:"exclude_keywords"`
}

type HTTPConfig struct {
	ProxyURL  string `toml:"proxy_url"`
	Timeout   string `toml:"timeout"`
	RetryMax  *int   `toml:"retry_max"`
	UserAgent string `toml:"user_agent"`
}

type CacheConfig struct {
	Dir      string `toml:"dir"`
	ReadOnly bool   `toml:"read_only"`
	TTL      string `toml:"ttl"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// CollectorConfig 覆盖单个 collector 的站点参数与优先级。
type CollectorConfig struct {
	Enabled     *bool  `toml:"enabled"`
	BaseURL     string `toml:"base_url"`
	Interval    string `toml:"interval"`
	Priority    int    `toml:"priority"`
	Watermarked *bool  `toml:"watermarked"`
}

// CategoryConfig 整体替换某个分类的规则；省略的字段沿用内置规则。
// Collectors 的每一项形如 "javbus" 或 "fanza:alternate"。
type CategoryConfig struct {
	Mode       string   `toml:"mode"`
	Required   []string `toml:"required"`
	Collectors []string `toml:"collectors"`
}

type TagsConfig struct {
	Aliases map[string]string `toml:"aliases"`
}

// CollectorSettings 是某个 collector 合并后的站点参数。
type CollectorSettings struct {
	Enabled  bool
	BaseURL  string
	Interval time.Duration
}

// Effective 是合并并规范化后的最终配置。
type Effective struct {
	// Path 是实际读取的配置文件；FileExists=false 表示全部使用默认值。
	Path       string
	FileExists bool

	Session session.Options
	HTTP    httpx.Options

	Threshold       float64
	ExcludeKeywords []string

	CacheDir      string
	CacheReadOnly bool
	CacheTTL      time.Duration

	LogLevel  string
	LogFormat string

	Collectors map[string]CollectorSettings
	Table      *selector.Table
	TagAliases map[string]string
}

// Enabled 返回启用的 collector 名称（字典序）。
func (e Effective) Enabled() []string {
	var out []string
	for name, c := range e.Collectors {
		if c.Enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Load 发现并读取配置，与环境变量、CLI 参数合并为最终配置。
//
// 覆盖优先级（固定）：CLI > 环境变量（含 .env）> ysgl.toml > 内置默认值。
// .env 不覆盖进程中已存在的同名环境变量。
func Load(cwd string, cli CLIArgs) (Effective, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if err := loadEnvFile(cwdAbs, cli.EnvFile); err != nil {
		return Effective{}, err
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := strings.TrimSpace(cli.ConfigPath) != ""
	if required {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if required && !exists {
		return Effective{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}

	applyEnv(&fc)
	if cli.ProxySet {
		fc.HTTP.ProxyURL = cli.ProxyURL
	}
	if cli.LogLevelSet {
		fc.Logging.Level = cli.LogLevel
	}

	eff, err := merge(fc)
	if err != nil {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.Path = cfgPath
	eff.FileExists = exists
	return eff, nil
}

func loadEnvFile(cwd, explicit string) error {
	path := filepath.Join(cwd, EnvFileName)
	if strings.TrimSpace(explicit) != "" {
		path = absCleanFrom(cwd, explicit)
		if _, err := os.Stat(path); err != nil {
			return &Error{Code: ErrCodeNotFound, Path: path, Err: err}
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	return nil
}

func applyEnv(fc *FileConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvProxyURL)); v != "" {
		fc.HTTP.ProxyURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		fc.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		fc.Cache.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJavDBBaseURL)); v != "" {
		if fc.Collectors == nil {
			fc.Collectors = map[string]CollectorConfig{}
		}
		c := fc.Collectors["javdb"]
		c.BaseURL = v
		fc.Collectors["javdb"] = c
	}
}

func merge(fc FileConfig) (Effective, error) {
	var eff Effective
	var err error

	if eff.Session.Deadline, err = duration("session.deadline", fc.Session.Deadline); err != nil {
		return Effective{}, err
	}
	if eff.Session.Grace, err = duration("session.grace", fc.Session.Grace); err != nil {
		return Effective{}, err
	}
	eff.Session.MaxParallel = fc.Session.MaxParallel
	if eff.Session.MaxParallel == 0 {
		eff.Session.MaxParallel = session.DefaultMaxParallel
	}
	// 范围 [1, 32]；超出截断。
	eff.Session.MaxParallel = min(max(eff.Session.MaxParallel, 1), 32)

	eff.Threshold = match.DefaultThreshold
	if fc.Match.Threshold != nil {
		eff.Threshold = *fc.Match.Threshold
		if eff.Threshold < 0 || eff.Threshold > 100 {
			return Effective{}, fmt.Errorf("match.threshold 必须在 [0, 100] 内，实际是 %v", eff.Threshold)
		}
	}
	eff.ExcludeKeywords = append([]string(nil), fc.Match.ExcludeKeywords...)

	proxyURL := strings.TrimSpace(fc.HTTP.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Effective{}, fmt.Errorf("http.proxy_url 无效：%q", proxyURL)
		}
	}
	eff.HTTP.ProxyURL = proxyURL
	if eff.HTTP.Timeout, err = duration("http.timeout", fc.HTTP.Timeout); err != nil {
		return Effective{}, err
	}
	if fc.HTTP.RetryMax != nil {
		eff.HTTP.RetryMax = *fc.HTTP.RetryMax
		if eff.HTTP.RetryMax == 0 {
			// httpx 把 0 视为默认值；显式写 0 表示不重试。
			eff.HTTP.RetryMax = -1
		}
	}
	eff.HTTP.UserAgent = strings.TrimSpace(fc.HTTP.UserAgent)

	eff.CacheDir = strings.TrimSpace(fc.Cache.Dir)
	eff.CacheReadOnly = fc.Cache.ReadOnly
	if eff.CacheTTL, err = duration("cache.ttl", fc.Cache.TTL); err != nil {
		return Effective{}, err
	}

	eff.LogLevel = strings.ToLower(strings.TrimSpace(fc.Logging.Level))
	switch eff.LogLevel {
	case "":
		eff.LogLevel = "info"
	case "debug", "info", "warn", "warning", "error":
	default:
		return Effective{}, fmt.Errorf("logging.level 只能是 debug/info/warn/error，实际是 %q", fc.Logging.Level)
	}
	eff.LogFormat = strings.ToLower(strings.TrimSpace(fc.Logging.Format))
	switch eff.LogFormat {
	case "":
		eff.LogFormat = "text"
	case "text", "console", "json":
	default:
		return Effective{}, fmt.Errorf("logging.format 只能是 text 或 json，实际是 %q", fc.Logging.Format)
	}

	descs, collectors, err := mergeCollectors(fc.Collectors)
	if err != nil {
		return Effective{}, err
	}
	rules, err := mergeCategories(fc.Categories)
	if err != nil {
		return Effective{}, err
	}
	table, err := selector.NewTable(descs, rules)
	if err != nil {
		return Effective{}, err
	}
	eff.Collectors = collectors
	eff.Table = table

	if len(fc.Tags.Aliases) > 0 {
		eff.TagAliases = make(map[string]string, len(fc.Tags.Aliases))
		for k, v := range fc.Tags.Aliases {
			eff.TagAliases[k] = v
		}
	}
	return eff, nil
}

func mergeCollectors(in map[string]CollectorConfig) ([]selector.Descriptor, map[string]CollectorSettings, error) {
	descs := selector.DefaultDescriptors()
	index := make(map[string]int, len(descs))
	settings := make(map[string]CollectorSettings, len(descs))
	for i, d := range descs {
		index[d.Name] = i
		settings[d.Name] = CollectorSettings{Enabled: true}
	}

	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, raw := range names {
		c := in[raw]
		name := collector.NormName(raw)
		i, ok := index[name]
		if !ok {
			return nil, nil, fmt.Errorf("collectors.%s：未知的 collector", raw)
		}
		if c.Priority != 0 {
			descs[i].Priority = c.Priority
		}
		if c.Watermarked != nil {
			descs[i].Watermarked = *c.Watermarked
		}
		s := settings[name]
		if c.Enabled != nil {
			s.Enabled = *c.Enabled
		}
		if base := strings.TrimSpace(c.BaseURL); base != "" {
			u, err := url.Parse(base)
			if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
				return nil, nil, fmt.Errorf("collectors.%s.base_url 必须是 http/https 地址：%q", raw, base)
			}
			s.BaseURL = strings.TrimRight(base, "/")
		}
		var err error
		if s.Interval, err = duration("collectors."+raw+".interval", c.Interval); err != nil {
			return nil, nil, err
		}
		settings[name] = s
	}
	return descs, settings, nil
}

func mergeCategories(in map[string]CategoryConfig) (map[domain.Category]selector.Rule, error) {
	rules := selector.DefaultRules()
	for raw, c := range in {
		cat, ok := domain.ParseCategory(raw)
		if !ok || cat == domain.CategoryUnknown {
			return nil, fmt.Errorf("categories.%s：未知的分类", raw)
		}
		rule := rules[cat]
		if m := strings.TrimSpace(c.Mode); m != "" {
			rule.Mode = selector.Mode(strings.ToLower(m))
		}
		if c.Required != nil {
			rule.Required = nil
			for _, f := range c.Required {
				field, ok := domain.ParseField(f)
				if !ok {
					return nil, fmt.Errorf("categories.%s.required：未知字段 %q", raw, f)
				}
				rule.Required = append(rule.Required, field)
			}
		}
		if c.Collectors != nil {
			rule.Entries = nil
			for _, item := range c.Collectors {
				name, param, _ := strings.Cut(item, ":")
				rule.Entries = append(rule.Entries, selector.Entry{
					Collector: collector.NormName(name),
					Param:     selector.Param(strings.ToLower(strings.TrimSpace(param))),
				})
			}
		}
		rules[cat] = rule
	}
	return rules, nil
}

func duration(key, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s 无效：%w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s 不能为负数：%q", key, s)
	}
	return d, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&fc); err != nil {
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return FileConfig{}, true, fmt.Errorf("第 %d 行第 %d 列：%w", row, col, err)
		}
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
