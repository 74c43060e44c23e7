package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/match"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/selector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/session"
)

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()

	eff, err := Load(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.FileExists {
		t.Fatalf("没有配置文件时 FileExists 应为 false")
	}
	if eff.Session.MaxParallel != session.DefaultMaxParallel || eff.Threshold != match.DefaultThreshold {
		t.Fatalf("默认值不符合预期：%+v", eff)
	}
	if eff.LogLevel != "info" || eff.LogFormat != "text" {
		t.Fatalf("日志默认值不符合预期：%q %q", eff.LogLevel, eff.LogFormat)
	}
	want := []string{"fanza", "javbus", "javdb", "javlibrary"}
	if got := eff.Enabled(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("默认启用的 collector 不符合预期：%v", got)
	}
	if eff.Table == nil || len(eff.Table.Select(domain.CategoryNormal, domain.NormalizedID{PrimaryID: "ABC-123", Category: domain.CategoryNormal})) != 4 {
		t.Fatalf("默认分类表不符合预期")
	}
}

func TestLoad_ExplicitConfigMissing(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()

	_, err := Load(cwd, CLIArgs{ConfigPath: "nope.toml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoad_FullFile(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
[session]
deadline = "10s"
grace = "2s"
max_parallel = 64

[match]
threshold = 25.5
exclude_keywords = ["trailer"]

[http]
proxy_url = "http://127.0.0.1:7890"
timeout = "5s"
retry_max = 0

[cache]
dir = "/tmp/ysgl-cache"
ttl = "24h"

[logging]
level = "DEBUG"
format = "json"

[collectors.javdb]
base_url = "https://javdb565.com/"
interval = "3s"
priority = 5

[collectors.fanza]
enabled = false

[categories.fc2]
collectors = ["javdb", "javbus:alternate"]
required = ["title", "release_date"]

[tags.aliases]
"big tits" = "Big Breasts"
`))

	eff, err := Load(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !eff.FileExists || eff.Path != filepath.Join(cwd, FileName) {
		t.Fatalf("配置文件路径不符合预期：%q %v", eff.Path, eff.FileExists)
	}
	if eff.Session.Deadline != 10*time.Second || eff.Session.Grace != 2*time.Second || eff.Session.MaxParallel != 32 {
		t.Fatalf("session 配置不符合预期：%+v", eff.Session)
	}
	if eff.Threshold != 25.5 || len(eff.ExcludeKeywords) != 1 {
		t.Fatalf("match 配置不符合预期：%v %v", eff.Threshold, eff.ExcludeKeywords)
	}
	if eff.HTTP.ProxyURL != "http://127.0.0.1:7890" || eff.HTTP.Timeout != 5*time.Second || eff.HTTP.RetryMax != -1 {
		t.Fatalf("http 配置不符合预期：%+v", eff.HTTP)
	}
	if eff.CacheDir != "/tmp/ysgl-cache" || eff.CacheTTL != 24*time.Hour {
		t.Fatalf("cache 配置不符合预期：%q %v", eff.CacheDir, eff.CacheTTL)
	}
	if eff.LogLevel != "debug" || eff.LogFormat != "json" {
		t.Fatalf("日志配置不符合预期：%q %q", eff.LogLevel, eff.LogFormat)
	}

	jd := eff.Collectors["javdb"]
	if jd.BaseURL != "https://javdb565.com" || jd.Interval != 3*time.Second || !jd.Enabled {
		t.Fatalf("javdb 配置不符合预期：%+v", jd)
	}
	if eff.Collectors["fanza"].Enabled {
		t.Fatalf("fanza 应被禁用")
	}
	if eff.Table.Priority("javdb") != 5 {
		t.Fatalf("javdb 优先级应被覆盖为 5，实际 %d", eff.Table.Priority("javdb"))
	}

	rule, ok := eff.Table.Rule(domain.CategoryFC2)
	if !ok || len(rule.Entries) != 2 || len(rule.Required) != 2 {
		t.Fatalf("fc2 规则不符合预期：%+v", rule)
	}
	// 条目按优先级排序：javdb(5) 在 javbus(30) 之前。
	if rule.Entries[0].Collector != "javdb" || rule.Entries[1].Param != selector.ParamAlternate {
		t.Fatalf("fc2 条目不符合预期：%+v", rule.Entries)
	}
	if eff.TagAliases["big tits"] != "Big Breasts" {
		t.Fatalf("标签别名不符合预期：%v", eff.TagAliases)
	}
}

func TestLoad_EnvAndCLIOverrideOrder(t *testing.T) {
	clearEnv(t)
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`
[http]
proxy_url = "http://file:1"
[logging]
level = "warn"
`))
	writeFile(t, filepath.Join(cwd, EnvFileName), []byte("YSGL_PROXY_URL=http://env:2\nYSGL_JAVDB_BASE_URL=https://javdb.example\n"))

	eff, err := Load(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.HTTP.ProxyURL != "http://env:2" {
		t.Fatalf(".env 应覆盖配置文件：%q", eff.HTTP.ProxyURL)
	}
	if eff.Collectors["javdb"].BaseURL != "https://javdb.example" {
		t.Fatalf("YSGL_JAVDB_BASE_URL 未生效：%+v", eff.Collectors["javdb"])
	}
	if eff.LogLevel != "warn" {
		t.Fatalf("未被覆盖的字段应来自配置文件：%q", eff.LogLevel)
	}

	eff, err = Load(cwd, CLIArgs{ProxyURL: "http://cli:3", ProxySet: true, LogLevel: "error", LogLevelSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.HTTP.ProxyURL != "http://cli:3" || eff.LogLevel != "error" {
		t.Fatalf("CLI 应覆盖环境变量与配置文件：%q %q", eff.HTTP.ProxyURL, eff.LogLevel)
	}
}

func TestLoad_ProcessEnvWinsOverDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "debug")
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, EnvFileName), []byte("YSGL_LOG_LEVEL=error\n"))

	eff, err := Load(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.LogLevel != "debug" {
		t.Fatalf(".env 不应覆盖已存在的环境变量：%q", eff.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":         `[session`,
		"duration":       "[session]\ndeadline = \"soon\"",
		"threshold":      "[match]\nthreshold = 120",
		"proxy":          "[http]\nproxy_url = \"127.0.0.1\"",
		"log level":      "[logging]\nlevel = \"loud\"",
		"unknown coll":   "[collectors.nope]\npriority = 1",
		"base url":       "[collectors.javdb]\nbase_url = \"ftp://x\"",
		"unknown cat":    "[categories.vr]\nmode = \"fanout\"",
		"unknown field":  "[categories.fc2]\nrequired = [\"smell\"]",
		"bad mode":       "[categories.fc2]\nmode = \"random\"",
		"dup priority":   "[collectors.javdb]\npriority = 30",
		"rule unknown c": "[categories.fc2]\ncollectors = [\"nope\"]",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			cwd := t.TempDir()
			writeFile(t, filepath.Join(cwd, FileName), []byte(body))
			_, err := Load(cwd, CLIArgs{})
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestLoad_ExplicitEnvFileMissing(t *testing.T) {
	clearEnv(t)
	_, err := Load(t.TempDir(), CLIArgs{EnvFile: "prod.env"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v", ErrCodeNotFound, err)
	}
}

// clearEnv 移除相关环境变量，并在测试结束后恢复。
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvProxyURL, EnvJavDBBaseURL, EnvLogLevel, EnvCacheDir} {
		t.Setenv(k, "")
		if err := os.Unsetenv(k); err != nil {
			t.Fatalf("unsetenv %s：%v", k, err)
		}
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
