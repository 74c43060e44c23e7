package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/config"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/logging"
)

// globalFlags 是所有子命令共享的配置入口。
type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
	proxyURL   string
}

// commandContext 在子命令之间共享配置与依赖；配置只加载一次。
type commandContext struct {
	flags globalFlags
	deps  deps

	eff    *config.Effective
	logger *slog.Logger
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (config.Effective, error) {
	if c.eff != nil {
		return *c.eff, nil
	}
	cwd, err := c.deps.getwd()
	if err != nil {
		return config.Effective{}, err
	}
	eff, err := config.Load(cwd, config.CLIArgs{
		ConfigPath:  c.flags.configPath,
		EnvFile:     c.flags.envFile,
		LogLevel:    c.flags.logLevel,
		LogLevelSet: cmd.Flags().Changed("log-level"),
		ProxyURL:    c.flags.proxyURL,
		ProxySet:    cmd.Flags().Changed("proxy"),
	})
	if err != nil {
		return config.Effective{}, err
	}
	c.eff = &eff
	return eff, nil
}

// configExit 把配置错误映射为退出码 1，并在消息末尾带上错误码。
func configExit(err error) error {
	if code := config.Code(err); code != "" {
		return &exitError{code: 1, msg: fmt.Sprintf("%s（%s）", err.Error(), code)}
	}
	return err
}

func (c *commandContext) ensureLogger(cmd *cobra.Command, eff config.Effective) (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	var w io.Writer = cmd.ErrOrStderr()
	logger, err := logging.New(logging.Options{Level: eff.LogLevel, Format: eff.LogFormat, Writer: w})
	if err != nil {
		return nil, err
	}
	c.logger = logger
	return logger, nil
}

func newRootCommand(d deps) *cobra.Command {
	ctx := &commandContext{deps: d}

	rootCmd := &cobra.Command{
		Use:           "ysgl",
		Short:         "多数据源影片元数据检索",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.flags.configPath, "config", "c", "", "配置文件路径（默认读取 ./"+config.FileName+"）")
	pf.StringVar(&ctx.flags.envFile, "env-file", "", "环境变量文件（默认读取 ./"+config.EnvFileName+"）")
	pf.StringVar(&ctx.flags.logLevel, "log-level", "", "日志级别：debug|info|warn|error")
	pf.StringVar(&ctx.flags.proxyURL, "proxy", "", "HTTP 代理地址，例如 http://127.0.0.1:7890")

	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newScanCommand(ctx))
	rootCmd.AddCommand(newCollectorsCommand(ctx))
	return rootCmd
}

// deps 是 CLI 的外部依赖；测试替换为假实现。
type deps struct {
	getwd      func() (string, error)
	collectors collectorFactory
	// isTerminal 判断 stderr 是否为交互终端（决定是否输出进度）。
	isTerminal func(w io.Writer) bool
}

func defaultDeps() deps {
	return deps{
		getwd:      os.Getwd,
		collectors: buildCollectors,
		isTerminal: isTerminal,
	}
}
