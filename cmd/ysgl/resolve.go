package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/export"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/httpx"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/resolver"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/resultset"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/session"
)

type resolveFlags struct {
	category string
	mode     string
	date     string

	page     int
	pageSize int
	sortKey  string
	desc     bool
	dedupe   string

	actor    string
	genre    string
	studio   string
	keyword  string
	yearFrom int
	yearTo   int

	format string
	outDir string
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var f resolveFlags

	cmd := &cobra.Command{
		Use:   "resolve <query>",
		Short: "按番号或标题检索元数据",
		Long: `按番号（ABC-123、123456-789、FC2-PPV-1234567）或自由文本检索元数据。

番号查询会依次咨询配置的数据源并合并结果；自由文本查询会搜索并按标题相似度挑选候选。
输出格式：json（默认，stdout 仅输出一个 JSON）、table、nfo（仅单条记录）。`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, ctx, strings.Join(args, " "), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.category, "category", "", "强制分类：normal-numbered|uncensored-numbered|fc2|search")
	fl.StringVar(&f.mode, "mode", string(resolver.ReturnSingle), "返回模式：single|multiple")
	fl.StringVar(&f.date, "date", "", "已知发行日期（YYYY-MM-DD），用于候选打分")
	fl.IntVar(&f.page, "page", 1, "页码（multiple 模式）")
	fl.IntVar(&f.pageSize, "page-size", resultset.DefaultPageSize, "每页条数（multiple 模式）")
	fl.StringVar(&f.sortKey, "sort", "", "排序键："+strings.Join(resultset.SortKeys(), "|"))
	fl.BoolVar(&f.desc, "desc", false, "降序排序")
	fl.StringVar(&f.dedupe, "dedupe", string(resultset.DedupeByID), "去重键：id|title|id+title")
	fl.StringVar(&f.actor, "actor", "", "按演员过滤")
	fl.StringVar(&f.genre, "genre", "", "按类别过滤")
	fl.StringVar(&f.studio, "studio", "", "按片商过滤")
	fl.StringVar(&f.keyword, "keyword", "", "按标题关键词过滤")
	fl.IntVar(&f.yearFrom, "year-from", 0, "起始年份（含）")
	fl.IntVar(&f.yearTo, "year-to", 0, "结束年份（含）")
	fl.StringVar(&f.format, "format", formatJSON, "输出格式：json|table|nfo")
	fl.StringVar(&f.outDir, "out", "", "把单条记录导出到该目录：<out>/<ID>/{<ID>.nfo,fanart.jpg,poster.jpg}")
	return cmd
}

func (f resolveFlags) options() (resolver.Options, error) {
	mode, err := resolver.ParseReturnMode(f.mode)
	if err != nil {
		return resolver.Options{}, err
	}
	var hint domain.Category
	if strings.TrimSpace(f.category) != "" {
		c, ok := domain.ParseCategory(f.category)
		if !ok || c == domain.CategoryUnknown {
			return resolver.Options{}, fmt.Errorf("--category 无效：%q", f.category)
		}
		hint = c
	}
	if f.sortKey != "" && !slices.Contains(resultset.SortKeys(), f.sortKey) {
		return resolver.Options{}, fmt.Errorf("--sort 只能是 %s，实际是 %q", strings.Join(resultset.SortKeys(), "|"), f.sortKey)
	}
	switch dk := resultset.DedupeKey(f.dedupe); dk {
	case resultset.DedupeByID, resultset.DedupeByTitle, resultset.DedupeByIDTitle:
	default:
		return resolver.Options{}, fmt.Errorf("--dedupe 只能是 id|title|id+title，实际是 %q", f.dedupe)
	}
	switch f.format {
	case formatJSON, formatTable, formatNFO:
	default:
		return resolver.Options{}, fmt.Errorf("--format 只能是 json|table|nfo，实际是 %q", f.format)
	}
	return resolver.Options{
		CategoryHint: hint,
		Mode:         mode,
		Filter: resultset.FilterSpec{
			Actor:    f.actor,
			Genre:    f.genre,
			Studio:   f.studio,
			Keyword:  f.keyword,
			YearFrom: f.yearFrom,
			YearTo:   f.yearTo,
		},
		Sort:     resultset.SortSpec{Key: f.sortKey, Desc: f.desc},
		Dedupe:   resultset.DedupeKey(f.dedupe),
		Page:     f.page,
		PageSize: f.pageSize,
		Date:     strings.TrimSpace(f.date),
	}, nil
}

func runResolve(cmd *cobra.Command, ctx *commandContext, query string, f resolveFlags) error {
	opts, err := f.options()
	if err != nil {
		return &exitError{code: 2, msg: "参数错误：" + err.Error()}
	}

	eff, err := ctx.ensureConfig(cmd)
	if err != nil {
		return configExit(err)
	}
	logger, err := ctx.ensureLogger(cmd, eff)
	if err != nil {
		return err
	}

	cs, err := ctx.deps.collectors(eff, logger)
	if err != nil {
		return err
	}

	var obs session.Observer
	if ctx.deps.isTerminal(cmd.ErrOrStderr()) {
		obs = newProgressUI(cmd.ErrOrStderr())
	}
	r, err := buildResolver(eff, cs, logger, obs)
	if err != nil {
		return err
	}

	out, err := r.Resolve(cmd.Context(), query, opts)
	if err != nil {
		var nf *resolver.NotFoundError
		if errors.As(err, &nf) {
			if werr := writeNotFound(cmd.OutOrStdout(), f.format, nf); werr != nil {
				return werr
			}
			return &exitError{code: 1}
		}
		return err
	}
	if err := writeOutcome(cmd.OutOrStdout(), f.format, out); err != nil {
		return err
	}
	if strings.TrimSpace(f.outDir) == "" {
		return nil
	}
	if out.Record == nil {
		return &exitError{code: 2, msg: "--out 只支持单条记录"}
	}
	client, err := httpx.NewClient(eff.HTTP)
	if err != nil {
		return err
	}
	ex := &export.Exporter{Client: client, Logger: logger}
	res, err := ex.Export(cmd.Context(), *out.Record, f.outDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "导出：%s 写入=%s 已存在=%s\n", res.Dir, strings.Join(res.Written, ","), strings.Join(res.Existing, ","))
	return nil
}
