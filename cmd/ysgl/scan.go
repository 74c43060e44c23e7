package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/export"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/httpx"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/library"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/logging"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/normalize"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/resolver"
)

const defaultScanJobs = 2

const (
	scanStatusOK        = "ok"
	scanStatusAmbiguous = "ambiguous"
	scanStatusNotFound  = "not_found"
	scanStatusError     = "error"
)

type scanFlags struct {
	exclude []string
	jobs    int
	format  string
	outDir  string
}

// scanItemView 是批量检索中一个标识的结果。
type scanItemView struct {
	ID        string   `json:"id"`
	Files     []string `json:"files"`
	Status    string   `json:"status"`
	Title     string   `json:"title,omitempty"`
	Source    string   `json:"source,omitempty"`
	Error     string   `json:"error,omitempty"`
	ExportDir string   `json:"export_dir,omitempty"`
}

type scanView struct {
	Root      string         `json:"root"`
	Items     []scanItemView `json:"items"`
	Unmatched []string       `json:"unmatched"`
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var f scanFlags

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "扫描本地目录，按文件名中的番号批量检索",
		Long: `扫描目录下的视频文件（永久跳过 out/ 与 cache/），从文件名识别番号并分组，
然后并发检索每个番号。识别不出番号的文件单独列出。
指定 --out 时把每条检索成功的记录导出为 <out>/<ID>/{<ID>.nfo,fanart.jpg,poster.jpg}。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, ctx, args[0], f)
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVar(&f.exclude, "exclude", nil, "额外跳过的子目录（相对扫描目录），可重复")
	fl.IntVarP(&f.jobs, "jobs", "j", defaultScanJobs, "同时检索的番号数")
	fl.StringVar(&f.format, "format", formatTable, "输出格式：table|json")
	fl.StringVar(&f.outDir, "out", "", "导出目录")
	return cmd
}

func runScan(cmd *cobra.Command, ctx *commandContext, root string, f scanFlags) error {
	if f.jobs < 1 {
		return &exitError{code: 2, msg: "参数错误：--jobs 必须 >= 1"}
	}
	if f.format != formatTable && f.format != formatJSON {
		return &exitError{code: 2, msg: fmt.Sprintf("参数错误：--format 只能是 table|json，实际是 %q", f.format)}
	}

	eff, err := ctx.ensureConfig(cmd)
	if err != nil {
		return configExit(err)
	}
	logger, err := ctx.ensureLogger(cmd, eff)
	if err != nil {
		return err
	}

	files, err := library.Scan(root, f.exclude)
	if err != nil {
		return &exitError{code: 1, msg: "扫描失败：" + err.Error()}
	}
	items, unmatched := library.Group(files, normalize.Default{})
	logger.Info("library scanned",
		logging.String("root", root),
		logging.Int("files", len(files)),
		logging.Int("items", len(items)),
		logging.Int("unmatched", len(unmatched)))

	view := scanView{Root: root, Items: make([]scanItemView, len(items)), Unmatched: make([]string, 0, len(unmatched))}
	for _, u := range unmatched {
		view.Unmatched = append(view.Unmatched, u.File.RelPath)
	}
	for i, it := range items {
		rels := make([]string, 0, len(it.Files))
		for _, vf := range it.Files {
			rels = append(rels, vf.RelPath)
		}
		view.Items[i] = scanItemView{ID: it.ID.PrimaryID, Files: rels}
	}

	if len(items) > 0 {
		cs, err := ctx.deps.collectors(eff, logger)
		if err != nil {
			return err
		}
		r, err := buildResolver(eff, cs, logger, nil)
		if err != nil {
			return err
		}
		var ex *export.Exporter
		if strings.TrimSpace(f.outDir) != "" {
			client, err := httpx.NewClient(eff.HTTP)
			if err != nil {
				return err
			}
			ex = &export.Exporter{Client: client, Logger: logger}
		}
		if err := resolveItems(cmd.Context(), r, ex, f, items, view.Items, logger); err != nil {
			return err
		}
	}

	if err := writeScan(cmd.OutOrStdout(), f.format, view); err != nil {
		return err
	}
	for _, it := range view.Items {
		if it.Status != scanStatusOK {
			return &exitError{code: 1}
		}
	}
	return nil
}

// resolveItems 并发检索每个标识，结果写入 views 的同一下标。
// 单个标识失败只记录状态；只有 ctx 取消才中断整批。
func resolveItems(ctx context.Context, r *resolver.Resolver, ex *export.Exporter, f scanFlags, items []library.Item, views []scanItemView, logger *slog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.jobs)
	for i := range items {
		it := items[i]
		v := &views[i]
		g.Go(func() error {
			out, err := r.Resolve(gctx, it.ID.PrimaryID, resolver.Options{CategoryHint: it.ID.Category, Mode: resolver.ReturnSingle})
			if err != nil {
				if cerr := gctx.Err(); cerr != nil {
					return cerr
				}
				var nf *resolver.NotFoundError
				if errors.As(err, &nf) {
					v.Status = scanStatusNotFound
					v.Error = nf.Summary.Message
					return nil
				}
				v.Status = scanStatusError
				v.Error = err.Error()
				return nil
			}
			if out.Record == nil {
				v.Status = scanStatusAmbiguous
				if out.Results != nil {
					v.Error = strconv.Itoa(out.Results.Total) + " 个候选"
				}
				return nil
			}
			v.Status = scanStatusOK
			v.Title = out.Record.Title
			v.Source = out.Record.Source
			if ex == nil {
				return nil
			}
			res, err := ex.Export(gctx, *out.Record, f.outDir)
			if err != nil {
				if cerr := gctx.Err(); cerr != nil {
					return cerr
				}
				logger.Warn("export failed",
					logging.String("id", it.ID.PrimaryID),
					logging.Error(err))
				v.Status = scanStatusError
				v.Error = "导出失败：" + err.Error()
				return nil
			}
			v.ExportDir = res.Dir
			return nil
		})
	}
	return g.Wait()
}

func writeScan(w io.Writer, format string, view scanView) error {
	if format == formatJSON {
		return writeJSON(w, view)
	}
	rows := make([][]string, 0, len(view.Items))
	for _, it := range view.Items {
		rows = append(rows, []string{
			it.ID,
			strconv.Itoa(len(it.Files)),
			it.Status,
			truncate(it.Title, 40),
			it.Source,
			truncate(it.Error, 40),
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"ID", "文件", "状态", "标题", "来源", "备注"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	))
	if len(view.Unmatched) > 0 {
		fmt.Fprintf(w, "未识别番号的文件（%d）：\n", len(view.Unmatched))
		for _, rel := range view.Unmatched {
			fmt.Fprintf(w, "  %s\n", rel)
		}
	}
	return nil
}
