package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/nfo"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/resolver"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
)

const (
	formatJSON  = "json"
	formatTable = "table"
	formatNFO   = "nfo"
)

// outcomeView 是 json 输出的稳定结构（不直接暴露内部类型）。
type outcomeView struct {
	Query       string             `json:"query"`
	Category    domain.Category    `json:"category"`
	ID          string             `json:"id,omitempty"`
	Strategy    string             `json:"strategy"`
	Record      *domain.Record     `json:"record,omitempty"`
	Results     *domain.ResultSet  `json:"results,omitempty"`
	Notice      *errorView         `json:"notice,omitempty"`
	Diagnostics *scrapeerr.Summary `json:"diagnostics,omitempty"`
	SessionIDs  []string           `json:"session_ids"`
}

type notFoundView struct {
	Query    string            `json:"query"`
	Category domain.Category   `json:"category"`
	Error    string            `json:"error"`
	Summary  scrapeerr.Summary `json:"summary"`
}

type errorView struct {
	Category    scrapeerr.Category `json:"category"`
	Source      string             `json:"source"`
	Code        string             `json:"code,omitempty"`
	Messages    []string           `json:"messages"`
	Suggestions []string           `json:"suggestions,omitempty"`
}

func newErrorView(e *scrapeerr.StructuredError) *errorView {
	if e == nil {
		return nil
	}
	return &errorView{Category: e.Category, Source: e.Source, Code: e.Code, Messages: e.Messages, Suggestions: e.Suggestions}
}

var errNFOMultiple = errors.New("nfo 格式只支持单条记录（请改用 --format json 或 table）")

func writeOutcome(w io.Writer, format string, out resolver.Outcome) error {
	switch format {
	case formatTable:
		return writeOutcomeTable(w, out)
	case formatNFO:
		if out.Record == nil {
			return &exitError{code: 2, msg: errNFOMultiple.Error()}
		}
		b, err := nfo.Encode(*out.Record)
		if err != nil {
			return err
		}
		_, err = w.Write(append(b, '\n'))
		return err
	default:
		sessions := out.SessionIDs
		if sessions == nil {
			sessions = []string{}
		}
		return writeJSON(w, outcomeView{
			Query:       out.Query,
			Category:    out.ID.Category,
			ID:          out.ID.PrimaryID,
			Strategy:    out.Strategy,
			Record:      out.Record,
			Results:     out.Results,
			Notice:      newErrorView(out.Notice),
			Diagnostics: out.Diagnostics,
			SessionIDs:  sessions,
		})
	}
}

func writeNotFound(w io.Writer, format string, nf *resolver.NotFoundError) error {
	if format != formatJSON {
		fmt.Fprintf(w, "未找到：%s\n", nf.Query)
		writeSummary(w, nf.Summary)
		return nil
	}
	return writeJSON(w, notFoundView{
		Query:    nf.Query,
		Category: nf.ID.Category,
		Error:    "not_found",
		Summary:  nf.Summary,
	})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeOutcomeTable(w io.Writer, out resolver.Outcome) error {
	switch {
	case out.Record != nil:
		fmt.Fprintln(w, renderRecord(*out.Record))
	case out.Results != nil:
		fmt.Fprintln(w, renderResults(*out.Results))
		rs := out.Results
		fmt.Fprintf(w, "第 %d/%d 页，共 %d 条\n", rs.Page, rs.TotalPages, rs.Total)
	}
	if out.Notice != nil && len(out.Notice.Messages) > 0 {
		fmt.Fprintf(w, "提示：%s\n", strings.Join(out.Notice.Messages, " / "))
	}
	if out.Diagnostics != nil {
		writeSummary(w, *out.Diagnostics)
	}
	return nil
}

func writeSummary(w io.Writer, s scrapeerr.Summary) {
	if s.Total == 0 {
		return
	}
	fmt.Fprintf(w, "失败的数据源：%s\n", strings.Join(s.FailedSources, ", "))
	if s.Message != "" {
		fmt.Fprintln(w, s.Message)
	}
	for _, sg := range s.Suggestions {
		fmt.Fprintf(w, "  - %s\n", sg)
	}
}

// renderRecord 以“字段 | 值”两列展示单条记录，空字段不输出。
func renderRecord(r domain.Record) string {
	rows := [][]string{
		{"ID", r.ID},
		{"标题", r.Title},
		{"原标题", r.OriginalTitle},
		{"发行日期", r.ReleaseDate},
		{"片商", r.Studio},
		{"系列", r.Series},
		{"导演", r.Director},
		{"时长", intOrEmpty(r.Runtime, "分钟")},
		{"评分", floatOrEmpty(r.Rating)},
		{"演员", strings.Join(r.Actors, ", ")},
		{"类别", strings.Join(r.Genres, ", ")},
		{"打码", mosaicLabel(r.Mosaic)},
		{"封面", r.PosterURL},
		{"页面", r.Website},
		{"来源", r.Source},
	}
	var kept [][]string
	for _, row := range rows {
		if strings.TrimSpace(row[1]) != "" {
			kept = append(kept, row)
		}
	}
	return renderTable([]string{"字段", "值"}, kept, nil)
}

func renderResults(rs domain.ResultSet) string {
	rows := make([][]string, 0, len(rs.Items))
	for i, r := range rs.Items {
		rows = append(rows, []string{
			strconv.Itoa((rs.Page-1)*rs.PageSize + i + 1),
			r.ID,
			truncate(r.Title, 60),
			r.ReleaseDate,
			r.Studio,
			floatOrEmpty(r.Rating),
			r.Source,
		})
	}
	return renderTable(
		[]string{"#", "ID", "标题", "发行日期", "片商", "评分", "来源"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func intOrEmpty(n int, unit string) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n) + " " + unit
}

func floatOrEmpty(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func mosaicLabel(m *bool) string {
	switch {
	case m == nil:
		return ""
	case *m:
		return "有码"
	default:
		return "无码"
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
