package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/config"
)

// newCollectorsCommand 展示生效配置下的数据源与分类规则（便于排查“为什么没有查这个站点”）。
func newCollectorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "collectors",
		Short: "列出数据源与分类规则",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := ctx.ensureConfig(cmd)
			if err != nil {
				return configExit(err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, renderCollectors(eff))
			fmt.Fprintln(w, renderRules(eff))
			return nil
		},
	}
}

func renderCollectors(eff config.Effective) string {
	names := make([]string, 0, len(eff.Collectors))
	for n := range eff.Collectors {
		names = append(names, n)
	}
	// 按优先级展示，与咨询顺序一致。
	sort.Slice(names, func(i, j int) bool { return eff.Table.Priority(names[i]) < eff.Table.Priority(names[j]) })

	rows := make([][]string, 0, len(names))
	for _, n := range names {
		s := eff.Collectors[n]
		d, _ := eff.Table.Descriptor(n)
		rows = append(rows, []string{
			n,
			strconv.Itoa(d.Priority),
			yesNo(d.Watermarked),
			yesNo(s.Enabled),
			s.BaseURL,
			intervalLabel(s.Interval),
		})
	}
	return renderTable(
		[]string{"collector", "priority", "watermark", "enabled", "base_url", "interval"},
		rows,
		[]columnAlignment{alignLeft, alignRight},
	)
}

func renderRules(eff config.Effective) string {
	var rows [][]string
	for _, cat := range eff.Table.Categories() {
		rule, _ := eff.Table.Rule(cat)
		entries := make([]string, 0, len(rule.Entries))
		for _, e := range rule.Entries {
			entries = append(entries, e.Collector+":"+string(e.Param))
		}
		required := make([]string, 0, len(rule.Required))
		for _, f := range rule.Required {
			required = append(required, string(f))
		}
		rows = append(rows, []string{string(cat), string(rule.Mode), strings.Join(entries, " -> "), strings.Join(required, ",")})
	}
	return renderTable([]string{"category", "mode", "collectors", "required"}, rows, nil)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func intervalLabel(d time.Duration) string {
	if d == 0 {
		return "default"
	}
	return d.String()
}
