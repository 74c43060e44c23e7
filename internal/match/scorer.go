// Package match 为自由文本查询的候选结果打分并做消歧。
//
// 精确匹配（规范化后相等）得 100 分且无条件排在任何模糊匹配之前；
// 模糊分数落在 [0,100]，排除关键词只做软惩罚，已知目标日期时日期相同会大幅加分。
package match

import (
	"log/slog"
	"strings"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/logging"
)

const (
	DefaultThreshold = 10.0

	exactScore     = 100.0
	excludePenalty = 0.5
	dateBoost      = 100.0
)

// DefaultExcludeKeywords 是常见的“非正片”标记。
var DefaultExcludeKeywords = []string{"behind the scenes", "making", "trailer", "特典", "メイキング"}

// Score 是一次打分的结果。比较时 Exact 优先，其次 Value。
type Score struct {
	Value       float64
	Exact       bool
	Penalized   bool
	DateMatched bool
}

// Better 报告 s 是否排在 o 之前。
func (s Score) Better(o Score) bool {
	if s.Exact != o.Exact {
		return s.Exact
	}
	return s.Value > o.Value
}

type Scorer struct {
	Threshold       float64
	ExcludeKeywords []string
	Logger          *slog.Logger

	exclude []string
}

// NewScorer 构造打分器。threshold<=0 时使用 DefaultThreshold；exclude 为 nil 时使用默认关键词。
func NewScorer(threshold float64, exclude []string, logger *slog.Logger) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if exclude == nil {
		exclude = DefaultExcludeKeywords
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scorer{Threshold: threshold, ExcludeKeywords: exclude, Logger: logger}
	for _, k := range exclude {
		if n := Normalize(k); n != "" {
			s.exclude = append(s.exclude, n)
		}
	}
	return s
}

// Score 为 (query, candidate) 打分。
func (s *Scorer) Score(query, candidate string) Score {
	return s.ScoreDated(query, candidate, "", "")
}

// ScoreDated 同 Score；targetDate 与 candidateDate 都非空且相同时加分（只作用于模糊匹配）。
func (s *Scorer) ScoreDated(query, candidate, targetDate, candidateDate string) Score {
	q, c := Normalize(query), Normalize(candidate)
	if q == "" || c == "" {
		return Score{}
	}
	if q == c {
		return Score{Value: exactScore, Exact: true, DateMatched: targetDate != "" && sameDate(targetDate, candidateDate)}
	}

	out := Score{Value: similarity(q, c)}
	for _, k := range s.exclude {
		// 用户自己搜索的关键词不惩罚。
		if containsWord(c, k) && !containsWord(q, k) {
			out.Value *= excludePenalty
			out.Penalized = true
			break
		}
	}
	if targetDate != "" && sameDate(targetDate, candidateDate) {
		out.Value += dateBoost
		out.DateMatched = true
	}
	return out
}

func containsWord(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ") || (!isASCII(needle) && strings.Contains(haystack, needle))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func (s *Scorer) log() *slog.Logger {
	if s.Logger == nil {
		return logging.NewNop()
	}
	return s.Logger
}
