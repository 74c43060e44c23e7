package match

import (
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/logging"
)

// Query 是消歧的输入。Date 为已知的目标发行日期（ISO，可为空）。
type Query struct {
	Title string
	Date  string
}

// Strategy 是消歧的一步。found=true 表示已得出结论（结果可以为空），后续策略不再执行。
type Strategy struct {
	Name  string
	Apply func(s *Scorer, q Query, cands []domain.Record) ([]domain.Record, bool)
}

// Strategies 返回按顺序尝试的消歧策略。
func (s *Scorer) Strategies() []Strategy {
	return []Strategy{
		{Name: "empty", Apply: noCandidates},
		{Name: "date_query", Apply: byDateQuery},
		{Name: "single", Apply: singleCandidate},
		{Name: "exact_title", Apply: exactTitles},
		{Name: "best_fuzzy", Apply: bestFuzzy},
	}
}

// Select 依次尝试 Strategies，返回第一个得出结论的策略的结果与其名称。
// 返回空切片表示“没有足够把握的匹配”，不会猜测。
func (s *Scorer) Select(q Query, cands []domain.Record) ([]domain.Record, string) {
	for _, st := range s.Strategies() {
		if out, found := st.Apply(s, q, cands); found {
			s.log().Debug("candidate selection",
				logging.String("strategy", st.Name),
				logging.String("query", q.Title),
				logging.Int("candidates", len(cands)),
				logging.Int("selected", len(out)))
			return out, st.Name
		}
	}
	return nil, ""
}

func noCandidates(_ *Scorer, _ Query, cands []domain.Record) ([]domain.Record, bool) {
	return nil, len(cands) == 0
}

// byDateQuery：日期形状的查询跳过打分，返回同一日期的全部候选。
func byDateQuery(_ *Scorer, q Query, cands []domain.Record) ([]domain.Record, bool) {
	date, ok := ParseDateQuery(q.Title)
	if !ok {
		return nil, false
	}
	var out []domain.Record
	for _, c := range cands {
		if sameDate(date, c.ReleaseDate) {
			out = append(out, c)
		}
	}
	return out, true
}

func singleCandidate(_ *Scorer, _ Query, cands []domain.Record) ([]domain.Record, bool) {
	if len(cands) == 1 {
		return []domain.Record{cands[0]}, true
	}
	return nil, false
}

// exactTitles：存在精确匹配时返回全部精确匹配，丢弃其余候选。
func exactTitles(s *Scorer, q Query, cands []domain.Record) ([]domain.Record, bool) {
	var out []domain.Record
	for _, c := range cands {
		if s.Score(q.Title, c.Title).Exact {
			out = append(out, c)
		}
	}
	return out, len(out) > 0
}

// bestFuzzy：取最高分；低于阈值时返回空结果（已得出“无把握”的结论）。
func bestFuzzy(s *Scorer, q Query, cands []domain.Record) ([]domain.Record, bool) {
	best := -1
	var bestScore Score
	for i, c := range cands {
		sc := s.ScoreDated(q.Title, c.Title, q.Date, c.ReleaseDate)
		s.log().Debug("candidate score",
			logging.String("title", c.Title),
			logging.String("id", c.ID),
			logging.Float64("score", sc.Value),
			logging.Bool("penalized", sc.Penalized),
			logging.Bool("date_matched", sc.DateMatched))
		if best < 0 || sc.Better(bestScore) {
			best, bestScore = i, sc
		}
	}
	if best < 0 || bestScore.Value < s.Threshold {
		return nil, true
	}
	return []domain.Record{cands[best]}, true
}
