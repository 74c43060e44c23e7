package normalize

import (
	"testing"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
)

func TestDefault_Classify(t *testing.T) {
	cases := []struct {
		raw     string
		primary string
		alt     string
		cat     domain.Category
	}{
		{"ABC-123", "ABC-123", "abc00123", domain.CategoryNormal},
		{"cawd_895", "CAWD-895", "cawd00895", domain.CategoryNormal},
		{"ssis 001", "SSIS-001", "ssis00001", domain.CategoryNormal},
		{"ABC-123-C", "ABC-123", "abc00123", domain.CategoryNormal},
		{"FC2-PPV-1234567", "FC2-PPV-1234567", "1234567", domain.CategoryFC2},
		{"fc2ppv 1234567", "FC2-PPV-1234567", "1234567", domain.CategoryFC2},
		{"HEYZO-0123", "HEYZO-0123", "", domain.CategoryUncensored},
		{"010123_001", "010123-001", "010123_001", domain.CategoryUncensored},
		{"a long free text title", "a long free text title", "", domain.CategorySearch},
		{"   ", "", "", domain.CategoryUnknown},
	}
	for _, c := range cases {
		got := Default{}.Classify(c.raw)
		if got.PrimaryID != c.primary || got.AlternateID != c.alt || got.Category != c.cat {
			t.Fatalf("Classify(%q) = %+v，期望 primary=%q alt=%q cat=%s", c.raw, got, c.primary, c.alt, c.cat)
		}
		if got.Raw != c.raw {
			t.Fatalf("Raw 应保留原始输入：%q", got.Raw)
		}
	}
}

func TestDefault_SentenceWithCodeIsSearch(t *testing.T) {
	got := Default{}.Classify("best scenes of ABC-123 and more")
	if got.Category != domain.CategorySearch {
		t.Fatalf("包含番号片段的长句应按搜索处理，实际 %+v", got)
	}
}

func TestDefault_Deterministic(t *testing.T) {
	a := Default{}.Classify("ipx-177")
	b := Default{}.Classify("ipx-177")
	if a != b {
		t.Fatalf("相同输入应得到相同结果：%+v vs %+v", a, b)
	}
}
