package domain

import "encoding/json"

// ResultSet 是多结果模式的对外输出：有序记录 + 分页游标。
type ResultSet struct {
	Items []Record `json:"items"`

	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// MarshalJSON 保证 items 永远输出为数组（而不是 null），调用方不必判空。
func (r ResultSet) MarshalJSON() ([]byte, error) {
	type Alias ResultSet
	if r.Items == nil {
		r.Items = []Record{}
	}
	return json.Marshal(Alias(r))
}
