package provider

import (
	"strings"

	"github.com/John-Robertt/avscrape/internal/domain"
)

// Merge 把被采纳的记录（按采纳顺序）合并为一条记录。
//
// - 标题/封面：第一个非空值
// - Details：按 key 覆盖，后者优先
// - Detailed：最后一个非空整包整体替换，不做字段级合并
func Merge(code domain.Code, records []domain.SourceRecord) domain.MergedRecord {
	m := domain.MergedRecord{
		Code:     code,
		Accepted: append([]domain.SourceRecord(nil), records...),
		Details:  map[string]string{},
	}
	for _, r := range records {
		if m.BestTitle == "" {
			m.BestTitle = strings.TrimSpace(r.Title)
		}
		if m.BestCover == "" {
			m.BestCover = strings.TrimSpace(r.CoverURL)
		}
		for k, v := range r.Details {
			m.Details[k] = v
		}
		if !r.Detailed.Empty() {
			m.Detailed = r.Detailed.Clone()
		}
	}
	return m
}
