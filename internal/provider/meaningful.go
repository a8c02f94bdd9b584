package provider

import (
	"strings"

	"github.com/John-Robertt/avscrape/internal/domain"
)

// Meaningful 判断一条来源记录是否携带了真实信息。
//
// 满足任一条件即可：
// - 标题非空且不是占位标题
// - 封面 URL 非空
// - 演员/片商字段非空且不是 "Unknown"（平铺字段与整包字段都检查）
func Meaningful(code domain.Code, r domain.SourceRecord) bool {
	if !domain.IsPlaceholderTitle(code, r.Title) {
		return true
	}
	if strings.TrimSpace(r.CoverURL) != "" {
		return true
	}
	for _, k := range []string{domain.KeyActress, domain.KeyActor, domain.KeyStudio} {
		if informative(r.Detail(k)) {
			return true
		}
	}
	if d := r.Detailed; d != nil {
		for _, v := range []string{d.Actress, d.Actresses, d.Studio} {
			if informative(v) {
				return true
			}
		}
	}
	return false
}

func informative(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, domain.UnknownValue)
}
