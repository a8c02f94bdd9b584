package domain

import (
	"regexp"
	"strings"
)

// Code 是作品的唯一主键（规范化后形如 ABC-1234）。
//
// 约束：前缀 2~5 个大写字母，数字段 2~5 位；一旦提取不再修改。
type Code string

var codeRE = regexp.MustCompile(`^[A-Z]{2,5}-[0-9]{2,5}$`)

// ParseCode 校验并解析规范化后的 CODE 字符串。
// 输入必须已经是大写 + '-' 分隔的形态。
func ParseCode(s string) (Code, bool) {
	s = strings.TrimSpace(s)
	if !codeRE.MatchString(s) {
		return "", false
	}
	return Code(s), true
}

// PlaceholderTitle 是"没有真实标题"时各处统一使用的占位标题。
func PlaceholderTitle(code Code) string {
	return string(code) + " - JAV Content"
}

// IsPlaceholderTitle 判断 title 是否只是占位内容（空、None、CODE 本身、占位标题、站点名）。
func IsPlaceholderTitle(code Code, title string) bool {
	t := strings.TrimSpace(title)
	if t == "" {
		return true
	}
	switch strings.ToLower(t) {
	case "none", "jav most":
		return true
	}
	if code == "" {
		return false
	}
	return strings.EqualFold(t, string(code)) || strings.EqualFold(t, PlaceholderTitle(code))
}
