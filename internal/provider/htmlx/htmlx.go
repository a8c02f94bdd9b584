// Package htmlx 是各站点 adapter 共用的 HTML/URL 小工具。
package htmlx

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Parse 把 HTML 字节解析为 goquery 文档。
func Parse(html []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(html))
}

// NormSpace 合并连续空白并去掉首尾空白。
func NormSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// NormHeader 规范化"标签: 值"中的标签部分（去掉尾部冒号）。
func NormHeader(s string) string {
	s = NormSpace(s)
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSuffix(s, "：")
	return strings.TrimSpace(s)
}

// FieldName 把标签转换为字段名：小写，去冒号，空格与 '-' 换成 '_'。
func FieldName(label string) string {
	s := strings.ToLower(NormHeader(label))
	s = strings.ReplaceAll(s, ":", "")
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// NormList 去空白、去空串、去重（保持首次出现的顺序）。
func NormList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Texts 收集选择结果中每个节点的规范化文本。
func Texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, NormSpace(s.Text()))
	})
	return NormList(out)
}

// ResolveURL 以 base 为基准把 href 变成绝对 URL；协议相对地址补 https。
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

// StripQuery 去掉 URL 的查询串与片段。
func StripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// FirstInt 提取字符串中第一段连续数字，例如 "155分鐘" -> 155。
func FirstInt(s string) int {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			break
		}
	}
	if b.Len() == 0 {
		return 0
	}
	n, _ := strconv.Atoi(b.String())
	return n
}

// FirstSubmatch 依次尝试 patterns，返回第一个命中的第 1 个分组。
func FirstSubmatch(s string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// Attr 返回第一个非空属性值（按 names 顺序）。
func Attr(sel *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := sel.Attr(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// ContainsFold 忽略大小写的子串判断。
func ContainsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
