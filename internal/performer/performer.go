// Package performer 处理演员名：从记录里挑名字、清洗成可搜索的罗马字名、生成安全的文件/目录名。
package performer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/avscrape/internal/domain"
)

// 需要整体剔除的字符区段：平假名、片假名、CJK 统一表意文字、全角字符。
var japaneseRanges = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3040, Hi: 0x309F, Stride: 1},
		{Lo: 0x30A0, Hi: 0x30FF, Stride: 1},
		{Lo: 0x4E00, Hi: 0x9FAF, Stride: 1},
		{Lo: 0xFF00, Hi: 0xFFEF, Stride: 1},
	},
}

var (
	parenRE   = regexp.MustCompile(`\s*\([^)]*\)`)
	spaceRE   = regexp.MustCompile(`[\s\p{Zs}]+`)
	symbolRE  = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Zs}\-.]`)
	unsafeFSR = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// Clean 把演员名清洗成只含罗马字部分的形式，例如 "Yui Hatano 波多野結衣" -> "Yui Hatano"。
//
// 步骤依次为：剔除日文/全角区段、去掉括号及其内容、合并空白、去掉其余符号、再合并空白。
func Clean(name string) string {
	if name == "" {
		return ""
	}
	s, _, err := transform.String(runes.Remove(runes.In(japaneseRanges)), name)
	if err != nil {
		s = name
	}
	s = parenRE.ReplaceAllString(s, "")
	s = strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
	s = symbolRE.ReplaceAllString(s, "")
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

// Pick 按固定优先级取演员名：整包 actress -> 整包 actresses -> 平铺 Actress。
// 返回第一个逗号分段（只去空白，不做 Clean）。
func Pick(detailed *domain.DetailedMeta, details map[string]string) string {
	var candidates []string
	if detailed != nil {
		candidates = append(candidates, detailed.Actress, detailed.Actresses)
	}
	if details != nil {
		candidates = append(candidates, details[domain.KeyActress])
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		return First(c)
	}
	return ""
}

// First 返回逗号分隔列表的第一段。
func First(list string) string {
	first, _, _ := strings.Cut(list, ",")
	return strings.TrimSpace(first)
}

// Split 按逗号拆分并去掉空段。
func Split(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SafeFolderName 去掉文件系统不允许的字符；结果可能为空。
func SafeFolderName(name string) string {
	name = norm.NFKC.String(name)
	return strings.TrimSpace(unsafeFSR.ReplaceAllString(name, ""))
}

// PortraitFileName 返回演员头像文件名：安全名 + 空格换成下划线 + "_portrait.jpg"。
func PortraitFileName(name string) string {
	safe := SafeFolderName(name)
	if safe == "" {
		return ""
	}
	return strings.ReplaceAll(safe, " ", "_") + "_portrait.jpg"
}

// SearchSlug 把名字转成 URL 查询里用的形式（空格换成 '+'）。
func SearchSlug(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "+")
}
