package code

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/avscrape/internal/domain"
)

// 允许的 CODE 变体：PREFIX-NUMBER / PREFIX_NUMBER / PREFIX NUMBER / PREFIXNUMBER。
// 字母段前、数字段后必须是边界，避免从更长的字母/数字串中间截出 CODE。
var candidateRE = regexp.MustCompile(`(?i)(?:^|[^a-z])([a-z]{2,5})[-_\s]?([0-9]{2,5})(?:[^0-9]|$)`)

type UnmatchedError struct {
	// Kind 目前只有 "no_match"。
	Kind string
	Name string
}

func (e *UnmatchedError) Error() string {
	if e.Kind == "no_match" {
		return "无法从文件名解析出 CODE：" + e.Name
	}
	return "unmatched"
}

// Extract 从 VideoFile 的文件名（不含扩展名）中提取 CODE。
// 只看文件名本身，不看父目录；多个候选时取第一个。
func Extract(v domain.VideoFile) (domain.Code, error) {
	base := v.Base
	if base == "" {
		name := filepath.Base(v.AbsPath)
		base = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return FromName(base)
}

// FromName 对一个不含扩展名的文件名做提取。
func FromName(name string) (domain.Code, error) {
	s := strings.TrimSpace(name)
	m := candidateRE.FindStringSubmatch(s)
	if len(m) < 3 {
		return "", &UnmatchedError{Kind: "no_match", Name: name}
	}
	c, ok := domain.ParseCode(strings.ToUpper(m[1]) + "-" + m[2])
	if !ok {
		return "", &UnmatchedError{Kind: "no_match", Name: name}
	}
	return c, nil
}

// FromFilename 先去掉扩展名再提取。
func FromFilename(filename string) (domain.Code, error) {
	base := filepath.Base(filename)
	return FromName(strings.TrimSuffix(base, filepath.Ext(base)))
}
