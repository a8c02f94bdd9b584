package app

import (
	"errors"

	"github.com/John-Robertt/avscrape/internal/code"
	"github.com/John-Robertt/avscrape/internal/domain"
)

// ResolveTargets 从扫描结果中提取 CODE，生成处理目标。
//
// - targets 保持扫描顺序（按 RelPath 字典序）
// - 同一 CODE 的多个文件各自成为一个目标
// - 无法提取 CODE 的文件记为 skipped 结果，不参与处理
func ResolveTargets(files []domain.VideoFile) (targets []domain.Target, skipped []domain.FileResult, err error) {
	targets = make([]domain.Target, 0, len(files))
	for _, f := range files {
		c, e := code.Extract(f)
		if e != nil {
			var ue *code.UnmatchedError
			if errors.As(e, &ue) {
				skipped = append(skipped, domain.FileResult{
					Path:   f.AbsPath,
					Status: domain.StatusSkipped,
					Error:  domain.ErrCodeUnmatchedCode,
				})
				continue
			}
			return nil, nil, e
		}
		targets = append(targets, domain.Target{File: f, Code: c})
	}
	return targets, skipped, nil
}
