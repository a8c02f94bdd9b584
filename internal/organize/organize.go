// Package organize 决定每个视频的输出目录，并把视频移动到整理后的位置。
//
// 目录结构：<root>/videos/<演员>/<CODE>/<CODE><ext>。
package organize

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/infra/fsx"
	"github.com/John-Robertt/avscrape/internal/performer"
)

const (
	VideosDir        = "videos"
	UnknownPerformer = "UNKNOWN"
)

// Outcome 是一次移动的结果，取值与 FileResult.Move 一致。
type Outcome = string

// Plan 计算输出位置（不做任何写入）。
//
// organize=false 时输出目录就是视频所在目录，不移动。
// performerName 使用原始名字（不做罗马字清洗），只去掉文件系统非法字符。
func Plan(root string, code domain.Code, performerName, videoPath string, organize bool) domain.OutputPlan {
	videoPath = filepath.Clean(videoPath)
	if !organize {
		return domain.OutputPlan{Dir: filepath.Dir(videoPath)}
	}

	name := performer.SafeFolderName(performerName)
	if name == "" {
		name = UnknownPerformer
	}
	dir := filepath.Join(filepath.Clean(root), VideosDir, name, string(code))
	return domain.OutputPlan{
		Dir:       dir,
		Performer: name,
		Move: &domain.MovePlan{
			SrcAbs: videoPath,
			DstAbs: filepath.Join(dir, string(code)+filepath.Ext(videoPath)),
		},
	}
}

// MoveVideo 执行 Plan 中的移动。
//
// 目标已存在时不覆盖，返回 move_skipped；源文件不存在返回 source_missing；两者都不算错误。
// 跨盘移动返回 *fsx.CrossDeviceError。
func MoveVideo(p domain.OutputPlan) (Outcome, error) {
	if p.Move == nil {
		return domain.MoveNone, nil
	}
	if p.Move.SrcAbs == p.Move.DstAbs {
		return domain.MoveSkipped, nil
	}
	err := fsx.MoveNoOverwrite(p.Move.SrcAbs, p.Move.DstAbs)
	switch {
	case err == nil:
		return domain.MoveMoved, nil
	case errors.Is(err, os.ErrExist):
		return domain.MoveSkipped, nil
	case errors.Is(err, os.ErrNotExist):
		return domain.MoveSourceMissing, nil
	default:
		return "", err
	}
}

// ReadState 读取输出目录的现状（只做 ReadDir，不读文件内容）。
// 目录不存在时返回空状态且不报错。
func ReadState(dir string) (domain.OutState, error) {
	st := domain.OutState{
		Dir:           dir,
		ExistingNames: map[string]struct{}{},
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return domain.OutState{}, err
	}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		st.ExistingNames[e.Name()] = struct{}{}
	}

	st.HasNFO = st.Has(domain.NFOName)
	st.HasPoster = st.Has(domain.PosterName)
	st.HasFanart = st.Has(domain.FanartName)
	return st, nil
}
