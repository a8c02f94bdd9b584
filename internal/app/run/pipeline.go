package run

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/John-Robertt/avscrape/internal/artwork"
	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/infra/dump"
	"github.com/John-Robertt/avscrape/internal/infra/fsx"
	"github.com/John-Robertt/avscrape/internal/logging"
	"github.com/John-Robertt/avscrape/internal/nfo"
	"github.com/John-Robertt/avscrape/internal/organize"
	"github.com/John-Robertt/avscrape/internal/performer"
	"github.com/John-Robertt/avscrape/internal/provider"
)

// Settings 是每次 run 可调整的开关（HTTP 请求体与 CLI 参数都映射到这里）。
type Settings struct {
	CreateNFO     bool `json:"create_nfo"`
	DownloadCover bool `json:"download_cover"`
	OrganizeFiles bool `json:"organize_files"`
}

// Processor 处理单个目标。Runner 只依赖它，测试可以替换。
type Processor interface {
	Process(ctx context.Context, root string, t domain.Target, s Settings, stage func(string)) (domain.FileResult, error)
}

// Pipeline 是单个文件的完整处理流程：获取 -> 合并 -> 头像 -> 整理 -> NFO -> 图片 -> dump。
type Pipeline struct {
	Orchestrator provider.Orchestrator
	Enricher     provider.Enricher
	Artwork      artwork.Pipeline

	// Dump=true 时把合并结果与尝试记录写到 <root>/.avscrape/dump/<CODE>.json。
	Dump bool

	Now    func() time.Time
	Logger *slog.Logger
}

// dumpRecord 是 dump 文件的内容（只写不读）。
type dumpRecord struct {
	Record   domain.MergedRecord       `json:"record"`
	Sources  []string                  `json:"sources"`
	Attempts []dumpAttempt             `json:"attempts"`
	Portrait *domain.PerformerPortrait `json:"portrait,omitempty"`
}

type dumpAttempt struct {
	provider.Attempt
	Error string `json:"error,omitempty"`
}

// Process 处理一个目标。返回 error 表示该文件失败（已填好的字段仍然有效）；
// 图片与头像失败只记 note。
func (p Pipeline) Process(ctx context.Context, root string, t domain.Target, s Settings, stage func(string)) (domain.FileResult, error) {
	if stage == nil {
		stage = func(string) {}
	}
	logger := logging.OrNop(p.Logger).With(slog.String(logging.FieldCode, string(t.Code)))
	res := domain.FileResult{Code: string(t.Code), Path: t.File.AbsPath}

	stage(fmt.Sprintf("Searching metadata for %s", t.Code))
	acq := p.Orchestrator.Acquire(ctx, t.Code)
	m := provider.Merge(t.Code, acq.Accepted)
	res.Source = m.Source()
	res.Title = displayTitle(m)
	if res.Source == provider.SourceBasic {
		stage(fmt.Sprintf("No metadata found for %s, using basic info", t.Code))
	} else {
		stage(fmt.Sprintf("Found %s on %s", t.Code, res.Source))
	}
	logger.Info("元数据已获取", slog.String(logging.FieldSource, res.Source), slog.Any("sources", m.SourceNames()))

	portrait, hasPortrait := p.Enricher.Enrich(ctx, &m)
	if hasPortrait {
		stage(fmt.Sprintf("Found portrait for %s", portrait.Name))
	}

	plan := organize.Plan(root, t.Code, performer.Pick(m.Detailed, m.Details), t.File.AbsPath, s.OrganizeFiles)
	res.OutputDir = plan.Dir
	if s.OrganizeFiles {
		stage(fmt.Sprintf("Organizing %s", t.Code))
		if err := os.MkdirAll(plan.Dir, 0o755); err != nil {
			return res, fmt.Errorf("创建输出目录失败：%w", err)
		}
		outcome, err := organize.MoveVideo(plan)
		if err != nil {
			return res, writeError("移动视频失败", err)
		}
		res.Move = outcome
		if outcome == domain.MoveMoved {
			res.Path = plan.VideoDst(t.File.AbsPath)
		}
	}

	if s.CreateNFO {
		stage(fmt.Sprintf("Creating NFO for %s", t.Code))
		b, err := nfo.Encode(m, p.now())
		if err != nil {
			return res, fmt.Errorf("生成 NFO 失败：%w", err)
		}
		if err := fsx.WriteFile(plan.Dir, nfo.FileName, b, fsx.Replace); err != nil {
			return res, writeError("写入 NFO 失败", err)
		}
		res.NFO = nfo.FileName
	}

	if s.DownloadCover {
		if m.FanartURL() != "" {
			stage(fmt.Sprintf("Downloading cover for %s", t.Code))
			art := p.Artwork.Produce(ctx, plan.Dir, m)
			res.Fanart, res.Poster = art.Fanart, art.Poster
			res.Notes = append(res.Notes, art.Notes...)
		}
		if hasPortrait {
			name, err := p.Artwork.Portrait(ctx, plan.Dir, portrait)
			if err != nil {
				logger.Warn("头像保存失败", slog.String(logging.FieldAdapter, portrait.Adapter), logging.Error(err))
				res.Notes = append(res.Notes, "portrait_failed: "+err.Error())
			} else {
				res.Portrait = name
			}
		}
	}

	if p.Dump {
		if err := p.writeDump(root, m, acq, portrait, hasPortrait); err != nil {
			logger.Warn("写入 dump 失败", logging.Error(err))
			res.Notes = append(res.Notes, "dump_failed: "+err.Error())
		}
	}

	res.Status = domain.StatusProcessed
	return res, nil
}

func (p Pipeline) writeDump(root string, m domain.MergedRecord, acq provider.Acquisition, pp domain.PerformerPortrait, hasPortrait bool) error {
	rec := dumpRecord{Record: m, Sources: m.SourceNames(), Attempts: make([]dumpAttempt, 0, len(acq.Attempts))}
	for _, a := range acq.Attempts {
		rec.Attempts = append(rec.Attempts, dumpAttempt{Attempt: a, Error: a.Message()})
	}
	if hasPortrait {
		rec.Portrait = &pp
	}
	return dump.New(root).Write(m.Code, rec)
}

// writeError 给路径类型冲突加上稳定的错误码前缀。
func writeError(what string, err error) error {
	if fsx.IsPathTypeConflict(err) {
		return fmt.Errorf("%s: %s：%w", domain.ErrCodeTargetConflict, what, err)
	}
	return fmt.Errorf("%s：%w", what, err)
}

func (p Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// displayTitle 与 NFO 标题规则一致：占位标题显示为 CODE。
func displayTitle(m domain.MergedRecord) string {
	t := m.BestTitle
	if m.Detailed != nil && m.Detailed.FullTitle != "" {
		t = m.Detailed.FullTitle
	}
	if domain.IsPlaceholderTitle(m.Code, t) {
		return string(m.Code)
	}
	return t
}
