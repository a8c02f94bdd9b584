package artwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/infra/fsx"
	"github.com/John-Robertt/avscrape/internal/infra/imgx"
	"github.com/John-Robertt/avscrape/internal/logging"
	"github.com/John-Robertt/avscrape/internal/performer"
)

// 单个图片产物的结果（写入 FileResult.Fanart/Poster/Portrait）。
const (
	Created = "created"
	Exists  = "exists"
	Failed  = "failed"
)

// Result 是一次 Produce 的结果。图片失败只记 note，不让文件失败。
type Result struct {
	Fanart string
	Poster string
	Notes  []string
}

func (r *Result) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// Pipeline 负责 fanart/poster/头像的下载、转码与落盘。
type Pipeline struct {
	Downloader Downloader
	Logger     *slog.Logger
}

// Produce 在 dir 下生成 fanart.jpg 与 poster.jpg。
//
// - 已存在的文件视为完成，不覆盖
// - fanart 已存在而 poster 缺失时，从本地 fanart 裁切，不再下载
// - fanart 下载失败时跳过裁切
func (p Pipeline) Produce(ctx context.Context, dir string, m domain.MergedRecord) Result {
	logger := logging.OrNop(p.Logger).With(logging.FieldCode, string(m.Code))
	var res Result

	hasFanart := fsx.Exists(filepath.Join(dir, domain.FanartName))
	hasPoster := fsx.Exists(filepath.Join(dir, domain.PosterName))
	if hasFanart && hasPoster {
		return Result{Fanart: Exists, Poster: Exists}
	}

	var fanart []byte
	if hasFanart {
		res.Fanart = Exists
		b, err := os.ReadFile(filepath.Join(dir, domain.FanartName))
		if err != nil {
			res.Poster = Failed
			res.note("poster_failed: 读取本地 fanart 失败：%v", err)
			return res
		}
		fanart = b
	} else {
		u := m.FanartURL()
		if u == "" {
			res.note("fanart_skipped: 没有可用的图片 url")
			return res
		}
		b, err := p.fetch(ctx, u, m.FanartNeedsConversion(), dir)
		if err != nil {
			logger.Warn("fanart 下载失败", "url", u, logging.Error(err))
			res.Fanart = Failed
			res.note("fanart_failed: %v", err)
			return res
		}
		switch err := fsx.WriteFile(dir, domain.FanartName, b, fsx.Keep); {
		case err == nil:
			res.Fanart = Created
		case errors.Is(err, os.ErrExist):
			res.Fanart = Exists
		default:
			res.Fanart = Failed
			res.note("fanart_failed: 写入失败：%v", err)
			return res
		}
		fanart = b
	}

	if hasPoster {
		res.Poster = Exists
		return res
	}
	b, err := imgx.PosterFromFanart(fanart)
	if err != nil {
		res.Poster = Failed
		res.note("poster_failed: %v", err)
		return res
	}
	switch err := fsx.WriteFile(dir, domain.PosterName, b, fsx.Keep); {
	case err == nil:
		res.Poster = Created
	case errors.Is(err, os.ErrExist):
		res.Poster = Exists
	default:
		res.Poster = Failed
		res.note("poster_failed: 写入失败：%v", err)
	}
	logger.Debug("图片已生成", "fanart", res.Fanart, "poster", res.Poster)
	return res
}

// Portrait 把演员头像保存为 dir/<安全名>_portrait.jpg。
// 返回写入（或已存在）的文件名。
func (p Pipeline) Portrait(ctx context.Context, dir string, pp domain.PerformerPortrait) (string, error) {
	name := performer.PortraitFileName(pp.Name)
	if name == "" {
		return "", errors.New("演员名为空，无法生成头像文件名")
	}
	if pp.URL == "" {
		return "", errors.New("头像 url 为空")
	}
	if fsx.Exists(filepath.Join(dir, name)) {
		return name, nil
	}

	b, err := p.fetch(ctx, pp.URL, pp.NeedsConversion || domain.IsWebpURL(pp.URL), dir)
	if err != nil {
		return "", err
	}
	if err := fsx.WriteFile(dir, name, b, fsx.Keep); err != nil && !errors.Is(err, os.ErrExist) {
		return "", err
	}
	return name, nil
}

// fetch 下载图片；需要转码时转为 JPEG（临时文件放在输出目录）。
func (p Pipeline) fetch(ctx context.Context, u string, convert bool, dir string) ([]byte, error) {
	b, err := p.Downloader.Download(ctx, u)
	if err != nil {
		return nil, err
	}
	if !convert {
		return b, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	out, err := imgx.NormalizeJPEG(b, dir)
	if err != nil {
		return nil, fmt.Errorf("转码 %s 失败：%w", u, err)
	}
	return out, nil
}
