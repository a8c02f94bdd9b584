// Package synthetic 提供不访问网络的兜底记录。
package synthetic

import (
	"context"
	"errors"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/provider"
)

// PlaceholderCoverBase 是兜底封面使用的占位图服务。
const PlaceholderCoverBase = "https://picsum.photos/300/450?random="

// Adapter 生成占位记录，来源标记固定为 "basic"。
type Adapter struct {
	// WithoutCover=true 时不生成占位封面（对应关闭 synthetic 时的最简记录）。
	WithoutCover bool
}

func (Adapter) Name() string { return "synthetic" }

func (a Adapter) Fetch(_ context.Context, code domain.Code, _ provider.Env) (domain.SourceRecord, error) {
	if code == "" {
		return domain.SourceRecord{}, errors.New("code 不能为空")
	}
	rec := provider.BasicRecord(code)
	if !a.WithoutCover {
		rec.CoverURL = PlaceholderCoverBase + string(code)
	}
	return rec, nil
}
