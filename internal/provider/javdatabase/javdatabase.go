// Package javdatabase 按固定 URL 规则探测 javdatabase 的演员头像。
package javdatabase

import (
	"context"
	"errors"
	"strings"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/provider"
)

const DefaultBaseURL = "https://www.javdatabase.com/idolimages/thumb/"

type Portrait struct {
	BaseURL string // 为空时使用 DefaultBaseURL（以 '/' 结尾）
}

func (Portrait) Name() string { return "javdatabase" }

// Candidates 返回按顺序探测的头像 URL。
func (p Portrait) Candidates(name string) []string {
	base := p.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	slug := strings.ReplaceAll(lower, " ", "-")
	slugs := []string{
		slug,
		strings.ReplaceAll(slug, "-", ""),
		strings.ReplaceAll(slug, "-", "_"),
		strings.ReplaceAll(lower, " ", ""),
	}
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		out = append(out, base+s+".webp")
	}
	return out
}

func (p Portrait) FetchPortrait(ctx context.Context, name string, env provider.Env) (domain.PerformerPortrait, error) {
	if strings.TrimSpace(name) == "" {
		return domain.PerformerPortrait{}, errors.New("演员名不能为空")
	}
	var lastErr error
	for _, u := range p.Candidates(name) {
		ok, err := provider.HeadOK(ctx, env, u)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return domain.PerformerPortrait{URL: u, NeedsConversion: true}, nil
		}
	}
	if lastErr != nil {
		return domain.PerformerPortrait{}, lastErr
	}
	return domain.PerformerPortrait{}, provider.ErrNotFound
}
