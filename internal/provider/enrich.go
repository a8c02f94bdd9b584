package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/logging"
	"github.com/John-Robertt/avscrape/internal/performer"
)

// Enricher 为合并记录补充演员头像。头像失败不影响主流程。
type Enricher struct {
	Registry  Registry
	Env       Env
	Portraits []string // 头像 adapter 顺序
	Logger    *slog.Logger
}

// Enrich 按顺序尝试头像 adapter，第一个非空 URL 生效。
//
// 找到时写入 Detailed.ThumbURL 与 Details["Actress Portrait"]，并返回 true。
// 没有演员名或全部失败时 m 保持不变。
func (e Enricher) Enrich(ctx context.Context, m *domain.MergedRecord) (domain.PerformerPortrait, bool) {
	if m == nil {
		return domain.PerformerPortrait{}, false
	}
	name := performer.Clean(performer.Pick(m.Detailed, m.Details))
	if name == "" {
		return domain.PerformerPortrait{}, false
	}
	log := logging.OrNop(e.Logger).With(slog.String(logging.FieldCode, string(m.Code)))

	for _, an := range e.Portraits {
		a, ok := e.Registry.GetPortrait(an)
		if !ok {
			log.Warn("portrait adapter 未注册", slog.String(logging.FieldAdapter, an))
			continue
		}
		p, err := safePortrait(ctx, a, name, e.Env)
		if err != nil {
			log.Debug("头像未找到", slog.String(logging.FieldAdapter, an), logging.Error(err))
			continue
		}
		u := strings.TrimSpace(p.URL)
		if u == "" {
			continue
		}
		p.URL = u
		p.Name = name
		p.Adapter = a.Name()
		p.NeedsConversion = p.NeedsConversion || strings.HasSuffix(strings.ToLower(u), ".webp")

		if m.Detailed == nil {
			m.Detailed = &domain.DetailedMeta{}
		}
		m.Detailed.ThumbURL = u
		if m.Details == nil {
			m.Details = map[string]string{}
		}
		m.Details[domain.KeyActressPortrait] = u
		log.Info("找到演员头像", slog.String(logging.FieldAdapter, p.Adapter), slog.String("performer", name))
		return p, true
	}
	return domain.PerformerPortrait{}, false
}

func safePortrait(ctx context.Context, a PortraitAdapter, name string, env Env) (p domain.PerformerPortrait, err error) {
	defer func() {
		if v := recover(); v != nil {
			p = domain.PerformerPortrait{}
			err = &Error{Provider: a.Name(), Stage: StagePanic, Err: &PanicError{Value: v}}
		}
	}()
	p, err = a.FetchPortrait(ctx, name, env)
	if err != nil {
		return domain.PerformerPortrait{}, fmt.Errorf("%s: %w", a.Name(), err)
	}
	return p, nil
}
