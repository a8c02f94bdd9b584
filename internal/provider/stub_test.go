package provider

import (
	"context"
	"sync/atomic"

	"github.com/John-Robertt/avscrape/internal/domain"
)

type stubAdapter struct {
	name  string
	rec   domain.SourceRecord
	err   error
	panic bool

	calls atomic.Int32
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Fetch(ctx context.Context, code domain.Code, env Env) (domain.SourceRecord, error) {
	a.calls.Add(1)
	if a.panic {
		panic("boom")
	}
	if a.err != nil {
		return domain.SourceRecord{}, a.err
	}
	r := a.rec
	if r.Source == "" {
		r.Source = a.name
	}
	return r, nil
}

type stubPortrait struct {
	name  string
	url   string
	err   error
	calls int
	got   string
}

func (p *stubPortrait) Name() string { return p.name }

func (p *stubPortrait) FetchPortrait(ctx context.Context, name string, env Env) (domain.PerformerPortrait, error) {
	p.calls++
	p.got = name
	if p.err != nil {
		return domain.PerformerPortrait{}, p.err
	}
	return domain.PerformerPortrait{URL: p.url}, nil
}

func mustRegistry(t interface{ Fatalf(string, ...any) }, adapters []Adapter, portraits []PortraitAdapter) Registry {
	r, err := NewRegistry(adapters, portraits)
	if err != nil {
		t.Fatalf("构造 registry 失败：%v", err)
	}
	return r
}
