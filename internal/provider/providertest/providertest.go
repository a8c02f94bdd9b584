// Package providertest 提供站点 adapter 测试用的假渲染器。
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/John-Robertt/avscrape/internal/infra/browser"
)

// Pages 按 URL 返回预置 HTML；未登记的 URL 返回 404。
type Pages struct {
	mu    sync.Mutex
	byURL map[string]string
	seen  []browser.Request
}

func NewPages(byURL map[string]string) *Pages {
	return &Pages{byURL: byURL}
}

func (p *Pages) Fetch(_ context.Context, req browser.Request) (browser.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, req)
	body, ok := p.byURL[req.URL]
	if !ok {
		return browser.Page{URL: req.URL, Status: 404}, nil
	}
	return browser.Page{URL: req.URL, Status: 200, ContentType: "text/html", Body: []byte(body)}, nil
}

// Requests 返回按顺序记录的请求 URL。
func (p *Pages) Requests() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.seen))
	for _, r := range p.seen {
		out = append(out, r.URL)
	}
	return out
}

// Header 返回第 i 次请求的某个请求头。
func (p *Pages) Header(i int, key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.seen) {
		panic(fmt.Sprintf("没有第 %d 次请求", i))
	}
	return p.seen[i].Headers[key]
}
