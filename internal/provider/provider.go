package provider

import (
	"context"
	"net/http"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/infra/browser"
)

// Adapter 把"站点变化"限制在各自的子包内部；编排与合并只依赖这个窄接口。
//
// 约束：
// - Fetch 不做缓存、不做重试、不做限速
// - 失败通过 error 返回，不得让 panic 越过边界（编排器仍会兜底 recover）
// - 站点解析部分应拆成纯函数 Parse*，便于用内联 HTML 测试
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, code domain.Code, env Env) (domain.SourceRecord, error)
}

// PortraitAdapter 按演员名查找头像 URL。
type PortraitAdapter interface {
	Name() string
	FetchPortrait(ctx context.Context, name string, env Env) (domain.PerformerPortrait, error)
}

// Env 是 adapter 共享的传输层。
type Env struct {
	HTTP *http.Client

	// Browser 为 nil 时，需要浏览器渲染的站点退化为普通 HTTP 抓取。
	Browser browser.Renderer
}

func (e Env) client() *http.Client {
	if e.HTTP != nil {
		return e.HTTP
	}
	return http.DefaultClient
}

func (e Env) renderer() browser.Renderer {
	if e.Browser != nil {
		return e.Browser
	}
	return browser.HTTP{Client: e.client()}
}
