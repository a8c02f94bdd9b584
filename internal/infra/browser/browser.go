// Package browser 提供"像浏览器一样取页面"的能力。
//
// 部分站点会拦截普通 HTTP 请求，这时需要真实浏览器渲染；Chrome 实现每次调用都启动并销毁
// 一个独立的浏览器实例，不做复用。HTTP 实现用于测试与关闭浏览器时的降级。
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/John-Robertt/avscrape/internal/infra/httpx"
)

// maxBodyBytes 限制单次读取的响应体大小（图片/页面都远小于这个值）。
const maxBodyBytes = 32 << 20

// Request 描述一次页面获取。
type Request struct {
	URL     string
	Headers map[string]string

	// Raw=true 时返回导航响应的原始字节（用于下载图片）；否则返回渲染后的 HTML。
	Raw bool
}

// Page 是一次获取的结果。Status 为 0 表示渲染端没有拿到状态码。
type Page struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// Renderer 是页面获取的抽象；站点 adapter 与图片下载都只依赖它。
type Renderer interface {
	Fetch(ctx context.Context, req Request) (Page, error)
}

// Chrome 通过 chromedp 驱动本机 Chrome/Chromium。
type Chrome struct {
	ExecPath  string // 为空时由 chromedp 自动查找
	Headless  bool
	UserAgent string // 为空时用 httpx.UserAgent
	ProxyURL  string
	Timeout   time.Duration
}

func (c Chrome) Fetch(ctx context.Context, req Request) (Page, error) {
	if strings.TrimSpace(req.URL) == "" {
		return Page{}, errors.New("url 不能为空")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = httpx.DefaultTimeout
	}
	ua, headers := c.splitHeaders(req)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.Headless),
		chromedp.UserAgent(ua),
	)
	if p := strings.TrimSpace(c.ExecPath); p != "" {
		opts = append(opts, chromedp.ExecPath(p))
	}
	if p := strings.TrimSpace(c.ProxyURL); p != "" {
		opts = append(opts, chromedp.ProxyServer(p))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	// 只记录第一个 Document 类型的响应（即主导航）。
	var (
		mu  sync.Mutex
		doc *network.EventResponseReceived
	)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument {
			return
		}
		mu.Lock()
		if doc == nil {
			doc = e
		}
		mu.Unlock()
	})
	mainResponse := func() *network.EventResponseReceived {
		mu.Lock()
		defer mu.Unlock()
		return doc
	}

	actions := []chromedp.Action{network.Enable()}
	if len(headers) > 0 {
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	actions = append(actions, chromedp.Navigate(req.URL))

	var (
		html string
		body []byte
	)
	if req.Raw {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			ev := mainResponse()
			if ev == nil {
				return errors.New("未捕获到页面响应")
			}
			b, err := network.GetResponseBody(ev.RequestID).Do(ctx)
			if err != nil {
				return fmt.Errorf("读取响应体失败：%w", err)
			}
			body = b
			return nil
		}))
	} else {
		actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	}

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return Page{}, fmt.Errorf("浏览器渲染 %s 失败：%w", req.URL, err)
	}

	page := Page{URL: req.URL, Body: body}
	if !req.Raw {
		page.Body = []byte(html)
	}
	if ev := mainResponse(); ev != nil && ev.Response != nil {
		page.Status = int(ev.Response.Status)
		page.ContentType = ev.Response.MimeType
		if ev.Response.URL != "" {
			page.URL = ev.Response.URL
		}
	}
	return page, nil
}

// splitHeaders 把 User-Agent 从额外请求头中拿出来（它通过启动参数设置）。
func (c Chrome) splitHeaders(req Request) (string, network.Headers) {
	ua := strings.TrimSpace(c.UserAgent)
	headers := network.Headers{}
	for k, v := range req.Headers {
		if strings.EqualFold(k, "User-Agent") {
			if strings.TrimSpace(v) != "" {
				ua = strings.TrimSpace(v)
			}
			continue
		}
		headers[k] = v
	}
	if ua == "" {
		ua = httpx.UserAgent
	}
	return ua, headers
}

// HTTP 用普通 HTTP 请求实现 Renderer（不执行 JS）。
type HTTP struct {
	Client *http.Client
}

func (h HTTP) Fetch(ctx context.Context, req Request) (Page, error) {
	if strings.TrimSpace(req.URL) == "" {
		return Page{}, errors.New("url 不能为空")
	}
	c := h.Client
	if c == nil {
		c = http.DefaultClient
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return Page{}, err
	}
	for k, v := range req.Headers {
		r.Header.Set(k, v)
	}

	resp, err := c.Do(r)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, err
	}
	return Page{
		URL:         resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        b,
	}, nil
}
