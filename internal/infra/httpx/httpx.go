// Package httpx 提供站点抓取共用的 HTTP client。
package httpx

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout 是未配置 scraper.timeout 时的单请求总超时。
const DefaultTimeout = 30 * time.Second

// UserAgent 是页面抓取、图片下载和浏览器渲染共用的桌面 Chrome UA。
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultHeader 返回请求未显式设置时补上的请求头。
func DefaultHeader() http.Header {
	h := http.Header{}
	h.Set("User-Agent", UserAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "ja,en-US;q=0.8,en;q=0.6")
	return h
}

// Transport 给每个请求补齐默认请求头。每个站点每个番号只请求一次，这里不做重试。
type Transport struct {
	Base   *http.Transport
	Header http.Header

	// viaProxy 为 true 时每个请求都用新连接，代理池按连接轮换出口。
	viaProxy bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Base == nil {
		return nil, fmt.Errorf("httpx: 未设置 Base transport")
	}
	r := req.Clone(req.Context())
	for k, vs := range t.Header {
		if r.Header.Get(k) == "" && len(vs) > 0 {
			r.Header.Set(k, vs[0])
		}
	}
	if t.viaProxy {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

// ViaProxy 报告该 transport 是否经由代理发出请求。
func (t *Transport) ViaProxy() bool { return t.viaProxy }

// Options 是 NewClient 的参数。
type Options struct {
	// ProxyURL 为空表示直连；支持 http/https/socks5。
	ProxyURL string
	// Timeout <=0 时取 DefaultTimeout。
	Timeout time.Duration
}

// NewClient 构造站点页面抓取用的 HTTP client。
func NewClient(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   4,
	}
	tr := &Transport{Base: base, Header: DefaultHeader()}

	if raw := strings.TrimSpace(opts.ProxyURL); raw != "" {
		u, err := ParseProxy(raw)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		tr.viaProxy = true
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

// ParseProxy 校验代理地址：必须带 scheme 和 host。
func ParseProxy(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("代理地址无效：%w", err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("代理地址协议不支持：%q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("代理地址缺少 host：%q", raw)
	}
	return u, nil
}
