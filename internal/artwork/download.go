// Package artwork 下载并生成输出目录里的图片：fanart.jpg、poster.jpg 与演员头像。
package artwork

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/John-Robertt/avscrape/internal/infra/browser"
	"github.com/John-Robertt/avscrape/internal/provider"
)

// MinImageBytes 以下的响应视为占位图或错误页。
const MinImageBytes = 1000

const imageAccept = "image/avif,image/webp,image/apng,image/svg+xml,image/*,*/*;q=0.8"

// ErrTooSmall 表示下载到的内容过小，不是有效图片。
var ErrTooSmall = errors.New("图片过小")

// StatusError 表示图片请求没有返回 200。
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("下载图片 %s 失败：HTTP %d", e.URL, e.Status)
}

var javstsCodeRE = regexp.MustCompile(`/([a-z0-9]+)pl`)

// Downloader 通过 Renderer 取图片的原始字节（与页面渲染共用一套浏览器行为）。
type Downloader struct {
	Renderer browser.Renderer
}

// Download 下载 u 并返回原始字节。非 200 返回 *StatusError，过小返回 ErrTooSmall。
func (d Downloader) Download(ctx context.Context, u string) ([]byte, error) {
	u = strings.TrimSpace(u)
	if u == "" {
		return nil, errors.New("图片 url 为空")
	}
	if d.Renderer == nil {
		return nil, errors.New("renderer 为空")
	}

	page, err := d.Renderer.Fetch(ctx, browser.Request{URL: u, Headers: ImageHeaders(u), Raw: true})
	if err != nil {
		return nil, err
	}
	if page.Status != 200 {
		return nil, &StatusError{URL: u, Status: page.Status}
	}
	if len(page.Body) <= MinImageBytes {
		return nil, fmt.Errorf("%s（%d 字节）：%w", u, len(page.Body), ErrTooSmall)
	}
	return page.Body, nil
}

// ImageHeaders 返回下载图片时使用的请求头。
func ImageHeaders(u string) map[string]string {
	h := map[string]string{
		"User-Agent":      provider.ChromeUA,
		"Accept":          imageAccept,
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         RefererFor(u),
	}
	// JavBus 的图片要求年龄确认 cookie。
	if isHost(u, "javbus.com") {
		h["Cookie"] = "age=verified"
	}
	return h
}

// RefererFor 按图片所在 CDN 选择 Referer。
//
// cdn.javsts.com 需要带上对应 CODE 的 jav.guru 搜索页，CODE 取自路径中的 "<code>pl"。
func RefererFor(u string) string {
	switch {
	case isHost(u, "cdn.javsts.com"):
		if m := javstsCodeRE.FindStringSubmatch(strings.ToLower(u)); m != nil {
			return "https://jav.guru/?s=" + strings.ToUpper(m[1])
		}
	case isHost(u, "javbus.com"):
		return "https://www.javbus.com/"
	}
	return "https://jav.guru/"
}

func isHost(raw, host string) bool {
	pu, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	h := strings.ToLower(pu.Hostname())
	return h == host || strings.HasSuffix(h, "."+host)
}
