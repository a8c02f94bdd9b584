package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avscrape/internal/infra/browser"
	"github.com/John-Robertt/avscrape/internal/infra/httpx"
	"github.com/John-Robertt/avscrape/internal/provider/htmlx"
)

const maxPageBytes = 16 << 20

// Render 通过浏览器（或其 HTTP 降级实现）取页面原文。
//
// 渲染端拿不到状态码时 Status 为 0，视为成功。
func Render(ctx context.Context, env Env, u string, headers map[string]string) (browser.Page, error) {
	page, err := env.renderer().Fetch(ctx, browser.Request{URL: u, Headers: headers})
	if err != nil {
		return browser.Page{}, err
	}
	if page.Status != 0 && (page.Status < 200 || page.Status >= 300) {
		return page, &HTTPStatusError{URL: u, StatusCode: page.Status}
	}
	if len(page.Body) == 0 {
		return page, errors.New("页面为空")
	}
	if page.URL == "" {
		page.URL = u
	}
	return page, nil
}

// RenderPage 是 Render + 解析。
func RenderPage(ctx context.Context, env Env, u string, headers map[string]string) (*goquery.Document, browser.Page, error) {
	page, err := Render(ctx, env, u, headers)
	if err != nil {
		return nil, page, err
	}
	doc, err := htmlx.Parse(page.Body)
	if err != nil {
		return nil, page, fmt.Errorf("解析 HTML 失败：%w", err)
	}
	return doc, page, nil
}

// GetPage 用共享 HTTP client 取页面；非 2xx 返回 *HTTPStatusError。
func GetPage(ctx context.Context, env Env, u string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := env.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: strings.TrimSpace(resp.Header.Get("Location"))}
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}

// GetDocument 是 GetPage + 解析。
func GetDocument(ctx context.Context, env Env, u string, headers map[string]string) (*goquery.Document, error) {
	b, err := GetPage(ctx, env, u, headers)
	if err != nil {
		return nil, err
	}
	doc, err := htmlx.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败：%w", err)
	}
	return doc, nil
}

// HeadOK 发送 HEAD 请求，仅当状态码为 200 时返回 true。
func HeadOK(ctx context.Context, env Env, u string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := env.client().Do(req)
	if err != nil {
		return false, err
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}

// PutDetail 只写入非空值，避免空字符串覆盖其它来源的同名字段。
func PutDetail(details map[string]string, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	details[key] = value
}

// ChromeUA 是浏览器渲染与图片下载使用的固定 UA。
const ChromeUA = httpx.UserAgent

// DocumentHeaders 返回渲染 HTML 页面时附带的请求头（每次新建，调用方可修改）。
func DocumentHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      ChromeUA,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
}
