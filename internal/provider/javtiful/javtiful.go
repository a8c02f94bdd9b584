// Package javtiful 在 javtiful.com 的演员搜索页中查找头像（浏览器渲染）。
package javtiful

import (
	"context"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/performer"
	"github.com/John-Robertt/avscrape/internal/provider"
	"github.com/John-Robertt/avscrape/internal/provider/htmlx"
)

const BaseURL = "https://javtiful.com"

var (
	profileHints = []string{"portrait", "profile", "actress", "avatar", "thumb"}
	searchHints  = []string{"portrait", "profile", "actress", "avatar"}
)

type Portrait struct{}

func (Portrait) Name() string { return "javtiful" }

func (Portrait) FetchPortrait(ctx context.Context, name string, env provider.Env) (domain.PerformerPortrait, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.PerformerPortrait{}, errors.New("演员名不能为空")
	}
	searchURL := BaseURL + "/actresses?q=" + performer.SearchSlug(name)
	doc, _, err := provider.RenderPage(ctx, env, searchURL, provider.DocumentHeaders())
	if err != nil {
		return domain.PerformerPortrait{}, err
	}

	for _, href := range ProfileLinks(doc, name) {
		profile, _, err := provider.RenderPage(ctx, env, htmlx.ResolveURL(BaseURL+"/", href), provider.DocumentHeaders())
		if err != nil {
			continue
		}
		if u := ProfileImage(profile); u != "" {
			return portrait(u), nil
		}
	}
	if u := SearchImage(doc, name); u != "" {
		return portrait(u), nil
	}
	return domain.PerformerPortrait{}, provider.ErrNotFound
}

func portrait(u string) domain.PerformerPortrait {
	return domain.PerformerPortrait{URL: u, NeedsConversion: domain.IsWebpURL(u)}
}

// ProfileLinks 返回 href 指向演员资料页且文本包含演员名的链接。
func ProfileLinks(doc *goquery.Document, name string) []string {
	var out []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := htmlx.Attr(s, "href")
		if !strings.Contains(href, "/actress/") && !strings.Contains(href, "/actresses/") {
			return
		}
		if htmlx.ContainsFold(htmlx.NormSpace(s.Text()), name) {
			out = append(out, href)
		}
	})
	return htmlx.NormList(out)
}

// ProfileImage 取资料页中 src 含头像关键词的第一张图（绝对地址，去掉查询串）。
func ProfileImage(doc *goquery.Document) string {
	src := firstImage(doc.Find("img[src]"), func(s *goquery.Selection, src string) bool {
		return hasHint(src, profileHints)
	})
	if src == "" {
		return ""
	}
	return htmlx.StripQuery(htmlx.ResolveURL(BaseURL+"/", src))
}

// SearchImage 在搜索页上直接找 alt 含演员名或 src 含头像关键词的图。
func SearchImage(doc *goquery.Document, name string) string {
	src := firstImage(doc.Find("img"), func(s *goquery.Selection, src string) bool {
		return htmlx.ContainsFold(htmlx.Attr(s, "alt"), name) || hasHint(src, searchHints)
	})
	return htmlx.ResolveURL(BaseURL+"/", src)
}

func firstImage(imgs *goquery.Selection, match func(s *goquery.Selection, src string) bool) string {
	var out string
	imgs.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := htmlx.Attr(s, "src")
		if src != "" && match(s, src) {
			out = src
			return false
		}
		return true
	})
	return out
}

func hasHint(src string, hints []string) bool {
	lower := strings.ToLower(src)
	for _, h := range hints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}
