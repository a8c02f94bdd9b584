package javmost

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

// portraitHints 是头像图片 src 中常见的关键词。
var portraitHints = []string{"portrait", "profile", "actress", "avatar", "thumb"}

// Portrait 在 /star/{name}/ 页面中查找演员资料页并取头像。
type Portrait struct {
	BaseURL string
}

func (Portrait) Name() string { return "javmost" }

func (p Portrait) FetchPortrait(ctx context.Context, name string, env provider.Env) (domain.PerformerPortrait, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.PerformerPortrait{}, errors.New("演员名不能为空")
	}
	base := Adapter{BaseURL: p.BaseURL}.base()
	h := map[string]string{"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"}

	doc, err := provider.GetDocument(ctx, env, base+"/star/"+performer.SearchSlug(name)+"/", h)
	if err != nil {
		return domain.PerformerPortrait{}, err
	}
	for _, href := range ProfileLinks(doc, name) {
		profile, err := provider.GetDocument(ctx, env, htmlx.ResolveURL(base+"/", href), h)
		if err != nil {
			continue
		}
		if u := ProfileImage(profile, base); u != "" {
			return domain.PerformerPortrait{URL: u, NeedsConversion: domain.IsWebpURL(u)}, nil
		}
	}
	return domain.PerformerPortrait{}, provider.ErrNotFound
}

// ProfileLinks 返回 href 含 /star/ 且文本包含演员名的链接。
func ProfileLinks(doc *goquery.Document, name string) []string {
	var out []string
	doc.Find("a[href*='/star/']").Each(func(_ int, s *goquery.Selection) {
		if htmlx.ContainsFold(htmlx.NormSpace(s.Text()), name) {
			out = append(out, htmlx.Attr(s, "href"))
		}
	})
	return htmlx.NormList(out)
}

// ProfileImage 优先取 src 含头像关键词的图片；否则取前 5 张中第一张非 webp 图片。
func ProfileImage(doc *goquery.Document, base string) string {
	imgs := doc.Find("img[src]")
	var out string
	imgs.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := htmlx.Attr(s, "src")
		lower := strings.ToLower(src)
		for _, h := range portraitHints {
			if strings.Contains(lower, h) {
				out = src
				return false
			}
		}
		return true
	})
	if out == "" {
		imgs.Slice(0, min(5, imgs.Length())).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			src := htmlx.Attr(s, "src")
			if src != "" && !strings.HasSuffix(src, ".webp") {
				out = src
				return false
			}
			return true
		})
	}
	if out == "" {
		return ""
	}
	return htmlx.StripQuery(htmlx.ResolveURL(base+"/", out))
}
