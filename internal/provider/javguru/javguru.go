// Package javguru 实现 jav.guru 的搜索页 + 详情页解析（浏览器渲染）。
package javguru

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/performer"
	"github.com/John-Robertt/avscrape/internal/provider"
	"github.com/John-Robertt/avscrape/internal/provider/htmlx"
)

const BaseURL = "https://jav.guru/"

// performerFields 是需要做演员名清洗的字段。
var performerFields = map[string]bool{
	"actress": true, "actresses": true, "cast": true, "star": true, "stars": true,
}

type Adapter struct{}

func (Adapter) Name() string { return "javguru" }

// SearchResult 是搜索页第一条结果。
type SearchResult struct {
	DetailURL string
	CoverURL  string
	Title     string
	Tags      []string
}

func (Adapter) Fetch(ctx context.Context, code domain.Code, env provider.Env) (domain.SourceRecord, error) {
	if code == "" {
		return domain.SourceRecord{}, errors.New("code 不能为空")
	}
	searchURL := BaseURL + "?s=" + url.QueryEscape(string(code))
	doc, _, err := provider.RenderPage(ctx, env, searchURL, provider.DocumentHeaders())
	if err != nil {
		return domain.SourceRecord{}, err
	}
	sr, err := ParseSearch(doc, searchURL)
	if err != nil {
		return domain.SourceRecord{}, err
	}

	rec := domain.SourceRecord{
		Source:   "javguru",
		Title:    sr.Title,
		CoverURL: sr.CoverURL,
		PageURL:  searchURL,
		Tags:     sr.Tags,
	}
	if sr.DetailURL == "" {
		return rec, nil
	}

	// 详情页失败时退回只有搜索结果的记录。
	detail, _, err := provider.RenderPage(ctx, env, sr.DetailURL, provider.DocumentHeaders())
	if err != nil {
		return rec, nil
	}
	rec.PageURL = sr.DetailURL
	rec.Detailed = ParseDetail(detail)
	rec.FanartURL = rec.Detailed.FanartURL
	if rec.FanartURL == "" {
		rec.FanartURL = rec.CoverURL
	}
	return rec, nil
}

// ParseSearch 解析搜索结果页的第一条结果。
func ParseSearch(doc *goquery.Document, pageURL string) (SearchResult, error) {
	article := doc.Find("div.inside-article").First()
	if article.Length() == 0 {
		return SearchResult{}, provider.ErrNotFound
	}
	link := article.Find("div.imgg a").First()
	sr := SearchResult{
		DetailURL: htmlx.ResolveURL(pageURL, htmlx.Attr(link, "href")),
		CoverURL:  htmlx.ResolveURL(pageURL, htmlx.Attr(link.Find("img").First(), "src")),
	}
	titleSel := article.Find("div.grid1 h2 a").First()
	sr.Title = htmlx.Attr(titleSel, "title")
	if sr.Title == "" {
		sr.Title = htmlx.NormSpace(titleSel.Text())
	}
	sr.Tags = htmlx.Texts(article.Find("div.grid3 p.tags a"))
	return sr, nil
}

// ParseDetail 解析详情页的 infoleft 字段、大图与简介。
func ParseDetail(doc *goquery.Document) *domain.DetailedMeta {
	d := &domain.DetailedMeta{}
	doc.Find("div.infoleft li").Each(func(_ int, li *goquery.Selection) {
		strong := li.Find("strong").First()
		if strong.Length() == 0 {
			return
		}
		name := htmlx.FieldName(strong.Text())
		if name == "" {
			return
		}
		value := li.Text()
		if _, after, ok := strings.Cut(value, ":"); ok {
			value = after
		}
		value = htmlx.NormSpace(value)
		if performerFields[name] {
			value = cleanList(value)
		}
		d.Set(name, value)
	})

	if t := htmlx.NormSpace(doc.Find("h1.titl").First().Text()); t != "" {
		d.FullTitle = t
	}
	if src := htmlx.Attr(doc.Find("div.large-screenshot img").First(), "src"); src != "" {
		d.FanartURL = src
		d.LargeCoverURL = src
	}

	var plot []string
	doc.Find("div.wp-content p").Each(func(_ int, p *goquery.Selection) {
		t := htmlx.NormSpace(p.Text())
		if t != "" && !strings.HasPrefix(t, "http") {
			plot = append(plot, t)
		}
	})
	if len(plot) > 0 {
		d.Plot = strings.Join(plot, " ")
	}
	return d
}

// cleanList 逐个清洗逗号分隔的演员名。
func cleanList(v string) string {
	var out []string
	for _, n := range performer.Split(v) {
		if c := performer.Clean(n); c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, ", ")
}
