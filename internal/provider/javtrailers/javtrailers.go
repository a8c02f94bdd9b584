// Package javtrailers 实现 javtrailers.com 的搜索 + 详情页解析（浏览器渲染）。
package javtrailers

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/performer"
	"github.com/John-Robertt/avscrape/internal/provider"
	"github.com/John-Robertt/avscrape/internal/provider/htmlx"
)

const BaseURL = "https://javtrailers.com"

// dmmHost 是详情页封面图所在的域名。
const dmmHost = "pics.dmm.co.jp"

var (
	contentIDREs = []*regexp.Regexp{
		regexp.MustCompile(`Content ID:\s*([^\s<]+)`),
		regexp.MustCompile(`DVD ID:\s*([^\s<]+)`),
		regexp.MustCompile(`ID:\s*([^\s<]+)`),
	}
	releaseREs = []*regexp.Regexp{
		regexp.MustCompile(`Release Date:\s*(\d+\s+\w+\s+\d+)`),
		regexp.MustCompile(`(\d+\s+\w+\s+\d+)\s*$`),
		regexp.MustCompile(`(\d{1,2}\s+\w+\s+\d{4})`),
	}
	durationREs = []*regexp.Regexp{
		regexp.MustCompile(`Duration:\s*(\d+)\s*mins`),
		regexp.MustCompile(`(\d+)\s*mins`),
	}
	clockRE = regexp.MustCompile(`(\d+):(\d+)`)
)

type Adapter struct{}

func (Adapter) Name() string { return "javtrailers" }

func (Adapter) Fetch(ctx context.Context, code domain.Code, env provider.Env) (domain.SourceRecord, error) {
	if code == "" {
		return domain.SourceRecord{}, errors.New("code 不能为空")
	}
	searchURL := BaseURL + "/search/" + url.PathEscape(string(code))
	doc, _, err := provider.RenderPage(ctx, env, searchURL, provider.DocumentHeaders())
	if err != nil {
		return domain.SourceRecord{}, err
	}
	detailURL := FindDetailURL(doc, code)
	if detailURL == "" {
		return domain.SourceRecord{}, provider.ErrNotFound
	}

	page, err := provider.Render(ctx, env, detailURL, provider.DocumentHeaders())
	if err != nil {
		return domain.SourceRecord{}, err
	}
	return ParseDetail(code, page.Body, detailURL)
}

// FindDetailURL 优先找文本含 CODE 的 /video/ 链接，其次找 href 含 CODE 的。
func FindDetailURL(doc *goquery.Document, code domain.Code) string {
	want := strings.ToLower(string(code))
	links := doc.Find("a[href*='/video/']")

	var href string
	links.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(htmlx.NormSpace(s.Text())), want) {
			href, _ = s.Attr("href")
			return false
		}
		return true
	})
	if href == "" {
		links.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			h, _ := s.Attr("href")
			if strings.Contains(strings.ToLower(h), want) {
				href = h
				return false
			}
			return true
		})
	}
	if href == "" {
		return ""
	}
	return htmlx.ResolveURL(BaseURL+"/", href)
}

// ParseDetail 解析详情页。部分字段直接在原始 HTML 上做正则匹配。
func ParseDetail(code domain.Code, html []byte, pageURL string) (domain.SourceRecord, error) {
	doc, err := htmlx.Parse(html)
	if err != nil {
		return domain.SourceRecord{}, err
	}
	raw := string(html)

	title := htmlx.NormSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = domain.PlaceholderTitle(code)
	}

	d := &domain.DetailedMeta{
		DVDID:       string(code),
		ContentID:   htmlx.FirstSubmatch(raw, contentIDREs...),
		ReleaseDate: htmlx.FirstSubmatch(raw, releaseREs...),
		Duration:    parseDuration(raw),
		Studio:      labelledLink(doc, "Studio:"),
		Series:      labelledLink(doc, "Series:"),
	}
	if span := labelSpan(doc, "Categories:"); span.Length() > 0 {
		d.Categories = htmlx.Texts(span.NextAllFiltered("a"))
	}
	if c := performer.Clean(labelledLink(doc, "Cast(s):")); c != "" {
		d.Cast = []string{c}
		d.Actress = strings.Join(d.Cast, ", ")
	}

	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		u := htmlx.Attr(img, "data-src", "src")
		if !strings.Contains(u, dmmHost) {
			return true
		}
		if d.PosterURL == "" {
			d.PosterURL = u
			return true
		}
		d.FanartURL = u
		return false
	})
	if d.FanartURL == "" {
		d.FanartURL = d.PosterURL
	}

	rec := domain.SourceRecord{
		Source:    "javtrailers",
		Title:     title,
		CoverURL:  d.PosterURL,
		FanartURL: d.FanartURL,
		PageURL:   pageURL,
		Tags:      d.Categories,
		Detailed:  d,
	}
	return rec, nil
}

func parseDuration(raw string) string {
	if v := htmlx.FirstSubmatch(raw, durationREs...); v != "" {
		return v
	}
	m := clockRE.FindStringSubmatch(raw)
	if len(m) != 3 {
		return ""
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return strconv.Itoa(h*60 + mm)
}

// labelSpan 找到文本包含 label 的第一个 span。
func labelSpan(doc *goquery.Document, label string) *goquery.Selection {
	return doc.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), label) && s.Find("span").Length() == 0
	}).First()
}

// labelledLink 返回 label 所在 span 之后的第一个链接文本。
func labelledLink(doc *goquery.Document, label string) string {
	span := labelSpan(doc, label)
	if span.Length() == 0 {
		return ""
	}
	for s := span; s.Length() > 0; s = s.Parent() {
		var text string
		s.NextAll().EachWithBreak(func(_ int, n *goquery.Selection) bool {
			a := n
			if goquery.NodeName(n) != "a" {
				a = n.Find("a").First()
			}
			if a.Length() == 0 {
				return true
			}
			text = htmlx.NormSpace(a.Text())
			return false
		})
		if text != "" {
			return text
		}
		if goquery.NodeName(s) == "body" {
			break
		}
	}
	return ""
}
