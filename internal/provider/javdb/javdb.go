// Package javdb 实现 JavDB 的搜索 + 详情页解析。
package javdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/provider"
	"github.com/John-Robertt/avscrape/internal/provider/htmlx"
)

const DefaultBaseURL = "https://javdb.com"

// Adapter 需要先搜索再进入详情页（不能直接拼详情 URL）。
type Adapter struct {
	// BaseURL 允许指定可用域名（例如 javdb565.com），用于绕过区域不可达。
	BaseURL string
}

func (Adapter) Name() string { return "javdb" }

func (a Adapter) baseURL() string {
	u := strings.TrimSpace(a.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (a Adapter) Fetch(ctx context.Context, code domain.Code, env provider.Env) (domain.SourceRecord, error) {
	if code == "" {
		return domain.SourceRecord{}, errors.New("code 不能为空")
	}
	base := a.baseURL()
	searchURL := base + "/search?q=" + url.QueryEscape(string(code)) + "&f=all"
	search, err := provider.GetDocument(ctx, env, searchURL, nil)
	if err != nil {
		return domain.SourceRecord{}, err
	}
	href, err := FindDetailHref(search, code)
	if err != nil {
		return domain.SourceRecord{}, err
	}

	pageURL := htmlx.ResolveURL(base+"/", href)
	doc, err := provider.GetDocument(ctx, env, pageURL, nil)
	if err != nil {
		return domain.SourceRecord{}, err
	}
	return ParseDetail(code, doc, pageURL), nil
}

// FindDetailHref 在搜索结果中找到标题 strong 与 CODE 完全一致的条目。
func FindDetailHref(doc *goquery.Document, code domain.Code) (string, error) {
	want := strings.ToUpper(string(code))
	var href string
	doc.Find("div.movie-list div.item a.box").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		got := strings.ToUpper(strings.TrimSpace(s.Find("div.video-title strong").First().Text()))
		if got != want {
			return true
		}
		href, _ = s.Attr("href")
		return false
	})
	if strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("%w：%s", provider.ErrNotFound, want)
	}
	return href, nil
}

// ParseDetail 解析详情页。
func ParseDetail(code domain.Code, doc *goquery.Document, pageURL string) domain.SourceRecord {
	// 页面可能显示翻译标题（current-title），同时提供隐藏的 origin-title；优先原标题。
	title := htmlx.NormSpace(doc.Find("h2.title span.origin-title").First().Text())
	if title == "" {
		title = htmlx.NormSpace(doc.Find("h2.title strong.current-title").First().Text())
	}

	var (
		release, runtime string
		studio, maker    string
		director, series string
		actors, tags     []string
	)
	doc.Find("nav.movie-panel-info .panel-block").Each(func(_ int, s *goquery.Selection) {
		value := s.Find("span.value")
		switch htmlx.NormHeader(s.Find("strong").First().Text()) {
		case "日期", "Date", "Released Date":
			release = strings.TrimSpace(value.First().Text())
		case "時長", "时长", "Length", "Duration":
			if n := htmlx.FirstInt(value.First().Text()); n > 0 {
				runtime = strconv.Itoa(n)
			}
		case "片商", "Maker", "Studio", "Manufacturer":
			maker = strings.TrimSpace(value.Find("a").First().Text())
		case "發行", "发行", "Publisher", "Label":
			studio = strings.TrimSpace(value.Find("a").First().Text())
		case "導演", "导演", "Director":
			director = strings.TrimSpace(value.Find("a").First().Text())
		case "系列", "Series":
			series = strings.TrimSpace(value.Find("a").First().Text())
		case "演員", "演员", "Actor", "Actors", "Actress", "Cast":
			actors = append(actors, htmlx.Texts(value.Find("a"))...)
		case "類別", "类别", "Tag", "Tags", "Genre", "Genres", "Category", "Categories":
			tags = append(tags, htmlx.Texts(value.Find("a"))...)
		}
	})
	if studio == "" {
		studio = maker
	}
	actors = htmlx.NormList(actors)
	tags = htmlx.NormList(tags)

	coverURL := htmlx.Attr(doc.Find(".column-video-cover a[data-fancybox='gallery']").First(), "href")
	if coverURL == "" {
		coverURL = htmlx.Attr(doc.Find(".column-video-cover img.video-cover, img.video-cover").First(), "src")
	}
	coverURL = htmlx.ResolveURL(pageURL, coverURL)

	rec := domain.SourceRecord{
		Source:    "javdb",
		Title:     title,
		CoverURL:  coverURL,
		FanartURL: coverURL,
		PageURL:   pageURL,
		Tags:      tags,
		Details:   map[string]string{},
	}
	actress := strings.Join(actors, ", ")
	provider.PutDetail(rec.Details, domain.KeyActress, actress)
	provider.PutDetail(rec.Details, domain.KeyStudio, studio)
	provider.PutDetail(rec.Details, domain.KeyMaker, maker)
	provider.PutDetail(rec.Details, domain.KeyDirector, director)
	provider.PutDetail(rec.Details, domain.KeySeries, series)
	provider.PutDetail(rec.Details, domain.KeyReleaseDate, release)
	provider.PutDetail(rec.Details, domain.KeyRuntime, runtime)
	provider.PutDetail(rec.Details, domain.KeyGenre, strings.Join(tags, ", "))
	return rec
}
