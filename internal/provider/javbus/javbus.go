// Package javbus 实现 JavBus 详情页的抓取与解析（回退站点）。
package javbus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/provider"
	"github.com/John-Robertt/avscrape/internal/provider/htmlx"
)

const DefaultBaseURL = "https://www.javbus.com"

const verifyPath = "/doc/driver-verify"

// 详情页信息栏的标签（繁体/简体/英文/日文界面）。
var (
	labelID       = []string{"識別碼", "识别码", "ID"}
	labelRelease  = []string{"發行日期", "发行日期", "Release Date", "発売日"}
	labelLength   = []string{"長度", "长度", "Length", "時長", "时长", "Duration"}
	labelMaker    = []string{"製作商", "制作商", "Studio", "Maker", "Manufacturer"}
	labelLabel    = []string{"發行商", "发行商", "Label", "Publisher"}
	labelSeries   = []string{"系列", "Series"}
	labelDirector = []string{"導演", "导演", "Director"}
)

// Adapter 直接进入详情页：{base}/{CODE}。
type Adapter struct {
	BaseURL string // 为空时使用 DefaultBaseURL
}

func (Adapter) Name() string { return "javbus" }

func (a Adapter) Fetch(ctx context.Context, code domain.Code, env provider.Env) (domain.SourceRecord, error) {
	if code == "" {
		return domain.SourceRecord{}, errors.New("code 不能为空")
	}
	base := strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	pageURL := base + "/" + url.PathEscape(string(code))

	body, err := getDetail(ctx, env.HTTP, pageURL)
	if err != nil {
		return domain.SourceRecord{}, err
	}
	return Parse(code, body, pageURL)
}

// getDetail 不跟随重定向：未过年龄确认时站点回 302 到验证页，但 body 多半仍是完整详情页。
func getDetail(ctx context.Context, hc *http.Client, pageURL string) ([]byte, error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	noFollow := *hc
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := noFollow.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败：%w", err)
	}

	loc := strings.TrimSpace(resp.Header.Get("Location"))
	switch st := resp.StatusCode; {
	case st == http.StatusNotFound:
		return nil, provider.ErrNotFound
	case st >= 300 && st < 400:
		if !strings.Contains(loc, verifyPath) {
			return nil, &provider.HTTPStatusError{URL: pageURL, StatusCode: st, Location: loc}
		}
		if isVerifyPage(body) {
			return nil, &provider.BlockedError{URL: loc, Reason: "driver-verify"}
		}
	case st < 200 || st >= 300:
		return nil, &provider.HTTPStatusError{URL: pageURL, StatusCode: st, Location: loc}
	}
	if len(body) == 0 {
		return nil, errors.New("响应为空")
	}
	return body, nil
}

func isVerifyPage(body []byte) bool {
	return bytes.Contains(body, []byte(`id="ageVerify"`)) || bytes.Contains(body, []byte(verifyPath))
}

// Parse 把详情页 HTML 解析为来源记录。
func Parse(code domain.Code, html []byte, pageURL string) (domain.SourceRecord, error) {
	if code == "" {
		return domain.SourceRecord{}, errors.New("code 不能为空")
	}
	if len(html) == 0 {
		return domain.SourceRecord{}, errors.New("html 为空")
	}
	doc, err := htmlx.Parse(html)
	if err != nil {
		return domain.SourceRecord{}, err
	}
	info := readInfo(doc)

	// 识别码缺失说明不是详情页（验证页、搜索页）；不一致说明被跳到了别的影片。
	switch id := info.get(labelID...); {
	case id == "":
		return domain.SourceRecord{}, provider.ErrNotFound
	case !strings.EqualFold(id, string(code)):
		return domain.SourceRecord{}, fmt.Errorf("識別碼不匹配：页面为 %s", id)
	}

	title := htmlx.NormSpace(doc.Find("h3").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, string(code)))

	var runtime string
	if n := htmlx.FirstInt(info.get(labelLength...)); n > 0 {
		runtime = strconv.Itoa(n)
	}
	maker := info.get(labelMaker...)
	label := info.get(labelLabel...)
	studio := label
	if studio == "" {
		studio = maker
	}
	series := info.get(labelSeries...)
	director := info.get(labelDirector...)
	release := info.get(labelRelease...)
	actors := htmlx.Texts(doc.Find("div.star-name a"))

	genres := htmlx.Texts(doc.Find("span.genre a[href*='/genre/']"))
	if len(genres) == 0 {
		genres = keywordGenres(doc, code, studio, series)
	}

	cover := htmlx.Attr(doc.Find("a.bigImage").First(), "href")
	if cover == "" {
		cover = htmlx.Attr(doc.Find("div.screencap img").First(), "src")
	}
	if cover != "" {
		cover = htmlx.ResolveURL(pageURL, cover)
	}

	actress := strings.Join(actors, ", ")
	category := strings.Join(genres, ", ")
	rec := domain.SourceRecord{
		Source:    "javbus",
		Title:     title,
		CoverURL:  cover,
		FanartURL: cover,
		PageURL:   pageURL,
		Tags:      genres,
		Details:   map[string]string{},
	}
	for key, v := range map[string]string{
		domain.KeyActress:     actress,
		domain.KeyStudio:      studio,
		domain.KeyMaker:       maker,
		domain.KeyDirector:    director,
		domain.KeySeries:      series,
		domain.KeyReleaseDate: release,
		domain.KeyRuntime:     runtime,
		domain.KeyGenre:       category,
	} {
		provider.PutDetail(rec.Details, key, v)
	}

	rec.Detailed = &domain.DetailedMeta{
		Code:        string(code),
		FullTitle:   title,
		Actress:     actress,
		Cast:        actors,
		Director:    director,
		Studio:      studio,
		Label:       label,
		Series:      series,
		ReleaseDate: release,
		Runtime:     runtime,
		Categories:  genres,
		Category:    category,
		FanartURL:   cover,
	}
	return rec, nil
}

// infoTable 是 div.info 中 "标签: 值" 行的索引，键为规范化后的标签。
type infoTable map[string]string

func readInfo(doc *goquery.Document) infoTable {
	t := infoTable{}
	doc.Find("div.info p").Each(func(_ int, row *goquery.Selection) {
		header := htmlx.NormSpace(row.Find("span.header").First().Text())
		key := htmlx.NormHeader(header)
		if key == "" {
			return
		}
		if _, dup := t[key]; dup {
			return
		}
		// 厂牌、导演等是链接，日期和长度是纯文本。
		v := strings.TrimSpace(row.Find("a").First().Text())
		if v == "" {
			v = strings.TrimSpace(strings.TrimPrefix(htmlx.NormSpace(row.Text()), header))
		}
		t[key] = v
	})
	return t
}

func (t infoTable) get(labels ...string) string {
	for _, l := range labels {
		if v := t[htmlx.NormHeader(l)]; v != "" {
			return v
		}
	}
	return ""
}

// keywordGenres 用 meta keywords（CODE,片商,系列,标签...）兜底：去掉已知字段后剩下的就是标签。
func keywordGenres(doc *goquery.Document, code domain.Code, studio, series string) []string {
	content := htmlx.Attr(doc.Find("meta[name='keywords']").First(), "content")
	if content == "" {
		return nil
	}
	var tags []string
	for _, kw := range strings.Split(content, ",") {
		kw = strings.TrimSpace(kw)
		switch {
		case kw == "", strings.EqualFold(kw, string(code)), kw == studio, kw == series:
			continue
		}
		tags = append(tags, kw)
	}
	return htmlx.NormList(tags)
}
