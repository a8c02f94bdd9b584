// Package javmost 实现 javmost 的记录抓取（回退首选）与演员头像查找。
package javmost

import (
	"context"
	"errors"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/performer"
	"github.com/John-Robertt/avscrape/internal/provider"
	"github.com/John-Robertt/avscrape/internal/provider/htmlx"
)

const (
	DefaultBaseURL   = "https://www5.javmost.com"
	DefaultGoogleURL = "https://www.google.com/search"
)

// siteUA 是 javmost/google 请求使用的 UA。
const siteUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

var (
	releaseRE = regexp.MustCompile(`Release\s+(\d{4}-\d{2}-\d{2})`)
	runtimeRE = regexp.MustCompile(`Time\s+(\d+)`)
	trimRE    = regexp.MustCompile(`^[-_\s]+|[-_\s]+$`)
)

// Adapter 通过 HTTP 抓取搜索页（卡片列表），必要时补充详情页与 Google 标题。
type Adapter struct {
	BaseURL   string // 为空时使用 DefaultBaseURL
	GoogleURL string // 为空时使用 DefaultGoogleURL
}

func (Adapter) Name() string { return "javmost" }

func (a Adapter) base() string {
	if u := strings.TrimRight(strings.TrimSpace(a.BaseURL), "/"); u != "" {
		return u
	}
	return DefaultBaseURL
}

func headers() map[string]string {
	return map[string]string{
		"User-Agent":      siteUA,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
}

func (a Adapter) Fetch(ctx context.Context, code domain.Code, env provider.Env) (domain.SourceRecord, error) {
	if code == "" {
		return domain.SourceRecord{}, errors.New("code 不能为空")
	}
	base := a.base()
	searchURL := base + "/search/" + url.PathEscape(string(code)) + "/"
	doc, err := provider.GetDocument(ctx, env, searchURL, headers())
	if err != nil {
		return domain.SourceRecord{}, err
	}
	card := PickCard(doc, code)
	if card.Length() == 0 {
		return domain.SourceRecord{}, provider.ErrNotFound
	}

	title := CardTitle(card, code)
	if title == string(code) {
		if g := a.googleTitle(ctx, env, code); g != "" {
			title = string(code) + " - " + g
		}
	}

	d := ParseCard(card, code, base)
	d.FullTitle = title
	d.Plot = "JAV content: " + title

	if href := htmlx.Attr(card.Find("a[href]").First(), "href"); href != "" {
		detailURL := htmlx.ResolveURL(base+"/", href)
		// 详情页只用于补充简介与更好的封面，失败不影响结果。
		if detail, err := provider.GetDocument(ctx, env, detailURL, headers()); err == nil {
			ApplyDetail(d, detail, base)
		}
	}
	return toRecord(code, title, d, searchURL), nil
}

func (a Adapter) googleTitle(ctx context.Context, env provider.Env, code domain.Code) string {
	g := strings.TrimSpace(a.GoogleURL)
	if g == "" {
		g = DefaultGoogleURL
	}
	doc, err := provider.GetDocument(ctx, env, g+"?q="+url.QueryEscape(string(code)+" title"), headers())
	if err != nil {
		return ""
	}
	return GoogleTitle(doc, code)
}

// PickCard 在搜索结果中选出对应 CODE 的条目。
//
// 候选依次取 div.card、class 含 result 的 div、文本含 CODE 的最内层 div；
// 候选中 h1.card-title 与 CODE 完全一致者优先，否则取第一个。
// 都没有时，只有整页文本含 CODE 才把整页当作条目；否则返回空选择。
func PickCard(doc *goquery.Document, code domain.Code) *goquery.Selection {
	cands := searchCandidates(doc, code)
	if cands.Length() == 0 {
		if strings.Contains(doc.Text(), string(code)) {
			return doc.Selection
		}
		return doc.Selection.Slice(0, 0)
	}
	exact := cands.FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.TrimSpace(s.Find("h1.card-title").First().Text()) == string(code)
	}).First()
	if exact.Length() > 0 {
		return exact
	}
	return cands.First()
}

func searchCandidates(doc *goquery.Document, code domain.Code) *goquery.Selection {
	if cards := doc.Find("div.card"); cards.Length() > 0 {
		return cards
	}
	if res := doc.Find("div[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return htmlx.ContainsFold(s.AttrOr("class", ""), "result")
	}); res.Length() > 0 {
		return res
	}
	return doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		if !strings.Contains(s.Text(), string(code)) {
			return false
		}
		return s.Find("div").FilterFunction(func(_ int, c *goquery.Selection) bool {
			return strings.Contains(c.Text(), string(code))
		}).Length() == 0
	})
}

// CardTitle 返回卡片标题；缺失时依次回退 h2、h3、第一个链接文本，最后是占位标题。
func CardTitle(card *goquery.Selection, code domain.Code) string {
	for _, sel := range []string{"h1.card-title", "h2", "h3", "a[href]"} {
		if s := card.Find(sel).First(); s.Length() > 0 {
			return strings.TrimSpace(s.Text())
		}
	}
	return domain.PlaceholderTitle(code)
}

// ParseCard 从卡片的 p.card-text 中解析演员、导演、片商、日期、时长、分类与封面。
func ParseCard(card *goquery.Selection, code domain.Code, base string) *domain.DetailedMeta {
	d := &domain.DetailedMeta{Code: string(code)}
	text := card.Find("p.card-text").First()
	if text.Length() > 0 {
		d.Actress = performer.Clean(iconLink(text, "i.fa-female", "star"))
		d.Director = iconLink(text, "i.fa-bullhorn", "director")
		d.Studio = iconLink(text, "i.fa-group", "maker")

		raw := text.Text()
		d.ReleaseDate = htmlx.FirstSubmatch(raw, releaseRE)
		d.Runtime = htmlx.FirstSubmatch(raw, runtimeRE)

		if icon := text.Find("i.ion-ios-videocam").First(); icon.Length() > 0 {
			d.Category = strings.Join(htmlx.Texts(icon.Parent().Find("a[href*='category']")), ", ")
		}
	}

	if cover := pickCover(card, code); cover != "" {
		cover = htmlx.ResolveURL(base+"/", cover)
		d.FanartURL = cover
		d.LargeCoverURL = cover
		if strings.HasSuffix(cover, ".webp") {
			d.NeedsWebpConversion = true
			d.WebpURL = cover
		}
	}
	return d
}

// ApplyDetail 用详情页补充简介与封面。
func ApplyDetail(d *domain.DetailedMeta, doc *goquery.Document, base string) {
	plot := doc.Find("div[class*='plot'], div[class*='Plot']").First()
	if plot.Length() == 0 {
		plot = doc.Find("div[class*='synopsis'], div[class*='Synopsis']").First()
	}
	if t := strings.TrimSpace(plot.Text()); t != "" {
		d.Plot = t
	}

	img := doc.Find("img[src]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		src := strings.ToLower(htmlx.Attr(s, "src"))
		return strings.Contains(src, "cover") || strings.Contains(src, "poster")
	}).First()
	if src := htmlx.Attr(img, "src"); src != "" {
		u := htmlx.ResolveURL(base+"/", src)
		d.FanartURL = u
		d.LargeCoverURL = u
		d.NeedsWebpConversion = strings.HasSuffix(u, ".webp")
		if d.NeedsWebpConversion {
			d.WebpURL = u
		} else {
			d.WebpURL = ""
		}
	}
}

// GoogleTitle 取第一个包含 CODE 的 h3，去掉 CODE 与首尾分隔符后长度大于 3 的文本。
func GoogleTitle(doc *goquery.Document, code domain.Code) string {
	var out string
	doc.Find("h3").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.TrimSpace(s.Text())
		if !strings.Contains(t, string(code)) || len(t) <= len(code) {
			return true
		}
		t = strings.TrimSpace(strings.ReplaceAll(t, string(code), ""))
		if len(t) <= 3 {
			return true
		}
		if t = trimRE.ReplaceAllString(t, ""); t != "" {
			out = t
			return false
		}
		return true
	})
	return out
}

// iconLink 找到图标所在的父元素，返回其中 href 含 hrefPart 的第一个链接文本。
func iconLink(text *goquery.Selection, icon, hrefPart string) string {
	i := text.Find(icon).First()
	if i.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(i.Parent().Find("a[href*='" + hrefPart + "']").First().Text())
}

// pickCover 在 source[data-srcset] 中找包含 CODE 的 webp，优先文件名恰好为 CODE.webp 的。
func pickCover(card *goquery.Selection, code domain.Code) string {
	var fallback string
	var exact string
	card.Find("source[data-srcset]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		srcset := htmlx.Attr(s, "data-srcset")
		if !strings.Contains(srcset, string(code)) || !strings.Contains(srcset, ".webp") {
			return true
		}
		if strings.TrimSuffix(path.Base(srcset), ".webp") == string(code) {
			exact = srcset
			return false
		}
		if fallback == "" {
			fallback = srcset
		}
		return true
	})
	if exact != "" {
		return exact
	}
	return fallback
}

func toRecord(code domain.Code, title string, d *domain.DetailedMeta, pageURL string) domain.SourceRecord {
	rec := domain.SourceRecord{
		Source:    "javmost",
		Title:     title,
		CoverURL:  d.FanartURL,
		FanartURL: d.FanartURL,
		PageURL:   pageURL,
		Details:   map[string]string{},
		Detailed:  d,
	}
	provider.PutDetail(rec.Details, domain.KeyActor, d.Actress)
	provider.PutDetail(rec.Details, domain.KeyActress, d.Actress)
	provider.PutDetail(rec.Details, domain.KeyDirector, d.Director)
	provider.PutDetail(rec.Details, domain.KeyStudio, d.Studio)
	provider.PutDetail(rec.Details, domain.KeyMaker, d.Studio)
	provider.PutDetail(rec.Details, domain.KeyReleaseDate, d.ReleaseDate)
	provider.PutDetail(rec.Details, domain.KeyRuntime, d.Runtime)
	provider.PutDetail(rec.Details, domain.KeyGenre, d.Category)
	provider.PutDetail(rec.Details, domain.KeyCategory, d.Category)
	provider.PutDetail(rec.Details, domain.KeyPlot, d.Plot)
	return rec
}
