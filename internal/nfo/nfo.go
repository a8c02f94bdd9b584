// Package nfo 生成 movie.nfo（Kodi/Jellyfin/Emby 可读取的 XML）。
package nfo

import (
	"encoding/xml"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/performer"
)

const FileName = domain.NFOName

const (
	DefaultMPAA     = "NC-17"
	DefaultCountry  = "Japan"
	DefaultLanguage = "Japanese"
	FemaleRole      = "Female Performer"
)

var defaultGenres = []string{"Adult", "JAV"}

// plotPolicy 去掉简介中的所有 HTML 标签。
var plotPolicy = bluemonday.StrictPolicy()

type movie struct {
	XMLName xml.Name `xml:"movie"`

	Title         string     `xml:"title"`
	OriginalTitle string     `xml:"originaltitle"`
	Plot          string     `xml:"plot"`
	Runtime       string     `xml:"runtime"`
	MPAA          string     `xml:"mpaa"`
	UniqueIDs     []uniqueID `xml:"uniqueid"`
	Year          string     `xml:"year"`
	ReleaseDate   string     `xml:"releasedate"`
	Country       string     `xml:"country"`
	Language      string     `xml:"language"`
	Studio        string     `xml:"studio"`
	Label         string     `xml:"label"`
	Director      string     `xml:"director"`
	Category      string     `xml:"category"`
	Tags          string     `xml:"tags"`
	Source        string     `xml:"source"`
	Genres        []string   `xml:"genre"`
	Actors        []actor    `xml:"actor"`

	Set        string `xml:"set,omitempty"`
	Trailer    string `xml:"trailer,omitempty"`
	ActorThumb string `xml:"actorthumb,omitempty"`
	Fanart     string `xml:"fanart,omitempty"`
	Cover      string `xml:"cover,omitempty"`

	CustomInfo customInfo `xml:"custominfo"`
}

type uniqueID struct {
	Type    string `xml:"type,attr"`
	Default bool   `xml:"default,attr"`
	Value   string `xml:",chardata"`
}

type actor struct {
	Name  string `xml:"name"`
	Role  string `xml:"role"`
	Order int    `xml:"order"`
	Thumb string `xml:"thumb,omitempty"`
}

type customInfo struct {
	Info []info `xml:"info"`
}

type info struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Encode 把合并记录转成 NFO。now 只用于缺少发行日期时的兜底。
//
// 规则：
// - 标题优先整包 full_title，其次 best title；占位标题一律替换为 CODE
// - 缺失字段输出空元素，结构保持稳定
func Encode(m domain.MergedRecord, now time.Time) ([]byte, error) {
	d := m.Detailed
	if d == nil {
		d = &domain.DetailedMeta{}
	}
	code := strings.TrimSpace(string(m.Code))
	if code == "" {
		code = strings.TrimSpace(d.Code)
	}

	title := firstNonEmpty(d.FullTitle, m.BestTitle, code)
	if domain.IsPlaceholderTitle(domain.Code(code), title) {
		title = code
	}

	plot := firstNonEmpty(d.Plot, m.Detail(domain.KeyPlot), "JAV content: "+title)
	plot = sanitize(plot)

	release := firstNonEmpty(d.ReleaseDate, m.Detail(domain.KeyReleaseDate), now.Format("2006-01-02"))
	year, _, _ := strings.Cut(release, "-")

	director := firstNonEmpty(d.Director, m.Detail(domain.KeyDirector))
	studio := firstNonEmpty(d.Studio, m.Detail(domain.KeyStudio))
	label := strings.TrimSpace(d.Label)
	category := strings.TrimSpace(d.Category)
	tags := performer.Split(d.Tags)
	actresses := performer.Split(firstNonEmpty(d.Actress, m.Detail(domain.KeyActress)))
	portrait := strings.TrimSpace(d.ThumbURL)

	genres := append(performer.Split(category), tags...)
	if len(genres) == 0 {
		genres = append([]string(nil), defaultGenres...)
	}

	out := movie{
		Title:         title,
		OriginalTitle: title,
		Plot:          plot,
		Runtime:       runtime(m, d),
		MPAA:          DefaultMPAA,
		UniqueIDs: []uniqueID{
			{Type: "num", Default: true, Value: code},
			{Type: "jav", Default: false, Value: code},
		},
		Year:        year,
		ReleaseDate: release,
		Country:     DefaultCountry,
		Language:    DefaultLanguage,
		Studio:      studio,
		Label:       label,
		Director:    director,
		Category:    category,
		Tags:        strings.Join(tags, ", "),
		Source:      m.Source(),
		Genres:      genres,

		Set:        firstNonEmpty(m.Detail(domain.KeySeries), d.Series),
		Trailer:    m.Detail(domain.KeyTrailer),
		ActorThumb: m.Detail(domain.KeyActorThumb),
		Fanart:     strings.TrimSpace(d.FanartURL),
		Cover:      strings.TrimSpace(d.LargeCoverURL),
	}
	for _, a := range actresses {
		out.Actors = append(out.Actors, actor{Name: a, Role: FemaleRole, Order: 0, Thumb: portrait})
	}
	out.CustomInfo.Info = []info{
		{Name: "JAV Code", Value: code},
		{Name: "Release Date", Value: release},
		{Name: "Category", Value: category},
		{Name: "Director", Value: director},
		{Name: "Studio", Value: studio},
		{Name: "Label", Value: label},
		{Name: "Tags", Value: strings.Join(tags, ", ")},
		{Name: "Female Performers", Value: strings.Join(actresses, ", ")},
		{Name: "Source", Value: m.Source()},
		{Name: "Plot", Value: plot},
	}

	b, err := xml.MarshalIndent(out, "", "    ")
	if err != nil {
		return nil, err
	}
	const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	return append([]byte(header), b...), nil
}

// runtime 取全数字的时长：平铺 Runtime -> 整包 runtime -> "0"。
func runtime(m domain.MergedRecord, d *domain.DetailedMeta) string {
	for _, v := range []string{m.Detail(domain.KeyRuntime), strings.TrimSpace(d.Runtime)} {
		if isDigits(v) {
			return v
		}
	}
	return "0"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// sanitize 去掉标签并还原实体（XML 编码时会再次转义）。
func sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(plotPolicy.Sanitize(s)))
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
