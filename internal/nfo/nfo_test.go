package nfo

import (
	"bytes"
	"encoding/xml"
	"testing"
	"time"

	"github.com/John-Robertt/avscrape/internal/domain"
)

type movieOut struct {
	Title         string `xml:"title"`
	OriginalTitle string `xml:"originaltitle"`
	Plot          string `xml:"plot"`
	Runtime       string `xml:"runtime"`
	MPAA          string `xml:"mpaa"`
	UniqueIDs     []struct {
		Type    string `xml:"type,attr"`
		Default string `xml:"default,attr"`
		Value   string `xml:",chardata"`
	} `xml:"uniqueid"`
	Year        string   `xml:"year"`
	ReleaseDate string   `xml:"releasedate"`
	Studio      string   `xml:"studio"`
	Tags        string   `xml:"tags"`
	Source      string   `xml:"source"`
	Genres      []string `xml:"genre"`
	Set         string   `xml:"set"`
	Fanart      string   `xml:"fanart"`
	Actors      []struct {
		Name  string `xml:"name"`
		Role  string `xml:"role"`
		Order int    `xml:"order"`
		Thumb string `xml:"thumb"`
	} `xml:"actor"`
	Info []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",chardata"`
	} `xml:"custominfo>info"`
}

var fixedNow = time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

func decode(t *testing.T, b []byte) movieOut {
	t.Helper()
	var out movieOut
	if err := xml.Unmarshal(b, &out); err != nil {
		t.Fatalf("xml.Unmarshal 失败：%v\n%s", err, b)
	}
	return out
}

func TestEncode_FullRecord(t *testing.T) {
	m := domain.MergedRecord{
		Code:      "ABC-1234",
		Accepted:  []domain.SourceRecord{{Source: "javguru"}, {Source: "javtrailers"}},
		BestTitle: "best",
		Details: map[string]string{
			domain.KeyRuntime: "120 min",
			domain.KeySeries:  "Series S",
		},
		Detailed: &domain.DetailedMeta{
			FullTitle:   "Full Title",
			Plot:        `<p>Plot &amp; <b>story</b></p>`,
			Runtime:     "118",
			ReleaseDate: "2024-05-06",
			Studio:      "Studio X",
			Category:    "Drama, Solo",
			Tags:        "t1, t2",
			Actress:     "Yua Mikami, Other",
			ThumbURL:    "https://x/p.jpg",
			FanartURL:   "https://x/f.jpg",
		},
	}
	b, err := Encode(m, fixedNow)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !bytes.HasPrefix(b, []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)) {
		t.Fatalf("缺少 XML 头：%s", b)
	}
	out := decode(t, b)

	if out.Title != "Full Title" || out.OriginalTitle != "Full Title" {
		t.Fatalf("标题应优先 full_title：%q", out.Title)
	}
	if out.Plot != "Plot & story" {
		t.Fatalf("简介应去掉标签：%q", out.Plot)
	}
	if out.Runtime != "118" {
		t.Fatalf("平铺 Runtime 非纯数字时应回退整包 runtime：%q", out.Runtime)
	}
	if out.Year != "2024" || out.ReleaseDate != "2024-05-06" || out.MPAA != "NC-17" {
		t.Fatalf("日期/分级不正确：%+v", out)
	}
	if len(out.UniqueIDs) != 2 || out.UniqueIDs[0].Type != "num" || out.UniqueIDs[0].Default != "true" || out.UniqueIDs[1].Value != "ABC-1234" {
		t.Fatalf("uniqueid 不正确：%+v", out.UniqueIDs)
	}
	if out.Source != "javguru" || out.Set != "Series S" || out.Fanart != "https://x/f.jpg" {
		t.Fatalf("来源/系列/fanart 不正确：%+v", out)
	}
	if len(out.Genres) != 4 || out.Genres[0] != "Drama" || out.Genres[3] != "t2" {
		t.Fatalf("genre 应为分类 + 标签：%v", out.Genres)
	}
	if len(out.Actors) != 2 || out.Actors[0].Role != FemaleRole || out.Actors[1].Thumb != "https://x/p.jpg" {
		t.Fatalf("演员不正确：%+v", out.Actors)
	}
	if len(out.Info) != 10 || out.Info[7].Name != "Female Performers" || out.Info[7].Value != "Yua Mikami, Other" {
		t.Fatalf("custominfo 不正确：%+v", out.Info)
	}
}

func TestEncode_PlaceholderTitleBecomesCode(t *testing.T) {
	m := domain.MergedRecord{
		Code:      "XYZ-9999",
		Accepted:  []domain.SourceRecord{{Source: "basic"}},
		BestTitle: "XYZ-9999 - JAV Content",
		Details:   map[string]string{domain.KeyRuntime: "120", domain.KeyActor: "Unknown"},
	}
	out := decode(t, mustEncode(t, m))
	if out.Title != "XYZ-9999" {
		t.Fatalf("占位标题应替换为 CODE：%q", out.Title)
	}
	if out.Plot != "JAV content: XYZ-9999" {
		t.Fatalf("缺少简介时的兜底不正确：%q", out.Plot)
	}
	if out.ReleaseDate != "2026-03-04" || out.Year != "2026" {
		t.Fatalf("缺少日期时应使用当天：%q", out.ReleaseDate)
	}
	if len(out.Genres) != 2 || out.Genres[0] != "Adult" || out.Genres[1] != "JAV" {
		t.Fatalf("默认 genre 不正确：%v", out.Genres)
	}
	if out.Runtime != "120" || out.Source != "basic" || len(out.Actors) != 0 {
		t.Fatalf("字段不正确：%+v", out)
	}
}

func TestEncode_EscapesText(t *testing.T) {
	m := domain.MergedRecord{Code: "ABC-123", BestTitle: `A < B & "C"`}
	b := mustEncode(t, m)
	if !bytes.Contains(b, []byte("A &lt; B &amp;")) {
		t.Fatalf("文本应被 XML 转义：%s", b)
	}
	if out := decode(t, b); out.Title != `A < B & "C"` || out.Source != "unknown" {
		t.Fatalf("解码后应还原：%+v", out)
	}
}

func mustEncode(t *testing.T, m domain.MergedRecord) []byte {
	t.Helper()
	b, err := Encode(m, fixedNow)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return b
}
