package javmost

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/provider"
	"github.com/John-Robertt/avscrape/internal/provider/htmlx"
)

const searchHTML = `<html><body>
<div class="card">
  <a href="/ABC-1234A/"><picture><source data-srcset="//img.javmost.com/ABC-1234A.webp"></picture></a>
  <h1 class="card-title">ABC-1234A</h1>
</div>
<div class="card">
  <a href="/ABC-1234/"><picture>
    <source data-srcset="/covers/ABC-1234-variant.webp">
    <source data-srcset="/covers/ABC-1234.webp">
  </picture></a>
  <h1 class="card-title">ABC-1234</h1>
  <p class="card-text">
    <span><i class="fa fa-female"></i> Star <a href="/star/Yua+Mikami/">Yua Mikami 三上悠亜</a></span>
    <span><i class="fa fa-bullhorn"></i> <a href="/director/x/">Dir X</a></span>
    <span><i class="fa fa-group"></i> <a href="/maker/s1/">S1</a></span>
    Release 2024-02-03 Time 120 minutes
    <span><i class="ion-ios-videocam"></i> <a href="/category/a/">Drama</a> <a href="/category/b/">Solo</a></span>
  </p>
</div>
</body></html>`

const detailHTML = `<html><body><div class="entry-plot">A plot text.</div><img src="/media/cover/ABC-1234.jpg"></body></html>`

func TestParseSearchCard(t *testing.T) {
	doc, _ := htmlx.Parse([]byte(searchHTML))
	card := PickCard(doc, "ABC-1234")
	if got := CardTitle(card, "ABC-1234"); got != "ABC-1234" {
		t.Fatalf("应选中标题完全匹配的卡片：%q", got)
	}
	d := ParseCard(card, "ABC-1234", DefaultBaseURL)
	if d.Actress != "Yua Mikami" || d.Director != "Dir X" || d.Studio != "S1" {
		t.Fatalf("人物字段不正确：%+v", d)
	}
	if d.ReleaseDate != "2024-02-03" || d.Runtime != "120" || d.Category != "Drama, Solo" {
		t.Fatalf("日期/时长/分类不正确：%+v", d)
	}
	if d.FanartURL != "https://www5.javmost.com/covers/ABC-1234.webp" || !d.NeedsWebpConversion {
		t.Fatalf("封面应优先文件名恰好为 CODE 的 webp：%+v", d)
	}
}

func TestPickCard_FallsBackToFirst(t *testing.T) {
	doc, _ := htmlx.Parse([]byte(searchHTML))
	card := PickCard(doc, "ABC-9999")
	if got := CardTitle(card, "ABC-9999"); got != "ABC-1234A" {
		t.Fatalf("无完全匹配时应取第一张卡片：%q", got)
	}
}

func TestPickCard_WithoutCards(t *testing.T) {
	doc, _ := htmlx.Parse([]byte(`<div class="SearchResult"><h2>ABC-1234 Result Title</h2></div>`))
	if got := CardTitle(PickCard(doc, "ABC-1234"), "ABC-1234"); got != "ABC-1234 Result Title" {
		t.Fatalf("应使用 class 含 result 的 div：%q", got)
	}

	doc, _ = htmlx.Parse([]byte(`<div><div><a href="/">Home</a></div><div><h3>ABC-1234 Inner Title</h3></div></div>`))
	if got := CardTitle(PickCard(doc, "ABC-1234"), "ABC-1234"); got != "ABC-1234 Inner Title" {
		t.Fatalf("应使用文本含 CODE 的最内层 div：%q", got)
	}

	doc, _ = htmlx.Parse([]byte(`<nav><a href="/">Home</a></nav><p>No results</p>`))
	if card := PickCard(doc, "ABC-1234"); card.Length() != 0 {
		t.Fatalf("页面不含 CODE 时不应把整页当作结果：%q", CardTitle(card, "ABC-1234"))
	}
}

func TestFetch_SearchWithoutCodeIsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><nav><a href="/">JAVMOST Home</a></nav><p>Nothing here</p></body></html>`))
	}))
	defer srv.Close()

	a := Adapter{BaseURL: srv.URL, GoogleURL: srv.URL + "/google"}
	_, err := a.Fetch(context.Background(), "ABC-1234", provider.Env{HTTP: srv.Client()})
	if !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("搜索页没有该 CODE 时应返回 ErrNotFound：%v", err)
	}
}

func TestGoogleTitle(t *testing.T) {
	doc, _ := htmlx.Parse([]byte(`<h3>Unrelated</h3><h3>ABC-1234</h3><h3>ABC-1234 - My Real Title -</h3>`))
	if got := GoogleTitle(doc, "ABC-1234"); got != "My Real Title" {
		t.Fatalf("Google 标题不正确：%q", got)
	}
	doc, _ = htmlx.Parse([]byte(`<h3>ABC-1234 ab</h3>`))
	if got := GoogleTitle(doc, "ABC-1234"); got != "" {
		t.Fatalf("过短的标题应被忽略：%q", got)
	}
}

func TestFetch_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search/ABC-1234/":
			_, _ = w.Write([]byte(searchHTML))
		case "/ABC-1234/":
			_, _ = w.Write([]byte(detailHTML))
		case "/google":
			_, _ = w.Write([]byte(`<h3>ABC-1234 Google Found Title</h3>`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a := Adapter{BaseURL: srv.URL, GoogleURL: srv.URL + "/google"}
	rec, err := a.Fetch(context.Background(), "ABC-1234", provider.Env{HTTP: srv.Client()})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rec.Title != "ABC-1234 - Google Found Title" {
		t.Fatalf("标题等于 CODE 时应补充 Google 标题：%q", rec.Title)
	}
	if rec.Detail(domain.KeyPlot) != "A plot text." {
		t.Fatalf("简介应来自详情页：%q", rec.Detail(domain.KeyPlot))
	}
	if rec.CoverURL != srv.URL+"/media/cover/ABC-1234.jpg" || rec.Detailed.NeedsWebpConversion {
		t.Fatalf("详情页封面应覆盖搜索页 webp：%q", rec.CoverURL)
	}
	if rec.Detail(domain.KeyActor) != "Yua Mikami" || rec.Detail(domain.KeyMaker) != "S1" || rec.Detail(domain.KeyCategory) != "Drama, Solo" {
		t.Fatalf("平铺字段不正确：%v", rec.Details)
	}
	if !provider.Meaningful("ABC-1234", rec) {
		t.Fatalf("该记录应为有效记录")
	}
}

func TestPortrait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/star/Yua+Mikami/":
			_, _ = w.Write([]byte(`<a href="/star/other/">Someone</a><a href="/star/yua-mikami/">YUA MIKAMI profile</a>`))
		case "/star/yua-mikami/":
			_, _ = w.Write([]byte(`<img src="/logo.png"><img src="/img/actress/yua.jpg?v=2">`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p, err := Portrait{BaseURL: srv.URL}.FetchPortrait(context.Background(), "Yua Mikami", provider.Env{HTTP: srv.Client()})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if p.URL != srv.URL+"/img/actress/yua.jpg" || p.NeedsConversion {
		t.Fatalf("头像 URL 不正确：%+v", p)
	}
}

func TestProfileImage_FallbackSkipsWebp(t *testing.T) {
	doc, _ := htmlx.Parse([]byte(`<img src="/a.webp"><img src="/b.jpg?x=1">`))
	if got := ProfileImage(doc, DefaultBaseURL); got != "https://www5.javmost.com/b.jpg" {
		t.Fatalf("回退应跳过 webp：%q", got)
	}
}
