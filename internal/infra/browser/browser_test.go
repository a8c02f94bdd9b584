package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTP_FetchPassesHeadersAndStatus(t *testing.T) {
	var gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReferer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope"))
	}))
	defer srv.Close()

	page, err := HTTP{Client: srv.Client()}.Fetch(context.Background(), Request{
		URL:     srv.URL + "/x.jpg",
		Headers: map[string]string{"Referer": "https://jav.guru/"},
		Raw:     true,
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if page.Status != http.StatusNotFound || string(page.Body) != "nope" || page.ContentType != "image/jpeg" {
		t.Fatalf("page 不正确：%+v", page)
	}
	if gotReferer != "https://jav.guru/" {
		t.Fatalf("请求头未透传：%q", gotReferer)
	}
}

func TestHTTP_EmptyURL(t *testing.T) {
	if _, err := (HTTP{}).Fetch(context.Background(), Request{}); err == nil {
		t.Fatalf("期望错误")
	}
}

func TestChrome_SplitHeaders(t *testing.T) {
	c := Chrome{UserAgent: "default-ua"}

	ua, h := c.splitHeaders(Request{Headers: map[string]string{
		"user-agent": "custom-ua",
		"Referer":    "https://jav.guru/",
	}})
	if ua != "custom-ua" {
		t.Fatalf("请求头里的 UA 应优先：%q", ua)
	}
	if _, ok := h["user-agent"]; ok || h["Referer"] != "https://jav.guru/" {
		t.Fatalf("额外请求头不正确：%v", h)
	}

	ua, _ = c.splitHeaders(Request{})
	if ua != "default-ua" {
		t.Fatalf("未指定时应使用默认 UA：%q", ua)
	}
	if ua, _ = (Chrome{}).splitHeaders(Request{}); ua == "" {
		t.Fatalf("UA 不应为空")
	}
}
