package synthetic

import (
	"context"
	"testing"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/provider"
)

func TestFetch(t *testing.T) {
	code := domain.Code("XYZ-9999")
	rec, err := Adapter{}.Fetch(context.Background(), code, provider.Env{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rec.Source != provider.SourceBasic {
		t.Fatalf("来源应为 basic：%q", rec.Source)
	}
	if rec.Title != "XYZ-9999 - JAV Content" {
		t.Fatalf("标题不正确：%q", rec.Title)
	}
	if rec.CoverURL != "https://picsum.photos/300/450?random=XYZ-9999" {
		t.Fatalf("封面不正确：%q", rec.CoverURL)
	}
	if rec.Detail(domain.KeyStudio) != domain.UnknownValue || rec.Detail(domain.KeyRuntime) != "120" {
		t.Fatalf("平铺字段不正确：%v", rec.Details)
	}
	if !provider.Meaningful(code, rec) {
		t.Fatalf("带占位封面的合成记录仍满足有效性判断")
	}

	rec, _ = Adapter{WithoutCover: true}.Fetch(context.Background(), code, provider.Env{})
	if rec.CoverURL != "" || provider.Meaningful(code, rec) {
		t.Fatalf("无封面版本不应有封面")
	}
}
