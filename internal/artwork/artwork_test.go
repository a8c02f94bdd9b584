package artwork

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/avscrape/internal/domain"
	"github.com/John-Robertt/avscrape/internal/provider/providertest"
)

// mustFanartJPEG 构造一张有足够细节（压缩后远大于 1000 字节）的 JPEG。
func mustFanartJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 13), uint8((x * y) % 251), 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg 失败：%v", err)
	}
	return buf.Bytes()
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取 %s 失败：%v", path, err)
	}
	img, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode %s 失败：%v", path, err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestRefererFor(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"https://cdn.javsts.com/wp-content/uploads/abc123pl.jpg", "https://jav.guru/?s=ABC123"},
		{"https://pics.dmm.co.jp/x.jpg", "https://jav.guru/"},
		{"https://www.javbus.com/pics/cover/x.jpg", "https://www.javbus.com/"},
	} {
		if got := RefererFor(tc.in); got != tc.want {
			t.Fatalf("RefererFor(%q)=%q，期望 %q", tc.in, got, tc.want)
		}
	}
	if h := ImageHeaders("https://www.javbus.com/pics/x.jpg"); h["Cookie"] != "age=verified" {
		t.Fatalf("javbus 图片应带年龄确认 cookie：%v", h)
	}
}

func TestDownload_StatusAndSize(t *testing.T) {
	img := mustFanartJPEG(t, 64, 64)
	pages := providertest.NewPages(map[string]string{
		"https://img/ok.jpg":    string(img),
		"https://img/small.jpg": "tiny",
	})
	d := Downloader{Renderer: pages}

	b, err := d.Download(context.Background(), "https://img/ok.jpg")
	if err != nil || !bytes.Equal(b, img) {
		t.Fatalf("下载失败：%v", err)
	}
	if pages.Header(0, "Accept") != imageAccept || pages.Header(0, "Referer") != "https://jav.guru/" {
		t.Fatalf("图片请求头不正确")
	}

	_, err = d.Download(context.Background(), "https://img/small.jpg")
	if !errors.Is(err, ErrTooSmall) {
		t.Fatalf("期望 ErrTooSmall，实际 %v", err)
	}

	_, err = d.Download(context.Background(), "https://img/missing.jpg")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != 404 {
		t.Fatalf("期望 *StatusError(404)，实际 %v", err)
	}
}

func TestProduce_DownloadsFanartAndCropsPoster(t *testing.T) {
	dir := t.TempDir()
	pages := providertest.NewPages(map[string]string{
		"https://img/fanart.jpg": string(mustFanartJPEG(t, 400, 200)),
	})
	p := Pipeline{Downloader: Downloader{Renderer: pages}}

	m := domain.MergedRecord{Code: "ABC-123", BestCover: "https://img/fanart.jpg"}
	res := p.Produce(context.Background(), dir, m)
	if res.Fanart != Created || res.Poster != Created || len(res.Notes) != 0 {
		t.Fatalf("结果不正确：%+v", res)
	}
	if w, h := decodeSize(t, filepath.Join(dir, domain.PosterName)); w != 189 || h != 200 {
		t.Fatalf("poster 尺寸应为 189x200，实际 %dx%d", w, h)
	}

	// 再跑一次：两个文件都已存在，不再下载。
	res = p.Produce(context.Background(), dir, m)
	if res.Fanart != Exists || res.Poster != Exists {
		t.Fatalf("已存在的文件应视为完成：%+v", res)
	}
	if n := len(pages.Requests()); n != 1 {
		t.Fatalf("期望只下载 1 次，实际 %d", n)
	}
}

func TestProduce_PosterFromLocalFanart(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, domain.FanartName), mustFanartJPEG(t, 200, 100), 0o644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	pages := providertest.NewPages(nil)
	p := Pipeline{Downloader: Downloader{Renderer: pages}}

	res := p.Produce(context.Background(), dir, domain.MergedRecord{Code: "ABC-123", BestCover: "https://img/x.jpg"})
	if res.Fanart != Exists || res.Poster != Created {
		t.Fatalf("应从本地 fanart 裁切 poster：%+v", res)
	}
	if len(pages.Requests()) != 0 {
		t.Fatalf("fanart 已存在时不应下载")
	}
	if w, _ := decodeSize(t, filepath.Join(dir, domain.PosterName)); w != 94 {
		t.Fatalf("poster 宽度应为 94，实际 %d", w)
	}
}

func TestProduce_DownloadFailureSkipsCrop(t *testing.T) {
	dir := t.TempDir()
	p := Pipeline{Downloader: Downloader{Renderer: providertest.NewPages(nil)}}

	res := p.Produce(context.Background(), dir, domain.MergedRecord{Code: "ABC-123", BestCover: "https://img/404.jpg"})
	if res.Fanart != Failed || res.Poster != "" || len(res.Notes) != 1 {
		t.Fatalf("下载失败时应只记 note 并跳过 poster：%+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, domain.PosterName)); !os.IsNotExist(err) {
		t.Fatalf("不应生成 poster")
	}
}

func TestPortrait_SavesUnderSafeName(t *testing.T) {
	dir := t.TempDir()
	pages := providertest.NewPages(map[string]string{
		"https://img/p.jpg": string(mustFanartJPEG(t, 80, 120)),
	})
	p := Pipeline{Downloader: Downloader{Renderer: pages}}

	name, err := p.Portrait(context.Background(), dir, domain.PerformerPortrait{Name: "Yua Mikami", URL: "https://img/p.jpg"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if name != "Yua_Mikami_portrait.jpg" {
		t.Fatalf("文件名不正确：%q", name)
	}
	if w, h := decodeSize(t, filepath.Join(dir, name)); w != 80 || h != 120 {
		t.Fatalf("头像尺寸不正确：%dx%d", w, h)
	}
}
