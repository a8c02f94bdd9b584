package imgx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // 注册 GIF 解码器（个别站点的占位图）
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"math"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // 注册 WebP 解码器：imaging.Open/Decode 依赖 image 包的注册表
)

// PosterRatio 是 poster 相对 fanart 的宽度比例（从右边缘起算），固定不可配置。
const PosterRatio = 0.47125

// JPEGQuality 是所有重新编码输出的 JPEG 质量。
const JPEGQuality = 95

// PosterWidth 返回宽度为 w 的 fanart 对应的 poster 宽度：round(w * PosterRatio)。
func PosterWidth(w int) int {
	return int(math.Round(float64(w) * PosterRatio))
}

// PosterFromFanart 从 fanart 右侧裁切出 poster，并编码为 JPEG。
//
// 约束：
// - 输入允许是 JPEG/PNG/WebP
// - 输出固定为 JPEG（质量 95）
// - 裁切规则：保留原高度，宽度取右侧 round(W*0.47125)
func PosterFromFanart(fanart []byte) ([]byte, error) {
	if len(fanart) == 0 {
		return nil, errors.New("fanart 为空")
	}

	img, err := imaging.Decode(bytes.NewReader(fanart))
	if err != nil {
		return nil, fmt.Errorf("解码 fanart 失败：%w", err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}
	cw := PosterWidth(b.Dx())
	if cw <= 0 {
		return nil, fmt.Errorf("图片过窄，无法裁切：宽度 %d", b.Dx())
	}

	poster := imaging.Crop(img, image.Rect(b.Max.X-cw, b.Min.Y, b.Max.X, b.Max.Y))
	return encodeJPEG(poster)
}

// NormalizeJPEG 把需要转码的图片（通常是 WebP）转换为不透明的 JPEG。
//
// 字节先写入 tmpDir 下的临时文件，再用 imaging.Open 解码；tmpDir 为空时使用系统临时目录。
// 透明区域铺白底。
func NormalizeJPEG(data []byte, tmpDir string) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("图片为空")
	}

	tmp, err := os.CreateTemp(tmpDir, ".avscrape-img-*")
	if err != nil {
		return nil, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	img, err := imaging.Open(tmpName)
	if err != nil {
		return nil, fmt.Errorf("解码图片失败：%w", err)
	}
	return encodeJPEG(flatten(img))
}

// flatten 把图片铺到白色底板上，去掉 alpha 通道的影响。
func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
