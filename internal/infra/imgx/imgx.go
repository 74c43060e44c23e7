// Package imgx 处理封面图：从横版封面裁出竖版海报。
package imgx

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png" // 注册 PNG 解码器（站点偶尔返回 PNG）
)

// JPEGQuality 是输出 JPEG 的质量。
const JPEGQuality = 95

// Poster 从封面生成海报（JPEG）。
//
// 规则：
// - 横版封面（宽 > 高）是“背面 + 正面”的展开图，取右半边
// - 竖版封面本身就是海报，原尺寸重新编码
func Poster(cover []byte) ([]byte, error) {
	if len(cover) == 0 {
		return nil, errors.New("封面为空")
	}
	img, _, err := image.Decode(bytes.NewReader(cover))
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	src := b
	if b.Dx() > b.Dy() {
		src = image.Rect(b.Min.X+b.Dx()/2, b.Min.Y, b.Max.X, b.Max.Y)
	}
	dst := image.NewRGBA(image.Rect(0, 0, src.Dx(), src.Dy()))
	draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
