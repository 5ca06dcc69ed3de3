package share

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// OGカード標準寸法
const (
	previewWidth  = 1200
	previewHeight = 630
)

// previewPalette はプレビュー画像の背景色候補。
var previewPalette = []color.RGBA{
	{R: 0xF4, G: 0x9A, B: 0x8F, A: 0xFF}, // coral
	{R: 0x8F, G: 0xB8, B: 0xF4, A: 0xFF}, // sky
	{R: 0x9F, G: 0xE0, B: 0xA8, A: 0xFF}, // mint
	{R: 0xF4, G: 0xD3, B: 0x8F, A: 0xFF}, // sand
	{R: 0xC9, G: 0xA8, B: 0xE8, A: 0xFF}, // lilac
	{R: 0xF2, G: 0xB2, B: 0xD4, A: 0xFF}, // rose
}

// GeneratePreview は共有カード用のPNGプレビュー画像を生成する。
// 文字描画ライブラリに依存せず、シードから決定的に導いた色の
// タイルパターンを敷く。同一シードは常に同一画像になる。
func GeneratePreview(seed string) ([]byte, error) {
	sum := sha256.Sum256([]byte(seed))

	base := previewPalette[int(sum[0])%len(previewPalette)]
	accent := previewPalette[int(sum[1])%len(previewPalette)]

	img := image.NewRGBA(image.Rect(0, 0, previewWidth, previewHeight))

	// 背景
	for y := 0; y < previewHeight; y++ {
		for x := 0; x < previewWidth; x++ {
			img.SetRGBA(x, y, base)
		}
	}

	// ハッシュビットに応じたアクセントタイル。6x3グリッドの市松風
	const cols, rows = 6, 3
	tileW := previewWidth / cols
	tileH := previewHeight / rows
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			bit := sum[2+(row*cols+col)%30]
			if bit%3 != 0 {
				continue
			}
			fillRect(img, col*tileW, row*tileH, tileW, tileH, accent)
		}
	}

	// 枠線
	border := color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xFF}
	const borderWidth = 12
	fillRect(img, 0, 0, previewWidth, borderWidth, border)
	fillRect(img, 0, previewHeight-borderWidth, previewWidth, borderWidth, border)
	fillRect(img, 0, 0, borderWidth, previewHeight, border)
	fillRect(img, previewWidth-borderWidth, 0, borderWidth, previewHeight, border)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode preview image: %w", err)
	}
	return buf.Bytes(), nil
}

func fillRect(img *image.RGBA, x, y, w, h int, c color.RGBA) {
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			img.SetRGBA(x+dx, y+dy, c)
		}
	}
}
