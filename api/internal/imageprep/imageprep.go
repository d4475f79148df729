// Package imageprep читает фото пользователя и готовит его к отправке
// в сервис детекции: декодирование, уменьшение, перекодирование в JPEG.
package imageprep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"ticksafe/api/internal/detect"
)

const (
	// DefaultMaxPixels: бюджет пикселей; всё, что больше, уменьшается.
	DefaultMaxPixels = 4_000_000
	jpegQuality      = 90
	// sourceFactor: во сколько раз исходник может превышать бюджет до декодирования.
	sourceFactor = 10
)

var (
	ErrEmpty    = errors.New("empty image")
	ErrTooLarge = errors.New("image dimensions are too large")
)

// Normalize декодирует картинку, при необходимости уменьшает её до maxPixels
// и возвращает JPEG. Любая ошибка чтения: *detect.ImageReadError.
func Normalize(b []byte, maxPixels int) ([]byte, error) {
	if len(b) == 0 {
		return nil, &detect.ImageReadError{Err: ErrEmpty}
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	// размер из заголовка: пиксельный буфер не выделяется, пока он не проверен
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, &detect.ImageReadError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &detect.ImageReadError{Err: ErrEmpty}
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(sourceFactor)*int64(maxPixels) {
		return nil, &detect.ImageReadError{Err: fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)}
	}

	img, err := decode(b)
	if err != nil {
		return nil, &detect.ImageReadError{Err: err}
	}
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, &detect.ImageReadError{Err: ErrEmpty}
	}

	if w*h > maxPixels {
		img = scaleDown(img, fit(w, h, maxPixels))
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, &detect.ImageReadError{Err: fmt.Errorf("encode jpeg: %w", err)}
	}
	return out.Bytes(), nil
}

// decode сначала пробует формат по сигнатуре, потом общий image.Decode.
func decode(b []byte) (image.Image, error) {
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xD8 {
		return jpeg.Decode(bytes.NewReader(b))
	}
	if len(b) >= 8 && bytes.Equal(b[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		return png.Decode(bytes.NewReader(b))
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	return img, err
}

// fit: размер с тем же соотношением сторон, не больше maxPixels.
func fit(w, h, maxPixels int) image.Point {
	scale := math.Sqrt(float64(maxPixels) / float64(w*h))
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return image.Pt(nw, nh)
}

func scaleDown(src image.Image, size image.Point) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
