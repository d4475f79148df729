package imageprep

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"ticksafe/api/internal/detect"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var b bytes.Buffer
	if err := png.Encode(&b, img); err != nil {
		t.Fatal(err)
	}
	return b.Bytes()
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	out, err := Normalize(encodePNG(t, solid(40, 30)), 10_000)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not jpeg: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 30 {
		t.Fatalf("size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestNormalizeDownscales(t *testing.T) {
	out, err := Normalize(encodePNG(t, solid(400, 200)), 20_000)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width*cfg.Height > 20_000 {
		t.Fatalf("size %dx%d exceeds budget", cfg.Width, cfg.Height)
	}
	if cfg.Width != 2*cfg.Height {
		t.Errorf("aspect ratio lost: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestNormalizeGIF(t *testing.T) {
	pal := image.NewPaletted(image.Rect(0, 0, 8, 8), color.Palette{color.Black, color.White})
	var b bytes.Buffer
	if err := gif.Encode(&b, pal, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := Normalize(b.Bytes(), 0); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeErrors(t *testing.T) {
	for name, in := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not an image"),
		"broken":  {0xFF, 0xD8, 0xFF, 0x00},
	} {
		_, err := Normalize(in, 0)
		if !detect.IsImageReadError(err) {
			t.Errorf("%s: err = %v, want ImageReadError", name, err)
		}
	}
}

// pngHeader: PNG из одного IHDR без пикселей, заявляющий размер w×h.
func pngHeader(w, h uint32) []byte {
	var b bytes.Buffer
	b.Write([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A})
	chunk := func(typ string, data []byte) {
		_ = binary.Write(&b, binary.BigEndian, uint32(len(data)))
		body := append([]byte(typ), data...)
		b.Write(body)
		_ = binary.Write(&b, binary.BigEndian, crc32.ChecksumIEEE(body))
	}
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 0 // grayscale
	chunk("IHDR", ihdr)
	chunk("IEND", nil)
	return b.Bytes()
}

func TestNormalizeRejectsHugeHeaderBeforeDecoding(t *testing.T) {
	in := pngHeader(20000, 20000)
	if len(in) > 100 {
		t.Fatalf("header is %d bytes", len(in))
	}
	_, err := Normalize(in, 0)
	if !detect.IsImageReadError(err) || !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ImageReadError wrapping ErrTooLarge", err)
	}
}

func TestNormalizeAllowsSourceWithinFactor(t *testing.T) {
	// 200×100 при бюджете 5000: в 4 раза больше, уменьшается, но не отвергается
	if _, err := Normalize(encodePNG(t, solid(200, 100)), 5000); err != nil {
		t.Fatal(err)
	}
	if _, err := Normalize(encodePNG(t, solid(300, 200)), 5000); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}
