package util

import (
	"bytes"
	"errors"
	"testing"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0}

func TestDataURLRoundTrip(t *testing.T) {
	src := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}
	u := MakeDataURL("image/jpeg", src)
	got, mime, err := DecodeDataURL(u)
	if err != nil {
		t.Fatalf("DecodeDataURL: %v", err)
	}
	if mime != "image/jpeg" {
		t.Errorf("mime = %q, want image/jpeg", mime)
	}
	if !bytes.Equal(got, src) {
		t.Errorf("payload mismatch: %v", got)
	}
}

func TestDecodeDataURLErrors(t *testing.T) {
	if _, _, err := DecodeDataURL("aGVsbG8="); !errors.Is(err, ErrNotDataURL) {
		t.Errorf("plain base64: err = %v, want ErrNotDataURL", err)
	}
	if _, _, err := DecodeDataURL("data:image/png;base64"); !errors.Is(err, ErrNotDataURL) {
		t.Errorf("no comma: err = %v, want ErrNotDataURL", err)
	}
	if _, _, err := DecodeDataURL("data:text/plain,hello"); err == nil {
		t.Error("non-base64 data URL: want error")
	}
	if _, _, err := DecodeDataURL("data:image/png;base64,@@@"); err == nil {
		t.Error("corrupt payload: want error")
	}
}

func TestSniffMimeHTTP(t *testing.T) {
	cases := map[string][]byte{
		"image/jpeg":               {0xFF, 0xD8, 0xFF},
		"image/png":                pngHeader,
		"image/gif":                []byte("GIF89a...."),
		"application/octet-stream": []byte("hello"),
	}
	for want, b := range cases {
		if got := SniffMimeHTTP(b); got != want {
			t.Errorf("SniffMimeHTTP(%q) = %q, want %q", b, got, want)
		}
	}
}

func TestStripCodeFences(t *testing.T) {
	if got := StripCodeFences("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Errorf("got %q", got)
	}
	if got := StripCodeFences("  Yes "); got != "Yes" {
		t.Errorf("got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc…" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("не тик", 20); got != "не тик" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("不是这是叶子", 2); got != "不是…" {
		t.Errorf("got %q", got)
	}
}
