package imageutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngFixture(t *testing.T, fill color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestToJPEGConvertsPNG(t *testing.T) {
	out, err := ToJPEG(pngFixture(t, color.NRGBA{R: 200, A: 255}), 80)
	if err != nil {
		t.Fatalf("to jpeg: %v", err)
	}
	_, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg, got %s", format)
	}
}

func TestToJPEGFlattensTransparencyOntoWhite(t *testing.T) {
	out, err := ToJPEG(pngFixture(t, color.NRGBA{}), 0)
	if err != nil {
		t.Fatalf("to jpeg: %v", err)
	}
	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	r, g, b, _ := img.At(4, 4).RGBA()
	if r>>8 < 240 || g>>8 < 240 || b>>8 < 240 {
		t.Fatalf("expected white background, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestToJPEGRejectsGarbage(t *testing.T) {
	if _, err := ToJPEG([]byte("PNGDATA"), 90); err == nil {
		t.Fatalf("expected decode error")
	}
}
