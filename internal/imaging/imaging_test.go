package imaging

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/bmp"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestResizeToFit(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxSize       int
		wantW, wantH  int
	}{
		{"landscape shrinks", 400, 200, 100, 100, 50},
		{"portrait shrinks", 200, 400, 100, 50, 100},
		{"already small", 80, 60, 100, 80, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ResizeToFit(solid(tt.width, tt.height, color.White), tt.maxSize)
			if out.Bounds().Dx() != tt.wantW || out.Bounds().Dy() != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", out.Bounds().Dx(), out.Bounds().Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestScale(t *testing.T) {
	img := solid(400, 300, color.White)
	out := Scale(img, 0.25)
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 75 {
		t.Errorf("got %v", out.Bounds())
	}
	if Scale(img, 1) != image.Image(img) {
		t.Error("factor 1 should return the input image")
	}
}

func TestCrop(t *testing.T) {
	img := solid(100, 100, color.White)

	out := Crop(img, []float64{10, 20, 40, 60})
	if out == nil || out.Bounds().Dx() != 30 || out.Bounds().Dy() != 40 {
		t.Fatalf("unexpected crop %v", out)
	}

	clamped := Crop(img, []float64{90, 90, 150, 150})
	if clamped == nil || clamped.Bounds().Dx() != 10 {
		t.Errorf("expected crop clamped to image bounds, got %v", clamped)
	}

	if Crop(img, []float64{200, 200, 300, 300}) != nil {
		t.Error("expected nil for region outside image")
	}
	if Crop(img, []float64{1, 2}) != nil {
		t.Error("expected nil for malformed bbox")
	}
}

func TestDrawBox(t *testing.T) {
	dst := Clone(solid(50, 50, color.Black))
	DrawBox(dst, []float64{10, 10, 30, 30}, 2, Green)

	if got := dst.RGBAAt(10, 20); got != Green {
		t.Errorf("left edge = %v, want green", got)
	}
	if got := dst.RGBAAt(20, 29); got != Green {
		t.Errorf("bottom edge = %v, want green", got)
	}
	if got := dst.RGBAAt(20, 20); got == Green {
		t.Error("interior should not be painted")
	}
}

func TestDecodeBMPAndEncodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, solid(8, 8, color.White)); err != nil {
		t.Fatalf("encoding bmp: %v", err)
	}
	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	data, err := EncodeJPEG(img)
	if err != nil {
		t.Fatalf("EncodeJPEG() error: %v", err)
	}
	if len(data) < 3 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Error("expected JPEG magic bytes")
	}

	if _, err := Decode([]byte("garbage")); err == nil {
		t.Error("expected error for garbage input")
	}
}
