package codec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	return img
}

func TestDecodeJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(40, 30), nil); err != nil {
		t.Fatal(err)
	}

	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 30 {
		t.Errorf("Decoded size %dx%d, want 40x30", b.Dx(), b.Dy())
	}
}

func TestDecodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(20, 20)); err != nil {
		t.Fatal(err)
	}

	if _, err := Decode(buf.Bytes()); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestDecodeRaw(t *testing.T) {
	src := createTestImage(8, 6)

	img, err := DecodeRaw(src.Pix, 8, 6)
	if err != nil {
		t.Fatalf("DecodeRaw failed: %v", err)
	}
	if !bytes.Equal(img.Pix, src.Pix) {
		t.Error("Raw NRGBA round trip changed pixel data")
	}
}

func TestDecodeRawRGB(t *testing.T) {
	data := make([]byte, 4*3*3)
	for i := range data {
		data[i] = byte(i + 1)
	}

	img, err := DecodeRaw(data, 4, 3)
	if err != nil {
		t.Fatalf("DecodeRaw failed: %v", err)
	}

	c := img.NRGBAAt(0, 0)
	if c.R != 1 || c.G != 2 || c.B != 3 || c.A != 255 {
		t.Errorf("First pixel = %v, want {1 2 3 255}", c)
	}
}

func TestDecodeRawSizeMismatch(t *testing.T) {
	if _, err := DecodeRaw(make([]byte, 10), 8, 6); err == nil {
		t.Error("Expected error for size mismatch")
	}
	if _, err := DecodeRaw(make([]byte, 192), 0, 6); err == nil {
		t.Error("Expected error for zero dimension")
	}
}

func TestToNRGBA(t *testing.T) {
	src := createTestImage(10, 10)
	if got := ToNRGBA(src); got != src {
		t.Error("Zero-origin NRGBA should be returned as is")
	}

	ycbcr := image.NewYCbCr(image.Rect(0, 0, 10, 10), image.YCbCrSubsampleRatio420)
	got := ToNRGBA(ycbcr)
	if got.Rect.Min != (image.Point{}) {
		t.Error("Converted image should be zero-origin")
	}
	if got.Rect.Dx() != 10 || got.Rect.Dy() != 10 {
		t.Errorf("Converted size %dx%d, want 10x10", got.Rect.Dx(), got.Rect.Dy())
	}
}

func TestEncodeJPEGRoundTrip(t *testing.T) {
	data, err := EncodeJPEG(createTestImage(32, 24), 85)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}

	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode of encoded jpeg failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("Round-trip size %dx%d, want 32x24", b.Dx(), b.Dy())
	}
}

func TestEncodeJPEGDefaultQuality(t *testing.T) {
	if _, err := EncodeJPEG(createTestImage(8, 8), 0); err != nil {
		t.Fatalf("EncodeJPEG with zero quality failed: %v", err)
	}
}

func TestEncodeBase64ForModel(t *testing.T) {
	b64, err := EncodeBase64ForModel(createTestImage(64, 48), "jpg", 32, 85)
	if err != nil {
		t.Fatalf("EncodeBase64ForModel failed: %v", err)
	}
	if b64 == "" {
		t.Error("Expected non-empty base64 payload")
	}
}
