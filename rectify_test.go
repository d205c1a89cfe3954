package rectify

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/cardlens/rectify/internal/config"
	"github.com/cardlens/rectify/pkg/codec"
	"github.com/cardlens/rectify/pkg/geometry"
	"github.com/cardlens/rectify/pkg/homography"
	"github.com/cardlens/rectify/pkg/warp"
)

func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x%200 + 30),
				G: uint8(y%200 + 30),
				B: 90,
				A: 255,
			})
		}
	}
	return img
}

func TestRectify(t *testing.T) {
	engine := New()
	img := createTestImage(400, 300)
	corners := []geometry.Point{{X: 50, Y: 60}, {X: 350, Y: 40}, {X: 360, Y: 280}, {X: 40, Y: 260}}

	result, err := engine.Rectify(context.Background(), img, corners)
	if err != nil {
		t.Fatalf("Rectify failed: %v", err)
	}

	if result.Dimensions.Width != 321 || result.Dimensions.Height != 240 {
		t.Errorf("Dimensions = %+v, want 321x240", result.Dimensions)
	}
	if result.Image == nil {
		t.Fatal("Expected rectified image to be non-nil")
	}
	if b := result.Image.Bounds(); b.Dx() != 321 || b.Dy() != 240 {
		t.Errorf("Image bounds %dx%d, want 321x240", b.Dx(), b.Dy())
	}
	if result.Transform[8] != 1 {
		t.Errorf("Expected normalized transform, h9 = %f", result.Transform[8])
	}
}

func TestRectifyInvalidCornerCount(t *testing.T) {
	engine := New()
	img := createTestImage(50, 50)

	_, err := engine.Rectify(context.Background(), img, []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}})
	if !errors.Is(err, geometry.ErrCornerCount) {
		t.Errorf("Expected ErrCornerCount, got %v", err)
	}
}

func TestRectifyDegenerateCorners(t *testing.T) {
	engine := New()
	img := createTestImage(50, 50)

	// All corners on one line: zero height, caught before the solve.
	corners := []geometry.Point{{X: 0, Y: 10}, {X: 40, Y: 10}, {X: 40, Y: 10}, {X: 0, Y: 10}}
	_, err := engine.Rectify(context.Background(), img, corners)
	if err == nil {
		t.Fatal("Expected error for degenerate corners")
	}
	if !errors.Is(err, warp.ErrDegenerateGeometry) && !errors.Is(err, homography.ErrSingularSystem) {
		t.Errorf("Expected a degenerate geometry error, got %v", err)
	}
}

// Three corners on a diagonal enclose positive area, so the dimension gate
// passes; the solve itself must refuse the rank-deficient transform instead
// of delivering output smeared along a line.
func TestRectifyCollinearDiagonalCorners(t *testing.T) {
	engine := New()
	img := createTestImage(120, 120)

	corners := []geometry.Point{{X: 0, Y: 0}, {X: 50, Y: 50}, {X: 100, Y: 100}, {X: 0, Y: 100}}
	_, err := engine.Rectify(context.Background(), img, corners)
	if err == nil {
		t.Fatal("Expected error for collinear diagonal corners")
	}
	if !errors.Is(err, homography.ErrSingularSystem) {
		t.Errorf("Expected ErrSingularSystem, got %v", err)
	}
}

func TestRectifyBytes(t *testing.T) {
	engine := New()
	data, err := codec.EncodeJPEG(createTestImage(400, 300), 90)
	if err != nil {
		t.Fatal(err)
	}

	corners := []geometry.Point{{X: 50, Y: 60}, {X: 350, Y: 40}, {X: 360, Y: 280}, {X: 40, Y: 260}}
	result, err := engine.RectifyBytes(context.Background(), data, corners, 0, 0)
	if err != nil {
		t.Fatalf("RectifyBytes failed: %v", err)
	}

	if result.Width != 321 || result.Height != 240 {
		t.Errorf("Result size %dx%d, want 321x240", result.Width, result.Height)
	}

	decoded, err := codec.Decode(result.Data)
	if err != nil {
		t.Fatalf("Response payload is not a valid image: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 321 || b.Dy() != 240 {
		t.Errorf("Decoded size %dx%d, want 321x240", b.Dx(), b.Dy())
	}
}

func TestRectifyBytesRawFallback(t *testing.T) {
	engine := New()
	src := createTestImage(40, 30)

	corners := []geometry.Point{{X: 5, Y: 5}, {X: 35, Y: 5}, {X: 35, Y: 25}, {X: 5, Y: 25}}
	result, err := engine.RectifyBytes(context.Background(), src.Pix, corners, 40, 30)
	if err != nil {
		t.Fatalf("RectifyBytes with raw payload failed: %v", err)
	}
	if result.Width != 30 || result.Height != 20 {
		t.Errorf("Result size %dx%d, want 30x20", result.Width, result.Height)
	}
}

func TestRectifyBytesGarbage(t *testing.T) {
	engine := New()
	corners := []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}

	_, err := engine.RectifyBytes(context.Background(), []byte("not an image"), corners, 0, 0)
	if !errors.Is(err, codec.ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Warp.MaxOutputDim = 100

	engine := NewWithConfig(cfg)
	img := createTestImage(400, 300)
	corners := []geometry.Point{{X: 50, Y: 60}, {X: 350, Y: 40}, {X: 360, Y: 280}, {X: 40, Y: 260}}

	_, err := engine.Rectify(context.Background(), img, corners)
	if !errors.Is(err, warp.ErrOutputTooLarge) {
		t.Errorf("Expected ErrOutputTooLarge with a 100px cap, got %v", err)
	}
}
