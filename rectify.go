// Package rectify straightens photographed postcards: given four
// caller-picked corner points enclosing the card in the photo, it computes a
// projective transform and resamples the source into an axis-aligned
// rectangle.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		"github.com/cardlens/rectify"
//		"github.com/cardlens/rectify/pkg/codec"
//		"github.com/cardlens/rectify/pkg/geometry"
//	)
//
//	func main() {
//		img, err := codec.Load("postcard.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		engine := rectify.New()
//		result, err := engine.Rectify(context.Background(), img, []geometry.Point{
//			{X: 50, Y: 60}, {X: 350, Y: 40}, {X: 360, Y: 280}, {X: 40, Y: 260},
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		data, err := codec.EncodeJPEG(result.Image, codec.DefaultJPEGQuality)
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := os.WriteFile("postcard_flat.jpg", data, 0o644); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The pipeline runs decode, corner normalization, output dimension
// estimation, homography solve, and inverse-warp resampling, in that order.
// Corner points are trusted to arrive in top-left, top-right, bottom-right,
// bottom-left order; everything downstream of that ordering is checked, and
// degenerate geometry fails loudly instead of producing corrupted output.
package rectify

import (
	"context"
	"fmt"
	"image"

	"github.com/cardlens/rectify/internal/config"
	"github.com/cardlens/rectify/pkg/codec"
	"github.com/cardlens/rectify/pkg/geometry"
	"github.com/cardlens/rectify/pkg/homography"
	"github.com/cardlens/rectify/pkg/warp"
)

// Version of the rectify library
const Version = "1.0.0"

// Engine runs the rectification pipeline. It holds no per-request state and
// is safe for concurrent use.
type Engine struct {
	warper      *warp.Warper
	jpegQuality int
}

// New creates an Engine with default configuration.
func New() *Engine {
	return &Engine{
		warper:      warp.New(),
		jpegQuality: codec.DefaultJPEGQuality,
	}
}

// NewWithConfig creates an Engine with custom configuration.
func NewWithConfig(cfg *config.Config) *Engine {
	return &Engine{
		warper: warp.NewWithConfig(warp.Config{
			Workers:      cfg.Warp.Workers,
			MaxOutputDim: cfg.Warp.MaxOutputDim,
		}),
		jpegQuality: cfg.Output.JPEGQuality,
	}
}

// Result contains a rectified image along with the derived dimensions and
// the solved transform.
type Result struct {
	Image      *image.NRGBA
	Dimensions geometry.Dimensions
	Transform  homography.Homography
}

// EncodedResult is a rectified image encoded for the response payload.
type EncodedResult struct {
	Data   []byte
	Width  int
	Height int
}

// Rectify straightens the quadrilateral region of img described by the four
// corners (TL, TR, BR, BL order).
func (e *Engine) Rectify(ctx context.Context, img image.Image, corners []geometry.Point) (Result, error) {
	quad, err := geometry.QuadFromPoints(corners)
	if err != nil {
		return Result{}, err
	}
	return e.RectifyQuad(ctx, img, quad)
}

// RectifyQuad straightens the given quadrilateral region of img.
func (e *Engine) RectifyQuad(ctx context.Context, img image.Image, quad geometry.Quad) (Result, error) {
	dims := geometry.EstimateDimensions(quad)
	if dims.Width <= 0 || dims.Height <= 0 {
		return Result{}, fmt.Errorf("%w: %dx%d", warp.ErrDegenerateGeometry, dims.Width, dims.Height)
	}

	// The transform maps output rectangle corners onto the source quad:
	// the inverse direction, which is what the resampler consumes.
	dst := [4]geometry.Point{
		{X: 0, Y: 0},
		{X: float64(dims.Width), Y: 0},
		{X: float64(dims.Width), Y: float64(dims.Height)},
		{X: 0, Y: float64(dims.Height)},
	}

	h, err := homography.Solve(dst, quad.Corners())
	if err != nil {
		return Result{}, fmt.Errorf("failed to solve homography: %w", err)
	}

	out, err := e.warper.Warp(ctx, codec.ToNRGBA(img), h, dims)
	if err != nil {
		return Result{}, fmt.Errorf("failed to warp image: %w", err)
	}

	return Result{Image: out, Dimensions: dims, Transform: h}, nil
}

// RectifyBytes decodes an image payload, rectifies it, and encodes the
// result as JPEG. When the payload is headerless raw pixel data, srcWidth
// and srcHeight provide the fallback dimensions; pass zero when the payload
// is a regular compressed image.
func (e *Engine) RectifyBytes(ctx context.Context, data []byte, corners []geometry.Point, srcWidth, srcHeight int) (EncodedResult, error) {
	img, err := codec.Decode(data)
	if err != nil {
		if srcWidth > 0 && srcHeight > 0 {
			raw, rawErr := codec.DecodeRaw(data, srcWidth, srcHeight)
			if rawErr != nil {
				return EncodedResult{}, fmt.Errorf("failed to decode image: %w", err)
			}
			img = raw
		} else {
			return EncodedResult{}, fmt.Errorf("failed to decode image: %w", err)
		}
	}

	result, err := e.Rectify(ctx, img, corners)
	if err != nil {
		return EncodedResult{}, err
	}

	encoded, err := codec.EncodeJPEG(result.Image, e.jpegQuality)
	if err != nil {
		return EncodedResult{}, err
	}

	return EncodedResult{
		Data:   encoded,
		Width:  result.Dimensions.Width,
		Height: result.Dimensions.Height,
	}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
