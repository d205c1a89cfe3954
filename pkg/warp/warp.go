// Package warp resamples a source image through an inverse projective
// transform, producing the axis-aligned rectified output.
package warp

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/cardlens/rectify/pkg/geometry"
	"github.com/cardlens/rectify/pkg/homography"
)

var (
	// ErrDegenerateGeometry is returned when the estimated output has a zero
	// or negative dimension, i.e. the quadrilateral collapsed to a line or
	// point.
	ErrDegenerateGeometry = errors.New("warp: degenerate output geometry")

	// ErrOutputTooLarge is returned when a derived dimension exceeds the
	// configured limit. Corner points far outside the photo can imply
	// arbitrarily large outputs; the limit is checked before any allocation.
	ErrOutputTooLarge = errors.New("warp: output dimensions exceed limit")
)

// channels per pixel in an NRGBA buffer.
const channels = 4

// Config holds configuration for the resampler.
type Config struct {
	// Workers bounds the number of goroutines splitting the output rows.
	// Zero or negative means GOMAXPROCS.
	Workers int

	// MaxOutputDim caps each derived output dimension. Zero or negative
	// means no cap.
	MaxOutputDim int
}

// Warper performs inverse-warp bilinear resampling.
type Warper struct {
	config Config
}

// DefaultMaxOutputDim caps output sides at a generous bound for photographed
// postcards; anything larger indicates corner points that make no sense.
const DefaultMaxOutputDim = 8192

// New creates a Warper with default configuration.
func New() *Warper {
	return &Warper{config: Config{MaxOutputDim: DefaultMaxOutputDim}}
}

// NewWithConfig creates a Warper with custom configuration.
func NewWithConfig(config Config) *Warper {
	return &Warper{config: config}
}

// Warp maps every destination pixel back through h and bilinearly samples
// src, returning a freshly allocated buffer of the given dimensions.
//
// h must map destination coordinates onto source coordinates (the inverse
// direction). src must be a zero-origin buffer; it is only read. Destination
// pixels whose back-mapped neighborhood falls outside the source stay
// zero-filled across all channels, which renders as transparent black along
// rounded-off output edges.
//
// Rows are split across a bounded worker pool. Writes never overlap, so the
// workers share nothing but the read-only source. Cancelling ctx abandons
// the pass between rows.
func (w *Warper) Warp(ctx context.Context, src *image.NRGBA, h homography.Homography, dims geometry.Dimensions) (*image.NRGBA, error) {
	if dims.Width <= 0 || dims.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDegenerateGeometry, dims.Width, dims.Height)
	}
	if limit := w.config.MaxOutputDim; limit > 0 && (dims.Width > limit || dims.Height > limit) {
		return nil, fmt.Errorf("%w: %dx%d (limit %d)", ErrOutputTooLarge, dims.Width, dims.Height, limit)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, dims.Width, dims.Height))

	workers := w.config.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > dims.Height {
		workers = dims.Height
	}

	band := (dims.Height + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < dims.Height; start += band {
		end := start + band
		if end > dims.Height {
			end = dims.Height
		}

		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				if ctx.Err() != nil {
					return
				}
				warpRow(src, dst, h, y, dims.Width)
			}
		}(start, end)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dst, nil
}

// warpRow fills one destination row.
func warpRow(src, dst *image.NRGBA, h homography.Homography, oy, width int) {
	srcW := src.Rect.Dx()
	srcH := src.Rect.Dy()
	fy := float64(oy)

	di := dst.PixOffset(0, oy)
	for ox := 0; ox < width; ox, di = ox+1, di+channels {
		fx := float64(ox)

		denom := h[6]*fx + h[7]*fy + h[8]
		if math.Abs(denom) < 1e-12 {
			continue
		}
		sx := (h[0]*fx + h[1]*fy + h[2]) / denom
		sy := (h[3]*fx + h[4]*fy + h[5]) / denom

		x0 := int(math.Floor(sx))
		y0 := int(math.Floor(sy))
		tx := sx - float64(x0)
		ty := sy - float64(y0)

		// An exactly integral coordinate needs no right/bottom neighbor,
		// which keeps the last source row and column reachable.
		x1 := x0 + 1
		if tx == 0 {
			x1 = x0
		}
		y1 := y0 + 1
		if ty == 0 {
			y1 = y0
		}

		if x0 < 0 || y0 < 0 || x1 >= srcW || y1 >= srcH {
			continue
		}

		i00 := src.PixOffset(x0, y0)
		i10 := src.PixOffset(x1, y0)
		i01 := src.PixOffset(x0, y1)
		i11 := src.PixOffset(x1, y1)

		for c := 0; c < channels; c++ {
			v00 := float64(src.Pix[i00+c])
			v10 := float64(src.Pix[i10+c])
			v01 := float64(src.Pix[i01+c])
			v11 := float64(src.Pix[i11+c])

			top := v00 + (v10-v00)*tx
			bot := v01 + (v11-v01)*tx
			dst.Pix[di+c] = uint8(math.Round(top + (bot-top)*ty))
		}
	}
}
