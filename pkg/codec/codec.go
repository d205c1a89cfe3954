// Package codec handles decoding request image payloads into raw pixel
// buffers and encoding rectified buffers back into compressed formats.
package codec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrUnknownFormat is returned when payload bytes cannot be decoded by any
// registered image format.
var ErrUnknownFormat = errors.New("codec: unknown or unsupported image format")

// DefaultJPEGQuality is used when encoding rectified output for the response.
const DefaultJPEGQuality = 85

// Decode decodes compressed image bytes. Standard formats (jpeg, png, webp
// via the registered decoder) are tried first, then an explicit WebP decode
// as fallback.
func Decode(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, ErrUnknownFormat
}

// DecodeRaw interprets headerless bytes as a row-major pixel buffer of the
// given dimensions. Callers that already hold raw capture output supply the
// dimensions alongside the payload; both 4-channel (NRGBA) and 3-channel
// (RGB) layouts are accepted.
func DecodeRaw(data []byte, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("codec: invalid raw dimensions %dx%d", width, height)
	}

	n := width * height
	switch len(data) {
	case n * 4:
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		copy(img.Pix, data)
		return img, nil
	case n * 3:
		img := image.NewNRGBA(image.Rect(0, 0, width, height))
		for i := 0; i < n; i++ {
			img.Pix[i*4+0] = data[i*3+0]
			img.Pix[i*4+1] = data[i*3+1]
			img.Pix[i*4+2] = data[i*3+2]
			img.Pix[i*4+3] = 255
		}
		return img, nil
	default:
		return nil, fmt.Errorf("codec: raw payload of %d bytes does not match %dx%d", len(data), width, height)
	}
}

// ToNRGBA converts any image to a zero-origin NRGBA buffer, the layout the
// resampler works on. An already zero-origin *image.NRGBA is returned as is.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// EncodeJPEG encodes img as JPEG with the given quality (1-100).
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeWebP encodes img as WebP.
func EncodeWebP(img image.Image, quality int, lossless bool) ([]byte, error) {
	var buf bytes.Buffer
	opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, fmt.Errorf("failed to encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// Load loads an image from a file path with WebP support.
func Load(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	return img, nil
}

// LoadFromURL downloads and decodes an image from an http(s) URL.
func LoadFromURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Rectify/1.0 (+https://github.com/cardlens/rectify)")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", ct)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return Decode(data)
}

// LoadSmart loads an image from either a file path or URL.
func LoadSmart(source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return LoadFromURL(source)
	}
	return Load(source)
}

// Save writes img to path in the given format.
func Save(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// EncodeBase64ForModel prepares an image for a vision-language request:
// downscaled to maxDim on the long side when needed, encoded as jpg or png,
// and base64 encoded.
func EncodeBase64ForModel(img image.Image, format string, maxDim, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var data []byte
	var err error
	switch strings.ToLower(format) {
	case "png":
		data, err = EncodePNG(img)
	default: // jpg
		data, err = EncodeJPEG(img, quality)
	}
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
