package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cardlens/rectify"
	"github.com/cardlens/rectify/internal/utils"
	"github.com/cardlens/rectify/pkg/codec"
	"github.com/cardlens/rectify/pkg/geometry"
	"github.com/cardlens/rectify/pkg/llamacpp"
	"github.com/cardlens/rectify/pkg/ollama"
	"github.com/cardlens/rectify/pkg/transcribe"
)

func main() {
	var in, outDir, corners, ext string
	var quality int
	var lossless bool

	var doTranscribe bool
	var backend, url, model string
	var sendFmt string
	var sendSize int
	var sendQ int

	flag.StringVar(&in, "in", "", "input image path or URL (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&corners, "corners", "", "four corners as x,y;x,y;x,y;x,y in TL;TR;BR;BL order")

	flag.StringVar(&ext, "ext", "jpg", "output format: jpg|png|webp")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&lossless, "lossless", false, "WebP output lossless mode")

	flag.BoolVar(&doTranscribe, "transcribe", false, "send the rectified card to a vision model for transcription")
	flag.StringVar(&backend, "backend", "ollama", "transcription backend: ollama or llamacpp")
	flag.StringVar(&url, "url", "", "server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)")
	flag.StringVar(&model, "model", "openbmb/minicpm-v4.5", "model name")

	flag.StringVar(&sendFmt, "sendfmt", "jpg", "format sent to the model: jpg|png")
	flag.IntVar(&sendSize, "sendsize", 1536, "max long side sent to the model (px), 0=original")
	flag.IntVar(&sendQ, "sendq", 85, "JPEG quality for image sent to the model (1-100)")

	flag.Parse()
	if in == "" || corners == "" {
		log.Fatalf("usage: %s -in input.jpg|URL -corners x,y;x,y;x,y;x,y [-out outdir] [-ext jpg|png|webp] [-transcribe]", filepath.Base(os.Args[0]))
	}

	points, err := parseCorners(corners)
	if err != nil {
		log.Fatalf("invalid -corners: %v", err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatal(err)
	}

	// Load input image (from file or URL)
	img, err := codec.LoadSmart(in)
	if err != nil {
		log.Fatal(err)
	}
	bounds := img.Bounds()
	log.Printf("loaded %s (%dx%d)", in, bounds.Dx(), bounds.Dy())

	engine := rectify.New()
	result, err := engine.Rectify(context.Background(), img, points)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("rectified to %dx%d", result.Dimensions.Width, result.Dimensions.Height)

	outPath := utils.GenerateOutputFilename(in, outDir, "", "_rectified", strings.ToLower(ext))
	if err := codec.Save(result.Image, outPath, ext, quality, lossless); err != nil {
		log.Fatalf("save %s failed: %v", outPath, err)
	}
	log.Printf("wrote %s", outPath)

	if !doTranscribe {
		return
	}

	var client transcribe.Client
	switch backend {
	case "ollama":
		if url == "" {
			url = "http://localhost:11434"
		}
		client, err = ollama.NewClient(url)
		if err != nil {
			log.Fatalf("Failed to create Ollama client: %v", err)
		}
	case "llamacpp":
		if url == "" {
			url = "http://localhost:8080"
		}
		client, err = llamacpp.NewClient(url)
		if err != nil {
			log.Fatalf("Failed to create llama.cpp client: %v", err)
		}
	default:
		log.Fatalf("Unknown backend: %s (use 'ollama' or 'llamacpp')", backend)
	}

	imgB64, err := codec.EncodeBase64ForModel(result.Image, sendFmt, sendSize, sendQ)
	if err != nil {
		log.Fatal(err)
	}

	transcription, err := transcribe.New(client).Transcribe(context.Background(), model, imgB64)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("language=%s conf=%.2f", transcription.Language, transcription.Confidence)
	log.Printf("transcription: %s", transcription.Transcription)
	log.Printf("translation: %s", transcription.Translation)

	// Save raw model JSON output
	js, _ := json.MarshalIndent(transcription, "", "  ")
	_ = os.WriteFile(filepath.Join(outDir, "transcription.json"), js, 0o644)
}

// parseCorners parses "x,y;x,y;x,y;x,y" into four points.
func parseCorners(s string) ([]geometry.Point, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 corners, got %d", len(parts))
	}

	points := make([]geometry.Point, 0, 4)
	for _, part := range parts {
		xy := strings.Split(strings.TrimSpace(part), ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("corner %q is not x,y", part)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("corner %q: %w", part, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("corner %q: %w", part, err)
		}
		points = append(points, geometry.Point{X: x, Y: y})
	}
	return points, nil
}
