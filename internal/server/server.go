// Package server exposes the rectification engine over HTTP for the capture
// UI: it receives the photographed image and the four user-picked corners,
// and replies with the straightened JPEG.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cardlens/rectify"
	"github.com/cardlens/rectify/internal/config"
	"github.com/cardlens/rectify/pkg/geometry"
)

// RectifyRequest is the POST /rectify payload. Corners arrive in TL, TR,
// BR, BL order; sourceWidth/sourceHeight are only consulted when the image
// payload is headerless raw pixel data.
type RectifyRequest struct {
	ImageBase64  string           `json:"imageBase64"`
	Corners      []geometry.Point `json:"corners"`
	SourceWidth  int              `json:"sourceWidth,omitempty"`
	SourceHeight int              `json:"sourceHeight,omitempty"`
}

// RectifyResponse is the success payload: the rectified image as base64
// JPEG plus its dimensions.
type RectifyResponse struct {
	ImageBase64 string `json:"imageBase64"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Handler serves the rectification endpoints.
type Handler struct {
	engine         *rectify.Engine
	requestTimeout time.Duration
	maxBodyBytes   int64
}

// NewHandler creates a Handler around the given engine.
func NewHandler(engine *rectify.Engine, cfg config.ServerConfig) *Handler {
	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBody := int64(cfg.MaxBodyBytes)
	if maxBody <= 0 {
		maxBody = 50 << 20
	}
	return &Handler{
		engine:         engine,
		requestTimeout: timeout,
		maxBodyBytes:   maxBody,
	}
}

// RectifyHandler handles POST /rectify
func (h *Handler) RectifyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RectifyRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if req.ImageBase64 == "" {
		respondError(w, "missing image payload", http.StatusBadRequest)
		return
	}
	if len(req.Corners) != 4 {
		respondError(w, fmt.Sprintf("expected exactly 4 corner points, got %d", len(req.Corners)), http.StatusBadRequest)
		return
	}

	imageData, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		respondError(w, "image payload is not valid base64", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	result, err := h.engine.RectifyBytes(ctx, imageData, req.Corners, req.SourceWidth, req.SourceHeight)
	if err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}

	respondJSON(w, RectifyResponse{
		ImageBase64: base64.StdEncoding.EncodeToString(result.Data),
		Width:       result.Width,
		Height:      result.Height,
	}, http.StatusOK)
}

// HealthHandler handles GET /health
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Routes returns a mux with all endpoints registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/rectify", h.RectifyHandler)
	mux.HandleFunc("/health", h.HealthHandler)
	return mux
}

// statusFor maps pipeline failures to HTTP status codes: caller mistakes the
// capture UI can fix by re-prompting are 400, everything else is 500.
func statusFor(err error) int {
	if errors.Is(err, geometry.ErrCornerCount) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, map[string]string{"error": message}, status)
}
