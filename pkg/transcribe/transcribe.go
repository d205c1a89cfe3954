// Package transcribe defines the client contract for the external
// vision-language service that reads handwriting off a rectified postcard,
// plus the shared response parsing helpers.
package transcribe

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

// Client is a backend that can answer a prompt about an image.
type Client interface {
	Query(ctx context.Context, model, prompt, imgB64 string) (string, error)
}

// Result contains the parsed transcription of a postcard.
type Result struct {
	Transcription string  `json:"transcription"`
	Translation   string  `json:"translation"`
	Language      string  `json:"language"`
	Confidence    float64 `json:"confidence"`
}

// DefaultPrompt asks the model for a structured transcription of the
// handwriting on a rectified postcard image.
const DefaultPrompt = `You are a handwriting transcriber for postcards.

Return JSON only:
{
  "transcription": "the handwritten text exactly as written",
  "translation": "English translation, or the transcription verbatim if already English",
  "language": "ISO 639-1 code of the source language",
  "confidence": 0.0
}

HARD RULES
- Transcribe only handwriting on the card; ignore printed captions, stamps and postmarks.
- Preserve the writer's line breaks with \n.
- Do not invent text you cannot read; use [illegible] for unreadable words.
- If the card carries no handwriting, return:
  {"transcription":"","translation":"","language":"","confidence":0.0}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Transcriber runs postcard transcription through a vision-language client.
type Transcriber struct {
	client Client
}

// New creates a Transcriber with the given backend client.
func New(client Client) *Transcriber {
	return &Transcriber{client: client}
}

// Transcribe sends the rectified postcard image to the model and parses the
// structured result.
func (t *Transcriber) Transcribe(ctx context.Context, model, imageB64 string) (*Result, error) {
	return t.TranscribeWithPrompt(ctx, model, imageB64, DefaultPrompt)
}

// TranscribeWithPrompt sends the image with a custom prompt.
func (t *Transcriber) TranscribeWithPrompt(ctx context.Context, model, imageB64, prompt string) (*Result, error) {
	raw, err := t.client.Query(ctx, model, prompt, imageB64)
	if err != nil {
		return nil, err
	}
	return ParseResult(raw), nil
}

// ParseResult parses a model response into a Result. Vision models routinely
// wrap JSON in prose or code fences, so parsing is lenient and falls back to
// treating the whole response as an unstructured transcription rather than
// failing the request.
func ParseResult(raw string) *Result {
	cleaned := SanitizeModelJSON(raw)

	if !strings.HasPrefix(cleaned, "{") {
		return &Result{
			Transcription: strings.TrimSpace(raw),
			Confidence:    0.1,
		}
	}

	var result Result
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return &Result{
			Transcription: strings.TrimSpace(raw),
			Confidence:    0.1,
		}
	}
	return &result
}

// SanitizeModelJSON removes code fences, comments, and trailing commas from
// a model response and keeps only the outermost JSON object.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments
	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")

	// Remove // line comments
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")

	// Remove trailing commas before } or ]
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	return strings.TrimSpace(raw)
}
