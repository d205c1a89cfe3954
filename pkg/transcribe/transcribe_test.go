package transcribe

import (
	"context"
	"encoding/json"
	"testing"
)

type fakeClient struct {
	response string
	err      error
	prompt   string
}

func (f *fakeClient) Query(_ context.Context, _, prompt, _ string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func TestTranscribe(t *testing.T) {
	client := &fakeClient{
		response: `{"transcription":"Liebe Grüße aus Wien","translation":"Warm greetings from Vienna","language":"de","confidence":0.92}`,
	}

	result, err := New(client).Transcribe(context.Background(), "test-model", "aW1n")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if result.Transcription != "Liebe Grüße aus Wien" {
		t.Errorf("Transcription = %q", result.Transcription)
	}
	if result.Language != "de" {
		t.Errorf("Language = %q, want de", result.Language)
	}
	if result.Confidence != 0.92 {
		t.Errorf("Confidence = %f, want 0.92", result.Confidence)
	}
	if client.prompt != DefaultPrompt {
		t.Error("Expected the default prompt to be sent")
	}
}

func TestTranscribeClientError(t *testing.T) {
	client := &fakeClient{err: context.DeadlineExceeded}

	_, err := New(client).Transcribe(context.Background(), "test-model", "aW1n")
	if err == nil {
		t.Fatal("Expected client error to propagate")
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Result
	}{
		{
			name: "plain json",
			raw:  `{"transcription":"hello","translation":"hello","language":"en","confidence":0.8}`,
			want: Result{Transcription: "hello", Translation: "hello", Language: "en", Confidence: 0.8},
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"transcription\":\"salut\",\"language\":\"fr\",\"confidence\":0.7}\n```",
			want: Result{Transcription: "salut", Language: "fr", Confidence: 0.7},
		},
		{
			name: "json with trailing comma",
			raw:  `{"transcription":"ciao","language":"it","confidence":0.5,}`,
			want: Result{Transcription: "ciao", Language: "it", Confidence: 0.5},
		},
		{
			name: "json embedded in prose",
			raw:  `Sure! Here is the transcription: {"transcription":"hola","language":"es","confidence":0.6} Hope that helps.`,
			want: Result{Transcription: "hola", Language: "es", Confidence: 0.6},
		},
		{
			name: "non-json falls back to raw text",
			raw:  "The card says: wish you were here",
			want: Result{Transcription: "The card says: wish you were here", Confidence: 0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResult(tt.raw)
			if *got != tt.want {
				t.Errorf("ParseResult() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestSanitizeModelJSON(t *testing.T) {
	raw := "```json\n{\n  // the text\n  \"transcription\": \"hi\",\n  /* block comment */\n  \"confidence\": 0.9,\n}\n```"
	got := SanitizeModelJSON(raw)

	var r Result
	if err := json.Unmarshal([]byte(got), &r); err != nil {
		t.Fatalf("Sanitized output does not parse: %v\n%s", err, got)
	}
	if r.Transcription != "hi" || r.Confidence != 0.9 {
		t.Errorf("Parsed = %+v", r)
	}
}
