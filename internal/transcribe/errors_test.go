package transcribe

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsQuotaMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want bool
	}{
		{"http 429", "googleapi: Error 429: too many requests", true},
		{"quota keyword", "daily quota exceeded for project", true},
		{"resource exhausted", "rpc error: code = RESOURCE_EXHAUSTED", true},
		{"rate limit", "Rate limit reached for requests", true},
		{"unrelated failure", "connection refused", false},
		{"unknown value", "could not understand audio", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isQuotaMessage(tt.msg); got != tt.want {
				t.Errorf("isQuotaMessage(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestErrorUnwrapping(t *testing.T) {
	cause := errors.New("boom")

	var quotaErr *QuotaError
	wrapped := fmt.Errorf("transcribe window: %w", &QuotaError{Engine: "demo-cloud", Err: cause})
	if !errors.As(wrapped, &quotaErr) {
		t.Error("QuotaError not found through wrapping")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("QuotaError does not unwrap to its cause")
	}

	var infErr *InferenceError
	wrapped = fmt.Errorf("window 2: %w", &InferenceError{Engine: "local", Err: cause})
	if !errors.As(wrapped, &infErr) {
		t.Error("InferenceError not found through wrapping")
	}
}

func TestSubPieceSec(t *testing.T) {
	tests := []struct {
		durationSec float64
		want        float64
	}{
		{30, 20},
		{59.9, 20},
		{60, 25},
		{299, 25},
		{300, 30},
		{3600, 30},
	}

	for _, tt := range tests {
		if got := subPieceSec(tt.durationSec); got != tt.want {
			t.Errorf("subPieceSec(%v) = %v, want %v", tt.durationSec, got, tt.want)
		}
	}
}

func TestModelFileName(t *testing.T) {
	tests := []struct {
		model     string
		precision string
		want      string
	}{
		{"small", "int8", "ggml-small-q8_0.bin"},
		{"small", "f16", "ggml-small.bin"},
		{"large-v3", "int8", "ggml-large-v3-q8_0.bin"},
	}

	for _, tt := range tests {
		if got := modelFileName(tt.model, tt.precision); got != tt.want {
			t.Errorf("modelFileName(%q, %q) = %q, want %q", tt.model, tt.precision, got, tt.want)
		}
	}
}

func TestNewLocalEngineMissingModel(t *testing.T) {
	cache := NewModelCache()
	_, err := NewLocalEngine(cache, t.TempDir(), "small", "int8", "", nil)

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigurationError", err)
	}
}

func TestNewDemoEngineMissingKey(t *testing.T) {
	_, err := NewDemoEngine(t.Context(), "", "gemini-2.5-flash", "", nil)

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigurationError", err)
	}
}
