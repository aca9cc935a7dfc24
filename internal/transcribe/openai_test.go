package transcribe

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/scribepipe/scribepipe/internal/audio"
	"github.com/scribepipe/scribepipe/internal/logger"
)

func writeToneWAV(t *testing.T, path string, seconds float64) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	n := int(seconds * float64(audio.SampleRate))
	data := make([]int, n)
	for i := range data {
		data[i] = int(8000 * math.Sin(2*math.Pi*220*float64(i)/float64(audio.SampleRate)))
	}

	enc := wav.NewEncoder(f, audio.SampleRate, audio.BitDepth, audio.Channels, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: audio.Channels, SampleRate: audio.SampleRate},
		SourceBitDepth: audio.BitDepth,
		Data:           data,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func newTestEngine(t *testing.T, model, endpoint string) *productionEngine {
	t.Helper()
	return &productionEngine{
		apiKey:   "sk-test",
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger.New("error"),
	}
}

func TestNewProductionEngineMissingKey(t *testing.T) {
	_, err := NewProductionEngine("", "whisper-1", logger.New("error"))

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error = %v, want *ConfigurationError", err)
	}
}

func TestNewProductionEngineUnknownModel(t *testing.T) {
	_, err := NewProductionEngine("sk-test", "whisper-99", logger.New("error"))
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestTranscribeVerboseSegments(t *testing.T) {
	wavPath := filepath.Join(t.TempDir(), "clip.wav")
	writeToneWAV(t, wavPath, 2.0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("response_format"); got != "verbose_json" {
			t.Errorf("response_format = %q, want verbose_json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "hello there",
			"language": "en",
			"duration": 2.0,
			"segments": [
				{"start": 0.0, "end": 1.0, "text": "hello"},
				{"start": 1.0, "end": 2.0, "text": "there"}
			]
		}`))
	}))
	defer srv.Close()

	e := newTestEngine(t, "whisper-1", srv.URL)
	got, err := e.Transcribe(context.Background(), wavPath)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if got.FullText != "hello there" {
		t.Errorf("FullText = %q", got.FullText)
	}
	if len(got.Segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2", len(got.Segments))
	}
	if got.Segments[1].StartSec != 1.0 || got.Segments[1].Text != "there" {
		t.Errorf("second segment = %+v", got.Segments[1])
	}
	if got.Meta.Language != "en" {
		t.Errorf("language = %q, want en", got.Meta.Language)
	}
}

func TestTranscribeAggregateTextSynthesizesSegment(t *testing.T) {
	wavPath := filepath.Join(t.TempDir(), "clip.wav")
	writeToneWAV(t, wavPath, 2.0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.FormValue("response_format"); got != "json" {
			t.Errorf("response_format = %q, want json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "aggregate only"}`))
	}))
	defer srv.Close()

	e := newTestEngine(t, "gpt-4o-mini-transcribe", srv.URL)
	got, err := e.Transcribe(context.Background(), wavPath)
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if len(got.Segments) != 1 {
		t.Fatalf("len(segments) = %d, want 1 synthesized segment", len(got.Segments))
	}
	seg := got.Segments[0]
	if seg.StartSec != 0 || math.Abs(seg.EndSec-2.0) > 0.01 {
		t.Errorf("synthesized segment = [%v, %v], want [0, ~2.0]", seg.StartSec, seg.EndSec)
	}
	if seg.Text != "aggregate only" {
		t.Errorf("segment text = %q", seg.Text)
	}
}

func TestTranscribeQuotaError(t *testing.T) {
	wavPath := filepath.Join(t.TempDir(), "clip.wav")
	writeToneWAV(t, wavPath, 1.0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer srv.Close()

	e := newTestEngine(t, "whisper-1", srv.URL)
	_, err := e.Transcribe(context.Background(), wavPath)

	var quotaErr *QuotaError
	if !errors.As(err, &quotaErr) {
		t.Fatalf("error = %v, want *QuotaError", err)
	}
}

func TestTranscribeServerError(t *testing.T) {
	wavPath := filepath.Join(t.TempDir(), "clip.wav")
	writeToneWAV(t, wavPath, 1.0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	}))
	defer srv.Close()

	e := newTestEngine(t, "whisper-1", srv.URL)
	_, err := e.Transcribe(context.Background(), wavPath)

	var infErr *InferenceError
	if !errors.As(err, &infErr) {
		t.Fatalf("error = %v, want *InferenceError", err)
	}
}

func TestProductionLimitsPerModel(t *testing.T) {
	e := newTestEngine(t, "whisper-1", "")
	if got := e.Limits().MaxDurationSec; got != 1400 {
		t.Errorf("whisper-1 MaxDurationSec = %v, want 1400", got)
	}

	e = newTestEngine(t, "gpt-4o-mini-transcribe", "")
	if got := e.Limits().MaxDurationSec; got != 6000 {
		t.Errorf("gpt-4o-mini-transcribe MaxDurationSec = %v, want 6000", got)
	}
}
