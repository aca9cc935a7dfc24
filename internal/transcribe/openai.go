package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scribepipe/scribepipe/internal/audio"
	"github.com/scribepipe/scribepipe/internal/logger"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/audio/transcriptions"

	// maxRequestBytes caps one upload well under the API's 25MB limit.
	maxRequestBytes = 20 * 1024 * 1024
)

// modelHardSec is the per-model hard duration ceiling in seconds. Models
// without verbose timestamps tolerate longer, byte-bounded chunks.
var modelHardSec = map[string]float64{
	"whisper-1":              1400,
	"gpt-4o-mini-transcribe": 6000,
}

// productionEngine transcribes through the paid OpenAI speech-to-text API.
// whisper-1 returns verbose per-segment timestamps; gpt-4o-mini-transcribe
// returns aggregate text only, so a single full-window segment is
// synthesized. Windows that still exceed the request limits are re-chunked
// internally through the shared planner.
type productionEngine struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	logger   logger.Logger
}

// NewProductionEngine creates the production cloud engine. Missing
// credentials fail fast, before any network call.
func NewProductionEngine(apiKey, model string, log logger.Logger) (Engine, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &ConfigurationError{
			Engine: "production-cloud",
			Reason: "API key missing (set transcribe.api_key or OPENAI_API_KEY)",
		}
	}
	if _, ok := modelHardSec[model]; !ok {
		return nil, &ConfigurationError{
			Engine: "production-cloud",
			Reason: fmt.Sprintf("unknown model %q", model),
		}
	}

	return &productionEngine{
		apiKey:   apiKey,
		model:    model,
		endpoint: openAIEndpoint,
		client:   &http.Client{Timeout: 15 * time.Minute},
		logger:   log,
	}, nil
}

func (e *productionEngine) Name() string { return "production-cloud" }

func (e *productionEngine) Limits() Limits {
	hard := modelHardSec[e.model]
	if hard == 0 {
		hard = 3600
	}
	return Limits{MaxDurationSec: hard, MaxRequestBytes: maxRequestBytes}
}

func (e *productionEngine) verbose() bool {
	return strings.HasPrefix(e.model, "whisper")
}

func (e *productionEngine) Transcribe(ctx context.Context, wavPath string) (Result, error) {
	dur, size, err := audio.Probe(wavPath)
	if err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
	}

	windows := Plan(wavPath, dur, size, e.Limits(), 0)
	if len(windows) == 1 {
		return e.transcribeOnce(ctx, wavPath, windows[0].DurationSec())
	}

	e.logger.Info(ctx, "  [production-cloud] window exceeds request limits, splitting into %d chunks", len(windows))

	stem := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))
	results := make([]Result, 0, len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		chunkPath := fmt.Sprintf("%s.part_%03d.wav", stem, i+1)
		if err := audio.ExtractWindow(wavPath, chunkPath, w.StartSec, w.EndSec); err != nil {
			return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
		}

		e.logger.Info(ctx, "  [production-cloud] chunk %d/%d %s", i+1, len(windows), w)

		r, err := e.transcribeOnce(ctx, chunkPath, w.DurationSec())
		os.Remove(chunkPath)
		if err != nil {
			return Result{}, err
		}
		results = append(results, r)
	}

	return Stitch(windows, results, dur), nil
}

// openAIResponse covers both the json and verbose_json response shapes.
type openAIResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

func (e *productionEngine) transcribeOnce(ctx context.Context, wavPath string, durationSec float64) (Result, error) {
	f, err := os.Open(wavPath)
	if err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
	}
	defer f.Close()

	format := "json"
	if e.verbose() {
		format = "verbose_json"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", e.model); err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
	}
	if err := mw.WriteField("response_format", format); err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
	}
	if _, err := io.Copy(fw, f); err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
	}
	if err := mw.Close(); err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, &body)
	if err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := fmt.Errorf("openai http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		if resp.StatusCode == http.StatusTooManyRequests || isQuotaMessage(string(b)) {
			return Result{}, &QuotaError{Engine: "production-cloud", Err: apiErr}
		}
		return Result{}, &InferenceError{Engine: "production-cloud", Err: apiErr}
	}

	var parsed openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, &InferenceError{Engine: "production-cloud", Err: fmt.Errorf("decode response: %w", err)}
	}

	return e.toResult(parsed, durationSec), nil
}

func (e *productionEngine) toResult(parsed openAIResponse, durationSec float64) Result {
	text := strings.TrimSpace(parsed.Text)

	var segments []Segment
	if e.verbose() && len(parsed.Segments) > 0 {
		for _, s := range parsed.Segments {
			segments = append(segments, Segment{
				StartSec: s.Start,
				EndSec:   s.End,
				Text:     strings.TrimSpace(s.Text),
			})
		}
	} else {
		// No per-segment timestamps: one block spanning the window.
		segments = []Segment{{StartSec: 0, EndSec: durationSec, Text: text}}
	}

	lang := parsed.Language
	if lang == "" {
		lang = "auto"
	}
	confidence := 0.0
	if text != "" {
		confidence = 1.0
	}
	dur := parsed.Duration
	if dur == 0 {
		dur = durationSec
	}

	return Result{
		FullText: text,
		Segments: segments,
		Meta: Meta{
			Language:           lang,
			LanguageConfidence: confidence,
			DurationSec:        dur,
		},
	}
}
