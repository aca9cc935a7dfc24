package transcribe

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/scribepipe/scribepipe/internal/audio"
	"github.com/scribepipe/scribepipe/internal/logger"
)

const transcribePrompt = "Transcribe this audio clip verbatim. " +
	"Reply with only the spoken words, nothing else. " +
	"If the clip contains no speech, reply with an empty message."

// contentGenerator is the slice of the genai client the engine calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// demoEngine transcribes through the free Gemini tier. It is rate limited
// and meant for short clips only: each window is re-split into small
// sub-pieces, transient API errors are retried with backoff, quota
// exhaustion aborts immediately, and sub-pieces that come back empty are
// skipped as silence.
type demoEngine struct {
	models     contentGenerator
	model      string
	language   string
	maxRetries int
	retryDelay time.Duration
	logger     logger.Logger
}

// demoLimits is generous on purpose: the engine does its own sub-piece
// splitting, so the planner does not need to pre-chunk for it.
var demoLimits = Limits{
	MaxDurationSec:  24 * 3600,
	MaxRequestBytes: 1 << 40,
}

// NewDemoEngine creates the demo cloud engine. A missing API key is a
// configuration error raised before any network call.
func NewDemoEngine(ctx context.Context, apiKey, model, language string, log logger.Logger) (Engine, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, &ConfigurationError{
			Engine: "demo-cloud",
			Reason: "API key missing (set transcribe.api_key or GEMINI_API_KEY)",
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &ConfigurationError{Engine: "demo-cloud", Reason: err.Error()}
	}

	log.Warn(ctx, "Demo engine selected: free tier, rate limited, short clips only")

	return &demoEngine{
		models:     client.Models,
		model:      model,
		language:   language,
		maxRetries: 3,
		retryDelay: 2 * time.Second,
		logger:     log,
	}, nil
}

func (e *demoEngine) Name() string { return "demo-cloud" }

func (e *demoEngine) Limits() Limits { return demoLimits }

// subPieceSec sizes the sub-pieces by total duration: short clips get
// shorter pieces so a single failure costs less audio.
func subPieceSec(durationSec float64) float64 {
	switch {
	case durationSec < 60:
		return 20
	case durationSec < 300:
		return 25
	default:
		return 30
	}
}

func (e *demoEngine) Transcribe(ctx context.Context, wavPath string) (Result, error) {
	dur, _, err := audio.Probe(wavPath)
	if err != nil {
		return Result{}, &InferenceError{Engine: "demo-cloud", Err: err}
	}
	if dur <= 0 {
		return Result{}, &InferenceError{Engine: "demo-cloud", Err: fmt.Errorf("cannot determine duration of %s", wavPath)}
	}

	pieceSec := subPieceSec(dur)
	total := int(math.Ceil(dur / pieceSec))

	var (
		segments []Segment
		texts    []string
		dropped  int
	)

	for i := 0; i < total; i++ {
		start := float64(i) * pieceSec
		end := math.Min(start+pieceSec, dur)

		piecePath := fmt.Sprintf("%s.chunk_%03d.wav", strings.TrimSuffix(wavPath, ".wav"), i+1)
		if err := audio.ExtractWindow(wavPath, piecePath, start, end); err != nil {
			return Result{}, &InferenceError{Engine: "demo-cloud", Err: err}
		}

		e.logger.Info(ctx, "  [demo-cloud] piece %d/%d %.0fs-%.0fs", i+1, total, start, end)

		text, err := e.transcribePiece(ctx, piecePath)
		os.Remove(piecePath)
		if err != nil {
			return Result{}, err
		}

		if text == "" {
			// No speech recognized for this slice; skip it but keep
			// the gap visible in the metadata.
			dropped++
			continue
		}

		segments = append(segments, Segment{StartSec: start, EndSec: end, Text: text})
		texts = append(texts, text)
	}

	full := strings.Join(texts, " ")
	if full == "" {
		return Result{}, ErrNoSpeech
	}

	lang := e.language
	if lang == "" {
		lang = "auto"
	}

	return Result{
		FullText: full,
		Segments: segments,
		Meta: Meta{
			Language:           lang,
			LanguageConfidence: 1.0,
			DurationSec:        dur,
			DroppedWindows:     dropped,
		},
	}, nil
}

// transcribePiece sends one sub-piece. Quota exhaustion is fatal on the
// spot: retrying a drained free-tier quota only burns time, the user
// should switch engines. Other API errors are retried with exponential
// backoff. An empty string with a nil error means silence.
func (e *demoEngine) transcribePiece(ctx context.Context, piecePath string) (string, error) {
	data, err := os.ReadFile(piecePath)
	if err != nil {
		return "", &InferenceError{Engine: "demo-cloud", Err: err}
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcribePrompt),
			genai.NewPartFromBytes(data, "audio/wav"),
		}, genai.RoleUser),
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		result, err := e.models.GenerateContent(ctx, e.model, contents, nil)
		if err != nil {
			if isQuotaMessage(err.Error()) {
				return "", &QuotaError{Engine: "demo-cloud", Err: err}
			}
			lastErr = err
			if attempt < e.maxRetries {
				delay := time.Duration(1<<(attempt-1)) * e.retryDelay
				e.logger.Warn(ctx, "  [demo-cloud] transient API error, retrying in %s: %v", delay, err)
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			continue
		}

		if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
			return "", nil
		}
		var text strings.Builder
		for _, part := range result.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
		return strings.TrimSpace(text.String()), nil
	}

	return "", &InferenceError{Engine: "demo-cloud", Err: lastErr}
}
