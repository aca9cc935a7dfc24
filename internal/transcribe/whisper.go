package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/scribepipe/scribepipe/internal/audio"
	"github.com/scribepipe/scribepipe/internal/logger"
)

// ModelCache holds loaded whisper models keyed by (model path, precision).
// Loading a model is expensive; within a batch the same instance is reused
// for every file and never invalidated.
type ModelCache struct {
	mu     sync.Mutex
	models map[modelKey]whisper.Model
}

type modelKey struct {
	path      string
	precision string
}

// NewModelCache creates an empty model cache.
func NewModelCache() *ModelCache {
	return &ModelCache{models: make(map[modelKey]whisper.Model)}
}

// Load returns the cached model for the key, loading it on first use.
func (c *ModelCache) Load(path, precision string) (whisper.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := modelKey{path: path, precision: precision}
	if m, ok := c.models[key]; ok {
		return m, nil
	}

	m, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %s: %w", path, err)
	}
	c.models[key] = m
	return m, nil
}

// Close releases every cached model. Call after the batch is done.
func (c *ModelCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, m := range c.models {
		m.Close()
		delete(c.models, key)
	}
}

// localEngine runs whisper.cpp inference fully offline. The model is an
// exclusive shared resource, so calls are serialized.
type localEngine struct {
	model     whisper.Model
	modelName string
	language  string
	logger    logger.Logger
	mu        sync.Mutex
}

// localLimits is effectively unbounded: local inference has no request
// ceiling, so the planner only applies the default target length.
var localLimits = Limits{
	MaxDurationSec:  24 * 3600,
	MaxRequestBytes: 1 << 40,
}

// NewLocalEngine loads (or reuses) a whisper model from modelDir and wraps
// it as an Engine. A missing model file is a configuration error: it will
// fail every file, so the batch should not start.
func NewLocalEngine(cache *ModelCache, modelDir, modelName, precision, language string, log logger.Logger) (Engine, error) {
	modelPath := filepath.Join(modelDir, modelFileName(modelName, precision))
	if _, err := os.Stat(modelPath); err != nil {
		return nil, &ConfigurationError{
			Engine: "local",
			Reason: fmt.Sprintf("model file not found: %s", modelPath),
		}
	}

	model, err := cache.Load(modelPath, precision)
	if err != nil {
		return nil, &ConfigurationError{Engine: "local", Reason: err.Error()}
	}

	return &localEngine{
		model:     model,
		modelName: modelName,
		language:  language,
		logger:    log,
	}, nil
}

// modelFileName maps a model name and compute precision to the ggml file
// naming convention (quantized models carry a q8_0 suffix).
func modelFileName(model, precision string) string {
	if precision == "int8" {
		return fmt.Sprintf("ggml-%s-q8_0.bin", model)
	}
	return fmt.Sprintf("ggml-%s.bin", model)
}

func (e *localEngine) Name() string { return "local" }

func (e *localEngine) Limits() Limits { return localLimits }

func (e *localEngine) Transcribe(ctx context.Context, wavPath string) (Result, error) {
	samples, err := audio.ReadSamples(wavPath)
	if err != nil {
		return Result{}, &InferenceError{Engine: "local", Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	wctx, err := e.model.NewContext()
	if err != nil {
		return Result{}, &InferenceError{Engine: "local", Err: err}
	}

	wctx.SetTranslate(false)
	lang := e.language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return Result{}, &InferenceError{Engine: "local", Err: err}
	}

	e.logger.Debug(ctx, "Running local inference (%s): %s", e.modelName, wavPath)

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, &InferenceError{Engine: "local", Err: err}
	}

	var segments []Segment
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, &InferenceError{Engine: "local", Err: err}
		}
		segments = append(segments, Segment{
			StartSec: seg.Start.Seconds(),
			EndSec:   seg.End.Seconds(),
			Text:     seg.Text,
		})
	}

	confidence := 0.0
	if e.language != "" && e.language != "auto" {
		confidence = 1.0
	}

	return Result{
		FullText: JoinSegments(segments),
		Segments: segments,
		Meta: Meta{
			Language:           lang,
			LanguageConfidence: confidence,
			DurationSec:        float64(len(samples)) / float64(audio.SampleRate),
		},
	}, nil
}
