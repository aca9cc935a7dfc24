package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/scribepipe/scribepipe/internal/config"
	"github.com/scribepipe/scribepipe/internal/logger"
)

// New selects and constructs the configured engine. Construction failures
// are batch-fatal: an engine that cannot be built will fail every file.
func New(ctx context.Context, cfg *config.Config, cache *ModelCache, log logger.Logger) (Engine, error) {
	t := cfg.Transcribe

	switch cfg.Engine {
	case config.EngineLocal:
		return NewLocalEngine(cache, t.ModelDir, t.Model, t.Precision, t.Language, log)
	case config.EngineDemoCloud:
		return NewDemoEngine(ctx, apiKey(t.APIKey, "GEMINI_API_KEY"), t.Model, t.Language, log)
	case config.EngineProductionCloud:
		return NewProductionEngine(apiKey(t.APIKey, "OPENAI_API_KEY"), t.Model, log)
	default:
		return nil, fmt.Errorf("unknown engine: %s", cfg.Engine)
	}
}

// apiKey prefers the configured key, falling back to the environment.
func apiKey(configured, envVar string) string {
	if k := strings.TrimSpace(configured); k != "" {
		return k
	}
	return strings.TrimSpace(os.Getenv(envVar))
}
