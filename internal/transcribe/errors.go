package transcribe

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSpeech indicates a call completed but recognized no speech at all.
// Distinct from individual empty sub-pieces, which are successful silence.
var ErrNoSpeech = errors.New("no speech detected")

// ConfigurationError indicates an engine cannot be constructed: missing
// credentials, model file or runtime dependency. Fatal to the whole batch.
type ConfigurationError struct {
	Engine string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s engine configuration: %s", e.Engine, e.Reason)
}

// QuotaError indicates rate/quota exhaustion on a cloud engine. Aborts the
// current file; the message points the user at the unthrottled engines.
type QuotaError struct {
	Engine string
	Err    error
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s engine quota exhausted (switch to the local or production-cloud engine): %v", e.Engine, e.Err)
}

func (e *QuotaError) Unwrap() error { return e.Err }

// InferenceError indicates a model or runtime failure during a single call.
// Aborts the current file only.
type InferenceError struct {
	Engine string
	Err    error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s engine inference failed: %v", e.Engine, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// isQuotaMessage reports whether an API error text looks like rate/quota
// exhaustion rather than a hard failure.
func isQuotaMessage(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{"429", "quota", "rate limit", "resource_exhausted"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
