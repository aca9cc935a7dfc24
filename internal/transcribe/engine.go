package transcribe

import (
	"context"
	"strings"
)

// Segment is one timestamped span of recognized text. An empty Text marks
// silence: it is excluded from joined text but may occupy timeline space.
type Segment struct {
	StartSec float64
	EndSec   float64
	Text     string
}

// Meta carries per-result transcription metadata.
type Meta struct {
	Language           string
	LanguageConfidence float64
	DurationSec        float64

	// DroppedWindows counts sub-pieces the engine gave up on without
	// failing the call, so gaps in the transcript are not silent.
	DroppedWindows int
}

// Result is the output of one engine call. Segment timestamps are relative
// to the start of the submitted audio; offset correction across windows is
// the stitcher's job.
type Result struct {
	FullText string
	Segments []Segment
	Meta     Meta
}

// Limits bounds what an engine accepts in a single request. Only the
// planner consumes it.
type Limits struct {
	MaxDurationSec  float64
	MaxRequestBytes int64
}

// Engine defines the interface all transcription backends implement
type Engine interface {
	// Name returns the engine name (for logging).
	Name() string

	// Limits returns the per-request bounds used for window planning.
	Limits() Limits

	// Transcribe converts one canonical WAV file to text.
	Transcribe(ctx context.Context, wavPath string) (Result, error)
}

// JoinSegments returns the space-joined concatenation of all non-empty
// segment texts, in order.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
