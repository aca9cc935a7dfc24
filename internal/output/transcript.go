package output

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/scribepipe/scribepipe/internal/transcribe"
)

// SchemaVersion identifies the transcript record layout. Readers tolerate
// unknown fields, so additions bump the minor version only.
const SchemaVersion = "1.0"

// TranscriptRecord is the persisted form of one processed input file.
// Immutable once written.
type TranscriptRecord struct {
	SchemaVersion      string             `json:"schema_version"`
	CreatedAt          string             `json:"created_at"`
	SourceFile         string             `json:"source_file"`
	DurationSec        float64            `json:"duration_sec"`
	Language           string             `json:"language"`
	LanguageConfidence float64            `json:"language_confidence"`
	Text               string             `json:"text"`
	Segments           []SegmentRecord    `json:"segments"`
	Metadata           ProcessingMetadata `json:"metadata"`
}

type SegmentRecord struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type ProcessingMetadata struct {
	Engine         string `json:"engine"`
	Model          string `json:"model"`
	Denoise        bool   `json:"denoise"`
	DroppedWindows int    `json:"dropped_windows"`
	RunID          string `json:"run_id"`
	ProcessedAt    string `json:"processed_at"`
}

// NewRecord assembles a TranscriptRecord from a stitched result.
func NewRecord(sourceFile string, result transcribe.Result, meta ProcessingMetadata) TranscriptRecord {
	segments := make([]SegmentRecord, 0, len(result.Segments))
	for _, s := range result.Segments {
		segments = append(segments, SegmentRecord{Start: s.StartSec, End: s.EndSec, Text: s.Text})
	}

	if meta.ProcessedAt == "" {
		meta.ProcessedAt = time.Now().UTC().Format(time.RFC3339)
	}
	meta.DroppedWindows = result.Meta.DroppedWindows

	return TranscriptRecord{
		SchemaVersion:      SchemaVersion,
		CreatedAt:          time.Now().UTC().Format(time.RFC3339),
		SourceFile:         sourceFile,
		DurationSec:        result.Meta.DurationSec,
		Language:           result.Meta.Language,
		LanguageConfidence: result.Meta.LanguageConfidence,
		Text:               result.FullText,
		Segments:           segments,
		Metadata:           meta,
	}
}

// WriteTranscript writes the record as indented JSON.
func WriteTranscript(path string, rec TranscriptRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
