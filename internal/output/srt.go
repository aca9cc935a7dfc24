package output

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/scribepipe/scribepipe/internal/transcribe"
)

// FormatTimestamp renders seconds as the SRT HH:MM:SS,mmm form. The hour
// field grows past two digits for inputs beyond 100 hours.
func FormatTimestamp(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	totalMs := int64(math.Round(sec * 1000))
	ms := totalMs % 1000
	s := (totalMs / 1000) % 60
	m := (totalMs / 60000) % 60
	h := totalMs / 3600000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// WriteSRT writes one numbered subtitle block per non-empty segment.
func WriteSRT(path string, segments []transcribe.Segment) error {
	var b strings.Builder
	idx := 1
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			idx, FormatTimestamp(seg.StartSec), FormatTimestamp(seg.EndSec), text)
		idx++
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}
