package transcribe

import (
	"strings"

	"github.com/scribepipe/scribepipe/internal/audio"
)

// Stitch merges per-window results into one globally time-aligned result.
// Each window's start offset is added to its segment timestamps, and the
// global text is the space-join of the per-window texts in window order
// (not a re-join of individual segments, which would reintroduce
// whitespace artifacts at window boundaries). totalDurationSec is the
// measured duration of the unsplit audio and is authoritative.
func Stitch(windows []audio.Window, results []Result, totalDurationSec float64) Result {
	var (
		out   Result
		texts []string
	)

	for i, r := range results {
		offset := 0.0
		if i < len(windows) {
			offset = windows[i].StartSec
		}

		for _, seg := range r.Segments {
			out.Segments = append(out.Segments, Segment{
				StartSec: seg.StartSec + offset,
				EndSec:   seg.EndSec + offset,
				Text:     seg.Text,
			})
		}

		if t := strings.TrimSpace(r.FullText); t != "" {
			texts = append(texts, t)
		}

		if out.Meta.Language == "" {
			out.Meta.Language = r.Meta.Language
			out.Meta.LanguageConfidence = r.Meta.LanguageConfidence
		}
		out.Meta.DroppedWindows += r.Meta.DroppedWindows
	}

	out.FullText = strings.Join(texts, " ")

	out.Meta.DurationSec = totalDurationSec
	if out.Meta.DurationSec <= 0 {
		for _, seg := range out.Segments {
			if seg.EndSec > out.Meta.DurationSec {
				out.Meta.DurationSec = seg.EndSec
			}
		}
	}

	return out
}
