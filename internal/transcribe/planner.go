package transcribe

import (
	"math"

	"github.com/scribepipe/scribepipe/internal/audio"
)

const (
	// DefaultChunkSec is the target window length when nothing tighter
	// applies.
	DefaultChunkSec = 600.0

	// MinChunkSec floors the window length to avoid degenerate
	// micro-chunking.
	MinChunkSec = 60.0

	// safeDurationFraction keeps windows well under an engine's hard
	// duration ceiling.
	safeDurationFraction = 0.7

	// safeByteFraction keeps a window's estimated byte size under the
	// engine's request ceiling.
	safeByteFraction = 0.9
)

// Plan splits a normalized audio file into windows that satisfy the given
// engine limits. Windows are emitted in order, cover the whole file, and
// overlap only when overlapSec > 0. Plan never refuses: when the duration
// could not be probed it falls back to a byte-rate estimate and emits a
// single whole-file window.
func Plan(sourcePath string, durationSec float64, sizeBytes int64, limits Limits, overlapSec float64) []audio.Window {
	bytesPerSec := float64(audio.BytesPerSec)
	if durationSec > 0 {
		bytesPerSec = float64(sizeBytes) / durationSec
	}

	if durationSec <= 0 {
		// Duration unknown: best-effort estimate from the canonical
		// PCM byte rate, single window.
		estimated := float64(sizeBytes) / bytesPerSec
		if estimated <= 0 {
			estimated = 1
		}
		return []audio.Window{{SourcePath: sourcePath, StartSec: 0, EndSec: estimated}}
	}

	safeSec := DefaultChunkSec
	if byDuration := limits.MaxDurationSec * safeDurationFraction; byDuration > 0 && byDuration < safeSec {
		safeSec = byDuration
	}
	if bytesPerSec > 0 && limits.MaxRequestBytes > 0 {
		if byBytes := float64(limits.MaxRequestBytes) * safeByteFraction / bytesPerSec; byBytes < safeSec {
			safeSec = byBytes
		}
	}
	if safeSec < MinChunkSec {
		safeSec = MinChunkSec
	}

	fitsBytes := limits.MaxRequestBytes <= 0 || sizeBytes <= limits.MaxRequestBytes
	if durationSec <= safeSec && fitsBytes {
		return []audio.Window{{SourcePath: sourcePath, StartSec: 0, EndSec: durationSec}}
	}

	step := safeSec - overlapSec
	if step <= 0 {
		step = safeSec
	}

	var windows []audio.Window
	for start := 0.0; start < durationSec; start += step {
		end := math.Min(start+safeSec, durationSec)
		windows = append(windows, audio.Window{SourcePath: sourcePath, StartSec: start, EndSec: end})
		if end >= durationSec {
			break
		}
	}
	return windows
}
