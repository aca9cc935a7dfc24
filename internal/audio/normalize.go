package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scribepipe/scribepipe/internal/logger"
	"github.com/scribepipe/scribepipe/pkg/executor"
)

// Canonical waveform parameters shared by all engines: 16kHz mono PCM.
const (
	SampleRate = 16000
	BitDepth   = 16
	Channels   = 1

	// BytesPerSec is the byte rate of the canonical format, used as a
	// fallback estimate when a file's duration cannot be probed.
	BytesPerSec = SampleRate * (BitDepth / 8) * Channels
)

// denoiseFilter is a conservative cleanup chain with no external model
// dependency: band-limit to the speech range and normalize dynamics.
const denoiseFilter = "highpass=f=100,lowpass=f=6000,dynaudnorm=f=150:g=15"

// normalizeTimeout bounds a single ffmpeg conversion.
const normalizeTimeout = 15 * time.Minute

// Normalizer converts arbitrary input audio to the canonical mono 16kHz
// PCM WAV format that every engine consumes.
type Normalizer interface {
	Normalize(ctx context.Context, sourcePath string, denoise bool) (string, error)
}

type implNormalizer struct {
	executor   executor.Executor
	logger     logger.Logger
	scratchDir string
}

// NewNormalizer creates a Normalizer that shells out to ffmpeg and writes
// its temporary output under scratchDir
func NewNormalizer(exec executor.Executor, log logger.Logger, scratchDir string) Normalizer {
	return &implNormalizer{
		executor:   exec,
		logger:     log,
		scratchDir: scratchDir,
	}
}

// Normalize converts sourcePath to canonical WAV, optionally applying the
// denoise filter chain. The caller owns the returned file.
func (n *implNormalizer) Normalize(ctx context.Context, sourcePath string, denoise bool) (string, error) {
	if err := os.MkdirAll(n.scratchDir, 0755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	stem := SanitizeFilename(strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath)))
	outPath := filepath.Join(n.scratchDir, fmt.Sprintf("%s_%d.tmp.wav", stem, time.Now().UnixMilli()))

	af := "anull"
	if denoise {
		af = denoiseFilter
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", sourcePath,
		"-ac", fmt.Sprintf("%d", Channels),
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-af", af,
		"-c:a", "pcm_s16le",
		outPath,
	}

	n.logger.Info(ctx, "Normalizing audio (denoise=%v): %s", denoise, sourcePath)

	ctx, cancel := context.WithTimeout(ctx, normalizeTimeout)
	defer cancel()

	if _, err := n.executor.ExecuteInDir(ctx, n.scratchDir, "ffmpeg", args...); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("ffmpeg timeout after %s", normalizeTimeout)
		}
		return "", fmt.Errorf("ffmpeg normalize: %w", err)
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("ffmpeg did not create output: %w", err)
	}

	n.logger.Debug(ctx, "Normalized audio: %s", outPath)
	return outPath, nil
}

// SanitizeFilename strips characters that are invalid in file names.
func SanitizeFilename(name string) string {
	const invalid = `<>:"/\|?*`
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalid, r) {
			return '_'
		}
		return r
	}, name))
}
