package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scribepipe/scribepipe/internal/audio"
	"github.com/scribepipe/scribepipe/internal/config"
	"github.com/scribepipe/scribepipe/internal/logger"
	"github.com/scribepipe/scribepipe/internal/output"
	"github.com/scribepipe/scribepipe/internal/retention"
	"github.com/scribepipe/scribepipe/internal/transcribe"
)

// Stage identifies where in the per-file pipeline an event or error
// occurred.
type Stage string

const (
	StageValidated    Stage = "validate"
	StageNormalized   Stage = "normalize"
	StagePlanned      Stage = "plan"
	StageTranscribing Stage = "transcribe"
	StageStitched     Stage = "stitch"
	StageSerialized   Stage = "serialize"
	StageCleaned      Stage = "cleanup"
)

// FileError records one file's failure together with the stage it died in.
type FileError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s (%s stage): %v", e.Path, e.Stage, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// ProgressEvent is emitted as each file moves through the pipeline.
type ProgressEvent struct {
	Path        string
	Stage       Stage
	WindowIndex int
	WindowCount int
}

type ProgressFunc func(ProgressEvent)

// Summary is the aggregate outcome of one batch run.
type Summary struct {
	Succeeded     int
	Failed        int
	TotalAudioSec float64
	Elapsed       time.Duration
	Stopped       bool
	Errors        []FileError
}

// Driver sequences the transcription pipeline over a list of input files.
// Files are processed one at a time: engine calls are exclusive users of
// shared model or network state.
type Driver struct {
	cfg        *config.Config
	engine     transcribe.Engine
	normalizer audio.Normalizer
	sweeper    *retention.Sweeper
	logger     logger.Logger
	onProgress ProgressFunc
	runID      string
}

type Option func(*Driver)

// WithProgress registers a callback invoked as files and windows complete.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Driver) { d.onProgress = fn }
}

// New creates a batch Driver. The engine must already be constructed:
// engine configuration errors are batch-fatal and belong to the caller.
func New(cfg *config.Config, engine transcribe.Engine, norm audio.Normalizer, sweeper *retention.Sweeper, log logger.Logger, opts ...Option) *Driver {
	d := &Driver{
		cfg:        cfg,
		engine:     engine,
		normalizer: norm,
		sweeper:    sweeper,
		logger:     log,
		runID:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start runs the batch on a background worker so the caller stays
// responsive. The summary arrives on the returned channel.
func (d *Driver) Start(ctx context.Context, inputs []Input) <-chan Summary {
	ch := make(chan Summary, 1)
	go func() {
		defer close(ch)
		ch <- d.Run(ctx, inputs)
	}()
	return ch
}

// Run processes the inputs sequentially. A file failure is recorded and the
// batch moves on; only cancellation stops it early, after the in-flight
// file finishes cleanup.
func (d *Driver) Run(ctx context.Context, inputs []Input) Summary {
	start := time.Now()
	var summary Summary

	d.logger.Info(ctx, "Starting batch %s: %d file(s), engine=%s", d.runID, len(inputs), d.engine.Name())

	for i, in := range inputs {
		if ctx.Err() != nil {
			d.logger.Warn(ctx, "Stop requested, %d file(s) left unprocessed", len(inputs)-i)
			summary.Stopped = true
			break
		}

		d.logger.Info(ctx, "[%d/%d] Processing: %s", i+1, len(inputs), in.Path)

		durationSec, err := d.processOne(ctx, in)
		if err != nil {
			fileErr, ok := err.(FileError)
			if !ok {
				fileErr = FileError{Path: in.Path, Stage: StageTranscribing, Err: err}
			}
			summary.Failed++
			summary.Errors = append(summary.Errors, fileErr)
			d.logger.Error(ctx, "[%d/%d] Failed at %s stage: %v", i+1, len(inputs), fileErr.Stage, fileErr.Err)
			continue
		}

		summary.Succeeded++
		summary.TotalAudioSec += durationSec
		d.logger.Info(ctx, "[%d/%d] Done (%.1fs of audio)", i+1, len(inputs), durationSec)
	}

	d.sweeper.CleanupTemp(ctx, d.cfg.Paths.Scratch)
	d.sweeper.Sweep(ctx, d.cfg.Output.Root, d.cfg.Output.KeepLastN)

	summary.Elapsed = time.Since(start)

	d.logger.Info(ctx, "========================================")
	d.logger.Info(ctx, "Batch complete")
	d.logger.Info(ctx, "  Success: %d / Failed: %d", summary.Succeeded, summary.Failed)
	d.logger.Info(ctx, "  Total audio: %.1fs (%.1fm)", summary.TotalAudioSec, summary.TotalAudioSec/60)
	d.logger.Info(ctx, "  Processing time: %s", summary.Elapsed.Round(time.Second))
	d.logger.Info(ctx, "  Output: %s", d.cfg.Output.Root)
	d.logger.Info(ctx, "========================================")

	return summary
}

// processOne drives a single file through the pipeline and returns its
// measured audio duration. Temporary artifacts are removed on every path.
func (d *Driver) processOne(ctx context.Context, in Input) (float64, error) {
	if err := Validate(in.Path); err != nil {
		return 0, FileError{Path: in.Path, Stage: StageValidated, Err: err}
	}
	d.emit(ProgressEvent{Path: in.Path, Stage: StageValidated})

	wavPath, err := d.normalizer.Normalize(ctx, in.Path, d.cfg.Transcribe.Denoise)
	if err != nil {
		return 0, FileError{Path: in.Path, Stage: StageNormalized, Err: err}
	}
	defer d.removeTemp(ctx, wavPath)
	d.emit(ProgressEvent{Path: in.Path, Stage: StageNormalized})

	durationSec, sizeBytes, err := audio.Probe(wavPath)
	if err != nil {
		return 0, FileError{Path: in.Path, Stage: StagePlanned, Err: err}
	}

	windows := transcribe.Plan(wavPath, durationSec, sizeBytes, d.engine.Limits(), 0)
	d.logger.Info(ctx, "  Planned %d window(s) for %.1fs of audio", len(windows), durationSec)
	d.emit(ProgressEvent{Path: in.Path, Stage: StagePlanned, WindowCount: len(windows)})

	results := make([]transcribe.Result, 0, len(windows))
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return 0, FileError{Path: in.Path, Stage: StageTranscribing, Err: err}
		}

		windowPath := wavPath
		if len(windows) > 1 {
			windowPath = fmt.Sprintf("%s.chunk_%03d.wav", strings.TrimSuffix(wavPath, ".wav"), i+1)
			if err := audio.ExtractWindow(wavPath, windowPath, w.StartSec, w.EndSec); err != nil {
				return 0, FileError{Path: in.Path, Stage: StageTranscribing, Err: err}
			}
		}

		d.logger.Info(ctx, "  Transcribing window %d/%d (%s) [%s]", i+1, len(windows), w, strings.ToUpper(d.engine.Name()))
		result, err := d.engine.Transcribe(ctx, windowPath)
		if windowPath != wavPath {
			d.removeTemp(ctx, windowPath)
		}
		if err != nil {
			// Zero-overlap planning: a lost window means an
			// undisclosed gap, so the whole file fails.
			return 0, FileError{Path: in.Path, Stage: StageTranscribing, Err: fmt.Errorf("window %d/%d: %w", i+1, len(windows), err)}
		}

		results = append(results, result)
		d.emit(ProgressEvent{Path: in.Path, Stage: StageTranscribing, WindowIndex: i + 1, WindowCount: len(windows)})
	}

	stitched := transcribe.Stitch(windows, results, durationSec)
	d.emit(ProgressEvent{Path: in.Path, Stage: StageStitched})

	if err := d.serialize(ctx, in, stitched); err != nil {
		return 0, FileError{Path: in.Path, Stage: StageSerialized, Err: err}
	}
	d.emit(ProgressEvent{Path: in.Path, Stage: StageSerialized})

	return stitched.Meta.DurationSec, nil
}

func (d *Driver) serialize(ctx context.Context, in Input, result transcribe.Result) error {
	stem, err := d.outputStem(in)
	if err != nil {
		return err
	}

	rec := output.NewRecord(filepath.Base(in.Path), result, output.ProcessingMetadata{
		Engine:  d.engine.Name(),
		Model:   d.cfg.Transcribe.Model,
		Denoise: d.cfg.Transcribe.Denoise,
		RunID:   d.runID,
	})

	jsonPath := stem + ".json"
	if err := output.WriteTranscript(jsonPath, rec); err != nil {
		return err
	}
	d.logger.Info(ctx, "  Saved: %s", jsonPath)

	if d.cfg.Output.ExportSRT {
		if err := output.WriteSRT(stem+".srt", result.Segments); err != nil {
			return err
		}
		d.logger.Info(ctx, "  SRT export: %s", stem+".srt")
	}

	if d.cfg.Output.ExportDocx {
		title := strings.TrimSuffix(filepath.Base(in.Path), filepath.Ext(in.Path))
		if err := output.WriteDocx(stem+".docx", title, rec); err != nil {
			return err
		}
		d.logger.Info(ctx, "  DOCX export: %s", stem+".docx")
	}

	return nil
}

// outputStem computes the artifact path prefix: output root, mirroring the
// input subfolder structure when a base folder was given, with a
// timestamp-qualified stem to avoid collisions.
func (d *Driver) outputStem(in Input) (string, error) {
	dir := d.cfg.Output.Root
	if in.Base != "" {
		rel, err := filepath.Rel(in.Base, in.Path)
		if err != nil {
			return "", fmt.Errorf("relativize %s: %w", in.Path, err)
		}
		dir = filepath.Join(dir, filepath.Dir(rel))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	stem := audio.SanitizeFilename(strings.TrimSuffix(filepath.Base(in.Path), filepath.Ext(in.Path)))
	stamp := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("%s_%s", stem, stamp)), nil
}

func (d *Driver) removeTemp(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		d.logger.Warn(ctx, "Failed to cleanup temp file %s: %v", path, err)
	}
}

func (d *Driver) emit(ev ProgressEvent) {
	if d.onProgress != nil {
		d.onProgress(ev)
	}
}
