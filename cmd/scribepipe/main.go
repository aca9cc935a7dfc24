package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/scribepipe/scribepipe/internal/audio"
	"github.com/scribepipe/scribepipe/internal/batch"
	"github.com/scribepipe/scribepipe/internal/config"
	"github.com/scribepipe/scribepipe/internal/logger"
	"github.com/scribepipe/scribepipe/internal/retention"
	"github.com/scribepipe/scribepipe/internal/transcribe"
	"github.com/scribepipe/scribepipe/internal/watcher"
	"github.com/scribepipe/scribepipe/pkg/executor"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Logging.Level)
	log.Info(ctx, "========================================")
	log.Info(ctx, "ScribePipe Transcription Pipeline")
	log.Info(ctx, "========================================")
	log.Info(ctx, "System: %s/%s", runtime.GOOS, runtime.GOARCH)
	log.Info(ctx, "CPU Cores: %d", runtime.NumCPU())
	log.Info(ctx, "Engine: %s (model: %s)", cfg.Engine, cfg.Transcribe.Model)
	log.Info(ctx, "Configuration loaded successfully")

	// Verify required directories exist
	if err := ensureDirectories(cfg); err != nil {
		log.Error(ctx, "Failed to create directories: %v", err)
		os.Exit(1)
	}

	// Initialize dependencies
	exec := executor.New()
	norm := audio.NewNormalizer(exec, log, cfg.Paths.Scratch)
	sweeper := retention.New(log)

	cache := transcribe.NewModelCache()
	defer cache.Close()

	// Engine construction errors are batch-fatal: a missing model file or
	// API key fails the whole invocation before any file is touched.
	engine, err := transcribe.New(ctx, cfg, cache, log)
	if err != nil {
		log.Error(ctx, "Failed to initialize engine: %v", err)
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		runOnce(ctx, cfg, engine, norm, sweeper, log, os.Args[1:])
		return
	}
	runWatch(ctx, cfg, engine, norm, sweeper, log)
}

// runOnce transcribes the files and directories named on the command line
// and exits.
func runOnce(ctx context.Context, cfg *config.Config, engine transcribe.Engine, norm audio.Normalizer, sweeper *retention.Sweeper, log logger.Logger, args []string) {
	inputs, err := batch.Collect(args)
	if err != nil {
		log.Error(ctx, "Failed to collect inputs: %v", err)
		os.Exit(1)
	}
	if len(inputs) == 0 {
		log.Warn(ctx, "No supported audio files found in: %v", args)
		return
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver := batch.New(cfg, engine, norm, sweeper, log)
	summary := driver.Run(ctx, inputs)

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

// runWatch monitors the inbox directory and transcribes files as they
// arrive, until interrupted.
func runWatch(ctx context.Context, cfg *config.Config, engine transcribe.Engine, norm audio.Normalizer, sweeper *retention.Sweeper, log logger.Logger) {
	handler := func(ctx context.Context, filePath string) error {
		// A fresh driver per arrival so each file gets its own run ID.
		driver := batch.New(cfg, engine, norm, sweeper, log)
		summary := driver.Run(ctx, []batch.Input{{Path: filePath, Base: cfg.Paths.Inbox}})
		if len(summary.Errors) > 0 {
			return summary.Errors[0]
		}
		return nil
	}

	w, err := watcher.New(cfg.Paths.Inbox, handler, log, 1)
	if err != nil {
		log.Error(ctx, "Failed to create watcher: %v", err)
		os.Exit(1)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := w.Start(ctx); err != nil && err != context.Canceled {
			errChan <- err
		}
	}()

	log.Info(ctx, "========================================")
	log.Info(ctx, "ScribePipe is ready!")
	log.Info(ctx, "Monitoring: %s", cfg.Paths.Inbox)
	log.Info(ctx, "Output: %s", cfg.Output.Root)
	log.Info(ctx, "Press Ctrl+C to stop")
	log.Info(ctx, "========================================")

	select {
	case <-sigChan:
		log.Info(ctx, "Shutdown signal received")
	case err := <-errChan:
		log.Error(ctx, "Watcher error: %v", err)
	}

	log.Info(ctx, "Shutting down gracefully...")
	cancel()

	log.Info(ctx, "ScribePipe stopped")
}

// ensureDirectories creates required directories if they don't exist
func ensureDirectories(cfg *config.Config) error {
	dirs := []string{
		cfg.Paths.Inbox,
		cfg.Paths.Scratch,
		cfg.Output.Root,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
