package watcher

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/scribepipe/scribepipe/internal/logger"
)

// New creates a new Watcher instance. Arrivals are handed off one at a
// time: transcription engines hold exclusive model or network state, so
// maxConcurrent above 1 only helps when the engine tolerates it.
func New(inboxDir string, handler EventHandler, log logger.Logger, maxConcurrent int) (Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(inboxDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &implWatcher{
		inboxDir:      inboxDir,
		handler:       handler,
		logger:        log,
		watcher:       watcher,
		maxConcurrent: maxConcurrent,
		semaphore:     make(chan struct{}, maxConcurrent),
	}, nil
}
