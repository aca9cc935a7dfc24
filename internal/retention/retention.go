package retention

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scribepipe/scribepipe/internal/logger"
)

// siblingExts are artifact extensions deleted together with a transcript
// record when its stem falls out of the retention window.
var siblingExts = []string{".srt", ".docx"}

// tempPatterns match leftover chunk and normalization files. Sweeping them
// is idempotent: already-deleted files are not an error.
var tempPatterns = []string{"*.tmp.wav", "*.chunk_*.wav", "*.part_*.wav"}

type Sweeper struct {
	logger logger.Logger
}

// New creates a retention Sweeper
func New(log logger.Logger) *Sweeper {
	return &Sweeper{logger: log}
}

// Sweep keeps the newest keepLastN transcript records (by modification
// time) under root and deletes the rest, along with any subtitle or docx
// files sharing their stem. Returns the number of records removed.
func (s *Sweeper) Sweep(ctx context.Context, root string, keepLastN int) int {
	if keepLastN < 1 {
		keepLastN = 1
	}

	type record struct {
		path  string
		mtime int64
	}

	var records []record
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != ".json" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		records = append(records, record{path: path, mtime: info.ModTime().UnixNano()})
		return nil
	})

	sort.Slice(records, func(i, j int) bool {
		return records[i].mtime > records[j].mtime
	})

	removed := 0
	for _, r := range records[min(keepLastN, len(records)):] {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn(ctx, "Failed to remove old transcript %s: %v", r.path, err)
			continue
		}
		stem := strings.TrimSuffix(r.path, filepath.Ext(r.path))
		for _, ext := range siblingExts {
			if err := os.Remove(stem + ext); err != nil && !os.IsNotExist(err) {
				s.logger.Warn(ctx, "Failed to remove %s: %v", stem+ext, err)
			}
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info(ctx, "Retention: removed %d old transcript(s)", removed)
	}
	return removed
}

// CleanupTemp removes leftover chunk and normalization files under root.
func (s *Sweeper) CleanupTemp(ctx context.Context, root string) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		for _, pat := range tempPatterns {
			ok, matchErr := filepath.Match(pat, name)
			if matchErr != nil || !ok {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				s.logger.Debug(ctx, "Failed to remove temp file %s: %v", path, err)
			}
			break
		}
		return nil
	})
}
