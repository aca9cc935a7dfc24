package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scribepipe/scribepipe/internal/logger"
)

func touch(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestSweepKeepsNewest(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	// Five records with descending age; the two oldest must go.
	names := []string{"e", "d", "c", "b", "a"}
	for i, name := range names {
		touch(t, filepath.Join(root, name+".json"), time.Duration(5-i)*time.Hour)
	}
	// Subtitle siblings for the two oldest.
	touch(t, filepath.Join(root, "e.srt"), 5*time.Hour)
	touch(t, filepath.Join(root, "d.srt"), 4*time.Hour)

	s := New(logger.New("error"))
	removed := s.Sweep(ctx, root, 3)

	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	for _, gone := range []string{"e.json", "d.json", "e.srt", "d.srt"} {
		if _, err := os.Stat(filepath.Join(root, gone)); !os.IsNotExist(err) {
			t.Errorf("%s should have been deleted", gone)
		}
	}
	for _, kept := range []string{"c.json", "b.json", "a.json"} {
		if _, err := os.Stat(filepath.Join(root, kept)); err != nil {
			t.Errorf("%s should have been kept: %v", kept, err)
		}
	}
}

func TestSweepFewerThanN(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	touch(t, filepath.Join(root, "only.json"), time.Hour)

	s := New(logger.New("error"))
	if removed := s.Sweep(ctx, root, 3); removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestSweepWalksSubfolders(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	sub := filepath.Join(root, "course", "week1")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	touch(t, filepath.Join(sub, "old.json"), 2*time.Hour)
	touch(t, filepath.Join(root, "new.json"), time.Minute)

	s := New(logger.New("error"))
	if removed := s.Sweep(ctx, root, 1); removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(filepath.Join(sub, "old.json")); !os.IsNotExist(err) {
		t.Error("nested old record should have been deleted")
	}
}

func TestCleanupTemp(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	leftovers := []string{
		"talk_1700000000000.tmp.wav",
		"talk.chunk_001.wav",
		"talk.part_002.wav",
	}
	for _, name := range leftovers {
		touch(t, filepath.Join(root, name), time.Hour)
	}
	touch(t, filepath.Join(root, "keep.wav"), time.Hour)

	s := New(logger.New("error"))
	s.CleanupTemp(ctx, root)

	for _, name := range leftovers {
		if _, err := os.Stat(filepath.Join(root, name)); !os.IsNotExist(err) {
			t.Errorf("%s should have been deleted", name)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "keep.wav")); err != nil {
		t.Error("unrelated wav must survive temp cleanup")
	}

	// Idempotent: a second pass over missing files must not fail.
	s.CleanupTemp(ctx, root)
}
