package batch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Input is one audio file to process. Base, when set, is the folder the
// file was discovered under; output artifacts mirror the subfolder
// structure relative to it.
type Input struct {
	Path string
	Base string
}

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrFileTooSmall      = errors.New("file too small")
)

// minFileBytes rejects empty or truncated uploads before any processing.
const minFileBytes = 1024

var supportedExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// Validate checks an input file before any processing is attempted.
func Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if !supportedExts[strings.ToLower(filepath.Ext(path))] {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if info.Size() < minFileBytes {
		return fmt.Errorf("%w: %d bytes", ErrFileTooSmall, info.Size())
	}
	return nil
}

// Collect expands file and directory arguments into inputs. Directories
// are walked recursively and become the Base of the files found under
// them; invalid files inside directories are skipped silently and left to
// per-file validation when passed explicitly.
func Collect(args []string) ([]Input, error) {
	var inputs []Input
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			inputs = append(inputs, Input{Path: arg})
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if supportedExts[strings.ToLower(filepath.Ext(path))] {
				inputs = append(inputs, Input{Path: path, Base: arg})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	return inputs, nil
}
