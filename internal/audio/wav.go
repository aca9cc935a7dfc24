package audio

import (
	"fmt"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Probe returns the duration in seconds and the byte size of a WAV file.
// A zero duration with a nil error means the header could not be decoded;
// callers are expected to fall back to a best-effort estimate.
func Probe(path string) (float64, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, 0, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, info.Size(), fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, info.Size(), nil
	}
	dur, err := dec.Duration()
	if err != nil {
		return 0, info.Size(), nil
	}
	return dur.Seconds(), info.Size(), nil
}

// ExtractWindow writes the [startSec, endSec) slice of src as a standalone
// WAV file at dst, preserving the source format.
func ExtractWindow(src, dst string, startSec, endSec float64) error {
	if endSec <= startSec {
		return fmt.Errorf("invalid window %.2f-%.2f", startSec, endSec)
	}

	buf, err := decodePCM(src)
	if err != nil {
		return err
	}

	rate := buf.Format.SampleRate
	channels := buf.Format.NumChannels
	start := int(startSec*float64(rate)) * channels
	end := int(endSec*float64(rate)) * channels
	if start < 0 {
		start = 0
	}
	if end > len(buf.Data) {
		end = len(buf.Data)
	}
	if start >= end {
		return fmt.Errorf("window %.2f-%.2f is outside the audio", startSec, endSec)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, rate, buf.SourceBitDepth, channels, 1)
	piece := &gaudio.IntBuffer{
		Format:         buf.Format,
		SourceBitDepth: buf.SourceBitDepth,
		Data:           buf.Data[start:end],
	}
	if err := enc.Write(piece); err != nil {
		return fmt.Errorf("write wav window: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// ReadSamples decodes a canonical WAV file into float32 samples in [-1, 1],
// the input format expected by local model inference.
func ReadSamples(path string) ([]float32, error) {
	buf, err := decodePCM(path)
	if err != nil {
		return nil, err
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / 32768.0
	}
	return samples, nil
}

func decodePCM(path string) (*gaudio.IntBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s is not a valid wav file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(dec.BitDepth)
	}
	return buf, nil
}
