package audio

import "fmt"

// Window is a contiguous time slice of one audio file, submitted to a
// transcription engine in a single call.
type Window struct {
	SourcePath string
	StartSec   float64
	EndSec     float64
}

// DurationSec returns the length of the window in seconds.
func (w Window) DurationSec() float64 {
	return w.EndSec - w.StartSec
}

// String returns a human-readable representation for logging.
func (w Window) String() string {
	return fmt.Sprintf("%.0fs-%.0fs", w.StartSec, w.EndSec)
}
