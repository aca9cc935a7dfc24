package transcribe

import (
	"math"
	"testing"
)

func TestPlanSingleWindowFit(t *testing.T) {
	limits := Limits{MaxDurationSec: 1400, MaxRequestBytes: 20 * 1024 * 1024}

	windows := Plan("a.wav", 300, 300*32000, limits, 0)
	if len(windows) != 1 {
		t.Fatalf("len(windows) = %d, want 1", len(windows))
	}
	if windows[0].StartSec != 0 || windows[0].EndSec != 300 {
		t.Errorf("window = %v, want [0, 300]", windows[0])
	}
}

func TestPlanLongFile(t *testing.T) {
	// 1500s at the whisper-1 limits: every window must stay under
	// 0.7 * 1400 = 980s and together cover [0, 1500] without gaps.
	limits := Limits{MaxDurationSec: 1400, MaxRequestBytes: 20 * 1024 * 1024}

	windows := Plan("a.wav", 1500, 1500*32000, limits, 0)
	if len(windows) < 2 {
		t.Fatalf("len(windows) = %d, want >= 2", len(windows))
	}

	prevEnd := 0.0
	for i, w := range windows {
		if w.DurationSec() > 980+1e-9 {
			t.Errorf("window %d duration = %v, want <= 980", i, w.DurationSec())
		}
		if w.StartSec != prevEnd {
			t.Errorf("window %d starts at %v, want %v (no gap, no overlap)", i, w.StartSec, prevEnd)
		}
		if w.EndSec <= w.StartSec {
			t.Errorf("window %d has non-positive length", i)
		}
		prevEnd = w.EndSec
	}
	if windows[len(windows)-1].EndSec != 1500 {
		t.Errorf("last window ends at %v, want 1500", windows[len(windows)-1].EndSec)
	}
}

func TestPlanCoverage(t *testing.T) {
	limits := Limits{MaxDurationSec: 600, MaxRequestBytes: 10 * 1024 * 1024}

	for _, dur := range []float64{30, 61, 420, 599.5, 1000, 3600, 7201.25} {
		windows := Plan("a.wav", dur, int64(dur*32000), limits, 0)
		if len(windows) == 0 {
			t.Fatalf("dur %v: no windows", dur)
		}
		if windows[0].StartSec != 0 {
			t.Errorf("dur %v: first window starts at %v", dur, windows[0].StartSec)
		}
		prev := windows[0]
		for _, w := range windows[1:] {
			if w.StartSec < prev.StartSec {
				t.Errorf("dur %v: start times not non-decreasing", dur)
			}
			if w.StartSec > prev.EndSec {
				t.Errorf("dur %v: gap between %v and %v", dur, prev, w)
			}
			prev = w
		}
		if math.Abs(prev.EndSec-dur) > 1e-9 {
			t.Errorf("dur %v: coverage ends at %v", dur, prev.EndSec)
		}
	}
}

func TestPlanByteCeiling(t *testing.T) {
	// 10 minutes of audio that fits the duration limit but not the byte
	// limit must still be split.
	limits := Limits{MaxDurationSec: 6000, MaxRequestBytes: 4 * 1024 * 1024}

	size := int64(600 * 32000) // ~19MB
	windows := Plan("a.wav", 600, size, limits, 0)
	if len(windows) < 2 {
		t.Fatalf("len(windows) = %d, want >= 2", len(windows))
	}
	bytesPerSec := float64(size) / 600
	for i, w := range windows {
		if w.DurationSec()*bytesPerSec > float64(limits.MaxRequestBytes) {
			t.Errorf("window %d estimated bytes exceed the request ceiling", i)
		}
	}
}

func TestPlanMinimumChunkFloor(t *testing.T) {
	// Absurdly tight byte limit: the floor must keep windows at 60s
	// instead of degenerating into micro-chunks.
	limits := Limits{MaxDurationSec: 1400, MaxRequestBytes: 1024}

	windows := Plan("a.wav", 300, 300*32000, limits, 0)
	for i, w := range windows {
		if i == len(windows)-1 {
			continue // last window is truncated to the true end
		}
		if w.DurationSec() < MinChunkSec {
			t.Errorf("window %d duration = %v, want >= %v", i, w.DurationSec(), MinChunkSec)
		}
	}
}

func TestPlanUnknownDuration(t *testing.T) {
	limits := Limits{MaxDurationSec: 1400, MaxRequestBytes: 20 * 1024 * 1024}

	windows := Plan("a.wav", 0, 320000, limits, 0)
	if len(windows) != 1 {
		t.Fatalf("len(windows) = %d, want 1 best-effort window", len(windows))
	}
	if windows[0].DurationSec() <= 0 {
		t.Error("best-effort window has no length")
	}
}

func TestPlanOverlap(t *testing.T) {
	limits := Limits{MaxDurationSec: 600, MaxRequestBytes: 1 << 40}

	windows := Plan("a.wav", 1500, 1500*32000, limits, 30)
	if len(windows) < 2 {
		t.Fatalf("len(windows) = %d, want >= 2", len(windows))
	}
	for i := 1; i < len(windows); i++ {
		overlap := windows[i-1].EndSec - windows[i].StartSec
		if windows[i].EndSec >= 1500 {
			continue // truncated tail
		}
		if math.Abs(overlap-30) > 1e-9 {
			t.Errorf("overlap between windows %d and %d = %v, want 30", i-1, i, overlap)
		}
	}
}
