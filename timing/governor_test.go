package timing

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/use-agent/jobharvest/config"
)

func newTestGovernor(seed int64) *Governor {
	return NewGovernor(config.TimingConfig{
		MinPageDelay:     15 * time.Second,
		MaxPageDelay:     30 * time.Second,
		DetectionBackoff: 60 * time.Second,
	}, rand.New(rand.NewSource(seed)))
}

func TestDelayFor_FirstPage(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		g := newTestGovernor(seed)
		d := g.DelayFor(0, false)
		if d < 2*time.Second || d >= 5*time.Second {
			t.Errorf("seed %d: DelayFor(0, false) = %v, want [2s, 5s)", seed, d)
		}
	}
}

func TestDelayFor_EarlyPages(t *testing.T) {
	for seed := int64(0); seed < 50; seed++ {
		g := newTestGovernor(seed)
		for _, page := range []int{1, 2} {
			d := g.DelayFor(page, false)
			if d < 7500*time.Millisecond || d >= 15*time.Second {
				t.Errorf("seed %d: DelayFor(%d, false) = %v, want [7.5s, 15s)", seed, page, d)
			}
		}
	}
}

func TestDelayFor_LaterPages(t *testing.T) {
	sawThink := false
	for seed := int64(0); seed < 100; seed++ {
		g := newTestGovernor(seed)
		d := g.DelayFor(5, false)
		if d < 15*time.Second {
			t.Errorf("seed %d: DelayFor(5, false) = %v, below configured minimum", seed, d)
		}
		// Upper bound includes the optional 5-15s think time.
		if d >= 45*time.Second {
			t.Errorf("seed %d: DelayFor(5, false) = %v, above max+think ceiling", seed, d)
		}
		if d >= 30*time.Second {
			sawThink = true
		}
	}
	if !sawThink {
		t.Error("expected at least one think-time delay across 100 seeds")
	}
}

func TestDelayFor_DetectionBackoff(t *testing.T) {
	lo := time.Duration(float64(60*time.Second) * 0.8)
	hi := time.Duration(float64(60*time.Second) * 1.2)
	for seed := int64(0); seed < 100; seed++ {
		g := newTestGovernor(seed)
		d := g.DelayFor(5, true)
		if d < lo || d > hi {
			t.Errorf("seed %d: DelayFor(5, true) = %v, want within ±20%% of 60s", seed, d)
		}
	}
}

func TestDelayFor_DetectionIgnoresPagePolicy(t *testing.T) {
	g := newTestGovernor(1)
	// Page 0 normally yields 2-5s; with the flag set it must use the backoff.
	d := g.DelayFor(0, true)
	if d < 48*time.Second {
		t.Errorf("DelayFor(0, true) = %v, page policy should be ignored on detection", d)
	}
}

func TestDetectionCounter(t *testing.T) {
	g := newTestGovernor(7)

	if g.Detections() != 0 {
		t.Fatalf("fresh governor has %d detections", g.Detections())
	}
	g.DelayFor(1, true)
	g.DelayFor(2, true)
	if g.Detections() != 2 {
		t.Errorf("Detections() = %d, want 2", g.Detections())
	}
	g.DelayFor(3, false)
	if g.Detections() != 2 {
		t.Errorf("non-detection delay must not touch the counter, got %d", g.Detections())
	}
	g.ResetDetections()
	if g.Detections() != 0 {
		t.Errorf("Detections() = %d after reset, want 0", g.Detections())
	}
}

func TestWait_CancelledContext(t *testing.T) {
	g := newTestGovernor(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := g.Wait(ctx, 10*time.Second)
	if err == nil {
		t.Error("Wait should return the context error when cancelled")
	}
	if time.Since(start) > time.Second {
		t.Error("Wait did not return promptly on cancellation")
	}
}

func TestWait_ZeroDelay(t *testing.T) {
	g := newTestGovernor(1)
	if err := g.Wait(context.Background(), 0); err != nil {
		t.Errorf("Wait(ctx, 0) = %v, want nil", err)
	}
}
