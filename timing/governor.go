// Package timing computes inter-request delays. The goal is a cadence that
// never looks uniform: short delays while "settling in", full configured
// range later, occasional long think pauses, and a jittered backoff whenever
// the anti-bot layer pushes back.
package timing

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/use-agent/jobharvest/config"
)

// Think-time parameters for pages deep into a run.
const (
	thinkChance = 0.2
	thinkMin    = 5 * time.Second
	thinkMax    = 15 * time.Second

	firstPageMin = 2 * time.Second
	firstPageMax = 5 * time.Second

	// backoffJitter is the ± fraction applied to the detection backoff base.
	backoffJitter = 0.2
)

// Governor computes delays from page position and detection history.
// It is pure computation apart from Wait; inject a seeded rand.Rand for
// deterministic tests. Not safe for concurrent use; each crawl owns one.
type Governor struct {
	cfg config.TimingConfig
	rng *rand.Rand

	// detections counts escalations since the last session rotation. The
	// session manager consumes it through Detections/ResetDetections.
	detections int

	sleep func(ctx context.Context, d time.Duration) error
}

// SetSleep overrides the sleeping mechanism used by Wait. For tests.
func (g *Governor) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	g.sleep = fn
}

// NewGovernor creates a Governor. rng may be nil, in which case a
// time-seeded source is used.
func NewGovernor(cfg config.TimingConfig, rng *rand.Rand) *Governor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.MinPageDelay <= 0 {
		cfg.MinPageDelay = 15 * time.Second
	}
	if cfg.MaxPageDelay < cfg.MinPageDelay {
		cfg.MaxPageDelay = 2 * cfg.MinPageDelay
	}
	if cfg.DetectionBackoff <= 0 {
		cfg.DetectionBackoff = 60 * time.Second
	}
	return &Governor{cfg: cfg, rng: rng}
}

// DelayFor returns the pause to take before fetching the page at pageIndex.
//
// detected overrides the page-based policy entirely: the return value is the
// configured backoff base jittered ±20%, and the in-session detection counter
// is incremented.
func (g *Governor) DelayFor(pageIndex int, detected bool) time.Duration {
	if detected {
		g.detections++
		d := g.jitter(g.cfg.DetectionBackoff, backoffJitter)
		slog.Warn("detection backoff", "delay", d, "detections", g.detections)
		return d
	}

	switch {
	case pageIndex == 0:
		// A human lands on the first page fast.
		return g.between(firstPageMin, firstPageMax)
	case pageIndex < 3:
		return g.between(g.cfg.MinPageDelay/2, g.cfg.MinPageDelay)
	default:
		d := g.between(g.cfg.MinPageDelay, g.cfg.MaxPageDelay)
		if g.rng.Float64() < thinkChance {
			think := g.between(thinkMin, thinkMax)
			slog.Debug("adding think time", "think", think)
			d += think
		}
		return d
	}
}

// Wait sleeps for d or until the context is cancelled.
func (g *Governor) Wait(ctx context.Context, d time.Duration) error {
	if g.sleep != nil {
		return g.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Detections returns the escalation count since the last reset.
func (g *Governor) Detections() int { return g.detections }

// ResetDetections clears the counter. Called on session rotation.
func (g *Governor) ResetDetections() { g.detections = 0 }

// between returns a uniform random duration in [lo, hi).
func (g *Governor) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(g.rng.Int63n(int64(hi-lo)))
}

// jitter returns base scaled by a uniform factor in [1-f, 1+f).
func (g *Governor) jitter(base time.Duration, f float64) time.Duration {
	scale := 1 - f + g.rng.Float64()*2*f
	return time.Duration(float64(base) * scale)
}
