package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/use-agent/jobharvest/config"
	"github.com/use-agent/jobharvest/models"
	"github.com/use-agent/jobharvest/proxy"
)

// Rotation pause bounds. A fresh identity appearing the instant the old one
// vanished is itself a signature.
const (
	rotatePauseMin = 3 * time.Second
	rotatePauseMax = 8 * time.Second
)

// Manager owns the current session and decides when to replace it: after the
// session has served its page budget, or after too many detection events.
// One Manager serves one crawl; it is mutex-guarded because rotation can be
// requested while a fetch is being accounted.
type Manager struct {
	provider Provider
	proxies  *proxy.Pool
	cfg      config.SessionConfig

	mu         sync.Mutex
	rng        *rand.Rand
	sleep      func(ctx context.Context, d time.Duration) error
	current    Session
	endpoint   *proxy.Endpoint
	pages      int
	detections int
	rotations  int
}

// NewManager builds a manager. rng may be nil for a time-seeded source; tests
// inject a fixed seed.
func NewManager(provider Provider, proxies *proxy.Pool, cfg config.SessionConfig, rng *rand.Rand) *Manager {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 5
	}
	if cfg.DetectionLimit <= 0 {
		cfg.DetectionLimit = 2
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Manager{
		provider: provider,
		proxies:  proxies,
		cfg:      cfg,
		rng:      rng,
		sleep:    sleepCtx,
	}
}

// SetSleep overrides the rotation pause. For tests.
func (m *Manager) SetSleep(fn func(ctx context.Context, d time.Duration) error) {
	m.mu.Lock()
	m.sleep = fn
	m.mu.Unlock()
}

// Acquire returns the session to fetch with, rotating first when the current
// one has hit its page budget or detection limit. The first call creates the
// initial session without a pause.
func (m *Manager) Acquire(ctx context.Context) (Session, *proxy.Endpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		if err := m.startSession(ctx); err != nil {
			return nil, nil, err
		}
		return m.current, m.endpoint, nil
	}

	if m.pages >= m.cfg.PageLimit || m.detections >= m.cfg.DetectionLimit {
		if err := m.rotateLocked(ctx); err != nil {
			return nil, nil, err
		}
	}
	return m.current, m.endpoint, nil
}

// NotePage records a completed fetch against the current session's budget.
func (m *Manager) NotePage() {
	m.mu.Lock()
	m.pages++
	m.mu.Unlock()
}

// NoteDetection records a detection event against the current session.
func (m *Manager) NoteDetection() {
	m.mu.Lock()
	m.detections++
	m.mu.Unlock()
}

// Rotate forces immediate replacement of the current session regardless of
// its counters.
func (m *Manager) Rotate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotateLocked(ctx)
}

// Rotations returns how many times the session has been replaced.
func (m *Manager) Rotations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotations
}

// Endpoint returns the proxy the current session is bound to, nil before the
// first Acquire.
func (m *Manager) Endpoint() *proxy.Endpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint
}

// Close tears down the current session.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	err := m.current.Close()
	m.current = nil
	return err
}

// rotateLocked replaces the session: close the old one, pause a few seconds,
// then start fresh with a new fingerprint and the next proxy. Caller holds
// the lock.
func (m *Manager) rotateLocked(ctx context.Context) error {
	var prev Fingerprint
	if m.current != nil {
		prev = m.current.Fingerprint()
		if err := m.current.Close(); err != nil {
			slog.Warn("closing rotated session failed", "session", m.current.ID(), "error", err)
		}
		m.current = nil
	}

	pause := rotatePauseMin + time.Duration(m.rng.Int63n(int64(rotatePauseMax-rotatePauseMin)))
	slog.Debug("pausing before session rotation", "pause", pause)
	if err := m.sleep(ctx, pause); err != nil {
		return err
	}

	if err := m.startSessionWithPrev(ctx, prev); err != nil {
		return err
	}
	m.rotations++
	slog.Info("session rotated",
		"session", m.current.ID(),
		"proxy", m.endpoint.Redacted(),
		"rotations", m.rotations,
	)
	return nil
}

func (m *Manager) startSession(ctx context.Context) error {
	return m.startSessionWithPrev(ctx, Fingerprint{})
}

func (m *Manager) startSessionWithPrev(ctx context.Context, prev Fingerprint) error {
	fp := pickFingerprint(m.rng, prev)
	endpoint := m.proxies.Next()

	s, err := m.provider.NewSession(ctx, fp, endpoint)
	if err != nil {
		return models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to start session", err)
	}

	m.current = s
	m.endpoint = endpoint
	m.pages = 0
	m.detections = 0
	slog.Debug("session started",
		"session", s.ID(),
		"proxy", endpoint.Redacted(),
		"userAgent", fp.UserAgent,
	)
	return nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("session rotation interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
