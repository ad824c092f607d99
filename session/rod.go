package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/jobharvest/config"
	"github.com/use-agent/jobharvest/models"
	"github.com/use-agent/jobharvest/proxy"
)

// RodProvider creates sessions backed by headless Chrome. Each session gets
// its own browser process so that proxy binding and fingerprint overrides
// never leak between identities.
type RodProvider struct {
	cfg config.BrowserConfig
	seq atomic.Int64
}

// NewRodProvider builds the Chrome-backed session provider.
func NewRodProvider(cfg config.BrowserConfig) *RodProvider {
	return &RodProvider{cfg: cfg}
}

// NewSession launches a browser with the fingerprint and proxy applied and
// opens its single working tab.
func (p *RodProvider) NewSession(ctx context.Context, fp Fingerprint, endpoint *proxy.Endpoint) (Session, error) {
	l := launcher.New().
		Headless(p.cfg.Headless).
		NoSandbox(p.cfg.NoSandbox)

	if p.cfg.BrowserBin != "" {
		l = l.Bin(p.cfg.BrowserBin)
	}
	if !endpoint.Direct() {
		l = l.Proxy(endpoint.URL)
	}

	// Stealth flags.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("lang"), fp.Locale)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.MustClose()
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to create page", err)
	}

	s := &rodSession{
		id:       fmt.Sprintf("rod-%d", p.seq.Add(1)),
		fp:       fp,
		cfg:      p.cfg,
		launcher: l,
		browser:  browser,
		page:     page,
	}
	if err := s.applyFingerprint(); err != nil {
		s.Close()
		return nil, models.NewCrawlError(models.ErrCodeBrowserCrash, "failed to apply fingerprint", err)
	}
	s.router = setupHijack(page, p.cfg.BlockedResourceTypes)

	slog.Info("browser session launched",
		"session", s.id,
		"controlURL", controlURL,
		"proxy", endpoint.Redacted(),
	)
	return s, nil
}

// Close is a no-op: each session owns its browser process.
func (p *RodProvider) Close() error { return nil }

type rodSession struct {
	id       string
	fp       Fingerprint
	cfg      config.BrowserConfig
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
}

func (s *rodSession) ID() string               { return s.id }
func (s *rodSession) Fingerprint() Fingerprint { return s.fp }

// applyFingerprint installs the stealth script and the identity overrides.
// All of this must happen before the first navigation.
func (s *rodSession) applyFingerprint() error {
	if _, err := s.page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
	}

	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      s.fp.UserAgent,
		AcceptLanguage: s.fp.Locale,
		Platform:       s.fp.Platform,
	}).Call(s.page); err != nil {
		return err
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.fp.ViewportWidth,
		Height:            s.fp.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(s.page); err != nil {
		return err
	}
	if err := (proto.EmulationSetTimezoneOverride{
		TimezoneID: s.fp.Timezone,
	}).Call(s.page); err != nil {
		// Timezone emulation is unsupported on some Chromium builds.
		slog.Debug("timezone override failed", "timezone", s.fp.Timezone, "error", err)
	}
	return nil
}

// Fetch navigates the session's tab and returns the rendered DOM.
//
// Order matters: the Google referer header must be set before Navigate, and
// the status code is read afterwards from the performance API because CDP
// network listeners conflict with the hijack router on Chromium 145+.
func (s *rodSession) Fetch(ctx context.Context, target string) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.navigationTimeout())
	defer cancel()

	if u, parseErr := url.Parse(target); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{
				"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
			},
		}.Call(s.page)
	}

	p := s.page.Context(ctx)

	if err := p.Navigate(target); err != nil {
		return nil, categorizeNavError(err)
	}

	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	// Status code via the performance API, best-effort.
	status := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		status = res.Value.Int()
	}

	if s.cfg.SimulateBehavior {
		simulateReading(p)
	}

	content, err := p.HTML()
	if err != nil {
		return nil, categorizeNavError(err)
	}

	finalURL := target
	if res, err := p.Eval(`() => window.location.href`); err == nil && res.Value.Str() != "" {
		finalURL = res.Value.Str()
	}

	return &FetchResult{Status: status, Content: content, FinalURL: finalURL}, nil
}

func (s *rodSession) Close() error {
	if s.router != nil {
		_ = s.router.Stop()
	}
	if err := s.browser.Close(); err != nil {
		slog.Warn("closing browser failed", "session", s.id, "error", err)
	}
	s.launcher.Cleanup()
	return nil
}

func (s *rodSession) navigationTimeout() time.Duration {
	if s.cfg.NavigationTimeout > 0 {
		return s.cfg.NavigationTimeout
	}
	return 30 * time.Second
}

// configToProto maps human-readable config strings to Rod protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// setupHijack installs a request interceptor that refuses to load the
// configured resource types. Listing pages render fine without images or
// CSS, and every skipped asset is bandwidth the proxy does not pay for.
//
// Returns the running HijackRouter so Close can stop it, or nil when nothing
// is blocked.
func setupHijack(page *rod.Page, blockedTypes []string) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, shouldBlock := blocked[ctx.Request.Type()]; shouldBlock {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It exits when router.Stop() is called.
	go router.Run()

	return router
}

// simulateReading scrolls through the page the way a person skimming results
// would: a few partial scrolls with uneven pauses, then back up a little.
// Best-effort; a failed eval never fails the fetch.
func simulateReading(p *rod.Page) {
	const js = `async () => {
		const sleep = ms => new Promise(r => setTimeout(r, ms));
		const steps = 3 + Math.floor(Math.random() * 3);
		for (let i = 0; i < steps; i++) {
			window.scrollBy(0, 300 + Math.random() * 500);
			await sleep(400 + Math.random() * 900);
		}
		window.scrollBy(0, -(100 + Math.random() * 200));
		await sleep(200 + Math.random() * 400);
	}`
	if _, err := p.Eval(js); err != nil {
		slog.Debug("behavior simulation failed", "error", err)
	}
}

// categorizeNavError wraps raw navigation errors into typed CrawlErrors so
// the retry logic can tell timeouts from hard failures.
func categorizeNavError(err error) *models.CrawlError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewCrawlError(models.ErrCodeNavTimeout, "navigation timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewCrawlError(models.ErrCodeNavTimeout, "navigation canceled", err)
	default:
		return models.NewCrawlError(models.ErrCodeNavigation, "navigation to target URL failed", err)
	}
}
