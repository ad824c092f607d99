package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Proxy     ProxyConfig
	Session   SessionConfig
	Timing    TimingConfig
	Detect    DetectConfig
	Extract   ExtractConfig
	Crawl     CrawlConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the session backend.
type BrowserConfig struct {
	// Engine selects the session backend: "rod" (headless Chrome, renders
	// JS) or "http" (Chrome-TLS-fingerprint plain fetch, no JS).
	Engine string // default: "rod"

	// Headless controls whether Chrome runs headless (rod backend only).
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// NavigationTimeout bounds a single page navigation.
	NavigationTimeout time.Duration // default: 30s

	// SimulateBehavior runs the scroll/mouse simulation script after each
	// navigation when the backend supports it. Best-effort.
	SimulateBehavior bool // default: true

	// BlockedResourceTypes lists resource types the rod backend refuses to
	// load. default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// ProxyConfig controls the egress proxy pool.
type ProxyConfig struct {
	// Endpoints is the proxy URL list. Empty means direct connection.
	Endpoints []string

	// MaxFailures is the consecutive-failure count that quarantines an
	// endpoint.
	MaxFailures int // default: 3

	// Cooldown is how long a quarantined endpoint stays out of rotation.
	Cooldown time.Duration // default: 5m
}

// SessionConfig controls browser session rotation.
type SessionConfig struct {
	// PageLimit is the number of pages a session serves before rotation.
	PageLimit int // default: 5

	// DetectionLimit is the in-session detection count that forces rotation.
	DetectionLimit int // default: 2
}

// TimingConfig controls inter-page pacing.
type TimingConfig struct {
	MinPageDelay time.Duration // default: 15s
	MaxPageDelay time.Duration // default: 30s

	// DetectionBackoff is the base escalated delay after a detection event,
	// jittered ±20%.
	DetectionBackoff time.Duration // default: 60s

	// GlobalRPS is the navigation pacing floor shared by all concurrent
	// crawls in the process. Zero disables it.
	GlobalRPS float64 // default: 0.5
}

// DetectConfig controls anti-bot signature classification.
type DetectConfig struct {
	// ChallengeMarkers are lowercase substrings that identify an
	// interstitial/CAPTCHA page.
	ChallengeMarkers []string
}

// ExtractConfig controls the extraction pipeline.
type ExtractConfig struct {
	// Strategy is "structural" or "structural-then-semantic".
	Strategy string // default: "structural"

	// LLM settings for the semantic fallback (BYOK).
	LLMBaseURL string // default: "https://api.openai.com/v1"
	LLMModel   string // default: "gpt-4o-mini"
	LLMAPIKey  string
}

// CrawlConfig controls the per-page retry state machine.
type CrawlConfig struct {
	// MaxAttempts bounds retries per target URL.
	MaxAttempts int // default: 3

	// MaxConsecutiveAbandoned stops the run early once this many pages in a
	// row are abandoned.
	MaxConsecutiveAbandoned int // default: 2

	// MaxPages caps pagination regardless of requested result count.
	MaxPages int // default: 10

	// PageBudget is the wall-clock allowance per listing page; the run
	// deadline is maxPages × PageBudget.
	PageBudget time.Duration // default: 3m

	// BaseURL is the job board origin.
	BaseURL string // default: "https://www.indeed.com"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: true
	APIKeys []string
}

// RateLimitConfig controls per-key API rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// DefaultChallengeMarkers are the known interstitial signatures. All
// lowercase; classification lowercases content before matching.
var DefaultChallengeMarkers = []string{
	"challenges.cloudflare.com",
	"verify you are human",
	"just a moment",
	"cf-challenge",
	"captcha",
	"hcaptcha.com",
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("JOBHARVEST_HOST", "0.0.0.0"),
			Port: envIntOr("JOBHARVEST_PORT", 8080),
			Mode: envOr("JOBHARVEST_MODE", "release"),
		},
		Browser: BrowserConfig{
			Engine:            envOr("JOBHARVEST_ENGINE", "rod"),
			Headless:          envBoolOr("JOBHARVEST_HEADLESS", true),
			NoSandbox:         envBoolOr("JOBHARVEST_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("JOBHARVEST_BROWSER_BIN"),
			NavigationTimeout: envDurationOr("JOBHARVEST_NAV_TIMEOUT", 30*time.Second),
			SimulateBehavior:  envBoolOr("JOBHARVEST_SIMULATE_BEHAVIOR", true),
			BlockedResourceTypes: envSliceOr("JOBHARVEST_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Proxy: ProxyConfig{
			Endpoints:   envSliceOr("JOBHARVEST_PROXIES", nil),
			MaxFailures: envIntOr("JOBHARVEST_PROXY_MAX_FAILURES", 3),
			Cooldown:    envDurationOr("JOBHARVEST_PROXY_COOLDOWN", 5*time.Minute),
		},
		Session: SessionConfig{
			PageLimit:      envIntOr("JOBHARVEST_PAGES_PER_SESSION", 5),
			DetectionLimit: envIntOr("JOBHARVEST_SESSION_DETECTION_LIMIT", 2),
		},
		Timing: TimingConfig{
			MinPageDelay:     envDurationOr("JOBHARVEST_MIN_PAGE_DELAY", 15*time.Second),
			MaxPageDelay:     envDurationOr("JOBHARVEST_MAX_PAGE_DELAY", 30*time.Second),
			DetectionBackoff: envDurationOr("JOBHARVEST_DETECTION_BACKOFF", 60*time.Second),
			GlobalRPS:        envFloatOr("JOBHARVEST_GLOBAL_RPS", 0.5),
		},
		Detect: DetectConfig{
			ChallengeMarkers: envSliceOr("JOBHARVEST_CHALLENGE_MARKERS", DefaultChallengeMarkers),
		},
		Extract: ExtractConfig{
			Strategy:   envOr("JOBHARVEST_EXTRACT_STRATEGY", "structural"),
			LLMBaseURL: envOr("JOBHARVEST_LLM_BASE_URL", "https://api.openai.com/v1"),
			LLMModel:   envOr("JOBHARVEST_LLM_MODEL", "gpt-4o-mini"),
			LLMAPIKey:  os.Getenv("JOBHARVEST_LLM_API_KEY"),
		},
		Crawl: CrawlConfig{
			MaxAttempts:             envIntOr("JOBHARVEST_MAX_ATTEMPTS", 3),
			MaxConsecutiveAbandoned: envIntOr("JOBHARVEST_MAX_CONSECUTIVE_ABANDONED", 2),
			MaxPages:                envIntOr("JOBHARVEST_MAX_PAGES", 10),
			PageBudget:              envDurationOr("JOBHARVEST_PAGE_BUDGET", 3*time.Minute),
			BaseURL:                 envOr("JOBHARVEST_BASE_URL", "https://www.indeed.com"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("JOBHARVEST_AUTH_ENABLED", true),
			APIKeys: envSliceOr("JOBHARVEST_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("JOBHARVEST_RATE_RPS", 5.0),
			Burst:             envIntOr("JOBHARVEST_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("JOBHARVEST_LOG_LEVEL", "info"),
			Format: envOr("JOBHARVEST_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
