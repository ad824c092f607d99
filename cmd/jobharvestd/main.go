package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/jobharvest/api"
	"github.com/use-agent/jobharvest/config"
	"github.com/use-agent/jobharvest/crawler"
	"github.com/use-agent/jobharvest/extract"
	"github.com/use-agent/jobharvest/llm"
	"github.com/use-agent/jobharvest/proxy"
	"github.com/use-agent/jobharvest/session"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("jobharvest starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"engine", cfg.Browser.Engine,
		"proxies", len(cfg.Proxy.Endpoints),
	)

	// ── 3. Session backend ──────────────────────────────────────────
	var provider session.Provider
	switch cfg.Browser.Engine {
	case "http":
		provider = session.NewHTTPProvider()
	default:
		provider = session.NewRodProvider(cfg.Browser)
	}
	defer provider.Close()

	// ── 4. Proxy pool ───────────────────────────────────────────────
	pool := proxy.NewPool(cfg.Proxy)

	// ── 5. Extraction pipeline (semantic tier only with an API key) ─
	var semantic extract.SemanticExtractor
	if cfg.Extract.LLMAPIKey != "" {
		semantic = llm.NewClient(nil, cfg.Extract.LLMAPIKey, cfg.Extract.LLMModel, cfg.Extract.LLMBaseURL)
		slog.Info("semantic extraction enabled", "model", cfg.Extract.LLMModel)
	} else if cfg.Extract.Strategy == extract.StrategyStructuralSemantic {
		slog.Warn("semantic strategy configured without an LLM API key, falling back to structural only")
	}
	pipeline := extract.NewPipeline(cfg.Crawl.BaseURL, cfg.Extract.Strategy, semantic)

	// ── 6. Crawl factory + router ───────────────────────────────────
	factory := crawler.NewFactory(cfg, provider, pool, pipeline)
	startTime := time.Now()
	router := api.NewRouter(factory, cfg, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 10 seconds to complete; active crawl runs are
	// canceled through their request contexts.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("jobharvest stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
