package crawler

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/use-agent/jobharvest/config"
	"github.com/use-agent/jobharvest/detect"
	"github.com/use-agent/jobharvest/extract"
	"github.com/use-agent/jobharvest/models"
	"github.com/use-agent/jobharvest/proxy"
	"github.com/use-agent/jobharvest/session"
	"github.com/use-agent/jobharvest/timing"
)

// Factory builds a fresh Crawler per search run. The proxy pool, the session
// provider, the classifier, the pipeline, and the global rate limiter are
// shared across runs; the session manager and the timing governor are
// per-run state.
type Factory struct {
	cfg        *config.Config
	provider   session.Provider
	proxies    *proxy.Pool
	classifier *detect.Classifier
	pipeline   *extract.Pipeline
	limiter    *rate.Limiter
}

// NewFactory wires the shared crawl infrastructure.
func NewFactory(cfg *config.Config, provider session.Provider, proxies *proxy.Pool, pipeline *extract.Pipeline) *Factory {
	var limiter *rate.Limiter
	if cfg.Timing.GlobalRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Timing.GlobalRPS), 1)
	}
	return &Factory{
		cfg:        cfg,
		provider:   provider,
		proxies:    proxies,
		classifier: detect.NewClassifier(cfg.Detect),
		pipeline:   pipeline,
		limiter:    limiter,
	}
}

// Search starts a run with its own session manager and governor.
func (f *Factory) Search(ctx context.Context, req *models.SearchRequest) <-chan Result {
	mgr := session.NewManager(f.provider, f.proxies, f.cfg.Session, nil)
	gov := timing.NewGovernor(f.cfg.Timing, nil)
	c := New(f.cfg.Crawl, mgr, f.proxies, gov, f.classifier, f.pipeline, f.limiter)
	return c.Search(ctx, req)
}

// ProxyCount exposes the configured proxy pool size for health reporting.
func (f *Factory) ProxyCount() int { return f.proxies.Size() }
