// Package crawler orchestrates a search run: pagination, per-page retries,
// escalation on detection, and streaming of extracted records. One Crawler
// instance serves one run.
package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/use-agent/jobharvest/config"
	"github.com/use-agent/jobharvest/detect"
	"github.com/use-agent/jobharvest/extract"
	"github.com/use-agent/jobharvest/models"
	"github.com/use-agent/jobharvest/proxy"
	"github.com/use-agent/jobharvest/session"
	"github.com/use-agent/jobharvest/timing"
)

// cardsPerListingPage is the typical card count per page, used only to
// estimate how many pages a result budget needs.
const cardsPerListingPage = 15

// Result is one item on the stream a Search produces: either a record or a
// page outcome, never both.
type Result struct {
	Record *models.CandidateRecord
	Page   *models.PageOutcome
}

// Crawler drives one search run through the session, timing, detection, and
// extraction layers.
type Crawler struct {
	cfg        config.CrawlConfig
	sessions   *session.Manager
	proxies    *proxy.Pool
	governor   *timing.Governor
	classifier *detect.Classifier
	pipeline   *extract.Pipeline

	// limiter is the process-wide navigation pacing floor shared by all
	// concurrent runs. May be nil.
	limiter *rate.Limiter
}

// New assembles a crawler. limiter may be nil to disable global pacing.
func New(
	cfg config.CrawlConfig,
	sessions *session.Manager,
	proxies *proxy.Pool,
	governor *timing.Governor,
	classifier *detect.Classifier,
	pipeline *extract.Pipeline,
	limiter *rate.Limiter,
) *Crawler {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxConsecutiveAbandoned <= 0 {
		cfg.MaxConsecutiveAbandoned = 2
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.PageBudget <= 0 {
		cfg.PageBudget = 3 * time.Minute
	}
	return &Crawler{
		cfg:        cfg,
		sessions:   sessions,
		proxies:    proxies,
		governor:   governor,
		classifier: classifier,
		pipeline:   pipeline,
		limiter:    limiter,
	}
}

// Search runs the crawl and streams records and page outcomes. The channel
// closes when the run ends: budget reached, results exhausted, too many
// abandoned pages, or context cancellation.
func (c *Crawler) Search(ctx context.Context, req *models.SearchRequest) <-chan Result {
	out := make(chan Result)
	go c.run(ctx, req, out)
	return out
}

func (c *Crawler) run(ctx context.Context, req *models.SearchRequest, out chan<- Result) {
	defer close(out)
	defer c.sessions.Close()

	req.Defaults()
	maxPages := req.MaxResults/cardsPerListingPage + 1
	if maxPages > c.cfg.MaxPages {
		maxPages = c.cfg.MaxPages
	}

	// Run deadline: even a fully escalated run cannot outlive its page budget.
	ctx, cancel := context.WithTimeout(ctx, time.Duration(maxPages)*c.cfg.PageBudget)
	defer cancel()

	slog.Info("search run starting",
		"query", req.Query,
		"location", req.Location,
		"maxResults", req.MaxResults,
		"maxPages", maxPages,
	)

	collected := 0
	consecutiveAbandoned := 0

	for pageIndex := 0; pageIndex < maxPages; pageIndex++ {
		if ctx.Err() != nil {
			return
		}

		pageURL := searchURL(c.cfg.BaseURL, req.Query, req.Location, pageIndex, *req.RemoteOnly)
		outcome, records, endOfResults := c.crawlPage(ctx, pageIndex, pageURL)

		sent := 0
		for _, rec := range records {
			if collected >= req.MaxResults {
				break
			}
			rec := rec
			if !send(ctx, out, Result{Record: &rec}) {
				return
			}
			collected++
			sent++
		}
		outcome.Records = sent
		if !send(ctx, out, Result{Page: outcome}) {
			return
		}

		if outcome.Outcome == models.PageAbandoned {
			consecutiveAbandoned++
			if consecutiveAbandoned >= c.cfg.MaxConsecutiveAbandoned {
				slog.Warn("stopping run: too many consecutive abandoned pages",
					"abandoned", consecutiveAbandoned)
				return
			}
		} else {
			consecutiveAbandoned = 0
		}

		if endOfResults {
			slog.Info("stopping run: results exhausted", "pageIndex", pageIndex)
			return
		}
		if collected >= req.MaxResults {
			slog.Info("stopping run: result budget reached", "collected", collected)
			return
		}
	}
}

// crawlPage runs the retry loop for one listing page.
//
// Escalation rules: a challenge backs off and retries on the same proxy (the
// proxy is fine, the session is burned); a hard block penalizes the proxy and
// forces rotation; an empty page past the first one means the results ran
// out.
func (c *Crawler) crawlPage(ctx context.Context, pageIndex int, pageURL string) (*models.PageOutcome, []models.CandidateRecord, bool) {
	po := &models.PageOutcome{
		PageIndex: pageIndex,
		URL:       pageURL,
		Outcome:   models.PageAbandoned,
	}

	detected := false
	emptySeen := 0

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		delay := c.governor.DelayFor(pageIndex, detected)
		detected = false
		if err := c.governor.Wait(ctx, delay); err != nil {
			po.Error = err.Error()
			return po, nil, false
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				po.Error = err.Error()
				return po, nil, false
			}
		}

		sess, endpoint, err := c.sessions.Acquire(ctx)
		if err != nil {
			po.Attempts++
			po.Error = err.Error()
			slog.Error("session acquisition failed", "pageIndex", pageIndex, "error", err)
			continue
		}

		fa := models.FetchAttempt{
			URL:       pageURL,
			Proxy:     endpoint.Redacted(),
			SessionID: sess.ID(),
			Attempt:   attempt,
			At:        time.Now(),
		}

		res, err := sess.Fetch(ctx, pageURL)
		po.Attempts++
		if err != nil {
			fa.Outcome = models.OutcomeError
			var ce *models.CrawlError
			if errors.As(err, &ce) && ce.Code == models.ErrCodeNavTimeout {
				fa.Outcome = models.OutcomeTimeout
			}
			po.Error = err.Error()
			c.proxies.ReportFailure(endpoint)
			logAttempt(fa, err)
			continue
		}
		fa.Status = res.Status
		fa.Content = res.Content

		outcome := c.classifier.Classify(res.Status, res.Content)
		fa.Outcome = fetchOutcome(outcome)
		logAttempt(fa, nil)

		switch outcome {
		case detect.OK:
			c.sessions.NotePage()
			c.proxies.ReportSuccess(endpoint)

			result, extractErr := c.pipeline.Extract(ctx, res.Content, res.FinalURL)
			if extractErr != nil {
				// Classification saw listing structure but extraction came up
				// empty anyway. Treat like an empty page.
				slog.Warn("extraction failed on classified-OK page",
					"pageIndex", pageIndex, "error", extractErr)
				po.Error = extractErr.Error()
				if pageIndex > 0 {
					po.Outcome = models.PageDone
					return po, nil, true
				}
				continue
			}

			po.Outcome = models.PageDone
			po.Error = ""
			slog.Info("page extracted",
				"pageIndex", pageIndex,
				"records", len(result.Records),
				"strategy", result.Strategy,
				"attempts", po.Attempts,
			)
			return po, result.Records, false

		case detect.Challenge:
			po.Escalations++
			c.sessions.NoteDetection()
			detected = true
			po.Error = "challenge interstitial served"
			slog.Warn("challenge detected",
				"pageIndex", pageIndex,
				"attempt", attempt,
				"session", sess.ID(),
			)

		case detect.Blocked:
			po.Escalations++
			c.proxies.ReportFailure(endpoint)
			detected = true
			po.Error = "request blocked upstream"
			slog.Warn("hard block detected",
				"pageIndex", pageIndex,
				"attempt", attempt,
				"proxy", endpoint.Redacted(),
				"status", res.Status,
			)
			if rotErr := c.sessions.Rotate(ctx); rotErr != nil {
				po.Error = rotErr.Error()
				return po, nil, false
			}

		case detect.Empty:
			c.sessions.NotePage()
			c.proxies.ReportSuccess(endpoint)
			if pageIndex > 0 {
				// Past the first page an empty result set means the query
				// genuinely ran out of listings.
				po.Outcome = models.PageDone
				return po, nil, true
			}
			// An empty first page is suspicious; confirm once before
			// believing it.
			emptySeen++
			po.Error = "no listing structure in page"
			if emptySeen >= 2 {
				po.Outcome = models.PageDone
				return po, nil, true
			}
			slog.Warn("first page came back empty, retrying once to confirm",
				"attempt", attempt)
		}
	}

	slog.Error("page abandoned: retries exhausted",
		"pageIndex", pageIndex,
		"attempts", po.Attempts,
		"escalations", po.Escalations,
	)
	return po, nil, false
}

// Collect drains a Search stream, returning the records and the run summary.
// Convenience for callers that do not need streaming delivery.
func Collect(results <-chan Result) ([]models.CandidateRecord, *models.SearchSummary) {
	var records []models.CandidateRecord
	summary := &models.SearchSummary{}
	for r := range results {
		if r.Record != nil {
			records = append(records, *r.Record)
			summary.Records++
		}
		if r.Page != nil {
			summary.Pages = append(summary.Pages, *r.Page)
			if r.Page.Outcome == models.PageAbandoned {
				summary.PagesAbandoned++
			} else {
				summary.PagesFetched++
			}
		}
	}
	return records, summary
}

func fetchOutcome(o detect.Outcome) models.FetchOutcome {
	switch o {
	case detect.Challenge:
		return models.OutcomeChallenge
	case detect.Blocked:
		return models.OutcomeBlocked
	case detect.Empty:
		return models.OutcomeEmpty
	default:
		return models.OutcomeOK
	}
}

// logAttempt emits the per-attempt audit line. Content never goes to the log,
// only its size.
func logAttempt(fa models.FetchAttempt, err error) {
	attrs := []any{
		"url", fa.URL,
		"proxy", fa.Proxy,
		"session", fa.SessionID,
		"attempt", fa.Attempt,
		"outcome", string(fa.Outcome),
		"status", fa.Status,
		"bytes", len(fa.Content),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	slog.Debug("fetch attempt", attrs...)
}

func send(ctx context.Context, out chan<- Result, r Result) bool {
	select {
	case <-ctx.Done():
		return false
	case out <- r:
		return true
	}
}

