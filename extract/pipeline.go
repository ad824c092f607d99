package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"github.com/use-agent/jobharvest/models"
)

// Strategy names accepted by NewPipeline.
const (
	StrategyStructuralOnly     = "structural"
	StrategyStructuralSemantic = "structural-then-semantic"
)

// Pipeline runs the tiered extraction: embedded JSON payload first, DOM
// parsing second, and optionally a semantic extractor when both structural
// tiers come up empty. The pipeline itself is stateless and safe for
// concurrent use.
type Pipeline struct {
	baseURL  string
	strategy string
	semantic SemanticExtractor
	conv     *converter.Converter
	now      func() time.Time
}

// NewPipeline builds a pipeline. semantic may be nil, in which case the
// semantic tier is skipped even under StrategyStructuralSemantic.
func NewPipeline(baseURL, strategy string, semantic SemanticExtractor) *Pipeline {
	if strategy == "" {
		strategy = StrategyStructuralOnly
	}
	return &Pipeline{
		baseURL:  baseURL,
		strategy: strategy,
		semantic: semantic,
		conv:     newMarkdownConverter(),
		now:      time.Now,
	}
}

// SetClock overrides the reference time used to resolve relative posted
// dates. For tests.
func (p *Pipeline) SetClock(now func() time.Time) { p.now = now }

// Extract runs the tiers in order and returns the first non-empty result.
// Every returned record has an ID, a title, and a URL. A nil error with an
// empty result never happens: exhausting all tiers yields EXTRACTION_EMPTY.
func (p *Pipeline) Extract(ctx context.Context, content, pageURL string) (*models.ExtractionResult, error) {
	ref := p.now()

	if records := extractEmbedded(content, p.baseURL, ref); len(records) > 0 {
		return &models.ExtractionResult{Records: records, Strategy: models.StrategyEmbedded}, nil
	}

	if records := extractStructural(content, p.baseURL, ref); len(records) > 0 {
		return &models.ExtractionResult{Records: records, Strategy: models.StrategyStructural}, nil
	}

	if p.strategy == StrategyStructuralSemantic && p.semantic != nil {
		records, err := p.extractSemantic(ctx, content, pageURL, ref)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			return &models.ExtractionResult{Records: records, Strategy: models.StrategySemantic}, nil
		}
	}

	return nil, models.NewCrawlError(models.ErrCodeExtractionEmpty,
		"no listing records found in page content", nil)
}

func (p *Pipeline) extractSemantic(ctx context.Context, content, pageURL string, ref time.Time) ([]models.CandidateRecord, error) {
	slog.Debug("structural tiers empty, escalating to semantic extraction", "url", pageURL)

	prepared := preprocess(p.conv, content, pageURL)
	data, err := p.semantic.Extract(ctx, prepared, jobListingSchema)
	if err != nil {
		return nil, err
	}
	return decodeSemantic(data, p.baseURL, ref), nil
}
