package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	nurl "net/url"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/jobharvest/models"
)

// SemanticExtractor is the external text-understanding capability used as
// the last extraction tier: raw content plus a target schema in, structured
// JSON out. Implementations live outside this package (see llm).
type SemanticExtractor interface {
	Extract(ctx context.Context, content string, schema json.RawMessage) (json.RawMessage, error)
}

// jobListingSchema is the target schema handed to the semantic extractor.
var jobListingSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"jobs": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string"},
					"company": {"type": "string"},
					"location": {"type": "string"},
					"snippet": {"type": "string", "description": "Short description text"},
					"url": {"type": "string", "description": "Canonical job detail URL"},
					"posted": {"type": "string", "description": "Relative posted date text, e.g. '3 days ago'"},
					"compensation": {"type": "string", "description": "Original compensation text, if any"}
				},
				"required": ["title", "url"]
			}
		}
	}
}`)

// semanticJob is the per-item shape returned by the extractor.
type semanticJob struct {
	Title        string `json:"title"`
	Company      string `json:"company"`
	Location     string `json:"location"`
	Snippet      string `json:"snippet"`
	URL          string `json:"url"`
	Posted       string `json:"posted"`
	Compensation string `json:"compensation"`
}

// preprocess reduces raw page HTML to extractor-friendly markdown: isolate
// the main content with readability, then convert to markdown. Each step is
// best-effort; failure falls back to the previous representation.
func preprocess(conv *converter.Converter, content, pageURL string) string {
	working := content

	if u, err := nurl.Parse(pageURL); err == nil {
		if article, rerr := readability.FromReader(strings.NewReader(content), u); rerr == nil &&
			len(strings.TrimSpace(article.TextContent)) > 50 {
			working = article.Content
		}
	}

	md, err := conv.ConvertString(working)
	if err != nil {
		slog.Debug("markdown conversion failed, passing html to semantic extractor", "error", err)
		return working
	}
	return md
}

// newMarkdownConverter builds the goroutine-safe converter used for semantic
// preprocessing: base plugin strips script/style/head noise, commonmark
// renders standard markdown.
func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
		),
	)
}

// decodeSemantic converts the extractor's JSON into candidate records,
// applying the same normalization as the structural tiers.
func decodeSemantic(data json.RawMessage, baseURL string, ref time.Time) []models.CandidateRecord {
	var payload struct {
		Jobs []semanticJob `json:"jobs"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		// Some models return the bare array.
		var jobs []semanticJob
		if err2 := json.Unmarshal(data, &jobs); err2 != nil {
			slog.Warn("semantic extraction returned undecodable JSON", "error", err)
			return nil
		}
		payload.Jobs = jobs
	}

	records := make([]models.CandidateRecord, 0, len(payload.Jobs))
	for _, j := range payload.Jobs {
		rec := models.CandidateRecord{
			Title:    strings.TrimSpace(j.Title),
			Company:  strings.TrimSpace(j.Company),
			Location: strings.TrimSpace(j.Location),
			Snippet:  strings.TrimSpace(j.Snippet),
			URL:      strings.TrimSpace(j.URL),
			PostedAt: ParsePostedAt(j.Posted, ref),
			Strategy: models.StrategySemantic,
		}
		if rec.URL != "" && !strings.HasPrefix(rec.URL, "http") {
			rec.URL = baseURL + rec.URL
		}
		if j.Compensation != "" {
			rec.CompensationText = j.Compensation
			rec.CompensationMin, rec.CompensationMax = ParseCompensation(j.Compensation)
		}
		if strings.Contains(strings.ToLower(rec.Location), "remote") {
			rec.RemoteType = "Remote"
		}

		if !rec.Valid() {
			continue
		}
		rec.FillID()
		records = append(records, rec)
	}
	return records
}
