package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/jobharvest/models"
)

const testBaseURL = "https://www.indeed.com"

var testRef = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

const embeddedPage = `<html><head><script>
window.mosaic.providerData["mosaic-provider-jobcards"] = {"metaData":{"mosaicProviderJobCardsModel":{"results":[
{"jobkey":"abc123","title":"Use Agent Engineer","company":"Acme Corp","formattedLocation":"Remote","snippet":"Build agents.","formattedRelativeTime":"3 days ago","remoteLocation":true,"extractedSalary":{"min":150000,"max":200000}},
{"jobkey":"def456","title":"Platform Engineer","company":"Globex","formattedLocation":"Austin, TX","snippet":"Infra work.","formattedRelativeTime":"Just posted","salarySnippet":"$80K - $100K"}
]}}};
</script></head><body></body></html>`

const structuralPage = `<html><body>
<div class="job_seen_beacon">
  <h2 class="jobTitle"><a data-jk="jk1" href="/rc/clk?jk=jk1"><span>Backend Engineer</span></a></h2>
  <span data-testid="company-name">Initech</span>
  <div data-testid="text-location">Remote in New York, NY</div>
  <div class="salary-snippet-container">$25 - $35 an hour</div>
  <div class="job-snippet">Write services.</div>
  <span class="date">Posted 7 days ago</span>
</div>
<div class="job_seen_beacon">
  <h2 class="jobTitle"><a data-jk="jk2"><span>Data Engineer</span></a></h2>
  <span data-testid="company-name">Hooli</span>
  <div data-testid="text-location">Denver, CO</div>
</div>
</body></html>`

const blankPage = `<html><body><p>Nothing to see here.</p></body></html>`

// stubSemantic returns a fixed payload and records how it was called.
type stubSemantic struct {
	payload json.RawMessage
	err     error
	calls   int
	content string
}

func (s *stubSemantic) Extract(_ context.Context, content string, _ json.RawMessage) (json.RawMessage, error) {
	s.calls++
	s.content = content
	return s.payload, s.err
}

func newTestPipeline(semantic SemanticExtractor) *Pipeline {
	p := NewPipeline(testBaseURL, StrategyStructuralSemantic, semantic)
	p.SetClock(func() time.Time { return testRef })
	return p
}

func TestPipelineEmbeddedTier(t *testing.T) {
	p := newTestPipeline(nil)

	result, err := p.Extract(context.Background(), embeddedPage, testBaseURL+"/jobs?q=engineer")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Strategy != models.StrategyEmbedded {
		t.Errorf("strategy = %q, want %q", result.Strategy, models.StrategyEmbedded)
	}
	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}

	first := result.Records[0]
	if first.ID != "abc123" {
		t.Errorf("ID = %q, want jobkey", first.ID)
	}
	if first.URL != testBaseURL+"/viewjob?jk=abc123" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.CompensationMin != 150000 || first.CompensationMax != 200000 {
		t.Errorf("extracted salary = (%v, %v), want (150000, 200000)",
			first.CompensationMin, first.CompensationMax)
	}
	if first.RemoteType != "Remote" {
		t.Errorf("RemoteType = %q, want Remote", first.RemoteType)
	}
	if want := testRef.AddDate(0, 0, -3); !first.PostedAt.Equal(want) {
		t.Errorf("PostedAt = %v, want %v", first.PostedAt, want)
	}

	second := result.Records[1]
	if second.CompensationMin != 80000 || second.CompensationMax != 100000 {
		t.Errorf("salary text fallback = (%v, %v), want (80000, 100000)",
			second.CompensationMin, second.CompensationMax)
	}
	if !second.PostedAt.Equal(testRef) {
		t.Errorf("just posted should resolve to reference time, got %v", second.PostedAt)
	}
}

func TestPipelineStructuralTier(t *testing.T) {
	p := newTestPipeline(nil)

	result, err := p.Extract(context.Background(), structuralPage, testBaseURL+"/jobs")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Strategy != models.StrategyStructural {
		t.Errorf("strategy = %q, want %q", result.Strategy, models.StrategyStructural)
	}
	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}

	first := result.Records[0]
	if first.Title != "Backend Engineer" || first.Company != "Initech" {
		t.Errorf("unexpected card fields: %+v", first)
	}
	if first.URL != testBaseURL+"/viewjob?jk=jk1" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.CompensationMin != 52000 || first.CompensationMax != 72800 {
		t.Errorf("hourly salary = (%v, %v), want (52000, 72800)",
			first.CompensationMin, first.CompensationMax)
	}
	if first.RemoteType != "Remote" {
		t.Errorf("RemoteType = %q, want Remote", first.RemoteType)
	}

	// Second card has no link text beyond data-jk; URL still constructed.
	if result.Records[1].URL != testBaseURL+"/viewjob?jk=jk2" {
		t.Errorf("second URL = %q", result.Records[1].URL)
	}
}

func TestPipelineEmbeddedPreferredOverDOM(t *testing.T) {
	p := newTestPipeline(nil)

	// Page carries both the payload and rendered cards; embedded wins.
	combined := strings.Replace(embeddedPage, "<body></body>",
		"<body>"+structuralPage+"</body>", 1)
	result, err := p.Extract(context.Background(), combined, testBaseURL+"/jobs")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Strategy != models.StrategyEmbedded {
		t.Errorf("strategy = %q, want embedded to take precedence", result.Strategy)
	}
}

func TestPipelineSemanticTier(t *testing.T) {
	stub := &stubSemantic{payload: json.RawMessage(`{"jobs":[
		{"title":"Site Reliability Engineer","company":"Vandelay","location":"Remote","url":"/viewjob?jk=sem1","posted":"2 days ago","compensation":"$140,000 a year"},
		{"title":"QA Engineer","company":"Pied Piper","location":"Palo Alto, CA","url":"https://example.com/q/2"}
	]}`)}
	p := newTestPipeline(stub)

	result, err := p.Extract(context.Background(), blankPage, testBaseURL+"/jobs")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Strategy != models.StrategySemantic {
		t.Errorf("strategy = %q, want %q", result.Strategy, models.StrategySemantic)
	}
	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}
	for _, rec := range result.Records {
		if rec.Strategy != models.StrategySemantic {
			t.Errorf("record strategy = %q, want semantic", rec.Strategy)
		}
		if rec.ID == "" {
			t.Errorf("record %q missing ID", rec.Title)
		}
	}
	if stub.calls != 1 {
		t.Errorf("semantic extractor called %d times, want 1", stub.calls)
	}
	if result.Records[0].URL != testBaseURL+"/viewjob?jk=sem1" {
		t.Errorf("relative URL not resolved: %q", result.Records[0].URL)
	}
	if result.Records[0].CompensationMin != 140000 {
		t.Errorf("semantic compensation = %v, want 140000", result.Records[0].CompensationMin)
	}
}

func TestPipelineSemanticNotCalledWhenStructuralSucceeds(t *testing.T) {
	stub := &stubSemantic{payload: json.RawMessage(`{"jobs":[]}`)}
	p := newTestPipeline(stub)

	if _, err := p.Extract(context.Background(), structuralPage, testBaseURL+"/jobs"); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if stub.calls != 0 {
		t.Errorf("semantic extractor called %d times on structural success, want 0", stub.calls)
	}
}

func TestPipelineStructuralOnlySkipsSemantic(t *testing.T) {
	stub := &stubSemantic{payload: json.RawMessage(`{"jobs":[{"title":"X","url":"https://e.com/x"}]}`)}
	p := NewPipeline(testBaseURL, StrategyStructuralOnly, stub)
	p.SetClock(func() time.Time { return testRef })

	_, err := p.Extract(context.Background(), blankPage, testBaseURL+"/jobs")
	var ce *models.CrawlError
	if !errors.As(err, &ce) || ce.Code != models.ErrCodeExtractionEmpty {
		t.Fatalf("err = %v, want EXTRACTION_EMPTY", err)
	}
	if stub.calls != 0 {
		t.Errorf("semantic extractor called %d times under structural-only strategy", stub.calls)
	}
}

func TestPipelineEmptyAllTiers(t *testing.T) {
	stub := &stubSemantic{payload: json.RawMessage(`{"jobs":[]}`)}
	p := newTestPipeline(stub)

	_, err := p.Extract(context.Background(), blankPage, testBaseURL+"/jobs")
	var ce *models.CrawlError
	if !errors.As(err, &ce) || ce.Code != models.ErrCodeExtractionEmpty {
		t.Fatalf("err = %v, want EXTRACTION_EMPTY", err)
	}
}

func TestPipelineSemanticError(t *testing.T) {
	wantErr := models.NewCrawlError(models.ErrCodeLLMFailure, "provider unavailable", nil)
	stub := &stubSemantic{err: wantErr}
	p := newTestPipeline(stub)

	_, err := p.Extract(context.Background(), blankPage, testBaseURL+"/jobs")
	var ce *models.CrawlError
	if !errors.As(err, &ce) || ce.Code != models.ErrCodeLLMFailure {
		t.Fatalf("err = %v, want LLM_FAILURE passed through", err)
	}
}

func TestPipelineIdempotent(t *testing.T) {
	p := newTestPipeline(nil)

	a, err := p.Extract(context.Background(), embeddedPage, testBaseURL+"/jobs")
	if err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	b, err := p.Extract(context.Background(), embeddedPage, testBaseURL+"/jobs")
	if err != nil {
		t.Fatalf("second Extract: %v", err)
	}
	if len(a.Records) != len(b.Records) {
		t.Fatalf("record counts differ: %d vs %d", len(a.Records), len(b.Records))
	}
	for i := range a.Records {
		if a.Records[i] != b.Records[i] {
			t.Errorf("record %d differs between runs:\n%+v\n%+v", i, a.Records[i], b.Records[i])
		}
	}
}

func TestPipelineDropsInvalidRecords(t *testing.T) {
	stub := &stubSemantic{payload: json.RawMessage(`{"jobs":[
		{"title":"Kept","url":"https://example.com/1"},
		{"title":"","url":"https://example.com/2"},
		{"title":"No URL"}
	]}`)}
	p := newTestPipeline(stub)

	result, err := p.Extract(context.Background(), blankPage, testBaseURL+"/jobs")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(result.Records) != 1 || result.Records[0].Title != "Kept" {
		t.Errorf("invalid records not dropped: %+v", result.Records)
	}
}
