package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/jobharvest/crawler"
	"github.com/use-agent/jobharvest/models"
)

// Runner starts search runs. *crawler.Factory satisfies it; tests substitute
// a fake.
type Runner interface {
	Search(ctx context.Context, req *models.SearchRequest) <-chan crawler.Result
}

// Search returns a handler for POST /api/v1/search.
//
// Two response modes:
//
//   - buffered (default): the run completes, then a single JSON envelope with
//     all records and the run summary is returned.
//   - streaming (?stream=true or Accept: application/x-ndjson): records are
//     written as NDJSON lines as pages complete, with the summary as the
//     final line. A crawl takes minutes; streaming callers see results as
//     they land.
func Search(runner Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.SearchResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		results := runner.Search(c.Request.Context(), &req)

		if wantsStream(c) {
			streamSearch(c, results)
			return
		}

		records, summary := crawler.Collect(results)

		c.JSON(http.StatusOK, models.SearchResponse{
			Success: true,
			Records: records,
			Summary: summary,
		})
	}
}

func wantsStream(c *gin.Context) bool {
	if c.Query("stream") == "true" {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/x-ndjson")
}

// streamLine is one NDJSON line: a record or the trailing summary.
type streamLine struct {
	Type    string                  `json:"type"`
	Record  *models.CandidateRecord `json:"record,omitempty"`
	Page    *models.PageOutcome     `json:"page,omitempty"`
	Summary *models.SearchSummary   `json:"summary,omitempty"`
}

func streamSearch(c *gin.Context, results <-chan crawler.Result) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Status(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	flusher, _ := c.Writer.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	summary := &models.SearchSummary{}
	for r := range results {
		if r.Record != nil {
			summary.Records++
			_ = enc.Encode(streamLine{Type: "record", Record: r.Record})
			flush()
		}
		if r.Page != nil {
			summary.Pages = append(summary.Pages, *r.Page)
			if r.Page.Outcome == models.PageAbandoned {
				summary.PagesAbandoned++
			} else {
				summary.PagesFetched++
			}
			_ = enc.Encode(streamLine{Type: "page", Page: r.Page})
			flush()
		}
	}

	_ = enc.Encode(streamLine{Type: "summary", Summary: summary})
	flush()
}
