package models

// SearchResponse is the buffered (non-streaming) response envelope for
// POST /api/v1/search.
type SearchResponse struct {
	Success bool              `json:"success"`
	Records []CandidateRecord `json:"records,omitempty"`
	Summary *SearchSummary    `json:"summary,omitempty"`
	Error   *ErrorDetail      `json:"error,omitempty"`
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Proxies int    `json:"proxies"`
	Version string `json:"version"`
}
