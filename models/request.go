package models

// SearchRequest is the payload for POST /api/v1/search.
type SearchRequest struct {
	// Query is the job search query, e.g. "software engineer". Required.
	Query string `json:"query" binding:"required"`

	// Location filters listings by location text. Default: "Remote".
	Location string `json:"location,omitempty"`

	// MaxResults caps the number of records returned. Default: 50. Max: 200.
	MaxResults int `json:"max_results,omitempty" binding:"omitempty,min=1,max=200"`

	// RemoteOnly restricts the search to remote listings. Default: true.
	RemoteOnly *bool `json:"remote_only,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults() {
	if r.Location == "" {
		r.Location = "Remote"
	}
	if r.MaxResults == 0 {
		r.MaxResults = 50
	}
	if r.RemoteOnly == nil {
		t := true
		r.RemoteOnly = &t
	}
}

// SearchSummary trails the NDJSON record stream with run-level statistics.
type SearchSummary struct {
	Records        int           `json:"records"`
	PagesFetched   int           `json:"pages_fetched"`
	PagesAbandoned int           `json:"pages_abandoned"`
	StoppedEarly   bool          `json:"stopped_early"`
	Pages          []PageOutcome `json:"pages"`
	Error          *ErrorDetail  `json:"error,omitempty"`
}
