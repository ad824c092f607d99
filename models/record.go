package models

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// ExtractionStrategy identifies which tier of the pipeline produced a record.
type ExtractionStrategy string

const (
	// StrategyEmbedded means the record came from the embedded JSON payload
	// job boards ship inside a <script> tag. Most stable tier.
	StrategyEmbedded ExtractionStrategy = "embedded"

	// StrategyStructural means the record came from DOM selectors.
	StrategyStructural ExtractionStrategy = "structural"

	// StrategySemantic means the record came from the schema-guided
	// text-understanding fallback.
	StrategySemantic ExtractionStrategy = "semantic"
)

// CandidateRecord is a normalized job listing, the engine's externally
// visible output unit. Ownership transfers to the caller on emission.
type CandidateRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`

	// Snippet is the short description text shown on the listing card.
	Snippet string `json:"snippet,omitempty"`

	// URL is the canonical detail URL for the listing.
	URL string `json:"url"`

	// PostedAt is the relative posted-date text resolved to an absolute
	// timestamp at extraction time. Unparseable text resolves to the
	// extraction time itself (lossy by contract, not an error).
	PostedAt time.Time `json:"posted_at"`

	// CompensationText is the raw compensation string, if the card had one.
	CompensationText string `json:"compensation_text,omitempty"`

	// CompensationMin/Max are annual USD figures normalized from
	// CompensationText (hourly ×2080, K suffix ×1000). Zero when absent.
	CompensationMin float64 `json:"compensation_min,omitempty"`
	CompensationMax float64 `json:"compensation_max,omitempty"`

	// RemoteType is "Remote" when the listing is flagged or located remote.
	RemoteType string `json:"remote_type,omitempty"`

	Strategy ExtractionStrategy `json:"strategy"`
}

// FillID derives a deterministic ID from company, title and location so
// downstream dedup collaborators get a stable key. No-op if ID is set
// (embedded payloads carry the board's own job key).
func (r *CandidateRecord) FillID() {
	if r.ID != "" {
		return
	}
	key := strings.ToLower(r.Company + ":" + r.Title + ":" + r.Location)
	sum := md5.Sum([]byte(key))
	r.ID = hex.EncodeToString(sum[:])[:16]
}

// Valid reports whether the record carries the minimum a consumer can act
// on: a non-empty title and detail URL. Invalid records are dropped, never
// emitted.
func (r *CandidateRecord) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && strings.TrimSpace(r.URL) != ""
}

// ExtractionResult is the output of one pipeline run over fetched content.
type ExtractionResult struct {
	Records  []CandidateRecord  `json:"records"`
	Strategy ExtractionStrategy `json:"strategy_used"`
}
