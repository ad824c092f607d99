package models

import "time"

// FetchOutcome classifies a single navigation attempt.
type FetchOutcome string

const (
	OutcomeOK        FetchOutcome = "ok"
	OutcomeChallenge FetchOutcome = "challenge"
	OutcomeBlocked   FetchOutcome = "blocked"
	OutcomeEmpty     FetchOutcome = "empty"
	OutcomeTimeout   FetchOutcome = "timeout"
	OutcomeError     FetchOutcome = "error"
)

// FetchAttempt records one navigation attempt. It lives only for the
// duration of the orchestration loop; Content is discarded after
// extraction.
type FetchAttempt struct {
	URL       string
	Proxy     string
	SessionID string
	Attempt   int
	Outcome   FetchOutcome
	Status    int
	Content   string
	At        time.Time
}

// Terminal page classifications.
const (
	PageDone      = "done"
	PageAbandoned = "abandoned"
)

// PageOutcome is the structured per-page result surfaced alongside the record
// stream, so callers can tell "no more jobs" from "repeatedly blocked".
type PageOutcome struct {
	PageIndex int    `json:"page_index"`
	URL       string `json:"url"`

	// Outcome is the terminal classification for the page: "done" when the
	// page was fetched and extracted (possibly with zero records), or
	// "abandoned" when retries were exhausted.
	Outcome string `json:"outcome"`

	Records     int    `json:"records"`
	Attempts    int    `json:"attempts"`
	Escalations int    `json:"escalations"`
	Error       string `json:"error,omitempty"`
}
