package session

import (
	"context"

	"github.com/use-agent/jobharvest/proxy"
)

// FetchResult is what a session hands back per navigation. Status may be 0
// when the backend could not observe it (the caller falls back to content
// classification).
type FetchResult struct {
	Status   int
	Content  string
	FinalURL string
}

// Session is one browsing identity: a fingerprint, a proxy binding, and
// whatever backend state (browser tab, cookie jar) accumulates across
// fetches. Sessions are not safe for concurrent use; the Manager serializes
// access.
type Session interface {
	ID() string
	Fingerprint() Fingerprint
	Fetch(ctx context.Context, url string) (*FetchResult, error)
	Close() error
}

// Provider creates sessions. Two implementations exist: the rod backend
// (headless Chrome, renders JS) and the http backend (Chrome-TLS plain
// fetch). Tests substitute a fake.
type Provider interface {
	NewSession(ctx context.Context, fp Fingerprint, endpoint *proxy.Endpoint) (Session, error)
	Close() error
}
