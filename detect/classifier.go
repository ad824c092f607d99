// Package detect inspects fetched pages for anti-bot signatures and
// classifies the outcome of a navigation attempt.
package detect

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/jobharvest/config"
)

// Outcome is the classification of a fetched page.
type Outcome int

const (
	// OK means the page looks like real content.
	OK Outcome = iota

	// Challenge means an interstitial/CAPTCHA page was served instead of
	// the requested content.
	Challenge

	// Blocked means the upstream refused the request outright (403/429).
	Blocked

	// Empty means the page loaded but contains zero structural listing
	// matches. The orchestrator decides whether that means end-of-results
	// or a soft block (page 0 is always treated as a possible block).
	Empty
)

func (o Outcome) String() string {
	switch o {
	case Challenge:
		return "challenge"
	case Blocked:
		return "blocked"
	case Empty:
		return "empty"
	default:
		return "ok"
	}
}

// cardSelector matches the listing-card containers the structural extractor
// keys on. Compiled once; classification and extraction must agree on it.
var cardSelector = cascadia.MustCompile(
	`div.job_seen_beacon, div[data-testid="job-card"], td.resultContent`,
)

// embeddedPayloadPattern finds the listing JSON the board embeds in a script
// tag. Its presence counts as a structural match even when card markup is
// absent.
var embeddedPayloadPattern = regexp.MustCompile(
	`window\.mosaic\.providerData\["mosaic-provider-jobcards"\]\s*=\s*\{`,
)

// Classifier inspects status codes and content. It never fails: an
// indeterminate signal defaults to OK so the extraction pipeline gets a
// chance to decide.
type Classifier struct {
	markers []string
}

// NewClassifier builds a classifier with the configured interstitial markers.
func NewClassifier(cfg config.DetectConfig) *Classifier {
	markers := cfg.ChallengeMarkers
	if len(markers) == 0 {
		markers = config.DefaultChallengeMarkers
	}
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	return &Classifier{markers: lowered}
}

// Classify maps a navigation result to an Outcome.
//
// Precedence: hard HTTP blocks, then challenge markers, then the structural
// zero-match check. Status 0 (unknown, e.g. the backend could not observe
// the response code) does not count as a block.
func (c *Classifier) Classify(status int, content string) Outcome {
	if status == 403 || status == 429 {
		return Blocked
	}
	if status >= 500 {
		// Upstream error page; neither a block nor real content.
		return Empty
	}

	lower := strings.ToLower(content)
	for _, m := range c.markers {
		if strings.Contains(lower, m) {
			return Challenge
		}
	}

	if !hasStructuralMatch(content) {
		return Empty
	}
	return OK
}

// hasStructuralMatch reports whether the content contains either the embedded
// listing payload or at least one listing-card element.
func hasStructuralMatch(content string) bool {
	if content == "" {
		return false
	}
	if embeddedPayloadPattern.MatchString(content) {
		return true
	}
	root, err := html.Parse(bytes.NewReader([]byte(content)))
	if err != nil {
		return false
	}
	return cascadia.Query(root, cardSelector) != nil
}
