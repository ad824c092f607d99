package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var postedNumberPattern = regexp.MustCompile(`(\d+)`)

// ParsePostedAt converts relative posted-date text ("3 days ago",
// "Just posted", "Posted 30+ days ago") to an absolute timestamp relative to
// ref. Unparseable text resolves to ref itself rather than failing; the
// field is advisory. Pass the extraction time as ref; tests inject a fixed
// one for determinism.
func ParsePostedAt(text string, ref time.Time) time.Time {
	text = strings.ToLower(strings.TrimSpace(text))

	// Boards concatenate a "Posted" prefix onto the relative text.
	text = strings.TrimSpace(strings.ReplaceAll(text, "posted", ""))

	if text == "" || text == "just" || strings.Contains(text, "today") {
		return ref
	}

	m := postedNumberPattern.FindStringSubmatch(text)
	if m == nil {
		return ref
	}
	n, _ := strconv.Atoi(m[1])

	switch {
	case strings.Contains(text, "hour"):
		return ref.Add(-time.Duration(n) * time.Hour)
	case strings.Contains(text, "day"):
		return ref.AddDate(0, 0, -n)
	case strings.Contains(text, "week"):
		return ref.AddDate(0, 0, -7*n)
	case strings.Contains(text, "month"):
		return ref.AddDate(0, 0, -30*n)
	default:
		return ref
	}
}
