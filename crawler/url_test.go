package crawler

import (
	"net/url"
	"strings"
	"testing"
)

func TestSearchURL(t *testing.T) {
	base := "https://www.indeed.com"

	u := searchURL(base, "software engineer", "Remote", 0, true)
	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := parsed.Query()
	if q.Get("q") != "software engineer" {
		t.Errorf("q = %q", q.Get("q"))
	}
	if q.Get("l") != "Remote" {
		t.Errorf("l = %q", q.Get("l"))
	}
	if q.Get("sc") != remoteFilter {
		t.Errorf("sc = %q, want remote filter token", q.Get("sc"))
	}
	if q.Has("start") {
		t.Error("page 0 should omit start")
	}
	if !strings.HasPrefix(u, base+"/jobs?") {
		t.Errorf("unexpected path: %s", u)
	}

	u = searchURL(base, "engineer", "Austin, TX", 3, false)
	q = mustQuery(t, u)
	if q.Get("start") != "30" {
		t.Errorf("start = %q, want 30", q.Get("start"))
	}
	if q.Has("sc") {
		t.Error("non-remote search should omit the filter token")
	}
}

func mustQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return parsed.Query()
}
