package detect

import (
	"testing"

	"github.com/use-agent/jobharvest/config"
)

const cardHTML = `<html><body>
<div class="job_seen_beacon"><h2 class="jobTitle"><a data-jk="abc">Engineer</a></h2></div>
</body></html>`

const mosaicHTML = `<html><body><script>
window.mosaic.providerData["mosaic-provider-jobcards"] = {"metaData":{}};
</script></body></html>`

func newTestClassifier() *Classifier {
	return NewClassifier(config.DetectConfig{})
}

func TestClassify_Blocked(t *testing.T) {
	c := newTestClassifier()
	for _, status := range []int{403, 429} {
		if got := c.Classify(status, cardHTML); got != Blocked {
			t.Errorf("Classify(%d, cards) = %v, want Blocked", status, got)
		}
	}
}

func TestClassify_ChallengeMarkers(t *testing.T) {
	c := newTestClassifier()
	tests := []struct {
		name    string
		content string
	}{
		{"cloudflare turnstile", `<html><script src="https://challenges.cloudflare.com/x.js"></script></html>`},
		{"verify human", `<html><body><h1>Verify you are human</h1></body></html>`},
		{"just a moment", `<html><title>Just a moment...</title></html>`},
		{"captcha", `<html><body><div class="g-recaptcha">Solve this CAPTCHA</div></body></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(200, tt.content); got != Challenge {
				t.Errorf("Classify(200, %s) = %v, want Challenge", tt.name, got)
			}
		})
	}
}

func TestClassify_ChallengeBeatsStructural(t *testing.T) {
	// A challenge marker inside an otherwise card-bearing page still counts
	// as a challenge.
	c := newTestClassifier()
	content := `<html><body><div class="job_seen_beacon">x</div>Verify you are human</body></html>`
	if got := c.Classify(200, content); got != Challenge {
		t.Errorf("Classify = %v, want Challenge", got)
	}
}

func TestClassify_OKWithCards(t *testing.T) {
	c := newTestClassifier()
	if got := c.Classify(200, cardHTML); got != OK {
		t.Errorf("Classify(200, cards) = %v, want OK", got)
	}
}

func TestClassify_OKWithEmbeddedPayload(t *testing.T) {
	c := newTestClassifier()
	if got := c.Classify(200, mosaicHTML); got != OK {
		t.Errorf("Classify(200, mosaic) = %v, want OK", got)
	}
}

func TestClassify_EmptyWithoutMatches(t *testing.T) {
	c := newTestClassifier()
	if got := c.Classify(200, `<html><body><p>No results found.</p></body></html>`); got != Empty {
		t.Errorf("Classify(200, no cards) = %v, want Empty", got)
	}
	if got := c.Classify(200, ""); got != Empty {
		t.Errorf("Classify(200, empty) = %v, want Empty", got)
	}
}

func TestClassify_ServerErrorIsEmpty(t *testing.T) {
	c := newTestClassifier()
	if got := c.Classify(503, "<html>service unavailable</html>"); got != Empty {
		t.Errorf("Classify(503) = %v, want Empty", got)
	}
}

func TestClassify_UnknownStatusDefaultsToContent(t *testing.T) {
	// Status 0 means the backend could not observe the response code; the
	// classification falls through to the content checks.
	c := newTestClassifier()
	if got := c.Classify(0, cardHTML); got != OK {
		t.Errorf("Classify(0, cards) = %v, want OK", got)
	}
}

func TestClassify_CustomMarkers(t *testing.T) {
	c := NewClassifier(config.DetectConfig{ChallengeMarkers: []string{"access denied by perimeter"}})
	if got := c.Classify(200, "<html>ACCESS DENIED BY PERIMETER</html>"); got != Challenge {
		t.Errorf("custom marker not matched, got %v", got)
	}
	// Default markers are replaced, not appended.
	if got := c.Classify(200, "<html><div class='job_seen_beacon'>x</div>Just a moment</html>"); got == Challenge {
		t.Error("default markers should not apply when custom markers are configured")
	}
}
