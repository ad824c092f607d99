package session

import "math/rand"

// Fingerprint is the coherent identity a session presents: user agent,
// viewport, locale, and timezone always move together. Mixing fields across
// catalogue entries is what fingerprint checks look for.
type Fingerprint struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	Timezone       string
	Platform       string
}

// catalogue holds realistic desktop identities. Stale entries age badly:
// revisit the Chrome versions here when the board starts flagging them.
var catalogue = []Fingerprint{
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Locale:         "en-US",
		Timezone:       "America/New_York",
		Platform:       "Win32",
	},
	{
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		ViewportWidth:  1536,
		ViewportHeight: 864,
		Locale:         "en-US",
		Timezone:       "America/Chicago",
		Platform:       "Win32",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		ViewportWidth:  1440,
		ViewportHeight: 900,
		Locale:         "en-US",
		Timezone:       "America/Los_Angeles",
		Platform:       "MacIntel",
	},
	{
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
		ViewportWidth:  1680,
		ViewportHeight: 1050,
		Locale:         "en-US",
		Timezone:       "America/Denver",
		Platform:       "MacIntel",
	},
	{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Locale:         "en-US",
		Timezone:       "America/New_York",
		Platform:       "Linux x86_64",
	},
}

// pickFingerprint returns a random catalogue entry different from prev when
// the catalogue allows it.
func pickFingerprint(rng *rand.Rand, prev Fingerprint) Fingerprint {
	if len(catalogue) == 1 {
		return catalogue[0]
	}
	for {
		fp := catalogue[rng.Intn(len(catalogue))]
		if fp.UserAgent != prev.UserAgent || fp.ViewportWidth != prev.ViewportWidth {
			return fp
		}
	}
}
