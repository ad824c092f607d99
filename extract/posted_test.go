package extract

import (
	"testing"
	"time"
)

func TestParsePostedAt(t *testing.T) {
	ref := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{"hours ago", "3 hours ago", ref.Add(-3 * time.Hour)},
		{"days ago", "5 days ago", ref.AddDate(0, 0, -5)},
		{"weeks ago", "2 weeks ago", ref.AddDate(0, 0, -14)},
		{"months ago", "1 month ago", ref.AddDate(0, 0, -30)},
		{"posted prefix", "Posted 10 days ago", ref.AddDate(0, 0, -10)},
		{"thirty plus", "30+ days ago", ref.AddDate(0, 0, -30)},
		{"just posted", "Just posted", ref},
		{"today", "Today", ref},
		{"empty", "", ref},
		{"garbage", "Hiring ongoing", ref},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePostedAt(tt.text, ref)
			if !got.Equal(tt.want) {
				t.Errorf("ParsePostedAt(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParsePostedAtDeterministic(t *testing.T) {
	ref := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := ParsePostedAt("4 days ago", ref)
	b := ParsePostedAt("4 days ago", ref)
	if !a.Equal(b) {
		t.Errorf("same input and reference produced different times: %v vs %v", a, b)
	}
}
