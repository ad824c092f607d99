package extract

import "testing"

func TestParseCompensation(t *testing.T) {
	tests := []struct {
		name string
		text string
		min  float64
		max  float64
	}{
		{"annual range", "$50,000 - $70,000 a year", 50000, 70000},
		{"hourly range annualized", "$25 - $35 an hour", 52000, 72800},
		{"k suffix range", "$80K - $100K", 80000, 100000},
		{"single annual value", "$120,000 a year", 120000, 120000},
		{"single hourly value", "$18.50 an hour", 18.50 * 2080, 18.50 * 2080},
		{"slash hr phrasing", "$30/hr", 62400, 62400},
		{"decimal hourly range", "$22.50 - $27.25 an hour", 22.50 * 2080, 27.25 * 2080},
		{"large hourly style number stays", "$600 an hour", 600, 600},
		{"no numbers", "Competitive salary", 0, 0},
		{"empty", "", 0, 0},
		{"reversed order normalized", "$70,000 - $50,000 a year", 50000, 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			min, max := ParseCompensation(tt.text)
			if min != tt.min || max != tt.max {
				t.Errorf("ParseCompensation(%q) = (%v, %v), want (%v, %v)",
					tt.text, min, max, tt.min, tt.max)
			}
		})
	}
}
