package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// hoursPerYear converts hourly rates to annual figures (40h × 52 weeks).
const hoursPerYear = 2080

// compNumberPattern pulls dollar amounts out of compensation text. Handles
// "$50,000 - $70,000 a year", "$25 - $35 an hour", "$80K - $100K".
var compNumberPattern = regexp.MustCompile(`\$?([\d,]+(?:\.\d+)?)`)

// ParseCompensation normalizes a compensation string to annual USD min/max.
//
// Rules: a K suffix multiplies values under 1000 by 1000; hourly phrasing
// multiplies values under 500 by 2080. A single figure yields min == max.
// Returns (0, 0) when nothing numeric is found.
func ParseCompensation(text string) (min, max float64) {
	if strings.TrimSpace(text) == "" {
		return 0, 0
	}
	lower := strings.ToLower(text)
	hasK := strings.Contains(lower, "k")
	hourly := strings.Contains(lower, "hour") || strings.Contains(lower, "/hr")

	var values []float64
	for _, m := range compNumberPattern.FindAllStringSubmatch(text, -1) {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v == 0 {
			continue
		}
		if hasK && v < 1000 {
			v *= 1000
		}
		if hourly && v < 500 {
			v *= hoursPerYear
		}
		values = append(values, v)
	}

	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], values[0]
	default:
		min, max = values[0], values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		return min, max
	}
}
