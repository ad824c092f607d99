package extract

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/use-agent/jobharvest/models"
)

// embeddedPattern captures the listing payload the board assigns to
// window.mosaic inside a script tag. The JSON object runs to the next
// statement terminator.
var embeddedPattern = regexp.MustCompile(
	`(?s)window\.mosaic\.providerData\["mosaic-provider-jobcards"\]\s*=\s*(\{.*?\});`,
)

// embeddedPayload mirrors the fragment of the provider data we consume.
type embeddedPayload struct {
	MetaData struct {
		MosaicProviderJobCardsModel struct {
			Results []embeddedJob `json:"results"`
		} `json:"mosaicProviderJobCardsModel"`
	} `json:"metaData"`
}

type embeddedJob struct {
	JobKey                string `json:"jobkey"`
	Title                 string `json:"title"`
	DisplayTitle          string `json:"displayTitle"`
	Company               string `json:"company"`
	FormattedLocation     string `json:"formattedLocation"`
	JobLocationCity       string `json:"jobLocationCity"`
	Snippet               string `json:"snippet"`
	FormattedRelativeTime string `json:"formattedRelativeTime"`
	RemoteLocation        bool   `json:"remoteLocation"`
	SalaryText            string `json:"salarySnippet"`
	ExtractedSalary       *struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"extractedSalary"`
}

// extractEmbedded parses the embedded JSON payload. This is the first
// structural tier: the payload's shape is far more stable than the board's
// DOM classes. Returns nil when the payload is absent or malformed.
func extractEmbedded(content, baseURL string, ref time.Time) []models.CandidateRecord {
	m := embeddedPattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}

	var payload embeddedPayload
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		slog.Warn("embedded listing payload found but not parseable", "error", err)
		return nil
	}

	results := payload.MetaData.MosaicProviderJobCardsModel.Results
	records := make([]models.CandidateRecord, 0, len(results))
	for _, j := range results {
		title := j.Title
		if title == "" {
			title = j.DisplayTitle
		}
		location := j.FormattedLocation
		if location == "" {
			location = j.JobLocationCity
		}

		rec := models.CandidateRecord{
			ID:       j.JobKey,
			Title:    strings.TrimSpace(title),
			Company:  strings.TrimSpace(j.Company),
			Location: strings.TrimSpace(location),
			Snippet:  strings.TrimSpace(j.Snippet),
			PostedAt: ParsePostedAt(j.FormattedRelativeTime, ref),
			Strategy: models.StrategyEmbedded,
		}
		if j.JobKey != "" {
			rec.URL = baseURL + "/viewjob?jk=" + j.JobKey
		}
		if j.ExtractedSalary != nil && j.ExtractedSalary.Min > 0 {
			rec.CompensationMin = j.ExtractedSalary.Min
			rec.CompensationMax = j.ExtractedSalary.Max
			if rec.CompensationMax == 0 {
				rec.CompensationMax = rec.CompensationMin
			}
		} else if j.SalaryText != "" {
			rec.CompensationText = j.SalaryText
			rec.CompensationMin, rec.CompensationMax = ParseCompensation(j.SalaryText)
		}
		if j.RemoteLocation || strings.Contains(strings.ToLower(rec.Location), "remote") {
			rec.RemoteType = "Remote"
		}

		if !rec.Valid() {
			continue
		}
		rec.FillID()
		records = append(records, rec)
	}
	return records
}
