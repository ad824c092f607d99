package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/jobharvest/models"
)

// DOM selectors for the second structural tier. The board renames classes
// periodically; each field tries a few known generations.
const (
	selCard     = `div.job_seen_beacon, div[data-testid="job-card"], td.resultContent`
	selTitle    = `h2.jobTitle a span, h2.jobTitle a, h2.jobTitle span, a[data-jk]`
	selLink     = `h2.jobTitle a, a[data-jk], a.jcs-JobTitle`
	selCompany  = `span[data-testid="company-name"], span.companyName, div[data-testid="company-name"]`
	selLocation = `div[data-testid="text-location"], div.companyLocation`
	selSalary   = `div[class*="salary-snippet"], div.salary-snippet-container, div[data-testid="attribute_snippet_testid"]`
	selSnippet  = `div.job-snippet, div[data-testid="jobsnippet_footer"], div[class*="job-snippet"]`
	selDate     = `span.date, span[data-testid="myJobsStateDate"]`
)

// extractStructural parses listing cards out of the rendered DOM. Second
// structural tier, used when the embedded payload is missing.
func extractStructural(content, baseURL string, ref time.Time) []models.CandidateRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var records []models.CandidateRecord
	doc.Find(selCard).Each(func(_ int, card *goquery.Selection) {
		rec := models.CandidateRecord{
			Title:    firstText(card, selTitle),
			Company:  firstText(card, selCompany),
			Location: firstText(card, selLocation),
			Snippet:  firstText(card, selSnippet),
			PostedAt: ParsePostedAt(firstText(card, selDate), ref),
			Strategy: models.StrategyStructural,
		}

		link := card.Find(selLink).First()
		if key, ok := link.Attr("data-jk"); ok && key != "" {
			rec.ID = key
			rec.URL = baseURL + "/viewjob?jk=" + key
		} else if href, ok := link.Attr("href"); ok && href != "" {
			if strings.HasPrefix(href, "http") {
				rec.URL = href
			} else {
				rec.URL = baseURL + href
			}
		}

		if salary := firstText(card, selSalary); salary != "" {
			rec.CompensationText = salary
			rec.CompensationMin, rec.CompensationMax = ParseCompensation(salary)
		}
		if strings.Contains(strings.ToLower(rec.Location), "remote") {
			rec.RemoteType = "Remote"
		}

		if !rec.Valid() {
			return
		}
		rec.FillID()
		records = append(records, rec)
	})
	return records
}

// firstText returns the trimmed text of the first element matching any of the
// comma-separated selectors.
func firstText(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}
