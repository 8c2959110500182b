package extraction

import (
	"fmt"
	"strings"
	"time"

	"lms-scraper/internal/profile"
	"lms-scraper/internal/scrape"
	"lms-scraper/lib/dateparse"
	"lms-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

var defaultStatusRowSelectors = []string{"table.generaltable tr"}

var statusLabels = []string{"estado de la entrega", "submission status"}

var modifiedLabels = []string{"última modificación", "ultima modificacion", "last modified", "last modification"}

// StatusFromDetailPage reads the submission status table on an
// activity detail page. Returns false when the page carries no
// recognizable status rows, so the caller keeps whatever it inferred
// from the listing.
func StatusFromDetailPage(html string, p profile.Profile, today time.Time) (scrape.SubmissionStatus, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return scrape.SubmissionStatus{}, false
	}

	rowSelectors := p.Submission.Selectors
	if len(rowSelectors) == 0 {
		rowSelectors = defaultStatusRowSelectors
	}
	keywords := p.Submission.Keywords
	if len(keywords) == 0 {
		keywords = defaultSubmissionKeywords
	}

	status := scrape.SubmissionStatus{StatusText: notSubmittedText}
	found := false
	for _, selector := range rowSelectors {
		doc.Find(selector).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			label := strings.ToLower(htmlutil.CleanText(cells.Eq(0).Text()))
			value := htmlutil.CleanText(cells.Eq(1).Text())

			if containsAny(label, statusLabels) {
				found = true
				for _, kw := range keywords {
					if strings.Contains(strings.ToLower(value), strings.ToLower(kw)) {
						status.Submitted = true
						status.StatusText = value
						break
					}
				}
				return
			}
			if containsAny(label, modifiedLabels) {
				date, ok := dateparse.Normalize(value)
				if !ok {
					return
				}
				days := daysBetween(date, today)
				status.DaysAgo = &days
			}
		})
		if found {
			break
		}
	}
	if !found {
		return scrape.SubmissionStatus{}, false
	}
	if status.Submitted && status.DaysAgo != nil {
		status.StatusText = fmt.Sprintf("Submitted %d day(s) ago", *status.DaysAgo)
	}
	return status, true
}

func containsAny(s string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
