package extraction

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"lms-scraper/internal/profile"
	"lms-scraper/internal/scrape"
	"lms-scraper/lib/dateparse"
	"lms-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

const notSubmittedText = "Not submitted"

var defaultSubmissionKeywords = []string{"entregado", "enviado", "submitted", "completado", "finalizado"}

var defaultSubmissionPatterns = []string{
	`entregado[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`,
	`submitted[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`,
	`enviado[:\s]*(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`,
	`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`,
}

// Selector matches the profile's activity-link selectors against the
// course page. The due date is rarely inside the link itself, so it is
// looked up in the surrounding parent text first and in the profile's
// date selectors second.
type Selector struct{}

func NewSelector() Selector { return Selector{} }

func (Selector) Name() string { return "selector" }

func (Selector) Extract(ctx context.Context, in Input) []scrape.Assignment {
	ctx, span := tracer.Start(ctx, "selector:Extract")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.CourseHTML))
	if err != nil {
		span.RecordError(err)
		return nil
	}

	datePatterns := dateparse.CompilePatterns(in.Profile.Dates.Patterns)
	var assignments []scrape.Assignment
	for _, selector := range in.Profile.AssignmentSelectors() {
		doc.Find(selector).Each(func(_ int, link *goquery.Selection) {
			href, ok := link.Attr("href")
			if !ok {
				return
			}
			resolved := htmlutil.ResolveURL(in.BaseURL, href)
			if resolved == "" {
				return
			}
			title := htmlutil.CleanText(link.Text())
			if len(title) < 3 {
				return
			}

			parent := link.Parent()
			rawDue := dueDateNear(parent, datePatterns, in.Profile.Dates.Selectors)

			assignments = append(assignments, scrape.Assignment{
				Title:      title,
				RawDueDate: rawDue,
				Course:     in.Course.Name,
				Type:       scrape.TypeFromURL(resolved, scrape.TypeActivity),
				URL:        resolved,
				Section:    "Main",
				Submission: submissionFromText(htmlutil.CleanText(parent.Text()), in.Profile, in.Today),
			})
		})
	}
	return assignments
}

// dueDateNear extracts a due-date string from the text around an
// activity link: regex patterns over the parent's text first, then the
// profile's dedicated date elements.
func dueDateNear(parent *goquery.Selection, patterns []*regexp.Regexp, dateSelectors []string) string {
	text := htmlutil.CleanText(parent.Text())
	if due, ok := dateparse.ExtractDateFromText(text, patterns); ok {
		return due
	}
	for _, sel := range dateSelectors {
		el := parent.Find(sel).First()
		if due := htmlutil.CleanText(el.Text()); due != "" {
			return due
		}
	}
	return ""
}

// submissionFromText infers submission state from the prose around a
// link. The detail-page check supersedes this when enabled.
func submissionFromText(text string, p profile.Profile, today time.Time) scrape.SubmissionStatus {
	status := scrape.SubmissionStatus{StatusText: notSubmittedText}
	if text == "" {
		return status
	}
	lower := strings.ToLower(text)

	keywords := p.Submission.Keywords
	if len(keywords) == 0 {
		keywords = defaultSubmissionKeywords
	}
	matched := false
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = true
			break
		}
	}
	if !matched {
		return status
	}

	status.Submitted = true
	status.StatusText = "Submitted (date unknown)"

	patterns := p.Submission.DatePatterns
	if len(patterns) == 0 {
		patterns = defaultSubmissionPatterns
	}
	raw, ok := dateparse.ExtractDateFromText(text, dateparse.CompilePatterns(patterns))
	if !ok {
		return status
	}
	date, ok := dateparse.Normalize(raw)
	if !ok {
		return status
	}
	days := daysBetween(date, today)
	status.DaysAgo = &days
	status.StatusText = fmt.Sprintf("Submitted %d day(s) ago", days)
	return status
}

// daysBetween counts calendar days between the two dates' midnights in
// to's zone. Rounding absorbs the hour a DST transition adds or takes.
func daysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, to.Location())
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	return int(math.Round(to.Sub(from).Hours() / 24))
}
