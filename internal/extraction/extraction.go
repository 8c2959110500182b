// Package extraction pulls assignment records out of course pages.
// Like course discovery it runs a cascade: the declarative selector
// strategy first, the language-model strategy only when the selectors
// come up empty on a page variant the profile does not know.
package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"lms-scraper/internal/profile"
	"lms-scraper/internal/scrape"
	"lms-scraper/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("lmscraper.internal.extraction")

// Fetcher retrieves an authenticated page body. Satisfied by the
// portal client.
type Fetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

// Input is everything a strategy needs to work on one course page.
type Input struct {
	BaseURL    *url.URL
	CourseHTML string
	Course     scrape.Course
	Profile    profile.Profile
	Today      time.Time
}

// Strategy extracts assignment candidates from one course page.
// Malformed input yields an empty slice, never an error.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, in Input) []scrape.Assignment
}

type Cascade struct {
	strategies []Strategy
}

func NewCascade(strategies ...Strategy) *Cascade {
	return &Cascade{strategies: strategies}
}

// Extract runs the strategies in order and keeps the first non-empty
// result, deduplicated by URL with the first occurrence winning.
func (c *Cascade) Extract(ctx context.Context, in Input) []scrape.Assignment {
	ctx, span := tracer.Start(ctx, "cascade:Extract")
	defer span.End()
	span.SetAttributes(attribute.String("course", in.Course.Name))

	for _, strategy := range c.strategies {
		assignments := dedupeAssignments(strategy.Extract(ctx, in))
		if len(assignments) == 0 {
			continue
		}
		slog.DebugContext(ctx, "extracted assignments",
			"strategy", strategy.Name(), "course", in.Course.Name, "count", len(assignments))
		return assignments
	}
	return nil
}

func dedupeAssignments(assignments []scrape.Assignment) []scrape.Assignment {
	seen := map[string]bool{}
	var out []scrape.Assignment
	for _, a := range assignments {
		if a.URL == "" || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		out = append(out, a)
	}
	return out
}

type ExtractorOptions struct {
	// cap on courses visited per run; 0 means all
	MaxCourses int
	// when true, assignment detail pages are fetched for submission status
	CheckSubmissions bool
}

// Extractor walks the discovered courses one page at a time and runs
// the cascade on each.
type Extractor struct {
	fetcher Fetcher
	cascade *Cascade
	opts    ExtractorOptions

	// overridable for tests
	today func() time.Time
}

func NewExtractor(fetcher Fetcher, cascade *Cascade, opts ExtractorOptions) *Extractor {
	return &Extractor{
		fetcher: fetcher,
		cascade: cascade,
		opts:    opts,
		today:   timezone.Today,
	}
}

// ExtractAll fetches every course page sequentially and aggregates the
// extracted assignments. Per-course failures are returned as
// diagnostics; they never abort the remaining courses.
func (e *Extractor) ExtractAll(ctx context.Context, base *url.URL, courses []scrape.Course, p profile.Profile) ([]scrape.Assignment, []string) {
	ctx, span := tracer.Start(ctx, "extractor:ExtractAll")
	defer span.End()

	limit := len(courses)
	if e.opts.MaxCourses > 0 && e.opts.MaxCourses < limit {
		limit = e.opts.MaxCourses
	}
	span.SetAttributes(attribute.Int("courses", limit))

	var all []scrape.Assignment
	var diagnostics []string
	for i, course := range courses[:limit] {
		if course.URL == "" {
			continue
		}
		slog.InfoContext(ctx, "extracting course",
			"index", i+1, "total", limit, "course", course.Name)

		html, err := e.fetcher.FetchHTML(ctx, course.URL)
		if err != nil {
			slog.WarnContext(ctx, "failed to fetch course page",
				"course", course.Name, "err", err)
			diagnostics = append(diagnostics,
				fmt.Sprintf("extraction: fetch %s: %v", course.URL, err))
			continue
		}

		assignments := e.cascade.Extract(ctx, Input{
			BaseURL:    base,
			CourseHTML: html,
			Course:     course,
			Profile:    p,
			Today:      e.today(),
		})
		if e.opts.CheckSubmissions {
			assignments = e.enrichSubmissions(ctx, assignments, p)
		}
		all = append(all, assignments...)
	}
	return all, diagnostics
}

// enrichSubmissions visits each assignment's detail page for an
// authoritative submission status. Only worth the extra fetches for
// true assignments; quizzes and forums have no status table.
func (e *Extractor) enrichSubmissions(ctx context.Context, assignments []scrape.Assignment, p profile.Profile) []scrape.Assignment {
	for i, a := range assignments {
		if a.Type != scrape.TypeAssignment || a.URL == "" {
			continue
		}
		html, err := e.fetcher.FetchHTML(ctx, a.URL)
		if err != nil {
			slog.DebugContext(ctx, "failed to fetch assignment detail page",
				"url", a.URL, "err", err)
			continue
		}
		if status, ok := StatusFromDetailPage(html, p, e.today()); ok {
			assignments[i].Submission = status
		}
	}
	return assignments
}
