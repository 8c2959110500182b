// Package discovery finds the courses an account is enrolled in, given
// a snapshot of the portal's course-listing page. No single method
// works across institutions, so discovery runs an ordered cascade of
// strategies and keeps the first non-empty result. Later strategies are
// noisier; they never dilute an earlier confident result.
package discovery

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"lms-scraper/internal/profile"
	"lms-scraper/internal/scrape"
	"lms-scraper/lib/browser"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("lmscraper.internal.discovery")

const (
	StrategyLinkSegment = "link-segment"
	StrategyStructural  = "structural"
	StrategyModel       = "model"
	StrategyExploratory = "exploratory"
)

func DefaultOrder() []string {
	return []string{StrategyLinkSegment, StrategyStructural, StrategyModel, StrategyExploratory}
}

// Input is the per-run context a strategy works against. Strategies
// read from it and never write pipeline state.
type Input struct {
	BaseURL  *url.URL
	PageHTML string
	Profile  profile.Profile
	Session  browser.Session
}

// Strategy produces candidate courses from the course-listing page.
// Implementations return an empty slice on malformed input or when
// their backing capability is unavailable; they never return an error.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, in Input) []scrape.Course
}

type Cascade struct {
	order      []string
	strategies map[string]Strategy
}

// NewCascade builds a driver over the given strategies. An empty order
// means DefaultOrder; names in the order with no registered strategy
// are skipped.
func NewCascade(order []string, strategies ...Strategy) *Cascade {
	if len(order) == 0 {
		order = DefaultOrder()
	}
	byName := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}
	return &Cascade{order: order, strategies: byName}
}

// Discover runs the cascade and returns the first non-empty strategy
// result, deduplicated by normalized absolute URL.
func (c *Cascade) Discover(ctx context.Context, in Input) []scrape.Course {
	ctx, span := tracer.Start(ctx, "cascade:Discover")
	defer span.End()

	for _, name := range c.order {
		strategy, ok := c.strategies[name]
		if !ok {
			slog.WarnContext(ctx, "unknown discovery strategy in profile order", "name", name)
			continue
		}
		courses := dedupeCourses(strategy.Extract(ctx, in))
		if len(courses) == 0 {
			slog.DebugContext(ctx, "discovery strategy found nothing", "strategy", name)
			continue
		}
		span.SetAttributes(
			attribute.String("strategy", name),
			attribute.Int("courses", len(courses)),
		)
		slog.InfoContext(ctx, "discovered courses", "strategy", name, "count", len(courses))
		return courses
	}
	return nil
}

func dedupeCourses(courses []scrape.Course) []scrape.Course {
	seen := map[string]bool{}
	var out []scrape.Course
	for _, c := range courses {
		if c.URL == "" || seen[c.URL] {
			continue
		}
		seen[c.URL] = true
		out = append(out, c)
	}
	return out
}

func courseKeywords(p profile.Profile) []string {
	if len(p.Courses.LinkKeywords) > 0 {
		return p.Courses.LinkKeywords
	}
	return []string{"course", "courses", "cursos"}
}

// isCourseURL reports whether the url's path contains one of the
// keywords as a whole path segment. Substring hits inside the query
// string do not count, a "?course=1" parameter is not a course page.
func isCourseURL(raw string, base *url.URL, keywords []string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	resolved := base.ResolveReference(parsed)
	if !strings.EqualFold(resolved.Host, base.Host) {
		return false
	}
	for _, segment := range strings.Split(resolved.Path, "/") {
		for _, kw := range keywords {
			if strings.EqualFold(segment, kw) {
				return true
			}
		}
	}
	return false
}
