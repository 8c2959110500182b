package discovery

import (
	"context"
	"log/slog"
	"strings"

	"lms-scraper/internal/scrape"
	"lms-scraper/lib/browser"
	"lms-scraper/lib/htmlutil"
	"lms-scraper/lib/llm"
	"lms-scraper/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
)

const defaultMaxCandidates = 25

// excluded regardless of profile; visiting these can kill the session
var excludedPathParts = []string{"/login", "logout", "/admin", "login.php", "logout.php"}

func defaultCandidatePatterns() []string {
	return []string{"course/view.php", "/course/"}
}

// Exploratory is the last resort: gather every same-origin candidate
// link on the listing page, render each with the browser, and ask the
// language model whether the visited page is a course page. Bounded by
// the profile's max candidate count so it never turns into a crawl.
type Exploratory struct {
	nav    browser.Navigator
	client *llm.Client
}

func NewExploratory(nav browser.Navigator, client *llm.Client) Exploratory {
	return Exploratory{nav: nav, client: client}
}

func (Exploratory) Name() string { return StrategyExploratory }

func (e Exploratory) Extract(ctx context.Context, in Input) []scrape.Course {
	ctx, span := tracer.Start(ctx, "exploratory:Extract")
	defer span.End()

	if e.nav == nil || !e.nav.Available() {
		slog.DebugContext(ctx, "browser unavailable, skipping exploratory discovery")
		return nil
	}
	if e.client == nil || !e.client.Available(ctx) {
		slog.DebugContext(ctx, "language model unavailable, skipping exploratory discovery")
		return nil
	}

	candidates := candidateURLs(ctx, in)
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	if len(candidates) == 0 {
		return nil
	}

	var courses []scrape.Course
	for _, candidate := range candidates {
		html, err := e.nav.FetchPage(ctx, candidate, in.Session)
		if err != nil {
			slog.WarnContext(ctx, "failed to visit candidate link",
				"url", candidate, "err", err)
			continue
		}
		class, ok := e.client.ClassifyCoursePage(ctx, html, candidate, 8000)
		if !ok || !class.IsCourse {
			continue
		}
		name := guardCourseName(class.CourseName, html)
		slog.InfoContext(ctx, "exploratory discovery found a course",
			"url", candidate, "name", name)
		courses = append(courses, scrape.Course{URL: candidate, Name: name})
	}
	return courses
}

// candidateURLs collects same-origin links matching the profile's
// candidate patterns, skipping auth and admin paths, capped at the
// profile's visit budget.
func candidateURLs(ctx context.Context, in Input) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.PageHTML))
	if err != nil {
		return nil
	}

	patterns := in.Profile.Discovery.CandidatePatterns
	if len(patterns) == 0 {
		patterns = defaultCandidatePatterns()
	}
	var excluded []string
	for _, exc := range append(append([]string{}, excludedPathParts...), in.Profile.Discovery.ExcludePaths...) {
		excluded = append(excluded, textutil.NormalizeName(exc))
	}
	limit := in.Profile.Discovery.MaxCandidates
	if limit <= 0 {
		limit = defaultMaxCandidates
	}

	seen := map[string]bool{}
	var out []string
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find("a")) {
		resolved := htmlutil.ResolveURL(in.BaseURL, anchor.Href)
		if resolved == "" || seen[resolved] {
			continue
		}
		if !strings.EqualFold(hostOf(resolved), in.BaseURL.Host) {
			continue
		}
		if textutil.MatchName(resolved, excluded) {
			continue
		}
		matched := false
		for _, pat := range patterns {
			if strings.Contains(resolved, pat) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func hostOf(raw string) string {
	if idx := strings.Index(raw, "://"); idx >= 0 {
		rest := raw[idx+3:]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			return rest[:slash]
		}
		return rest
	}
	return ""
}

// guardCourseName cross-checks the model's course name against the
// page's own heading. A name the page never shows anything similar to
// is likely hallucinated, so the heading wins.
func guardCourseName(modelName, html string) string {
	name := htmlutil.CleanText(modelName)
	heading := pageHeading(html)
	if heading == "" {
		if name == "" {
			return "Untitled course"
		}
		return name
	}
	if name == "" {
		return heading
	}
	similarity := matchr.JaroWinkler(
		strings.ToLower(textutil.CollapseWhitespace(name)),
		strings.ToLower(textutil.CollapseWhitespace(heading)), false)
	if similarity < 0.5 && !strings.Contains(textutil.NormalizeName(heading), textutil.NormalizeName(name)) {
		return heading
	}
	return name
}

func pageHeading(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if h1 := htmlutil.CleanText(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return htmlutil.CleanText(doc.Find("title").First().Text())
}
