package discovery

import (
	"context"
	"strings"

	"lms-scraper/internal/scrape"
	"lms-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Structural walks the profile's card selectors: the first selector
// that matches anything wins, each card contributes one course. When no
// card structure exists it falls back to scanning the link containers
// directly.
type Structural struct{}

func NewStructural() Structural { return Structural{} }

func (Structural) Name() string { return StrategyStructural }

func (Structural) Extract(ctx context.Context, in Input) []scrape.Course {
	ctx, span := tracer.Start(ctx, "structural:Extract")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.PageHTML))
	if err != nil {
		span.RecordError(err)
		return nil
	}

	keywords := courseKeywords(in.Profile)

	var cards *goquery.Selection
	for _, sel := range in.Profile.Courses.Selectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			cards = found
			break
		}
	}
	if cards == nil {
		return extractFromContainers(doc, in, keywords)
	}

	var courses []scrape.Course
	cards.Each(func(_ int, card *goquery.Selection) {
		link := firstCourseAnchor(card, in, keywords)
		if link == nil {
			return
		}
		href, _ := link.Attr("href")
		resolved := htmlutil.ResolveURL(in.BaseURL, href)
		if resolved == "" {
			return
		}
		courses = append(courses, scrape.Course{
			URL:  resolved,
			Name: cardName(card, link, in.Profile.Courses.NameSelectors),
		})
	})
	return courses
}

func firstCourseAnchor(card *goquery.Selection, in Input, keywords []string) *goquery.Selection {
	var found *goquery.Selection
	card.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok {
			return true
		}
		resolved := htmlutil.ResolveURL(in.BaseURL, href)
		if resolved == "" || !isCourseURL(resolved, in.BaseURL, keywords) {
			return true
		}
		found = sel
		return false
	})
	return found
}

// cardName tries the profile's name-bearing sub-elements in order,
// then the link text, then any title attribute on the card.
func cardName(card, link *goquery.Selection, nameSelectors []string) string {
	for _, sel := range nameSelectors {
		el := card.Find(sel).First()
		if name := htmlutil.CleanText(el.Text()); name != "" {
			return name
		}
		if title, ok := el.Attr("title"); ok && htmlutil.CleanText(title) != "" {
			return htmlutil.CleanText(title)
		}
	}
	if name := htmlutil.CleanText(link.Text()); name != "" {
		return name
	}
	if title, ok := card.Find("[title]").First().Attr("title"); ok {
		if name := htmlutil.CleanText(title); name != "" {
			return name
		}
	}
	return "Untitled course"
}

func extractFromContainers(doc *goquery.Document, in Input, keywords []string) []scrape.Course {
	container := in.Profile.Courses.Container
	if container == "" {
		return nil
	}
	var courses []scrape.Course
	doc.Find(container).Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		resolved := htmlutil.ResolveURL(in.BaseURL, href)
		if resolved == "" || !isCourseURL(resolved, in.BaseURL, keywords) {
			return
		}
		name := htmlutil.CleanText(sel.Text())
		if name == "" {
			name = nearbySpanText(sel)
		}
		if len(name) < 2 {
			return
		}
		courses = append(courses, scrape.Course{URL: resolved, Name: name})
	})
	return courses
}
