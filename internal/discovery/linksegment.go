package discovery

import (
	"context"
	"strings"

	"lms-scraper/internal/scrape"
	"lms-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// LinkSegment accepts any anchor whose URL path contains a
// course keyword as a whole segment. It is the cheapest strategy and
// works on most stock portal themes.
type LinkSegment struct{}

func NewLinkSegment() LinkSegment { return LinkSegment{} }

func (LinkSegment) Name() string { return StrategyLinkSegment }

func (LinkSegment) Extract(ctx context.Context, in Input) []scrape.Course {
	ctx, span := tracer.Start(ctx, "linksegment:Extract")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(in.PageHTML))
	if err != nil {
		span.RecordError(err)
		return nil
	}

	keywords := courseKeywords(in.Profile)
	var courses []scrape.Course
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
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

// nearbySpanText looks for a labelled span around an icon-only link.
func nearbySpanText(sel *goquery.Selection) string {
	span := sel.Parent().Find("span").First()
	if text := htmlutil.CleanText(span.Text()); text != "" {
		return text
	}
	if title, ok := span.Attr("title"); ok {
		return htmlutil.CleanText(title)
	}
	return ""
}
