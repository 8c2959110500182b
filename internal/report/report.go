// Package report renders the classified assignment set into a
// Markdown document. Rendering is pure textual substitution against a
// named placeholder map; the assembler depends only on the template's
// placeholder set, never on its wording.
package report

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"lms-scraper/internal/classify"
	"lms-scraper/internal/scrape"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lmscraper.internal.report")

//go:embed template.md
var defaultTemplate string

const footerText = "*Generated by lms-scraper*"

type Data struct {
	Title             string
	GeneratedAt       time.Time
	DaysAhead         int
	DaysBehind        int
	Classified        []classify.ClassifiedAssignment
	RecentlySubmitted []scrape.Assignment
	Courses           []scrape.Course
}

// Title expands a profile title template. The only placeholder is
// {portal_name}.
func Title(template, portalName string) string {
	if template == "" {
		template = "Assignment report - {portal_name}"
	}
	return strings.ReplaceAll(template, "{portal_name}", portalName)
}

// Render assembles the full report text. Section order is fixed:
// header, courses explored (always present), recently submitted,
// overdue, due today, upcoming, footer. Empty sections are omitted; if
// every section is empty an explicit no-pending-items message appears
// instead.
func Render(ctx context.Context, data Data) string {
	_, span := tracer.Start(ctx, "report:Render")
	defer span.End()

	overdue, dueToday, upcoming := classify.ByStatus(data.Classified)
	total := len(overdue) + len(dueToday) + len(upcoming) + len(data.RecentlySubmitted)

	emptyMessage := ""
	if total == 0 {
		emptyMessage = "## No pending items in the requested period.\n\n"
	}

	replacer := strings.NewReplacer(
		"{title}", data.Title,
		"{generation_date}", data.GeneratedAt.Format("02/01/2006 15:04:05"),
		"{period}", fmt.Sprintf("last %d days and next %d days", data.DaysBehind, data.DaysAhead),
		"{total_tasks}", fmt.Sprintf("%d", total),
		"{courses_count_line}", fmt.Sprintf("**Courses found:** %d", len(data.Courses)),
		"{courses_explored_section}", coursesSection(data.Courses),
		"{section_recently_submitted}", recentlySubmittedSection(data.RecentlySubmitted),
		"{section_overdue}", overdueSection(overdue),
		"{section_due_today}", dueTodaySection(dueToday),
		"{section_upcoming}", upcomingSection(upcoming),
		"{empty_message}", emptyMessage,
		"{footer}", footerText,
	)
	return replacer.Replace(defaultTemplate)
}

// always present, even with nothing to list
func coursesSection(courses []scrape.Course) string {
	var b strings.Builder
	b.WriteString("## Courses explored\n\n")
	if len(courses) == 0 {
		b.WriteString("No courses were explored.\n")
	} else {
		for _, c := range courses {
			fmt.Fprintf(&b, "- %s\n", c.Name)
		}
	}
	b.WriteString("\n")
	return b.String()
}

func recentlySubmittedSection(recent []scrape.Assignment) string {
	if len(recent) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Recently submitted (last 7 days)\n\n")
	for _, a := range recent {
		fmt.Fprintf(&b, "- **%s** in **%s**\n", a.Title, a.Course)
		fmt.Fprintf(&b, "  - *Status:* %s\n", a.Submission.StatusText)
		fmt.Fprintf(&b, "  - *URL:* %s\n", a.URL)
	}
	b.WriteString("\n---\n\n")
	return b.String()
}

func overdueSection(overdue []classify.ClassifiedAssignment) string {
	if len(overdue) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Overdue\n\n")
	for _, a := range overdue {
		fmt.Fprintf(&b, "- **%s** in **%s**\n", a.Title, a.Course)
		days := 0
		if a.DaysOverdue != nil {
			days = *a.DaysOverdue
		}
		fmt.Fprintf(&b, "  - *Overdue by:* %d day(s)\n", days)
		fmt.Fprintf(&b, "  - *URL:* %s\n", a.URL)
	}
	b.WriteString("\n")
	return b.String()
}

func dueTodaySection(dueToday []classify.ClassifiedAssignment) string {
	if len(dueToday) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Due today\n\n")
	for _, a := range dueToday {
		fmt.Fprintf(&b, "- **%s** in **%s**\n", a.Title, a.Course)
		fmt.Fprintf(&b, "  - *URL:* %s\n", a.URL)
	}
	b.WriteString("\n")
	return b.String()
}

func upcomingSection(upcoming []classify.ClassifiedAssignment) string {
	if len(upcoming) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Upcoming\n\n")
	for _, a := range upcoming {
		fmt.Fprintf(&b, "- **%s** in **%s**\n", a.Title, a.Course)
		days := 0
		if a.DaysUntilDue != nil {
			days = *a.DaysUntilDue
		}
		fmt.Fprintf(&b, "  - *Due in:* %d day(s)\n", days)
		fmt.Fprintf(&b, "  - *URL:* %s\n", a.URL)
	}
	b.WriteString("\n")
	return b.String()
}
