package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lms-scraper/internal/classify"
	"lms-scraper/internal/scrape"

	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2026, time.March, 1, 8, 30, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func sampleData() Data {
	return Data{
		Title:       "Assignment report - Example Campus",
		GeneratedAt: generatedAt,
		DaysAhead:   30,
		DaysBehind:  7,
		Classified: []classify.ClassifiedAssignment{
			{
				Assignment: scrape.Assignment{Title: "Essay 1", Course: "Databases",
					URL: "https://campus.example.edu/mod/assign/view.php?id=1"},
				Status: classify.StatusUpcoming, DaysUntilDue: intp(14),
			},
			{
				Assignment: scrape.Assignment{Title: "Late lab", Course: "Networks",
					URL: "https://campus.example.edu/mod/assign/view.php?id=2"},
				Status: classify.StatusOverdue, DaysOverdue: intp(4),
			},
			{
				Assignment: scrape.Assignment{Title: "Quiz 3", Course: "Networks",
					URL: "https://campus.example.edu/mod/quiz/view.php?id=3"},
				Status: classify.StatusDueToday,
			},
		},
		RecentlySubmitted: []scrape.Assignment{
			{Title: "Lab Report", Course: "Databases",
				URL:        "https://campus.example.edu/mod/assign/view.php?id=4",
				Submission: scrape.SubmissionStatus{Submitted: true, StatusText: "Submitted 2 day(s) ago", DaysAgo: intp(2)}},
		},
		Courses: []scrape.Course{
			{Name: "Databases", URL: "https://campus.example.edu/course/view.php?id=1"},
			{Name: "Networks", URL: "https://campus.example.edu/course/view.php?id=2"},
		},
	}
}

func TestRenderFullReport(t *testing.T) {
	out := Render(context.Background(), sampleData())

	require.Contains(t, out, "# Assignment report - Example Campus")
	require.Contains(t, out, "**Generated:** 01/03/2026 08:30:00")
	require.Contains(t, out, "**Window:** last 7 days and next 30 days")
	// 3 windowed + 1 recently submitted
	require.Contains(t, out, "**Tasks in period:** 4")
	require.Contains(t, out, "**Courses found:** 2")

	require.Contains(t, out, "## Courses explored")
	require.Contains(t, out, "- Databases")
	require.Contains(t, out, "## Recently submitted (last 7 days)")
	require.Contains(t, out, "## Overdue")
	require.Contains(t, out, "*Overdue by:* 4 day(s)")
	require.Contains(t, out, "## Due today")
	require.Contains(t, out, "## Upcoming")
	require.Contains(t, out, "*Due in:* 14 day(s)")
	require.NotContains(t, out, "No pending items")
	require.NotContains(t, out, "{", "all placeholders must be substituted")

	// fixed section order
	require.Less(t, strings.Index(out, "## Courses explored"), strings.Index(out, "## Recently submitted"))
	require.Less(t, strings.Index(out, "## Recently submitted"), strings.Index(out, "## Overdue"))
	require.Less(t, strings.Index(out, "## Overdue"), strings.Index(out, "## Due today"))
	require.Less(t, strings.Index(out, "## Due today"), strings.Index(out, "## Upcoming"))
}

func TestRenderEmptyReport(t *testing.T) {
	data := Data{
		Title:       "Assignment report",
		GeneratedAt: generatedAt,
		DaysAhead:   30,
		DaysBehind:  7,
	}
	out := Render(context.Background(), data)

	require.Contains(t, out, "## No pending items in the requested period.")
	require.Contains(t, out, "No courses were explored.")
	require.NotContains(t, out, "## Overdue")
	require.NotContains(t, out, "## Due today")
	require.NotContains(t, out, "## Upcoming")
	require.NotContains(t, out, "## Recently submitted")
	require.Contains(t, out, "**Tasks in period:** 0")
}

func TestRenderOmitsEmptySections(t *testing.T) {
	data := sampleData()
	data.RecentlySubmitted = nil
	out := Render(context.Background(), data)

	require.NotContains(t, out, "## Recently submitted")
	require.Contains(t, out, "**Tasks in period:** 3")
}

func TestRenderIdempotent(t *testing.T) {
	first := Render(context.Background(), sampleData())
	second := Render(context.Background(), sampleData())
	require.Equal(t, first, second)
}

func TestTitle(t *testing.T) {
	require.Equal(t, "Tasks for Example Campus",
		Title("Tasks for {portal_name}", "Example Campus"))
	require.Equal(t, "Assignment report - Example Campus",
		Title("", "Example Campus"))
}

func TestSinkSave(t *testing.T) {
	dir := t.TempDir()
	sink := NewSink(dir)
	sink.now = func() time.Time { return generatedAt }

	path, err := sink.Save(context.Background(), "# Report\n")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "assignments_report_20260301_083000.md"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "# Report\n", string(content))
}
