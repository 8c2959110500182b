package extraction

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"lms-scraper/internal/profile"
	"lms-scraper/internal/scrape"

	"github.com/stretchr/testify/require"
)

const baseURL = "https://campus.example.edu"

var fixedToday = time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)

func testProfile() profile.Profile {
	p := profile.Profile{}
	p.Assignments.Types = []profile.ActivityType{
		{Name: "assignment", Selectors: []string{"a[href*='mod/assign']"}},
		{Name: "quiz", Selectors: []string{"a[href*='mod/quiz']"}},
	}
	p.Dates.Patterns = []string{`(\d{1,2}/\d{1,2}/\d{4})`}
	return p
}

func testInput(t *testing.T, html string, p profile.Profile) Input {
	t.Helper()
	base, err := url.Parse(baseURL)
	require.NoError(t, err)
	return Input{
		BaseURL:    base,
		CourseHTML: html,
		Course:     scrape.Course{URL: baseURL + "/course/view.php?id=1", Name: "Databases"},
		Profile:    p,
		Today:      fixedToday,
	}
}

func TestSelectorExtract(t *testing.T) {
	html := `<html><body><ul>
		<li><a href="/mod/assign/view.php?id=101">Essay 1</a> <span>Due 15/03/2026</span></li>
		<li><a href="/mod/quiz/view.php?id=102">Quiz 1</a></li>
		<li><a href="/mod/assign/view.php?id=103">x</a></li>
	</ul></body></html>`

	assignments := NewSelector().Extract(context.Background(), testInput(t, html, testProfile()))
	require.Len(t, assignments, 2, "short titles are dropped")

	essay := assignments[0]
	require.Equal(t, "Essay 1", essay.Title)
	require.Equal(t, baseURL+"/mod/assign/view.php?id=101", essay.URL)
	require.Equal(t, "15/03/2026", essay.RawDueDate)
	require.Equal(t, scrape.TypeAssignment, essay.Type)
	require.Equal(t, "Databases", essay.Course)
	require.Equal(t, "Main", essay.Section)
	require.False(t, essay.Submission.Submitted)

	quiz := assignments[1]
	require.Equal(t, scrape.TypeQuiz, quiz.Type)
	require.Empty(t, quiz.RawDueDate)
}

func TestSelectorDateFromDateSelector(t *testing.T) {
	html := `<html><body>
		<div><a href="/mod/assign/view.php?id=5">Project</a><span class="duedate">1 de marzo de 2026</span></div>
	</body></html>`

	p := testProfile()
	p.Dates.Selectors = []string{".duedate"}

	assignments := NewSelector().Extract(context.Background(), testInput(t, html, p))
	require.Len(t, assignments, 1)
	require.Equal(t, "1 de marzo de 2026", assignments[0].RawDueDate)
}

func TestSelectorSubmissionFromSurroundingText(t *testing.T) {
	html := `<html><body>
		<li><a href="/mod/assign/view.php?id=7">Lab Report</a> Entregado: 22/08/2026</li>
	</body></html>`

	assignments := NewSelector().Extract(context.Background(), testInput(t, html, testProfile()))
	require.Len(t, assignments, 1)

	status := assignments[0].Submission
	require.True(t, status.Submitted)
	require.NotNil(t, status.DaysAgo)
	require.Equal(t, 7, *status.DaysAgo)
}

// New York springs forward on 2026-03-08; a submission 14 calendar
// days back is 335 hours, which must not round down to 13
func TestSubmissionDaysAgoAcrossDSTTransition(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	today := time.Date(2026, time.March, 15, 0, 0, 0, 0, newYork)

	status := submissionFromText("Entregado: 01/03/2026", testProfile(), today)
	require.True(t, status.Submitted)
	require.NotNil(t, status.DaysAgo)
	require.Equal(t, 14, *status.DaysAgo)
}

func TestSelectorMalformedHTML(t *testing.T) {
	assignments := NewSelector().Extract(context.Background(),
		testInput(t, "<<<not html", testProfile()))
	require.Empty(t, assignments)
}

type fakeAssignmentStrategy struct {
	name   string
	result []scrape.Assignment
	calls  int
}

func (f *fakeAssignmentStrategy) Name() string { return f.name }

func (f *fakeAssignmentStrategy) Extract(ctx context.Context, in Input) []scrape.Assignment {
	f.calls++
	return f.result
}

func TestCascadeFirstNonEmptyWins(t *testing.T) {
	selector := &fakeAssignmentStrategy{name: "selector", result: []scrape.Assignment{
		{Title: "Essay 1", URL: baseURL + "/mod/assign/view.php?id=1"},
	}}
	model := &fakeAssignmentStrategy{name: "model", result: []scrape.Assignment{
		{Title: "Hallucinated", URL: baseURL + "/mod/assign/view.php?id=99"},
	}}

	cascade := NewCascade(selector, model)
	assignments := cascade.Extract(context.Background(), testInput(t, "", testProfile()))

	require.Len(t, assignments, 1)
	require.Equal(t, "Essay 1", assignments[0].Title)
	require.Zero(t, model.calls, "model strategy must not run after a non-empty selector result")
}

func TestCascadeDeduplicatesFirstWins(t *testing.T) {
	dup := &fakeAssignmentStrategy{name: "dup", result: []scrape.Assignment{
		{Title: "First", URL: baseURL + "/mod/assign/view.php?id=1"},
		{Title: "Second", URL: baseURL + "/mod/assign/view.php?id=1"},
	}}

	cascade := NewCascade(dup)
	assignments := cascade.Extract(context.Background(), testInput(t, "", testProfile()))

	require.Len(t, assignments, 1)
	require.Equal(t, "First", assignments[0].Title)
}

type fakeFetcher struct {
	pages  map[string]string
	errors map[string]error
	calls  []string
}

func (f *fakeFetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	f.calls = append(f.calls, pageURL)
	if err, ok := f.errors[pageURL]; ok {
		return "", err
	}
	return f.pages[pageURL], nil
}

func TestExtractAll(t *testing.T) {
	coursePage := `<html><body>
		<li><a href="/mod/assign/view.php?id=1">Essay 1</a></li>
	</body></html>`
	fetcher := &fakeFetcher{
		pages: map[string]string{
			baseURL + "/course/view.php?id=1": coursePage,
		},
		errors: map[string]error{
			baseURL + "/course/view.php?id=2": errors.New("connection reset"),
		},
	}

	base, err := url.Parse(baseURL)
	require.NoError(t, err)

	ex := NewExtractor(fetcher, NewCascade(NewSelector()), ExtractorOptions{})
	ex.today = func() time.Time { return fixedToday }

	courses := []scrape.Course{
		{URL: baseURL + "/course/view.php?id=1", Name: "Databases"},
		{URL: baseURL + "/course/view.php?id=2", Name: "Networks"},
	}
	assignments, diagnostics := ex.ExtractAll(context.Background(), base, courses, testProfile())

	require.Len(t, assignments, 1)
	require.Equal(t, "Essay 1", assignments[0].Title)
	require.Len(t, diagnostics, 1)
	require.Contains(t, diagnostics[0], "connection reset")
}

func TestExtractAllMaxCourses(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{}}
	base, err := url.Parse(baseURL)
	require.NoError(t, err)

	ex := NewExtractor(fetcher, NewCascade(NewSelector()), ExtractorOptions{MaxCourses: 1})
	courses := []scrape.Course{
		{URL: baseURL + "/course/view.php?id=1", Name: "A"},
		{URL: baseURL + "/course/view.php?id=2", Name: "B"},
	}
	ex.ExtractAll(context.Background(), base, courses, testProfile())

	require.Equal(t, []string{baseURL + "/course/view.php?id=1"}, fetcher.calls)
}

func TestStatusFromDetailPage(t *testing.T) {
	html := `<html><body><table class="generaltable">
		<tr><th>Estado de la entrega</th><td>Enviado para calificar</td></tr>
		<tr><th>Última modificación</th><td>22/08/2026</td></tr>
	</table></body></html>`

	status, ok := StatusFromDetailPage(html, profile.Profile{}, fixedToday)
	require.True(t, ok)
	require.True(t, status.Submitted)
	require.NotNil(t, status.DaysAgo)
	require.Equal(t, 7, *status.DaysAgo)
	require.Equal(t, "Submitted 7 day(s) ago", status.StatusText)
}

func TestStatusFromDetailPageNotSubmitted(t *testing.T) {
	html := `<html><body><table class="generaltable">
		<tr><th>Estado de la entrega</th><td>No entregado</td></tr>
	</table></body></html>`

	status, ok := StatusFromDetailPage(html, profile.Profile{}, fixedToday)
	require.True(t, ok)
	require.False(t, status.Submitted)
}

func TestStatusFromDetailPageNoTable(t *testing.T) {
	_, ok := StatusFromDetailPage("<html><body><p>Nothing here</p></body></html>",
		profile.Profile{}, fixedToday)
	require.False(t, ok)
}

func TestModelType(t *testing.T) {
	require.Equal(t, scrape.TypeQuiz, modelType("quiz", baseURL+"/mod/assign/view.php"))
	require.Equal(t, scrape.TypeForum, modelType("forum", ""))
	require.Equal(t, scrape.TypeQuiz, modelType("homework", baseURL+"/mod/quiz/view.php?id=1"))
	require.Equal(t, scrape.TypeAssignment, modelType("", baseURL+"/page"))
}
