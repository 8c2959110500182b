package discovery

import (
	"context"
	"net/url"
	"testing"

	"lms-scraper/internal/profile"
	"lms-scraper/internal/scrape"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://campus.example.edu"

func testInput(t *testing.T, html string, p profile.Profile) Input {
	t.Helper()
	base, err := url.Parse(baseURL)
	require.NoError(t, err)
	return Input{BaseURL: base, PageHTML: html, Profile: p}
}

func TestIsCourseURL(t *testing.T) {
	base, err := url.Parse(baseURL)
	require.NoError(t, err)
	keywords := []string{"course", "courses", "cursos"}

	cases := []struct {
		url  string
		want bool
	}{
		{url: baseURL + "/course/view.php?id=3417", want: true},
		{url: "/course/view.php?id=3418", want: true},
		{url: baseURL + "/courses/123", want: true},
		{url: "/cursos/ver?id=1", want: true},
		{url: baseURL + "/Cursos/view", want: true},
		{url: baseURL + "/COURSE/1", want: true},
		{url: baseURL + "/mod/assign/view.php?id=1", want: false},
		// keyword only in the query string does not count
		{url: baseURL + "/view.php?course=1", want: false},
		{url: "https://elsewhere.example.com/course/view.php?id=1", want: false},
	}
	for _, c := range cases {
		require.Equal(t, c.want, isCourseURL(c.url, base, keywords), c.url)
	}

	require.False(t, isCourseURL("/course/view.php", base, nil))
}

func TestLinkSegmentExtract(t *testing.T) {
	html := `<html><body>
		<a href="https://campus.example.edu/course/view.php?id=3417">Linear Algebra</a>
		<a href="/course/view.php?id=3418">Physics I</a>
		<a href="#">No course</a>
		<a href="/mod/assign/view.php?id=9">Homework 1</a>
	</body></html>`

	courses := NewLinkSegment().Extract(context.Background(), testInput(t, html, profile.Profile{}))
	require.Len(t, courses, 2)
	require.Equal(t, "Linear Algebra", courses[0].Name)
	require.Equal(t, baseURL+"/course/view.php?id=3417", courses[0].URL)
	require.Equal(t, "Physics I", courses[1].Name)
}

func TestLinkSegmentProfileKeywords(t *testing.T) {
	html := `<html><body><a href="/materias/1">Mathematics</a></body></html>`
	p := profile.Profile{}
	p.Courses.LinkKeywords = []string{"materias"}

	courses := NewLinkSegment().Extract(context.Background(), testInput(t, html, p))
	require.Len(t, courses, 1)
	require.Equal(t, baseURL+"/materias/1", courses[0].URL)
	require.Equal(t, "Mathematics", courses[0].Name)
}

func TestLinkSegmentNearbySpanName(t *testing.T) {
	html := `<html><body><div>
		<a href="/course/view.php?id=2"><img src="icon.png"></a>
		<span>Chemistry II</span>
	</div></body></html>`

	courses := NewLinkSegment().Extract(context.Background(), testInput(t, html, profile.Profile{}))
	require.Len(t, courses, 1)
	require.Equal(t, "Chemistry II", courses[0].Name)
}

func TestStructuralCards(t *testing.T) {
	html := `<html><body>
		<div data-region="course-content">
			<a href="/course/view.php?id=10">ignored link text</a>
			<span class="coursename">Databases</span>
		</div>
		<div data-region="course-content">
			<a href="/course/view.php?id=11">Operating Systems</a>
		</div>
	</body></html>`

	p := profile.Profile{}
	p.Courses.Selectors = []string{"[data-region='course-content']", ".course-card"}
	p.Courses.NameSelectors = []string{".coursename", "span.multiline"}

	courses := NewStructural().Extract(context.Background(), testInput(t, html, p))
	require.Len(t, courses, 2)
	require.Equal(t, "Databases", courses[0].Name)
	require.Equal(t, baseURL+"/course/view.php?id=10", courses[0].URL)
	require.Equal(t, "Operating Systems", courses[1].Name)
}

func TestStructuralContainerFallback(t *testing.T) {
	html := `<html><body>
		<div data-region="courses-view">
			<a href="/course/view.php?id=20">Calculus</a>
			<a href="/help">Help</a>
		</div>
	</body></html>`

	p := profile.Profile{}
	p.Courses.Selectors = []string{".course-card"}
	p.Courses.Container = "[data-region='courses-view']"

	courses := NewStructural().Extract(context.Background(), testInput(t, html, p))
	require.Len(t, courses, 1)
	require.Equal(t, "Calculus", courses[0].Name)
}

type fakeStrategy struct {
	name    string
	result  []scrape.Course
	calls   int
	lastRun *string
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Extract(ctx context.Context, in Input) []scrape.Course {
	f.calls++
	if f.lastRun != nil {
		*f.lastRun = f.name
	}
	return f.result
}

func TestCascadeStopsAtFirstNonEmpty(t *testing.T) {
	first := &fakeStrategy{name: "first", result: []scrape.Course{
		{URL: baseURL + "/course/view.php?id=1", Name: "A"},
	}}
	second := &fakeStrategy{name: "second", result: []scrape.Course{
		{URL: baseURL + "/course/view.php?id=2", Name: "B"},
	}}

	cascade := NewCascade([]string{"first", "second"}, first, second)
	courses := cascade.Discover(context.Background(), testInput(t, "", profile.Profile{}))

	require.Len(t, courses, 1)
	require.Equal(t, "A", courses[0].Name)
	require.Equal(t, 1, first.calls)
	require.Zero(t, second.calls, "lower-priority strategy must not run after a non-empty result")
}

func TestCascadeFallsThroughEmpty(t *testing.T) {
	first := &fakeStrategy{name: "first"}
	second := &fakeStrategy{name: "second", result: []scrape.Course{
		{URL: baseURL + "/course/view.php?id=2", Name: "B"},
	}}

	cascade := NewCascade([]string{"first", "second"}, first, second)
	courses := cascade.Discover(context.Background(), testInput(t, "", profile.Profile{}))

	require.Len(t, courses, 1)
	require.Equal(t, "B", courses[0].Name)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
}

func TestCascadeProfileOrder(t *testing.T) {
	var last string
	a := &fakeStrategy{name: "a", lastRun: &last, result: []scrape.Course{{URL: "u1", Name: "A"}}}
	b := &fakeStrategy{name: "b", lastRun: &last, result: []scrape.Course{{URL: "u2", Name: "B"}}}

	cascade := NewCascade([]string{"b", "a"}, a, b)
	courses := cascade.Discover(context.Background(), testInput(t, "", profile.Profile{}))

	require.Equal(t, "B", courses[0].Name)
	require.Equal(t, "b", last)
	require.Zero(t, a.calls)
}

func TestCascadeDeduplicatesByURL(t *testing.T) {
	dup := &fakeStrategy{name: "dup", result: []scrape.Course{
		{URL: baseURL + "/course/view.php?id=1", Name: "A"},
		{URL: baseURL + "/course/view.php?id=1", Name: "A again"},
		{URL: baseURL + "/course/view.php?id=2", Name: "B"},
	}}

	cascade := NewCascade([]string{"dup"}, dup)
	courses := cascade.Discover(context.Background(), testInput(t, "", profile.Profile{}))

	diff := cmp.Diff(
		[]scrape.Course{
			{URL: baseURL + "/course/view.php?id=1", Name: "A"},
			{URL: baseURL + "/course/view.php?id=2", Name: "B"},
		},
		courses,
	)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestCascadeAllEmpty(t *testing.T) {
	cascade := NewCascade(nil, &fakeStrategy{name: StrategyLinkSegment})
	courses := cascade.Discover(context.Background(), testInput(t, "", profile.Profile{}))
	require.Empty(t, courses)
}

func TestCandidateURLs(t *testing.T) {
	html := `<html><body>
		<a href="/course/view.php?id=1">One</a>
		<a href="/course/view.php?id=1">One again</a>
		<a href="/course/view.php?id=2">Two</a>
		<a href="/login/index.php">Log in</a>
		<a href="/admin/course/view.php?id=3">Admin</a>
		<a href="https://elsewhere.example.com/course/view.php?id=4">Other site</a>
		<a href="/calendar/view.php">Calendar</a>
	</body></html>`

	in := testInput(t, html, profile.Profile{})
	urls := candidateURLs(context.Background(), in)
	require.Equal(t, []string{
		baseURL + "/course/view.php?id=1",
		baseURL + "/course/view.php?id=2",
	}, urls)
}

func TestCandidateURLsBounded(t *testing.T) {
	html := `<html><body>
		<a href="/course/view.php?id=1">1</a>
		<a href="/course/view.php?id=2">2</a>
		<a href="/course/view.php?id=3">3</a>
	</body></html>`

	p := profile.Profile{}
	p.Discovery.MaxCandidates = 2
	urls := candidateURLs(context.Background(), testInput(t, html, p))
	require.Len(t, urls, 2)
}

func TestGuardCourseName(t *testing.T) {
	pageHTML := `<html><head><title>Campus</title></head><body><h1>Linear Algebra</h1></body></html>`

	// model name close to the page heading sticks
	require.Equal(t, "Linear algebra", guardCourseName("Linear algebra", pageHTML))
	// wildly different model name falls back to the heading
	require.Equal(t, "Linear Algebra", guardCourseName("Buy cheap widgets", pageHTML))
	// no model name at all falls back to the heading
	require.Equal(t, "Linear Algebra", guardCourseName("", pageHTML))
	// nothing to cross-check against
	require.Equal(t, "Untitled course", guardCourseName("", "<html></html>"))
}
