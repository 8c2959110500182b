// Package llm talks to a locally hosted language model (ollama) and
// exposes the three structured extractions the scraper relies on. The
// model is an optional capability: every caller checks Available first
// and treats malformed responses as empty results, never as failures.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"lms-scraper/lib/htmlutil"
	"lms-scraper/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lmscraper.lib.llm")

type Options struct {
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	TimeoutSecs int     `json:"timeout_secs"`
}

type Client struct {
	http        *resty.Client
	model       string
	temperature float64

	probed    bool
	reachable bool
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434"
	}
	if opts.Model == "" {
		opts.Model = "glm-4.7-flash:q4_K_M"
	}
	if opts.TimeoutSecs == 0 {
		opts.TimeoutSecs = 120
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(time.Duration(opts.TimeoutSecs) * time.Second)
	telemetry.InstrumentResty(client, "llm/http")

	return &Client{
		http:        client,
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

// Available probes the model server once and caches the answer for the
// rest of the run. A dead or missing server just means the
// model-assisted strategies are skipped.
func (c *Client) Available(ctx context.Context) bool {
	if c == nil {
		return false
	}
	if c.probed {
		return c.reachable
	}
	c.probed = true

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := c.http.R().SetContext(probeCtx).Get("/api/tags")
	c.reachable = err == nil && res.IsSuccess()
	if !c.reachable {
		slog.DebugContext(ctx, "local model server unreachable", "err", err)
	}
	return c.reachable
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:generate")
	defer span.End()

	var out generateResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(generateRequest{
			Model:   c.model,
			Prompt:  prompt,
			Stream:  false,
			Options: map[string]any{"temperature": c.temperature},
		}).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion request failed")
		return "", err
	}
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, "completion request rejected")
		return "", fmt.Errorf("model server returned %s", res.Status())
	}
	return strings.TrimSpace(out.Response), nil
}

var openFence = regexp.MustCompile("^```[a-zA-Z0-9]*\n?")
var closeFence = regexp.MustCompile("\n?```\\s*$")

// models keep wrapping JSON in markdown fences no matter what the
// prompt says
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = openFence.ReplaceAllString(s, "")
	s = closeFence.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

type CourseEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

const extractCoursesPrompt = `The following HTML is the course overview page of a learning platform.
Extract EVERY course listed. For each course return:
1) "name": the full course name as shown on screen.
2) "url": the link to the course page. Relative links are fine.

Answer ONLY with a valid JSON array of objects with exactly the keys "name" and "url".
Example: [{"name": "Linear Algebra - T01", "url": "/course/view.php?id=3418"}]
No explanations, no markdown. Only the JSON array.

HTML:
%s`

// ExtractCourses asks the model for the course list visible in a page
// snapshot. Returns nil on any transport, JSON, or shape problem.
func (c *Client) ExtractCourses(ctx context.Context, html string, maxChars int) []CourseEntry {
	ctx, span := tracer.Start(ctx, "client:ExtractCourses")
	defer span.End()

	out, err := c.generate(ctx, fmt.Sprintf(extractCoursesPrompt, htmlutil.Snippet(html, maxChars)))
	if err != nil || out == "" {
		return nil
	}

	var entries []CourseEntry
	if err := json.Unmarshal([]byte(stripFences(out)), &entries); err != nil {
		span.SetStatus(codes.Error, "model response is not a course array")
		slog.DebugContext(ctx, "discarding malformed course extraction", "err", err)
		return nil
	}
	return entries
}

type PageClass struct {
	IsCourse   bool   `json:"is_course"`
	CourseName string `json:"course_name"`
}

const classifyPagePrompt = `You are looking at the HTML of a page from a learning platform, fetched from %s.
Decide whether this page is the main page of a single course (with sections, activities or course materials), as opposed to a dashboard, profile, calendar or other portal page.

Answer ONLY with a valid JSON object with exactly these keys:
{"is_course": true or false, "course_name": "the course title, or empty string"}
No explanations, no markdown.

HTML:
%s`

// ClassifyCoursePage asks whether a visited page is a course page. The
// second return reports whether a usable answer came back at all.
func (c *Client) ClassifyCoursePage(ctx context.Context, html, pageURL string, maxChars int) (PageClass, bool) {
	ctx, span := tracer.Start(ctx, "client:ClassifyCoursePage")
	defer span.End()

	out, err := c.generate(ctx, fmt.Sprintf(classifyPagePrompt, pageURL, htmlutil.Snippet(html, maxChars)))
	if err != nil || out == "" {
		return PageClass{}, false
	}

	var class PageClass
	if err := json.Unmarshal([]byte(stripFences(out)), &class); err != nil {
		span.SetStatus(codes.Error, "model response is not a classification object")
		return PageClass{}, false
	}
	return class, true
}

type AssignmentEntry struct {
	Title   string `json:"title"`
	DueDate string `json:"due_date"`
	URL     string `json:"url"`
	Type    string `json:"type"`
}

const extractAssignmentsPrompt = `The following HTML is a course page of a learning platform.
Extract every graded activity a student has to hand in: assignments, quizzes, forums with deliverables, workshops.
For each one return:
1) "title": the activity title as shown.
2) "due_date": the due date text if visible near the activity, else empty string.
3) "url": the link to the activity. Relative links are fine.
4) "type": one of "assignment", "quiz", "forum", "workshop", "activity".

Answer ONLY with a valid JSON array of objects with exactly those four keys.
No explanations, no markdown. Only the JSON array.

HTML:
%s`

// ExtractAssignments asks the model for the activities on a course
// page. Returns nil on any transport, JSON, or shape problem.
func (c *Client) ExtractAssignments(ctx context.Context, html string, maxChars int) []AssignmentEntry {
	ctx, span := tracer.Start(ctx, "client:ExtractAssignments")
	defer span.End()

	out, err := c.generate(ctx, fmt.Sprintf(extractAssignmentsPrompt, htmlutil.Snippet(html, maxChars)))
	if err != nil || out == "" {
		return nil
	}

	var entries []AssignmentEntry
	if err := json.Unmarshal([]byte(stripFences(out)), &entries); err != nil {
		span.SetStatus(codes.Error, "model response is not an assignment array")
		slog.DebugContext(ctx, "discarding malformed assignment extraction", "err", err)
		return nil
	}
	return entries
}
