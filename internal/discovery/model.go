package discovery

import (
	"context"
	"log/slog"

	"lms-scraper/internal/scrape"
	"lms-scraper/lib/htmlutil"
	"lms-scraper/lib/llm"
)

const modelSnapshotChars = 18000

// Model asks the local language model to read the listing page and
// emit the course list as JSON. Runs after the structural strategies
// since the model can hallucinate entries; everything it returns is
// checked against the portal origin before being accepted.
type Model struct {
	client *llm.Client
}

func NewModel(client *llm.Client) Model { return Model{client: client} }

func (Model) Name() string { return StrategyModel }

func (m Model) Extract(ctx context.Context, in Input) []scrape.Course {
	ctx, span := tracer.Start(ctx, "model:Extract")
	defer span.End()

	if m.client == nil || !m.client.Available(ctx) {
		slog.DebugContext(ctx, "language model unavailable, skipping model discovery")
		return nil
	}

	entries := m.client.ExtractCourses(ctx, in.PageHTML, modelSnapshotChars)
	keywords := courseKeywords(in.Profile)

	var courses []scrape.Course
	for _, entry := range entries {
		resolved := htmlutil.ResolveURL(in.BaseURL, entry.URL)
		if resolved == "" || !isCourseURL(resolved, in.BaseURL, keywords) {
			slog.DebugContext(ctx, "model returned implausible course url", "url", entry.URL)
			continue
		}
		name := htmlutil.CleanText(entry.Name)
		if name == "" {
			name = "Untitled course"
		}
		courses = append(courses, scrape.Course{URL: resolved, Name: name})
	}
	return courses
}
