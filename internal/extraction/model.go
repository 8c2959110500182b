package extraction

import (
	"context"
	"log/slog"

	"lms-scraper/internal/scrape"
	"lms-scraper/lib/htmlutil"
	"lms-scraper/lib/llm"
)

const modelSnapshotChars = 18000

// Model hands the course page to the local language model when the
// profile's selectors match nothing.
type Model struct {
	client *llm.Client
}

func NewModel(client *llm.Client) Model { return Model{client: client} }

func (Model) Name() string { return "model" }

func (m Model) Extract(ctx context.Context, in Input) []scrape.Assignment {
	ctx, span := tracer.Start(ctx, "model:Extract")
	defer span.End()

	if m.client == nil || !m.client.Available(ctx) {
		slog.DebugContext(ctx, "language model unavailable, skipping model extraction")
		return nil
	}

	entries := m.client.ExtractAssignments(ctx, in.CourseHTML, modelSnapshotChars)

	var assignments []scrape.Assignment
	for _, entry := range entries {
		title := htmlutil.CleanText(entry.Title)
		if len(title) < 3 {
			continue
		}
		resolved := htmlutil.ResolveURL(in.BaseURL, entry.URL)
		if resolved == "" {
			continue
		}
		assignments = append(assignments, scrape.Assignment{
			Title:      title,
			RawDueDate: htmlutil.CleanText(entry.DueDate),
			Course:     in.Course.Name,
			Type:       modelType(entry.Type, resolved),
			URL:        resolved,
			Section:    "Main",
			Submission: scrape.SubmissionStatus{StatusText: notSubmittedText},
		})
	}
	return assignments
}

// modelType trusts the model's type label when it is one we know,
// otherwise falls back to URL inference with assignment as the default.
func modelType(label, resolved string) scrape.ActivityType {
	switch scrape.ActivityType(label) {
	case scrape.TypeAssignment, scrape.TypeQuiz, scrape.TypeForum, scrape.TypeWorkshop, scrape.TypeActivity:
		return scrape.ActivityType(label)
	}
	return scrape.TypeFromURL(resolved, scrape.TypeAssignment)
}
