// Package pipeline runs the five-stage scrape: authenticate, discover
// courses, extract assignments, classify, generate the report. Stages
// run in a fixed linear order; a stage whose precondition failed
// produces an empty result and the machine keeps going, so a run
// always terminates with a uniformly shaped state plus a diagnostics
// list.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"lms-scraper/internal/classify"
	"lms-scraper/internal/scrape"
	"lms-scraper/lib/browser"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("lmscraper.internal.pipeline")

// State is the record threaded through the stages. Created fresh per
// run, mutated only by the runner between stages, discarded after the
// run.
type State struct {
	Authenticated bool
	Session       browser.Session
	Courses       []scrape.Course
	Assignments   []scrape.Assignment
	Classified    []classify.ClassifiedAssignment
	Recent        []scrape.Assignment
	Errors        []string
	ReportPath    string
}

// Update is a stage's partial result. Nil fields leave the state
// untouched; Errors are appended, never replaced.
type Update struct {
	Authenticated *bool
	Session       *browser.Session
	Courses       *[]scrape.Course
	Assignments   *[]scrape.Assignment
	Classified    *[]classify.ClassifiedAssignment
	Recent        *[]scrape.Assignment
	ReportPath    *string
	Errors        []string
}

func (s State) apply(u Update) State {
	if u.Authenticated != nil {
		s.Authenticated = *u.Authenticated
	}
	if u.Session != nil {
		s.Session = *u.Session
	}
	if u.Courses != nil {
		s.Courses = *u.Courses
	}
	if u.Assignments != nil {
		s.Assignments = *u.Assignments
	}
	if u.Classified != nil {
		s.Classified = *u.Classified
	}
	if u.Recent != nil {
		s.Recent = *u.Recent
	}
	if u.ReportPath != nil {
		s.ReportPath = *u.ReportPath
	}
	s.Errors = append(s.Errors, u.Errors...)
	return s
}

// Stage reads the fields of the state it needs and returns a partial
// update. Stages never mutate the state in place and never panic
// across the boundary on purpose; a stray panic becomes a diagnostic.
type Stage struct {
	Name string
	Run  func(ctx context.Context, s State) Update
}

type Runner struct {
	stages []Stage
}

func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

func (r *Runner) Run(ctx context.Context) State {
	ctx, span := tracer.Start(ctx, "pipeline:Run")
	defer span.End()

	var state State
	for i, stage := range r.stages {
		slog.InfoContext(ctx, "pipeline stage starting",
			"stage", stage.Name, "index", i+1, "total", len(r.stages))
		state = state.apply(r.runStage(ctx, stage, state))
	}
	span.SetAttributes(
		attribute.Bool("authenticated", state.Authenticated),
		attribute.Int("courses", len(state.Courses)),
		attribute.Int("assignments", len(state.Assignments)),
		attribute.Int("errors", len(state.Errors)),
	)
	return state
}

func (r *Runner) runStage(ctx context.Context, stage Stage, state State) (update Update) {
	ctx, span := tracer.Start(ctx, "stage:"+stage.Name)
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "pipeline stage panicked",
				"stage", stage.Name, "panic", rec)
			update = Update{Errors: []string{
				fmt.Sprintf("%s: internal error: %v", stage.Name, rec),
			}}
		}
	}()
	return stage.Run(ctx, state)
}
