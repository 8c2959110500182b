// Package classify buckets assignments against a sliding date window
// around "today". Assignments whose due date cannot be normalized are
// left out of the windowed report entirely rather than guessed at.
package classify

import (
	"context"
	"log/slog"
	"math"
	"time"

	"lms-scraper/internal/scrape"
	"lms-scraper/lib/dateparse"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("lmscraper.internal.classify")

type Status string

const (
	StatusOverdue  Status = "OVERDUE"
	StatusDueToday Status = "DUE_TODAY"
	StatusUpcoming Status = "UPCOMING"
)

// recently-submitted cutoff in days
const recentSubmissionDays = 7

type ClassifiedAssignment struct {
	scrape.Assignment

	Status       Status
	DaysOverdue  *int
	DaysUntilDue *int
}

// Classify normalizes each assignment's raw due date and buckets the
// ones falling inside [today-daysBehind, today+daysAhead]. Exactly one
// status applies per assignment; a date equal to today is DUE_TODAY.
func Classify(ctx context.Context, assignments []scrape.Assignment, daysAhead, daysBehind int, today time.Time) []ClassifiedAssignment {
	ctx, span := tracer.Start(ctx, "classify:Classify")
	defer span.End()

	today = midnight(today)
	earliest := today.AddDate(0, 0, -daysBehind)
	latest := today.AddDate(0, 0, daysAhead)

	var out []ClassifiedAssignment
	for _, a := range assignments {
		due, ok := dateparse.Normalize(a.RawDueDate)
		if !ok {
			slog.DebugContext(ctx, "due date did not normalize, excluding from window",
				"title", a.Title, "raw", a.RawDueDate)
			continue
		}
		// re-anchor into today's zone so date equality is calendar equality
		due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, today.Location())
		a.NormalizedDueDate = &due
		if due.Before(earliest) || due.After(latest) {
			continue
		}

		classified := ClassifiedAssignment{Assignment: a}
		switch {
		case due.Before(today):
			classified.Status = StatusOverdue
			days := daysBetween(due, today)
			classified.DaysOverdue = &days
		case due.Equal(today):
			classified.Status = StatusDueToday
		default:
			classified.Status = StatusUpcoming
			days := daysBetween(today, due)
			classified.DaysUntilDue = &days
		}
		out = append(out, classified)
	}
	span.SetAttributes(attribute.Int("classified", len(out)))
	return out
}

// RecentlySubmitted selects assignments handed in within the last week.
// Runs over the unfiltered set: a submission is worth reporting even
// when its due date fell outside the window or never normalized. An
// unknown submission age is treated as stale.
func RecentlySubmitted(assignments []scrape.Assignment) []scrape.Assignment {
	var out []scrape.Assignment
	for _, a := range assignments {
		if !a.Submission.Submitted {
			continue
		}
		if a.Submission.DaysAgo == nil || *a.Submission.DaysAgo > recentSubmissionDays {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ByStatus splits a classified set into its three buckets, preserving
// order within each.
func ByStatus(classified []ClassifiedAssignment) (overdue, dueToday, upcoming []ClassifiedAssignment) {
	for _, c := range classified {
		switch c.Status {
		case StatusOverdue:
			overdue = append(overdue, c)
		case StatusDueToday:
			dueToday = append(dueToday, c)
		case StatusUpcoming:
			upcoming = append(upcoming, c)
		}
	}
	return overdue, dueToday, upcoming
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days between two midnights. A day
// shortened or stretched by a DST transition still counts as one day,
// so the raw duration is rounded, never truncated.
func daysBetween(from, to time.Time) int {
	return int(math.Round(to.Sub(from).Hours() / 24))
}
