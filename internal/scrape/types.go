// Package scrape holds the record types produced by the extraction
// stages and shared across the pipeline.
package scrape

import (
	"strings"
	"time"
)

// Course is discovered once per run and immutable afterwards. URL is
// the dedup key and is always normalized to absolute form before use.
type Course struct {
	URL  string
	Name string
}

type ActivityType string

const (
	TypeAssignment ActivityType = "assignment"
	TypeQuiz       ActivityType = "quiz"
	TypeForum      ActivityType = "forum"
	TypeWorkshop   ActivityType = "workshop"
	TypeActivity   ActivityType = "activity"
)

// TypeFromURL infers the activity type from keyword presence in its
// url. Unmatched urls fall back to the given default: the selector path
// hands in TypeActivity, the model-assisted path TypeAssignment.
func TypeFromURL(rawURL string, fallback ActivityType) ActivityType {
	s := strings.ToLower(rawURL)
	switch {
	case strings.Contains(s, "assign"):
		return TypeAssignment
	case strings.Contains(s, "quiz"):
		return TypeQuiz
	case strings.Contains(s, "forum"):
		return TypeForum
	case strings.Contains(s, "workshop"):
		return TypeWorkshop
	}
	return fallback
}

// SubmissionStatus captures whether (and when) the student already
// handed the activity in. DaysAgo is nil when the submission date is
// unknown.
type SubmissionStatus struct {
	Submitted  bool
	StatusText string
	DaysAgo    *int
}

// Assignment is created during extraction. NormalizedDueDate is set by
// a later stage, never by extraction itself. Two assignments with the
// same URL within the same course are the same entity; the first
// strategy to produce a URL wins.
type Assignment struct {
	Title             string
	RawDueDate        string
	NormalizedDueDate *time.Time
	Course            string
	Type              ActivityType
	URL               string
	Section           string
	Submission        SubmissionStatus
}
