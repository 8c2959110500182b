// Package browser wraps headless-browser automation behind a small
// interface: log in through a portal's login form and fetch fully
// rendered page snapshots with an authenticated session. Course lists
// on modern LMS dashboards are built by javascript, so a plain HTTP GET
// often returns an empty shell.
package browser

import (
	"context"
	"time"
)

type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Session is the cookie set captured once at login and passed by value
// into every later network-consuming stage.
type Session struct {
	Cookies []Cookie
}

// Indicator describes one way to tell whether a login landed on the
// right page. Values come from the portal profile.
type Indicator struct {
	URLContains    string `yaml:"url_contains"`
	ElementPresent string `yaml:"element_present"`
	TextContains   string `yaml:"text_contains"`
}

type LoginOptions struct {
	URL              string
	Username         string
	Password         string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	Success          []Indicator
	Errors           []Indicator
	Timeout          time.Duration
}

type LoginResult struct {
	Success bool
	Session Session
	// human readable reason when Success is false
	Failure string
}

// Navigator is the browser-automation capability. Implementations must
// treat their backing browser as possibly unavailable: Available is
// checked before every use and an unavailable navigator is skipped, not
// waited for.
type Navigator interface {
	Available() bool
	Login(ctx context.Context, opts LoginOptions) (LoginResult, error)
	FetchPage(ctx context.Context, pageURL string, session Session) (string, error)
}
