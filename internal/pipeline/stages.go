package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"lms-scraper/internal/classify"
	"lms-scraper/internal/discovery"
	"lms-scraper/internal/extraction"
	"lms-scraper/internal/portal"
	"lms-scraper/internal/profile"
	"lms-scraper/internal/report"
	"lms-scraper/internal/scrape"
	"lms-scraper/lib/browser"
	"lms-scraper/lib/llm"
	"lms-scraper/lib/timezone"
)

type MailOptions struct {
	Smtp report.SmtpOptions
	To   []string
}

type Options struct {
	// portal origin, already normalized
	BaseURL  string
	Username string
	Password string

	Profile profile.Profile

	DaysAhead  int
	DaysBehind int

	MaxCourses       int
	CheckSubmissions bool

	OutputDir  string
	FetchDelay time.Duration
	// when set, fetched pages are dumped here for selector debugging
	DebugDir string

	LoginTimeout time.Duration

	Mail *MailOptions
}

// Pipeline wires the concrete stages together. The function hooks
// exist so stages can be exercised without a browser, a portal or a
// model behind them.
type Pipeline struct {
	opts Options
	nav  browser.Navigator
	base *url.URL

	fetchPage  func(ctx context.Context, pageURL string, session browser.Session) (string, error)
	discover   func(ctx context.Context, in discovery.Input) []scrape.Course
	extract    func(ctx context.Context, session browser.Session, courses []scrape.Course) ([]scrape.Assignment, []string)
	saveReport func(ctx context.Context, content string) (string, error)
	today      func() time.Time
}

func New(opts Options, nav browser.Navigator, model *llm.Client) (*Pipeline, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", opts.BaseURL)
	}

	cascade := discovery.NewCascade(opts.Profile.Discovery.Order,
		discovery.NewLinkSegment(),
		discovery.NewStructural(),
		discovery.NewModel(model),
		discovery.NewExploratory(nav, model),
	)
	sink := report.NewSink(opts.OutputDir)

	p := &Pipeline{
		opts:       opts,
		nav:        nav,
		base:       base,
		discover:   cascade.Discover,
		saveReport: sink.Save,
		today:      timezone.Today,
	}
	if nav != nil {
		p.fetchPage = nav.FetchPage
	}
	p.extract = func(ctx context.Context, session browser.Session, courses []scrape.Course) ([]scrape.Assignment, []string) {
		client, err := portal.NewClient(portal.Options{
			BaseURL:    opts.BaseURL,
			Session:    session,
			FetchDelay: opts.FetchDelay,
			DebugDir:   opts.DebugDir,
		})
		if err != nil {
			return nil, []string{fmt.Sprintf("extract_assignments: build client: %v", err)}
		}
		strategies := []extraction.Strategy{extraction.NewSelector(), extraction.NewModel(model)}
		if opts.Profile.Assignments.UseLLMFirst {
			strategies[0], strategies[1] = strategies[1], strategies[0]
		}
		extractor := extraction.NewExtractor(client,
			extraction.NewCascade(strategies...),
			extraction.ExtractorOptions{
				MaxCourses:       opts.MaxCourses,
				CheckSubmissions: opts.CheckSubmissions,
			})
		return extractor.ExtractAll(ctx, base, courses, opts.Profile)
	}
	return p, nil
}

// Run executes the five stages and returns the terminal state.
func (p *Pipeline) Run(ctx context.Context) State {
	return NewRunner(
		Stage{Name: "authenticate", Run: p.authenticate},
		Stage{Name: "discover_courses", Run: p.discoverCourses},
		Stage{Name: "extract_assignments", Run: p.extractAssignments},
		Stage{Name: "classify", Run: p.classify},
		Stage{Name: "generate_report", Run: p.generateReport},
	).Run(ctx)
}

func (p *Pipeline) authenticate(ctx context.Context, s State) Update {
	authenticated := false
	update := Update{Authenticated: &authenticated}

	if p.nav == nil || !p.nav.Available() {
		update.Errors = []string{"authenticate: browser unavailable"}
		return update
	}

	result, err := p.nav.Login(ctx, browser.LoginOptions{
		URL:              p.base.JoinPath(p.opts.Profile.Auth.LoginPath).String(),
		Username:         p.opts.Username,
		Password:         p.opts.Password,
		UsernameSelector: p.opts.Profile.Auth.FormSelectors.Username,
		PasswordSelector: p.opts.Profile.Auth.FormSelectors.Password,
		SubmitSelector:   p.opts.Profile.Auth.FormSelectors.Submit,
		Success:          p.opts.Profile.Auth.SuccessIndicators,
		Errors:           p.opts.Profile.Auth.ErrorIndicators,
		Timeout:          p.opts.LoginTimeout,
	})
	if err != nil {
		update.Errors = []string{fmt.Sprintf("authenticate: %v", err)}
		return update
	}
	if !result.Success {
		update.Errors = []string{fmt.Sprintf("authenticate: %s", result.Failure)}
		return update
	}

	authenticated = true
	update.Session = &result.Session
	return update
}

func (p *Pipeline) discoverCourses(ctx context.Context, s State) Update {
	var courses []scrape.Course
	update := Update{Courses: &courses}

	if !s.Authenticated {
		slog.WarnContext(ctx, "skipping course discovery, not authenticated")
		return update
	}

	coursesURL := p.base.JoinPath(p.opts.Profile.Navigation.CoursesPage).String()
	html, err := p.fetchPage(ctx, coursesURL, s.Session)
	if err != nil {
		update.Errors = []string{fmt.Sprintf("discover_courses: fetch %s: %v", coursesURL, err)}
		return update
	}

	courses = p.discover(ctx, discovery.Input{
		BaseURL:  p.base,
		PageHTML: html,
		Profile:  p.opts.Profile,
		Session:  s.Session,
	})
	return update
}

func (p *Pipeline) extractAssignments(ctx context.Context, s State) Update {
	var assignments []scrape.Assignment
	update := Update{Assignments: &assignments}

	if !s.Authenticated || len(s.Courses) == 0 {
		slog.WarnContext(ctx, "skipping assignment extraction",
			"authenticated", s.Authenticated, "courses", len(s.Courses))
		return update
	}

	var diagnostics []string
	assignments, diagnostics = p.extract(ctx, s.Session, s.Courses)
	update.Errors = diagnostics
	return update
}

func (p *Pipeline) classify(ctx context.Context, s State) Update {
	classified := classify.Classify(ctx, s.Assignments,
		p.opts.DaysAhead, p.opts.DaysBehind, p.today())
	recent := classify.RecentlySubmitted(s.Assignments)
	return Update{Classified: &classified, Recent: &recent}
}

func (p *Pipeline) generateReport(ctx context.Context, s State) Update {
	reportPath := ""
	update := Update{ReportPath: &reportPath}

	content := report.Render(ctx, report.Data{
		Title:             report.Title(p.opts.Profile.Reports.TitleTemplate, p.opts.Profile.Metadata.Name),
		GeneratedAt:       timezone.Now(),
		DaysAhead:         p.opts.DaysAhead,
		DaysBehind:        p.opts.DaysBehind,
		Classified:        s.Classified,
		RecentlySubmitted: s.Recent,
		Courses:           s.Courses,
	})

	path, err := p.saveReport(ctx, content)
	if err != nil {
		update.Errors = []string{fmt.Sprintf("generate_report: %v", err)}
		return update
	}
	reportPath = path

	if p.opts.Mail != nil && len(p.opts.Mail.To) > 0 {
		mailer := report.NewMailer(p.opts.Mail.Smtp)
		subject := report.Title(p.opts.Profile.Reports.TitleTemplate, p.opts.Profile.Metadata.Name)
		if err := mailer.Send(ctx, subject, content, p.opts.Mail.To); err != nil {
			update.Errors = append(update.Errors,
				fmt.Sprintf("generate_report: mail: %v", err))
		}
	}
	return update
}
