package browser

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lmscraper.lib.browser")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// portals load course cards with javascript after the document is
// ready, so snapshots wait this long after navigation settles
const settleDelay = 2 * time.Second

type Chrome struct {
	allocCtx  context.Context
	cancel    context.CancelFunc
	available bool
}

// NewChrome starts a headless browser allocator and probes it with a
// blank navigation. A machine without a chrome binary yields an
// unavailable (but still usable as a value) Chrome.
func NewChrome(ctx context.Context, headless bool) *Chrome {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
	)
	if !headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)

	probeCtx, probeCancel := chromedp.NewContext(allocCtx)
	defer probeCancel()
	probeCtx, timeoutCancel := context.WithTimeout(probeCtx, 15*time.Second)
	defer timeoutCancel()
	err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank"))

	return &Chrome{
		allocCtx:  allocCtx,
		cancel:    cancel,
		available: err == nil,
	}
}

func (c *Chrome) Available() bool {
	return c != nil && c.available
}

func (c *Chrome) Close() {
	if c != nil && c.cancel != nil {
		c.cancel()
	}
}

func (c *Chrome) Login(ctx context.Context, opts LoginOptions) (LoginResult, error) {
	ctx, span := tracer.Start(ctx, "chrome:Login")
	defer span.End()
	span.SetAttributes(attribute.String("url", opts.URL))

	tabCtx, cancel := chromedp.NewContext(c.allocCtx)
	defer cancel()
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, timeout)
	defer timeoutCancel()

	var currentURL, content string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(opts.UsernameSelector, chromedp.ByQuery),
		chromedp.SendKeys(opts.UsernameSelector, opts.Username, chromedp.ByQuery),
		chromedp.SendKeys(opts.PasswordSelector, opts.Password, chromedp.ByQuery),
		chromedp.Click(opts.SubmitSelector, chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.Location(&currentURL),
		chromedp.OuterHTML("html", &content, chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login navigation failed")
		return LoginResult{}, err
	}

	if !matchSuccess(tabCtx, opts.Success, currentURL) {
		reason := matchFailure(opts.Errors, content)
		if reason == "" {
			reason = "unexpected redirect to " + currentURL
		}
		span.SetStatus(codes.Error, reason)
		return LoginResult{Success: false, Failure: reason}, nil
	}

	var cookies []Cookie
	err = chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		raw, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range raw {
			cookies = append(cookies, Cookie{
				Name:   c.Name,
				Value:  c.Value,
				Domain: c.Domain,
				Path:   c.Path,
			})
		}
		return nil
	}))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read session cookies")
		return LoginResult{}, err
	}

	return LoginResult{Success: true, Session: Session{Cookies: cookies}}, nil
}

func matchSuccess(tabCtx context.Context, indicators []Indicator, currentURL string) bool {
	for _, ind := range indicators {
		if ind.URLContains != "" && strings.Contains(currentURL, ind.URLContains) {
			return true
		}
		if ind.ElementPresent != "" {
			waitCtx, cancel := context.WithTimeout(tabCtx, 5*time.Second)
			err := chromedp.Run(waitCtx, chromedp.WaitVisible(ind.ElementPresent, chromedp.ByQuery))
			cancel()
			if err == nil {
				return true
			}
		}
	}
	return false
}

func matchFailure(indicators []Indicator, content string) string {
	lowerContent := strings.ToLower(content)
	for _, ind := range indicators {
		if ind.TextContains != "" && strings.Contains(lowerContent, strings.ToLower(ind.TextContains)) {
			return "login failed: page contains " + ind.TextContains
		}
	}
	return ""
}

func (c *Chrome) FetchPage(ctx context.Context, pageURL string, session Session) (string, error) {
	ctx, span := tracer.Start(ctx, "chrome:FetchPage")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageURL))

	tabCtx, cancel := chromedp.NewContext(c.allocCtx)
	defer cancel()
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, 30*time.Second)
	defer timeoutCancel()

	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Hostname()
	}

	var content string
	err := chromedp.Run(tabCtx,
		setCookies(session, host),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &content, chromedp.ByQuery),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot failed")
		return "", err
	}
	return content, nil
}

func setCookies(session Session, fallbackDomain string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(session.Cookies) == 0 {
			return nil
		}
		params := make([]*network.CookieParam, 0, len(session.Cookies))
		for _, c := range session.Cookies {
			domain := strings.TrimPrefix(c.Domain, ".")
			if domain == "" {
				domain = fallbackDomain
			}
			path := c.Path
			if path == "" {
				path = "/"
			}
			params = append(params, &network.CookieParam{
				Name:   c.Name,
				Value:  c.Value,
				Domain: domain,
				Path:   path,
			})
		}
		return storage.SetCookies(params).Do(ctx)
	})
}
