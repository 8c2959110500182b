// Package portal provides the authenticated HTTP client used for
// per-course page fetches. Login happens in the browser capability;
// this client only replays the captured session cookies over plain
// HTTP, which is much cheaper than a browser tab per course.
package portal

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"lms-scraper/lib/browser"
	"lms-scraper/lib/restyutil"
	"lms-scraper/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lmscraper.internal.portal")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// NormalizeBaseURL reduces a user-supplied portal url to its origin
// (scheme + host). People paste the full login url; paths like
// /my/courses.php are built against the origin.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("portal url %q has no host", raw)
	}
	scheme := parsed.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + parsed.Host, nil
}

type Options struct {
	BaseURL string
	Session browser.Session
	Timeout time.Duration
	// pause between successive fetches so the portal is not hammered
	FetchDelay time.Duration
	// when set, every response body is dumped here for selector debugging
	DebugDir string
}

type Client struct {
	BaseURL *url.URL
	Http    *resty.Client

	fetchDelay time.Duration
	lastFetch  time.Time
}

func NewClient(opts Options) (*Client, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = time.Second * 30
	}
	client.SetTimeout(timeout)

	for _, c := range opts.Session.Cookies {
		domain := strings.TrimPrefix(c.Domain, ".")
		if domain == "" {
			domain = baseURL.Hostname()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		client.SetCookie(&http.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: domain,
			Path:   path,
		})
	}

	telemetry.InstrumentResty(client, "portal/http")
	if opts.DebugDir != "" {
		output, err := restyutil.NewFilesystemOutput(opts.DebugDir)
		if err != nil {
			return nil, err
		}
		output.Attach(client)
	}

	return &Client{
		BaseURL:    baseURL,
		Http:       client,
		fetchDelay: opts.FetchDelay,
	}, nil
}

// Resolve turns a possibly relative href into an absolute url under the
// portal origin.
func (c *Client) Resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	resolved := c.BaseURL.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}

// FetchHTML fetches one page with the session cookies and returns the
// raw body. Successive calls are spaced out by the configured fetch
// delay.
func (c *Client) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:FetchHTML")
	defer span.End()
	span.SetAttributes(attribute.String("url", pageURL))

	c.throttle()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return "", err
	}
	if res.StatusCode() >= 400 {
		span.SetStatus(codes.Error, "portal rejected the request")
		return "", fmt.Errorf("fetch %s: %s", pageURL, res.Status())
	}
	return string(res.Body()), nil
}

// GetPage fetches one page and parses it.
func (c *Client) GetPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := c.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) throttle() {
	if c.fetchDelay <= 0 {
		return
	}
	if since := time.Since(c.lastFetch); since < c.fetchDelay {
		time.Sleep(c.fetchDelay - since)
	}
	c.lastFetch = time.Now()
}
