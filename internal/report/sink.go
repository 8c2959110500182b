package report

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lms-scraper/lib/timezone"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel/codes"
)

// Sink writes rendered reports to timestamped files under one output
// directory.
type Sink struct {
	Dir    string
	Prefix string

	// overridable for tests
	now func() time.Time
}

func NewSink(dir string) *Sink {
	if dir == "" {
		dir = "reports"
	}
	return &Sink{Dir: dir, Prefix: "assignments_report", now: timezone.Now}
}

// Save writes the report and returns its path.
func (s *Sink) Save(ctx context.Context, content string) (string, error) {
	_, span := tracer.Start(ctx, "sink:Save")
	defer span.End()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create output directory")
		return "", err
	}
	path := filepath.Join(s.Dir,
		fmt.Sprintf("%s_%s.md", s.Prefix, s.now().Format("20060102_150405")))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write report")
		return "", err
	}
	return path, nil
}

type SmtpOptions struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

// Mailer delivers a rendered report over SMTP. Entirely optional; the
// pipeline only mails when recipients are configured.
type Mailer struct {
	opts SmtpOptions
}

func NewMailer(opts SmtpOptions) Mailer {
	return Mailer{opts: opts}
}

func (m Mailer) Send(ctx context.Context, subject, body string, to []string) error {
	_, span := tracer.Start(ctx, "mailer:Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("LMS Scraper <%s>", m.opts.EmailAddress)
	mail.To = to
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", m.opts.Server, m.opts.Port)
	err := mail.Send(addr,
		smtp.PlainAuth("", m.opts.EmailAddress, m.opts.Password, m.opts.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send report email")
		return err
	}
	return nil
}
