package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"lms-scraper/internal/pipeline"
	"lms-scraper/internal/portal"
	"lms-scraper/internal/profile"
	"lms-scraper/lib/browser"
	"lms-scraper/lib/configutil"
	"lms-scraper/lib/llm"
	"lms-scraper/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var configFile *string

func init() {
	configFile = runCmd.Flags().String("config", "config.json5", "path to the config file")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--config <path/to/config.json5>]",
	Short: "Runs the full scrape and writes an assignment report.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		cfg, err := configutil.ReadConfig[Config](*configFile)
		if err != nil && !os.IsNotExist(err) {
			serviceutil.Fatal("failed to read config", err)
		}
		cfg.applyEnv()
		cfg.applyDefaults()

		if cfg.Portal.BaseUrl == "" {
			serviceutil.Fatal("no portal base url",
				fmt.Errorf("set portal.base_url in %s or PORTAL_BASE_URL", *configFile))
		}
		baseURL, err := portal.NormalizeBaseURL(cfg.Portal.BaseUrl)
		if err != nil {
			serviceutil.Fatal("invalid portal base url", err)
		}

		loader := profile.NewLoader(cfg.ProfilesDir)
		prof, err := loader.Load(cfg.Portal.Profile)
		if err != nil {
			serviceutil.Fatal("failed to load portal profile", err)
		}

		slog.Info("starting scrape",
			"portal", baseURL, "profile", cfg.Portal.Profile, "user", cfg.Portal.Username)

		nav := browser.NewChrome(ctx, !cfg.Scraper.Headful)
		defer nav.Close()
		if !nav.Available() {
			slog.Warn("browser automation unavailable, authentication will fail")
		}
		model := llm.NewClient(cfg.Model)

		debugDir := ""
		if cfg.Scraper.SaveHtmlDebug {
			debugDir = "debug_html"
		}
		p, err := pipeline.New(pipeline.Options{
			BaseURL:          baseURL,
			Username:         cfg.Portal.Username,
			Password:         cfg.Portal.Password,
			Profile:          prof,
			DaysAhead:        cfg.Scraper.DaysAhead,
			DaysBehind:       cfg.Scraper.DaysBehind,
			MaxCourses:       cfg.Scraper.MaxCourses,
			CheckSubmissions: cfg.Scraper.CheckSubmissions,
			OutputDir:        cfg.Output.Dir,
			FetchDelay:       time.Duration(cfg.Scraper.FetchDelayMs) * time.Millisecond,
			DebugDir:         debugDir,
			Mail:             mailOptions(cfg),
		}, nav, model)
		if err != nil {
			serviceutil.Fatal("failed to build pipeline", err)
		}

		t1 := time.Now()
		state := p.Run(ctx)
		slog.Info("scrape finished", "seconds", time.Since(t1).Seconds())

		printSummary(state)
	},
}

func mailOptions(cfg Config) *pipeline.MailOptions {
	if len(cfg.Mail.To) == 0 {
		return nil
	}
	return &pipeline.MailOptions{Smtp: cfg.Mail.Smtp, To: cfg.Mail.To}
}

func printSummary(state pipeline.State) {
	t := newTable()
	t.AppendHeader(table.Row{"stage", "result"})
	t.AppendRows([]table.Row{
		{"authenticated", state.Authenticated},
		{"courses", len(state.Courses)},
		{"assignments", len(state.Assignments)},
		{"classified", len(state.Classified)},
		{"recently submitted", len(state.Recent)},
		{"report", state.ReportPath},
	})
	t.Render()

	if len(state.Errors) > 0 {
		e := newTable()
		e.AppendHeader(table.Row{"#", "diagnostic"})
		for i, msg := range state.Errors {
			e.AppendRow(table.Row{i + 1, msg})
		}
		e.Render()
	}
}
