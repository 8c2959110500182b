package commands

import (
	"os"

	"lms-scraper/internal/report"
	"lms-scraper/lib/llm"
)

type PortalConfig struct {
	BaseUrl  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Profile  string `json:"profile"`
}

type ScraperConfig struct {
	DaysAhead        int  `json:"days_ahead"`
	DaysBehind       int  `json:"days_behind"`
	MaxCourses       int  `json:"max_courses"`
	CheckSubmissions bool `json:"check_submissions"`
	FetchDelayMs     int  `json:"fetch_delay_ms"`
	SaveHtmlDebug    bool `json:"save_html_debug"`
	Headful          bool `json:"headful"`
}

type OutputConfig struct {
	Dir string `json:"dir"`
}

type MailConfig struct {
	Smtp report.SmtpOptions `json:"smtp"`
	To   []string           `json:"to"`
}

type Config struct {
	Portal      PortalConfig  `json:"portal"`
	Scraper     ScraperConfig `json:"scraper"`
	Model       llm.Options   `json:"model"`
	Output      OutputConfig  `json:"output"`
	Mail        MailConfig    `json:"mail"`
	ProfilesDir string        `json:"profiles_dir"`
}

// applyEnv lets credentials come from the environment instead of the
// config file, which keeps secrets out of checked-in configs.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORTAL_BASE_URL"); v != "" {
		c.Portal.BaseUrl = v
	}
	if v := os.Getenv("PORTAL_USERNAME"); v != "" {
		c.Portal.Username = v
	}
	if v := os.Getenv("PORTAL_PASSWORD"); v != "" {
		c.Portal.Password = v
	}
	if v := os.Getenv("PORTAL_PROFILE"); v != "" {
		c.Portal.Profile = v
	}
}

func (c *Config) applyDefaults() {
	if c.Portal.Profile == "" {
		c.Portal.Profile = "moodle_default"
	}
	if c.Scraper.DaysAhead == 0 {
		c.Scraper.DaysAhead = 7
	}
	if c.Scraper.DaysBehind == 0 {
		c.Scraper.DaysBehind = 7
	}
	if c.Scraper.FetchDelayMs == 0 {
		c.Scraper.FetchDelayMs = 500
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "reports"
	}
	if c.ProfilesDir == "" {
		c.ProfilesDir = "profiles"
	}
}
