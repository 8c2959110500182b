// Package profile loads declarative portal profiles: the structural
// selectors, keyword lists and auth indicators that make one
// institution's portal scrapeable. The scraper core never hard-codes a
// specific institution's values; everything portal-shaped lives here.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lms-scraper/lib/browser"

	"gopkg.in/yaml.v3"
)

type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type FormSelectors struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Submit   string `yaml:"submit"`
}

type Auth struct {
	LoginPath         string              `yaml:"login_path"`
	FormSelectors     FormSelectors       `yaml:"form_selectors"`
	SuccessIndicators []browser.Indicator `yaml:"success_indicators"`
	ErrorIndicators   []browser.Indicator `yaml:"error_indicators"`
}

type Navigation struct {
	CoursesPage string `yaml:"courses_page"`
}

type Courses struct {
	Container string   `yaml:"container"`
	Selectors []string `yaml:"selectors"`
	// name-bearing sub-elements tried inside each card, in order
	NameSelectors []string `yaml:"name_selectors"`
	// whole path segments that mark a link as course-like
	LinkKeywords []string `yaml:"link_keywords"`
}

type Discovery struct {
	// strategy names in priority order; empty means the default order
	Order             []string `yaml:"order"`
	FallbackWhenEmpty bool     `yaml:"fallback_when_empty"`
	MaxCandidates     int      `yaml:"max_candidates"`
	CandidatePatterns []string `yaml:"candidate_patterns"`
	ExcludePaths      []string `yaml:"exclude_paths"`
}

type ActivityType struct {
	Name      string   `yaml:"name"`
	Selectors []string `yaml:"selectors"`
}

type Assignments struct {
	Types []ActivityType `yaml:"types"`
	// try model-assisted extraction before the selectors
	UseLLMFirst bool `yaml:"use_llm_first"`
}

type Dates struct {
	Selectors []string `yaml:"selectors"`
	Patterns  []string `yaml:"patterns"`
}

type Submission struct {
	// css selectors for the status table on an activity detail page
	Selectors []string `yaml:"selectors"`
	// lowercase substrings that mean "handed in"
	Keywords []string `yaml:"keywords"`
	// regexes capturing the submission date out of status prose
	DatePatterns []string `yaml:"date_patterns"`
}

type Reports struct {
	TitleTemplate string `yaml:"title_template"`
}

type Profile struct {
	Metadata    Metadata    `yaml:"metadata"`
	Auth        Auth        `yaml:"auth"`
	Navigation  Navigation  `yaml:"navigation"`
	Courses     Courses     `yaml:"courses"`
	Discovery   Discovery   `yaml:"course_discovery"`
	Assignments Assignments `yaml:"assignments"`
	Dates       Dates       `yaml:"dates"`
	Submission  Submission  `yaml:"submission"`
	Reports     Reports     `yaml:"reports"`
}

// AssignmentSelectors flattens every activity type's selector list, in
// profile order.
func (p Profile) AssignmentSelectors() []string {
	var out []string
	for _, t := range p.Assignments.Types {
		out = append(out, t.Selectors...)
	}
	return out
}

type Loader struct {
	dir   string
	cache map[string]Profile
}

func NewLoader(dir string) *Loader {
	if dir == "" {
		dir = "profiles"
	}
	return &Loader{dir: dir, cache: map[string]Profile{}}
}

func (l *Loader) Load(name string) (Profile, error) {
	if p, ok := l.cache[name]; ok {
		return p, nil
	}

	path := filepath.Join(l.dir, name+".yml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Auth.LoginPath == "" {
		p.Auth.LoginPath = "/login/index.php"
	}
	if p.Navigation.CoursesPage == "" {
		p.Navigation.CoursesPage = "/my/courses.php"
	}

	l.cache[name] = p
	return p, nil
}

// List returns the profile names available in the loader's directory.
func (l *Loader) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yml"))
	}
	sort.Strings(names)
	return names, nil
}
