// Package monitor polls the host for restricted games and enforces the
// rules outside of an authorized session.
package monitor

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind selects how a rule matches host state.
type Kind string

const (
	// KindProcess matches on process names alone.
	KindProcess Kind = "process"
	// KindWindow matches on window titles alone.
	KindWindow Kind = "window"
	// KindBrowserTab matches a title carried by one of the named browser
	// processes, for games played in a tab.
	KindBrowserTab Kind = "browser-tab"
)

// Rule describes one restricted game. ProcessPatterns are
// case-insensitive substrings of process names; TitlePattern is a
// regular expression over window titles.
type Rule struct {
	Name            string   `yaml:"name"`
	Kind            Kind     `yaml:"kind"`
	ProcessPatterns []string `yaml:"process_patterns,omitempty"`
	TitlePattern    string   `yaml:"title_pattern,omitempty"`

	titleRegexp *regexp.Regexp
}

func (r *Rule) compile() error {
	switch r.Kind {
	case KindProcess:
		if len(r.ProcessPatterns) == 0 {
			return fmt.Errorf("rule %q: process rule needs process_patterns", r.Name)
		}
	case KindWindow:
		if r.TitlePattern == "" {
			return fmt.Errorf("rule %q: window rule needs title_pattern", r.Name)
		}
	case KindBrowserTab:
		if r.TitlePattern == "" || len(r.ProcessPatterns) == 0 {
			return fmt.Errorf("rule %q: browser-tab rule needs title_pattern and process_patterns", r.Name)
		}
	default:
		return fmt.Errorf("rule %q: unknown kind %q", r.Name, r.Kind)
	}

	if r.TitlePattern != "" {
		re, err := regexp.Compile(r.TitlePattern)
		if err != nil {
			return fmt.Errorf("rule %q: regexp.Compile(%q) > %w", r.Name, r.TitlePattern, err)
		}
		r.titleRegexp = re
	}
	return nil
}

func (r *Rule) matchesProcess(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range r.ProcessPatterns {
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func (r *Rule) matchesTitle(title string) bool {
	return r.titleRegexp != nil && r.titleRegexp.MatchString(title)
}

var browserProcesses = []string{"chrome", "chromium", "firefox", "msedge", "safari", "brave", "opera"}

// DefaultRules covers the games the monitor ships with. A rules file
// replaces this set entirely.
func DefaultRules() []Rule {
	rules, err := CompileRules([]Rule{
		{
			Name:            "minecraft",
			Kind:            KindProcess,
			ProcessPatterns: []string{"javaw", "minecraft"},
		},
		{
			Name:            "roblox",
			Kind:            KindProcess,
			ProcessPatterns: []string{"roblox"},
		},
		{
			Name:         "steam games",
			Kind:         KindWindow,
			TitlePattern: `(?i)\bsteam\b`,
		},
		{
			Name:            "bloxd.io",
			Kind:            KindBrowserTab,
			ProcessPatterns: browserProcesses,
			TitlePattern:    `(?i)bloxd\.io`,
		},
	})
	if err != nil {
		panic(err)
	}
	return rules
}

// LoadRules reads a YAML rules file and compiles every rule.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", path, err)
	}

	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal(%s) > %w", path, err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("rules file %s contains no rules", path)
	}

	return CompileRules(rules)
}

// CompileRules validates and compiles a rule set.
func CompileRules(rules []Rule) ([]Rule, error) {
	for i := range rules {
		if err := rules[i].compile(); err != nil {
			return nil, err
		}
	}
	return rules, nil
}
