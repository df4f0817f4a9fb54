// Package config loads apicov project configuration from .apicov.yaml
// or .apicov.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/unbound-force/apicov/internal/capture"
	"github.com/unbound-force/apicov/internal/rule"
)

// FileNames lists the config files looked up by Find, in order.
var FileNames = []string{".apicov.yaml", ".apicov.yml", ".apicov.toml"}

// Config is the project configuration. Zero values mean "use the
// default".
type Config struct {
	Rules   RulesConfig   `yaml:"rules" toml:"rules"`
	Capture CaptureConfig `yaml:"capture" toml:"capture"`
	Workers int           `yaml:"workers" toml:"workers"`
	Report  ReportConfig  `yaml:"report" toml:"report"`
}

// RulesConfig selects the rule set.
type RulesConfig struct {
	// Disabled lists default rule IDs to skip.
	Disabled []string `yaml:"disabled" toml:"disabled"`

	// Custom declares expression-based rules, applied after the
	// defaults.
	Custom []CustomRule `yaml:"custom" toml:"custom"`
}

// CustomRule is the configured form of rule.CustomDefinition.
type CustomRule struct {
	Name        string   `yaml:"name" toml:"name"`
	Description string   `yaml:"description" toml:"description"`
	Operations  []string `yaml:"operations" toml:"operations"`
	When        string   `yaml:"when" toml:"when"`
}

// CaptureConfig controls capture discovery.
type CaptureConfig struct {
	Include []string `yaml:"include" toml:"include"`
	Exclude []string `yaml:"exclude" toml:"exclude"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	// MinCoverage fails the run below this condition percentage.
	// Zero disables the check.
	MinCoverage float64 `yaml:"min_coverage" toml:"min_coverage"`

	// OutputDir, when set, receives the persisted report files.
	OutputDir string `yaml:"output_dir" toml:"output_dir"`
}

// Duration is a time.Duration written as "30s" or "2m".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// UnmarshalYAML accepts the same strings as UnmarshalText.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// MarshalText renders the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{Workers: 1}
}

// Find returns the first config file present in dir, or "" when there
// is none.
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads the config at path. The format is chosen by extension:
// ".toml" is TOML, anything else YAML. Unset fields keep the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges and rule references. Custom rule
// expressions are compiled by BuildRules, not here.
func (c *Config) Validate() error {
	var errs []error

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.Report.MinCoverage < 0 || c.Report.MinCoverage > 100 {
		errs = append(errs, fmt.Errorf("report.min_coverage must be within [0, 100], got %g", c.Report.MinCoverage))
	}
	if c.Capture.Timeout.Duration < 0 {
		errs = append(errs, fmt.Errorf("capture.timeout must not be negative"))
	}

	known := map[string]bool{}
	for _, id := range rule.DefaultIDs() {
		known[id] = true
	}
	for _, id := range c.Rules.Disabled {
		if !known[id] {
			errs = append(errs, fmt.Errorf("rules.disabled: unknown rule %q", id))
		}
	}

	seen := map[string]bool{}
	for i, cr := range c.Rules.Custom {
		if cr.Name == "" {
			errs = append(errs, fmt.Errorf("rules.custom[%d]: name is required", i))
			continue
		}
		if seen[cr.Name] {
			errs = append(errs, fmt.Errorf("rules.custom[%d]: duplicate name %q", i, cr.Name))
		}
		seen[cr.Name] = true
	}

	return errors.Join(errs...)
}

// BuildRules builds the ordered rule list: the enabled defaults followed
// by the custom rules in declaration order.
func (c *Config) BuildRules() ([]rule.Rule, error) {
	rules := rule.Filter(rule.Defaults(), c.Rules.Disabled)
	for _, cr := range c.Rules.Custom {
		r, err := rule.NewCustom(rule.CustomDefinition{
			Name:        cr.Name,
			Description: cr.Description,
			Operations:  cr.Operations,
			When:        cr.When,
		})
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// CaptureOptions converts the capture section for capture.Scan.
func (c *Config) CaptureOptions() capture.Options {
	return capture.Options{
		Include: c.Capture.Include,
		Exclude: c.Capture.Exclude,
		Timeout: c.Capture.Timeout.Duration,
	}
}
