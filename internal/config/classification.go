package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	EnvClassificationMinConfidence = "DOCKET_CLASSIFICATION_MIN_CONFIDENCE"
	EnvClassificationRulesFile     = "DOCKET_CLASSIFICATION_RULES_FILE"
)

var tierPattern = regexp.MustCompile(`^P[1-9][0-9]*$`)

// RouteRule assigns Tag when any keyword occurs in the document text.
type RouteRule struct {
	Tag      string   `toml:"tag" yaml:"tag"`
	Keywords []string `toml:"keywords" yaml:"keywords"`
}

// PriorityRule assigns Tier when any keyword occurs in the document text.
type PriorityRule struct {
	Tier     string   `toml:"tier" yaml:"tier"`
	Keywords []string `toml:"keywords" yaml:"keywords"`
}

// Rules is the keyword rule set. It can be declared inline under
// [classification] or kept in a separate TOML or YAML rules file.
type Rules struct {
	FallbackTag string         `toml:"fallback_tag" yaml:"fallback_tag"`
	Routes      []RouteRule    `toml:"routes" yaml:"routes"`
	Priorities  []PriorityRule `toml:"priorities" yaml:"priorities"`
}

// DefaultMinConfidence is the gating threshold when min_confidence is unset.
const DefaultMinConfidence = 0.5

// ClassificationConfig holds the gating threshold and the active rule set.
// MinConfidence is a pointer so an explicit 0 disables gating instead of
// falling back to the default.
type ClassificationConfig struct {
	MinConfidence *float64 `toml:"min_confidence"`
	RulesFile     string  `toml:"rules_file"`
	Rules
}

// Finalize applies defaults, environment variable overrides, and validation.
// A configured rules file replaces any inline rules.
func (c *ClassificationConfig) Finalize() error {
	if v := os.Getenv(EnvClassificationMinConfidence); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.MinConfidence = &f
		}
	}
	if v := os.Getenv(EnvClassificationRulesFile); v != "" {
		c.RulesFile = v
	}

	if c.RulesFile != "" {
		rules, err := LoadRules(c.RulesFile)
		if err != nil {
			return err
		}
		c.Rules = *rules
	}

	c.loadDefaults()
	return c.validate()
}

// Threshold returns the configured gating threshold or DefaultMinConfidence.
func (c *ClassificationConfig) Threshold() float64 {
	if c.MinConfidence == nil {
		return DefaultMinConfidence
	}
	return *c.MinConfidence
}

// Merge overwrites set fields from overlay. Rule lists replace wholesale.
func (c *ClassificationConfig) Merge(overlay *ClassificationConfig) {
	if overlay.MinConfidence != nil {
		c.MinConfidence = overlay.MinConfidence
	}
	if overlay.RulesFile != "" {
		c.RulesFile = overlay.RulesFile
	}
	if overlay.FallbackTag != "" {
		c.FallbackTag = overlay.FallbackTag
	}
	if overlay.Routes != nil {
		c.Routes = overlay.Routes
	}
	if overlay.Priorities != nil {
		c.Priorities = overlay.Priorities
	}
}

// LoadRules reads a rule set from a .toml, .yaml or .yml file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rules Rules
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &rules)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rules)
	default:
		return nil, fmt.Errorf("unsupported rules file format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return &rules, nil
}

func (c *ClassificationConfig) loadDefaults() {
	if c.MinConfidence == nil {
		c.MinConfidence = new(DefaultMinConfidence)
	}
	if c.FallbackTag == "" {
		c.FallbackTag = "Misc"
	}
	if c.Routes == nil {
		c.Routes = []RouteRule{
			{Tag: "AP", Keywords: []string{"invoice", "purchase order", "vendor", "bill to"}},
			{Tag: "AR", Keywords: []string{"receipt", "payment received", "remittance"}},
		}
	}
	if c.Priorities == nil {
		c.Priorities = []PriorityRule{
			{Tier: "P1", Keywords: []string{"urgent", "overdue", "past due", "final notice"}},
			{Tier: "P2", Keywords: []string{"invoice", "statement"}},
			{Tier: "P3"},
		}
	}
}

func (c *ClassificationConfig) validate() error {
	if t := c.Threshold(); t < 0 || t > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1]")
	}
	if strings.TrimSpace(c.FallbackTag) == "" {
		return fmt.Errorf("fallback_tag required")
	}

	for i, r := range c.Routes {
		if strings.TrimSpace(r.Tag) == "" {
			return fmt.Errorf("routes[%d]: tag required", i)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("routes[%d] %s: keywords required", i, r.Tag)
		}
	}

	if len(c.Priorities) == 0 {
		return fmt.Errorf("at least one priority tier required")
	}
	seen := make(map[string]bool, len(c.Priorities))
	for i, p := range c.Priorities {
		if !tierPattern.MatchString(p.Tier) {
			return fmt.Errorf("priorities[%d]: tier %q must look like P1, P2, ...", i, p.Tier)
		}
		if seen[p.Tier] {
			return fmt.Errorf("priorities[%d]: duplicate tier %s", i, p.Tier)
		}
		seen[p.Tier] = true
	}
	return nil
}
