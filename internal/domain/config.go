package domain

import (
	"fmt"
	"path"
	"strings"
)

// ProjectConfig holds project-level configuration loaded from .reforge.yaml.
type ProjectConfig struct {
	MinSeverity        string            `yaml:"min_severity"        json:"min_severity,omitempty"`
	MaxStrategies      int               `yaml:"max_strategies"      json:"max_strategies,omitempty"`
	MinScore           *float64          `yaml:"min_score"           json:"min_score,omitempty"`
	StopOnRegression   *bool             `yaml:"stop_on_regression"  json:"stop_on_regression,omitempty"`
	CreateBackup       *bool             `yaml:"create_backup"       json:"create_backup,omitempty"`
	RequireCleanTree   *bool             `yaml:"require_clean_tree"  json:"require_clean_tree,omitempty"`
	AllowedStrategies  []string          `yaml:"allowed_strategies"  json:"allowed_strategies,omitempty"`
	ExcludedStrategies []string          `yaml:"excluded_strategies" json:"excluded_strategies,omitempty"`
	ExcludePaths       []string          `yaml:"exclude_paths"       json:"exclude_paths,omitempty"`
	MaxBranches        int               `yaml:"max_branches"        json:"max_branches,omitempty"`
	MaxChainLength     int               `yaml:"max_chain_length"    json:"max_chain_length,omitempty"`
	Profile            *ProfileOverrides `yaml:"profile,omitempty"   json:"profile,omitempty"`
}

// ProfileOverrides allows users to override detection thresholds.
// Pointer types distinguish "not specified" from zero values.
type ProfileOverrides struct {
	MaxFunctionLines  *int `yaml:"max_function_lines,omitempty"  json:"max_function_lines,omitempty"`
	MaxParameters     *int `yaml:"max_parameters,omitempty"      json:"max_parameters,omitempty"`
	MaxNestingDepth   *int `yaml:"max_nesting_depth,omitempty"   json:"max_nesting_depth,omitempty"`
	MaxConditionalOps *int `yaml:"max_conditional_ops,omitempty" json:"max_conditional_ops,omitempty"`
	MaxSwitchCases    *int `yaml:"max_switch_cases,omitempty"    json:"max_switch_cases,omitempty"`
	MaxMethods        *int `yaml:"max_methods,omitempty"         json:"max_methods,omitempty"`
	MaxFields         *int `yaml:"max_fields,omitempty"          json:"max_fields,omitempty"`
}

// DefaultConfig returns a zero-value config that changes nothing.
func DefaultConfig() ProjectConfig {
	return ProjectConfig{}
}

// Validate checks the config for invalid values and returns a descriptive error.
func (c ProjectConfig) Validate() error {
	if c.MinSeverity != "" {
		if _, err := ParseSeverity(c.MinSeverity); err != nil {
			return fmt.Errorf("min_severity: %w", err)
		}
	}

	if c.MaxStrategies < 0 {
		return fmt.Errorf("max_strategies must be >= 0 (got %d)", c.MaxStrategies)
	}

	if c.MinScore != nil && (*c.MinScore < -100 || *c.MinScore > 100) {
		return fmt.Errorf("min_score must be between -100 and 100 (got %.1f)", *c.MinScore)
	}

	for _, name := range c.AllowedStrategies {
		if _, err := ParseRefactoringType(name); err != nil {
			return fmt.Errorf("allowed_strategies: %w", err)
		}
	}
	for _, name := range c.ExcludedStrategies {
		if _, err := ParseRefactoringType(name); err != nil {
			return fmt.Errorf("excluded_strategies: %w", err)
		}
	}

	for _, p := range c.ExcludePaths {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("exclude_paths: bad pattern %q: %w", p, err)
		}
	}

	if c.MaxBranches < 0 {
		return fmt.Errorf("max_branches must be >= 0 (got %d)", c.MaxBranches)
	}

	if c.MaxChainLength < 0 || c.MaxChainLength > len(AllRefactoringTypes) {
		return fmt.Errorf("max_chain_length must be between 0 and %d (got %d)", len(AllRefactoringTypes), c.MaxChainLength)
	}

	if c.Profile != nil {
		if err := c.Profile.validate(); err != nil {
			return err
		}
	}

	return nil
}

func (p ProfileOverrides) validate() error {
	intFields := map[string]*int{
		"max_function_lines":  p.MaxFunctionLines,
		"max_parameters":      p.MaxParameters,
		"max_nesting_depth":   p.MaxNestingDepth,
		"max_conditional_ops": p.MaxConditionalOps,
		"max_switch_cases":    p.MaxSwitchCases,
		"max_methods":         p.MaxMethods,
		"max_fields":          p.MaxFields,
	}
	for name, ptr := range intFields {
		if ptr != nil && *ptr <= 0 {
			return fmt.Errorf("profile.%s must be > 0 (got %d)", name, *ptr)
		}
	}
	return nil
}

// IsExcludedPath reports whether a slash-separated relative path matches one
// of the exclude patterns. A pattern matches the full path, its base name,
// or any leading directory.
func (c ProjectConfig) IsExcludedPath(rel string) bool {
	return ExcludedPath(c.ExcludePaths, rel)
}

// ExcludedPath reports whether rel matches any of patterns, with the same
// rules as ProjectConfig.IsExcludedPath.
func ExcludedPath(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if matchPath(strings.TrimSuffix(pattern, "/"), rel) {
			return true
		}
	}
	return false
}

func matchPath(pattern, rel string) bool {
	if ok, _ := path.Match(pattern, rel); ok {
		return true
	}
	if ok, _ := path.Match(pattern, path.Base(rel)); ok {
		return true
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if ok, _ := path.Match(pattern, dir); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(dir)); ok {
			return true
		}
	}
	return false
}
