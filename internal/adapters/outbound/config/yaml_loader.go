package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/reforge/reforge/internal/domain"
)

// FileName is the project config file, read from the project root.
const FileName = ".reforge.yaml"

// YAMLLoader implements domain.ConfigLoader by reading .reforge.yaml.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// Load reads .reforge.yaml from projectPath.
// Returns DefaultConfig if the file does not exist.
func (l *YAMLLoader) Load(projectPath string) (domain.ProjectConfig, error) {
	data, err := os.ReadFile(filepath.Join(projectPath, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultConfig(), nil
		}
		return domain.ProjectConfig{}, err
	}

	var cfg domain.ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.ProjectConfig{}, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	// Validate the raw input so typos surface before defaults hide them.
	if err := cfg.Validate(); err != nil {
		return domain.ProjectConfig{}, fmt.Errorf("invalid %s: %w", FileName, err)
	}

	return cfg, nil
}

// Template is the commented starter file written by `reforge init`.
const Template = `# reforge configuration
# Smells below this severity are ignored: low, medium, high, critical.
min_severity: low

# Strategies tried per opportunity by compare.
max_strategies: 3

# Best candidate must score at least this much (-100..100) to be applied.
min_score: 0

# Halt a chain at the first step that scores below zero.
stop_on_regression: true

# Copy files to .reforge/backups before writing.
create_backup: true

# Refuse apply and chain while the git work tree has uncommitted changes.
require_clean_tree: false

# allowed_strategies: [extract_method, extract_class]
# excluded_strategies: [split_god_class]

exclude_paths:
  - "*_gen.go"

max_branches: 16
max_chain_length: 4

profile:
  max_function_lines: 50
  max_parameters: 4
  max_nesting_depth: 3
  max_conditional_ops: 2
  max_switch_cases: 6
  max_methods: 15
  max_fields: 10
`

// WriteTemplate creates .reforge.yaml in projectPath unless one exists.
func WriteTemplate(projectPath string, force bool) (string, error) {
	path := filepath.Join(projectPath, FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%s already exists (use --force to overwrite)", FileName)
	}
	if err := os.WriteFile(path, []byte(Template), 0644); err != nil {
		return path, fmt.Errorf("writing %s: %w", FileName, err)
	}
	return path, nil
}
