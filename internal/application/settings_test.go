package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reforge/reforge/internal/application"
	"github.com/reforge/reforge/internal/domain"
)

func TestBuildSettings_EmptyConfigReturnsDefaults(t *testing.T) {
	s := application.BuildSettings(domain.DefaultConfig())
	assert.Equal(t, domain.DefaultSettings(), s)
}

func TestBuildSettings_SingleOverrideMerges(t *testing.T) {
	maxFunc := 80
	cfg := domain.ProjectConfig{
		Profile: &domain.ProfileOverrides{MaxFunctionLines: &maxFunc},
	}
	s := application.BuildSettings(cfg)

	// Overridden field
	assert.Equal(t, 80, s.Profile.MaxFunctionLines)
	// Non-overridden fields keep defaults
	assert.Equal(t, domain.DefaultProfile().MaxParameters, s.Profile.MaxParameters)
	assert.Equal(t, domain.DefaultSettings().MaxStrategies, s.MaxStrategies)
}

func TestBuildSettings_MultipleOverrides(t *testing.T) {
	minScore := 12.5
	off := false
	cfg := domain.ProjectConfig{
		MinSeverity:        "HIGH",
		MaxStrategies:      2,
		MinScore:           &minScore,
		StopOnRegression:   &off,
		CreateBackup:       &off,
		AllowedStrategies:  []string{"extract-class", "simplify_method"},
		ExcludedStrategies: []string{"split_god_class"},
		ExcludePaths:       []string{"vendor"},
		MaxBranches:        4,
		MaxChainLength:     3,
	}
	s := application.BuildSettings(cfg)

	assert.Equal(t, domain.SeverityHigh, s.MinSeverity)
	assert.Equal(t, 2, s.MaxStrategies)
	assert.Equal(t, 12.5, s.MinScore)
	assert.False(t, s.StopOnRegression)
	assert.False(t, s.CreateBackup)
	assert.False(t, s.RequireCleanTree)
	assert.Equal(t, []domain.RefactoringType{domain.ExtractClass, domain.SimplifyMethod}, s.AllowedStrategies)
	assert.Equal(t, []string{"vendor"}, s.ExcludePaths)
	assert.Equal(t, 4, s.MaxBranches)
	assert.Equal(t, 3, s.MaxChainLength)

	assert.True(t, s.IsAllowed(domain.ExtractClass))
	assert.False(t, s.IsAllowed(domain.SplitGodClass))
	assert.False(t, s.IsAllowed(domain.ExtractInterface))
}

func TestBuildSettings_RequireCleanTree(t *testing.T) {
	on := true
	assert.False(t, application.BuildSettings(domain.DefaultConfig()).RequireCleanTree)
	assert.True(t, application.BuildSettings(domain.ProjectConfig{RequireCleanTree: &on}).RequireCleanTree)
}

func TestBuildSettings_ZeroMinScoreIsExplicit(t *testing.T) {
	zero := 0.0
	s := application.BuildSettings(domain.ProjectConfig{MinScore: &zero})
	assert.Equal(t, 0.0, s.MinScore)
}
