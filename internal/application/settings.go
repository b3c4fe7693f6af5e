package application

import (
	"github.com/reforge/reforge/internal/domain"
)

// BuildSettings merges the user's config onto DefaultSettings. The config
// is expected to have passed Validate; unparseable names are ignored.
func BuildSettings(cfg domain.ProjectConfig) domain.Settings {
	s := domain.DefaultSettings()

	if cfg.MinSeverity != "" {
		if sev, err := domain.ParseSeverity(cfg.MinSeverity); err == nil {
			s.MinSeverity = sev
		}
	}
	if cfg.MaxStrategies > 0 {
		s.MaxStrategies = cfg.MaxStrategies
	}
	if cfg.MinScore != nil {
		s.MinScore = *cfg.MinScore
	}
	if cfg.StopOnRegression != nil {
		s.StopOnRegression = *cfg.StopOnRegression
	}
	if cfg.CreateBackup != nil {
		s.CreateBackup = *cfg.CreateBackup
	}
	if cfg.RequireCleanTree != nil {
		s.RequireCleanTree = *cfg.RequireCleanTree
	}
	s.AllowedStrategies = parseTypes(cfg.AllowedStrategies)
	s.ExcludedStrategies = parseTypes(cfg.ExcludedStrategies)
	if len(cfg.ExcludePaths) > 0 {
		s.ExcludePaths = cfg.ExcludePaths
	}
	if cfg.MaxBranches > 0 {
		s.MaxBranches = cfg.MaxBranches
	}
	if cfg.MaxChainLength > 0 {
		s.MaxChainLength = cfg.MaxChainLength
	}
	if cfg.Profile != nil {
		s.Profile = mergeProfile(s.Profile, *cfg.Profile)
	}
	return s
}

func mergeProfile(base domain.DetectionProfile, p domain.ProfileOverrides) domain.DetectionProfile {
	if p.MaxFunctionLines != nil {
		base.MaxFunctionLines = *p.MaxFunctionLines
	}
	if p.MaxParameters != nil {
		base.MaxParameters = *p.MaxParameters
	}
	if p.MaxNestingDepth != nil {
		base.MaxNestingDepth = *p.MaxNestingDepth
	}
	if p.MaxConditionalOps != nil {
		base.MaxConditionalOps = *p.MaxConditionalOps
	}
	if p.MaxSwitchCases != nil {
		base.MaxSwitchCases = *p.MaxSwitchCases
	}
	if p.MaxMethods != nil {
		base.MaxMethods = *p.MaxMethods
	}
	if p.MaxFields != nil {
		base.MaxFields = *p.MaxFields
	}
	return base
}

func parseTypes(names []string) []domain.RefactoringType {
	var out []domain.RefactoringType
	for _, n := range names {
		if t, err := domain.ParseRefactoringType(n); err == nil {
			out = append(out, t)
		}
	}
	return out
}
