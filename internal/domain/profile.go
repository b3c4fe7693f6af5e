package domain

// DetectionProfile carries the thresholds used by the heuristic smell feed.
// Built from defaults merged with user overrides.
type DetectionProfile struct {
	MaxFunctionLines  int
	MaxParameters     int
	MaxNestingDepth   int
	MaxConditionalOps int
	MaxSwitchCases    int

	// Class-level size limits. A type exceeding both is reported as a god
	// class instead of a large class.
	MaxMethods int
	MaxFields  int
}

// DefaultProfile returns the base detection profile with sensible Go defaults.
func DefaultProfile() DetectionProfile {
	return DetectionProfile{
		MaxFunctionLines:  50,
		MaxParameters:     4,
		MaxNestingDepth:   3,
		MaxConditionalOps: 2,
		MaxSwitchCases:    6,
		MaxMethods:        15,
		MaxFields:         10,
	}
}

// Settings are the resolved orchestrator options.
type Settings struct {
	MinSeverity        Severity
	MaxStrategies      int
	MinScore           float64
	StopOnRegression   bool
	CreateBackup       bool
	RequireCleanTree   bool
	AllowedStrategies  []RefactoringType
	ExcludedStrategies []RefactoringType
	ExcludePaths       []string
	MaxBranches        int
	MaxChainLength     int
	Profile            DetectionProfile
}

// DefaultSettings returns the options used when no config file is present.
func DefaultSettings() Settings {
	return Settings{
		MinSeverity:      SeverityLow,
		MaxStrategies:    3,
		MinScore:         0,
		StopOnRegression: true,
		CreateBackup:     true,
		MaxBranches:      16,
		MaxChainLength:   4,
		Profile:          DefaultProfile(),
	}
}

// IsAllowed reports whether t passes the allow and deny lists. An empty
// allow list admits every type.
func (s Settings) IsAllowed(t RefactoringType) bool {
	for _, x := range s.ExcludedStrategies {
		if x == t {
			return false
		}
	}
	if len(s.AllowedStrategies) == 0 {
		return true
	}
	for _, a := range s.AllowedStrategies {
		if a == t {
			return true
		}
	}
	return false
}
