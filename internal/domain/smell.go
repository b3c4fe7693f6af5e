package domain

import (
	"fmt"
	"strings"
)

// SmellType identifies the kind of structural problem a detector found.
type SmellType string

const (
	SmellGodClass                 SmellType = "god_class"
	SmellLargeClass               SmellType = "large_class"
	SmellLongMethod               SmellType = "long_method"
	SmellTooManyParameters        SmellType = "too_many_parameters"
	SmellDeepNesting              SmellType = "deep_nesting"
	SmellFeatureEnvy              SmellType = "feature_envy"
	SmellDataClump                SmellType = "data_clump"
	SmellSwitchStatement          SmellType = "switch_statement"
	SmellLowCohesion              SmellType = "low_cohesion"
	SmellMultipleResponsibilities SmellType = "multiple_responsibilities"
	SmellComplexConditional       SmellType = "complex_conditional"
	SmellLongParameterList        SmellType = "long_parameter_list"
	SmellDuplicateCode            SmellType = "duplicate_code"
	SmellDeadCode                 SmellType = "dead_code"
	SmellMagicNumber              SmellType = "magic_number"
	SmellPrimitiveObsession       SmellType = "primitive_obsession"
	SmellShotgunSurgery           SmellType = "shotgun_surgery"
	SmellDivergentChange          SmellType = "divergent_change"
	SmellRefusedBequest           SmellType = "refused_bequest"
	SmellLazyClass                SmellType = "lazy_class"
)

// Severity is an ordinal ranking of how urgently a smell should be addressed.
// The zero value is SeverityLow.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = [...]string{"low", "medium", "high", "critical"}

func (s Severity) String() string {
	if s < SeverityLow || s > SeverityCritical {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// ParseSeverity converts a case-insensitive name into a Severity.
func ParseSeverity(name string) (Severity, error) {
	for i, n := range severityNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return Severity(i), nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity %q (valid: low, medium, high, critical)", name)
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Span locates a smell inside a document. Lines are 1-based and inclusive.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// CodeSmell is a detected structural quality issue. Values are never mutated
// after a detector returns them.
type CodeSmell struct {
	Type     SmellType      `json:"type"`
	Severity Severity       `json:"severity"`
	Location Span           `json:"location"`
	Target   string         `json:"target"`
	Message  string         `json:"message,omitempty"`
	Metrics  map[string]any `json:"metrics,omitempty"`
}

// Metric returns a numeric metric by name, or 0 when it is absent or not numeric.
func (s CodeSmell) Metric(name string) float64 {
	switch v := s.Metrics[name].(type) {
	case int:
		return float64(v)
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// TargetType returns the type part of a "Type.Method" target, or the whole
// target when it names a type.
func (s CodeSmell) TargetType() string {
	if i := strings.Index(s.Target, "."); i >= 0 {
		return s.Target[:i]
	}
	return s.Target
}

// TargetMember returns the member part of a "Type.Method" target, or the
// whole target for free functions.
func (s CodeSmell) TargetMember() string {
	if i := strings.Index(s.Target, "."); i >= 0 {
		return s.Target[i+1:]
	}
	return s.Target
}
