package domain

import (
	"fmt"
	"strings"
)

// RefactoringType is the closed set of restructuring operations.
type RefactoringType int

const (
	ExtractMethod RefactoringType = iota
	ExtractClass
	SplitGodClass
	SimplifyMethod
	ExtractInterface
	ReplaceConditional
)

// AllRefactoringTypes lists every RefactoringType in declaration order.
var AllRefactoringTypes = []RefactoringType{
	ExtractMethod, ExtractClass, SplitGodClass,
	SimplifyMethod, ExtractInterface, ReplaceConditional,
}

var refactoringNames = map[RefactoringType]string{
	ExtractMethod:      "extract_method",
	ExtractClass:       "extract_class",
	SplitGodClass:      "split_god_class",
	SimplifyMethod:     "simplify_method",
	ExtractInterface:   "extract_interface",
	ReplaceConditional: "replace_conditional",
}

func (t RefactoringType) String() string {
	if name, ok := refactoringNames[t]; ok {
		return name
	}
	return fmt.Sprintf("refactoring(%d)", int(t))
}

// Valid reports whether t is one of the declared types.
func (t RefactoringType) Valid() bool {
	_, ok := refactoringNames[t]
	return ok
}

// ParseRefactoringType accepts snake_case or kebab-case names.
func ParseRefactoringType(name string) (RefactoringType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for t, n := range refactoringNames {
		if n == normalized {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown refactoring type %q", name)
}

func (t RefactoringType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *RefactoringType) UnmarshalText(text []byte) error {
	parsed, err := ParseRefactoringType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// CompositionOrder is the declared relation between two refactoring types
// when both appear in one chain, read as "first relative to second".
type CompositionOrder int

const (
	OrderEither CompositionOrder = iota
	OrderBefore
	OrderAfter
	OrderIncompatible
)

func (o CompositionOrder) String() string {
	switch o {
	case OrderBefore:
		return "before"
	case OrderAfter:
		return "after"
	case OrderIncompatible:
		return "incompatible"
	default:
		return "either"
	}
}

// StrategyChain is an ordered, duplicate-free sequence of refactorings meant
// to be applied one after another.
type StrategyChain struct {
	Name            string            `json:"name"`
	Strategies      []RefactoringType `json:"strategies"`
	Description     string            `json:"description"`
	EstimatedImpact int               `json:"estimated_impact"`
}

// Estimate is a strategy's prediction of how much it improves a smell.
type Estimate struct {
	ComplexityImprovement float64 `json:"complexity_improvement"`
	CohesionImprovement   float64 `json:"cohesion_improvement"`
	Description           string  `json:"description,omitempty"`
}

// RefactoringOpportunity binds a smell to a document and to the strategies
// that declare they address it.
type RefactoringOpportunity struct {
	DocumentID                     DocumentID        `json:"document_id"`
	Smell                          CodeSmell         `json:"smell"`
	Strategies                     []RefactoringType `json:"strategies"`
	EstimatedComplexityImprovement float64           `json:"estimated_complexity_improvement"`
	EstimatedCohesionImprovement   float64           `json:"estimated_cohesion_improvement"`
	Recommendation                 string            `json:"recommendation"`
}

// CombinedImprovement is the sort key used after severity.
func (o RefactoringOpportunity) CombinedImprovement() float64 {
	return o.EstimatedComplexityImprovement + o.EstimatedCohesionImprovement
}

// RefactoringPlan is the ordered list of opportunities found in a project.
type RefactoringPlan struct {
	ProjectPath      string                   `json:"project_path"`
	CommitHash       string                   `json:"commit_hash,omitempty"`
	DocumentsScanned int                      `json:"documents_scanned"`
	Opportunities    []RefactoringOpportunity `json:"opportunities"`
}
