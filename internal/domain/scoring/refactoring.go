// Package scoring turns a validator verdict and the before/after syntax of a
// document into a weighted refactoring score.
package scoring

import (
	"math"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/cohesion"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// Weights of the aggregate score terms.
const (
	WeightCohesion        = 0.40
	WeightComplexity      = 0.30
	WeightMaintainability = 0.20
	WeightNaming          = 0.10

	CompileFailureScore   = -100.0
	SemanticsFailureScore = -50.0

	responsibilityStep = 0.25
	maxLOCBonus        = 10.0
)

// Score extends base with the design-quality terms computed from the
// original and transformed units. transformed may be nil when the candidate
// could not be parsed; base.Compiles is then expected to be false.
func Score(base domain.TransformationScore, original, transformed *syntax.Unit) domain.RefactoringScore {
	s := domain.RefactoringScore{Base: base}

	var origReports, newReports []cohesion.Report
	if original != nil {
		origReports = cohesion.AnalyzeFile(original)
		s.OriginalLCOM4 = WorstLCOM4(origReports)
	}
	if transformed != nil {
		newReports = cohesion.AnalyzeFile(transformed)
		s.TransformedLCOM4 = WorstLCOM4(newReports)
		s.Testability = Testability(transformed)
		s.NamingQuality = NamingQuality(transformed.File)
		s.SingleResponsibility = SingleResponsibility(newReports)
		if original != nil {
			s.ResponsibilityScore = ResponsibilityTerm(ResponsibilityUnits(original), ResponsibilityUnits(transformed))
		}
	}
	s.CohesionScore = CohesionTerm(s.OriginalLCOM4, s.TransformedLCOM4)
	s.ComplexityScore = ComplexityTerm(base.CyclomaticDelta, base.CognitiveDelta)
	s.MaintainabilityScore = MaintainabilityTerm(base.MaintainabilityDelta)
	s.Overall = Aggregate(s)
	return s
}

// Aggregate combines the terms of s into the overall score in [-100, 100].
// Compile and semantics failures override everything else.
func Aggregate(s domain.RefactoringScore) float64 {
	if !s.Base.Compiles {
		return CompileFailureScore
	}
	if !s.Base.SemanticsPreserved {
		return SemanticsFailureScore
	}
	naming := float64(s.NamingQuality) / 100
	overall := 100*(s.CohesionScore*WeightCohesion+
		s.ComplexityScore*WeightComplexity+
		s.MaintainabilityScore*WeightMaintainability+
		naming*WeightNaming) +
		s.ResponsibilityScore*10 +
		LOCBonus(s.Base.LinesDelta)
	return clamp(overall, -100, 100)
}

// CohesionTerm maps an LCOM4 change to [0, 1], 0.5 meaning no change.
func CohesionTerm(origLCOM4, newLCOM4 int) float64 {
	return clamp(0.5+0.25*float64(origLCOM4-newLCOM4), 0, 1)
}

// ComplexityTerm maps complexity deltas to [0, 1]; reductions score above 0.5.
func ComplexityTerm(cyclomaticDelta, cognitiveDelta int) float64 {
	avg := float64(cyclomaticDelta+cognitiveDelta) / 2
	return clamp(0.5+0.05*-avg, 0, 1)
}

// MaintainabilityTerm maps a maintainability index delta to [0, 1].
func MaintainabilityTerm(delta float64) float64 {
	return clamp(0.5+0.025*delta, 0, 1)
}

// ResponsibilityTerm rewards separating responsibilities into more units and
// penalises consolidating them, 0.25 per unit within [-1, 1].
func ResponsibilityTerm(origUnits, newUnits int) float64 {
	return clamp(responsibilityStep*float64(newUnits-origUnits), -1, 1)
}

// LOCBonus grants half a point per removed line, up to 10.
func LOCBonus(linesDelta int) float64 {
	if linesDelta >= 0 {
		return 0
	}
	return math.Min(maxLOCBonus, 0.5*float64(-linesDelta))
}

// WorstLCOM4 returns the highest LCOM4 among reports, or 0 when empty.
func WorstLCOM4(reports []cohesion.Report) int {
	worst := 0
	for _, r := range reports {
		if r.LCOM4 > worst {
			worst = r.LCOM4
		}
	}
	return worst
}

// SingleResponsibility averages the per-class single-responsibility score:
// 100 for LCOM4 <= 1, otherwise 100 - 25*(LCOM4-1) floored at 0. A document
// without classes scores 100.
func SingleResponsibility(reports []cohesion.Report) float64 {
	if len(reports) == 0 {
		return 100
	}
	total := 0.0
	for _, r := range reports {
		if r.LCOM4 <= 1 {
			total += 100
			continue
		}
		total += math.Max(0, 100-25*float64(r.LCOM4-1))
	}
	return total / float64(len(reports))
}

// ResponsibilityUnits counts the struct types in the document that have at
// least one method anywhere in the package.
func ResponsibilityUnits(u *syntax.Unit) int {
	n := 0
	for _, c := range u.Classes() {
		if len(c.AllMethods()) > 0 {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
