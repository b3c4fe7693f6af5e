package cohesion

import (
	"fmt"

	"github.com/reforge/reforge/internal/domain"
)

// MinResponsibilityClusters is the cluster count at which a class is
// reported as carrying multiple responsibilities.
const MinResponsibilityClusters = 3

// LCOM4Severity maps an LCOM4 value to a smell severity.
func LCOM4Severity(lcom4 int) domain.Severity {
	switch {
	case lcom4 > 5:
		return domain.SeverityCritical
	case lcom4 > 3:
		return domain.SeverityHigh
	case lcom4 > 2:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// Smells turns cohesion reports into code smells for the given document.
func Smells(file string, reports []Report) []domain.CodeSmell {
	var smells []domain.CodeSmell
	for _, r := range reports {
		loc := domain.Span{File: file, StartLine: r.StartLine, EndLine: r.EndLine}
		if r.LCOM4 > 1 {
			smells = append(smells, domain.CodeSmell{
				Type:     domain.SmellLowCohesion,
				Severity: LCOM4Severity(r.LCOM4),
				Location: loc,
				Target:   r.Class,
				Message:  fmt.Sprintf("%s has %d unrelated method groups (LCOM4=%d)", r.Class, r.LCOM4, r.LCOM4),
				Metrics: map[string]any{
					"lcom4":    r.LCOM4,
					"clusters": len(r.Clusters),
					"methods":  r.Methods,
					"fields":   r.Fields,
				},
			})
		}
		if len(r.Clusters) >= MinResponsibilityClusters {
			labels := make([]string, 0, len(r.Clusters))
			for _, c := range r.Clusters {
				labels = append(labels, c.Responsibility)
			}
			smells = append(smells, domain.CodeSmell{
				Type:     domain.SmellMultipleResponsibilities,
				Severity: domain.SeverityHigh,
				Location: loc,
				Target:   r.Class,
				Message:  fmt.Sprintf("%s mixes %d responsibilities", r.Class, len(r.Clusters)),
				Metrics: map[string]any{
					"lcom4":            r.LCOM4,
					"clusters":         len(r.Clusters),
					"responsibilities": labels,
				},
			})
		}
	}
	return smells
}
