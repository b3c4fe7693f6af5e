// Package detector finds size and complexity smells with AST heuristics.
// It is the smell feed that complements the cohesion analyzer.
package detector

import (
	"context"
	"fmt"
	"go/ast"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/metrics"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// minChainArms is the shortest if/else-if chain reported as a
// switch-statement smell.
const minChainArms = 3

// SmellDetector implements domain.SmellFeed.
type SmellDetector struct {
	loader syntax.Loader
}

// New creates a detector that loads documents through loader.
func New(loader syntax.Loader) *SmellDetector {
	return &SmellDetector{loader: loader}
}

func (d *SmellDetector) Smells(ctx context.Context, snap *domain.Snapshot, id domain.DocumentID, profile domain.DetectionProfile) ([]domain.CodeSmell, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := d.loader.Load(snap, id)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", id, err)
	}

	file := string(id)
	var smells []domain.CodeSmell
	for _, fd := range syntax.Funcs(u.File) {
		smells = append(smells, funcSmells(file, syntax.FuncName(fd), metrics.Func(u.Fset, fd), profile)...)
		smells = append(smells, conditionalSmells(u, file, fd, profile)...)
	}
	for _, c := range u.Classes() {
		if sm, ok := classSmell(u, file, c, profile); ok {
			smells = append(smells, sm)
		}
	}
	return smells, nil
}

// band grades a value over its limit: up to twice the limit is medium,
// beyond that high.
func band(value, limit int) domain.Severity {
	if value > limit*2 {
		return domain.SeverityHigh
	}
	return domain.SeverityMedium
}

func funcSmells(file, target string, m metrics.FuncMetrics, p domain.DetectionProfile) []domain.CodeSmell {
	loc := domain.Span{File: file, StartLine: m.StartLine, EndLine: m.EndLine}
	smell := func(t domain.SmellType, sev domain.Severity, msg string, key string, value int) domain.CodeSmell {
		return domain.CodeSmell{
			Type:     t,
			Severity: sev,
			Location: loc,
			Target:   target,
			Message:  msg,
			Metrics:  map[string]any{key: value, "cyclomatic": m.Cyclomatic, "cognitive": m.Cognitive},
		}
	}

	var out []domain.CodeSmell
	if m.Lines > p.MaxFunctionLines {
		out = append(out, smell(domain.SmellLongMethod, band(m.Lines, p.MaxFunctionLines),
			fmt.Sprintf("%s is %d lines (max %d)", target, m.Lines, p.MaxFunctionLines), "lines", m.Lines))
	}
	if m.Params > p.MaxParameters {
		out = append(out, smell(domain.SmellTooManyParameters, band(m.Params, p.MaxParameters),
			fmt.Sprintf("%s takes %d parameters (max %d)", target, m.Params, p.MaxParameters), "params", m.Params))
	}
	if m.MaxNesting > p.MaxNestingDepth {
		sev := domain.SeverityHigh
		if m.MaxNesting == p.MaxNestingDepth+1 {
			sev = domain.SeverityMedium
		}
		out = append(out, smell(domain.SmellDeepNesting, sev,
			fmt.Sprintf("%s nests %d levels deep (max %d)", target, m.MaxNesting, p.MaxNestingDepth), "nesting", m.MaxNesting))
	}
	if m.MaxCondOps > p.MaxConditionalOps {
		out = append(out, smell(domain.SmellComplexConditional, band(m.MaxCondOps, p.MaxConditionalOps),
			fmt.Sprintf("%s has a condition with %d logical operators (max %d)", target, m.MaxCondOps, p.MaxConditionalOps), "operators", m.MaxCondOps))
	}
	return out
}

// conditionalSmells reports oversized switches and long if/else-if chains,
// one smell per function.
func conditionalSmells(u *syntax.Unit, file string, fd *ast.FuncDecl, p domain.DetectionProfile) []domain.CodeSmell {
	cases, arms := 0, 0
	elseIfs := map[*ast.IfStmt]bool{}
	ast.Inspect(fd.Body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.SwitchStmt:
			cases = max(cases, len(x.Body.List))
		case *ast.TypeSwitchStmt:
			cases = max(cases, len(x.Body.List))
		case *ast.IfStmt:
			if elseIfs[x] {
				return true
			}
			count := 1
			for cur := x; ; count++ {
				next, ok := cur.Else.(*ast.IfStmt)
				if !ok {
					break
				}
				elseIfs[next] = true
				cur = next
			}
			arms = max(arms, count)
		}
		return true
	})

	target := syntax.FuncName(fd)
	loc := domain.Span{File: file, StartLine: u.Line(fd.Pos()), EndLine: u.Line(fd.End())}
	switch {
	case cases > p.MaxSwitchCases:
		return []domain.CodeSmell{{
			Type:     domain.SmellSwitchStatement,
			Severity: band(cases, p.MaxSwitchCases),
			Location: loc,
			Target:   target,
			Message:  fmt.Sprintf("%s has a switch with %d cases (max %d)", target, cases, p.MaxSwitchCases),
			Metrics:  map[string]any{"cases": cases},
		}}
	case arms >= minChainArms:
		return []domain.CodeSmell{{
			Type:     domain.SmellSwitchStatement,
			Severity: domain.SeverityLow,
			Location: loc,
			Target:   target,
			Message:  fmt.Sprintf("%s has an if/else-if chain with %d arms", target, arms),
			Metrics:  map[string]any{"arms": arms},
		}}
	}
	return nil
}

// classSmell reports a struct over both size limits as a god class and a
// struct over one of them as a large class.
func classSmell(u *syntax.Unit, file string, c syntax.Class, p domain.DetectionProfile) (domain.CodeSmell, bool) {
	methods, fields := len(c.AllMethods()), len(c.FieldNames())
	overMethods, overFields := methods > p.MaxMethods, fields > p.MaxFields

	sm := domain.CodeSmell{
		Location: domain.Span{File: file, StartLine: u.Line(c.Spec.Pos()), EndLine: u.Line(c.Spec.End())},
		Target:   c.Name,
		Metrics:  map[string]any{"methods": methods, "fields": fields},
	}
	switch {
	case overMethods && overFields:
		sm.Type = domain.SmellGodClass
		sm.Severity = domain.SeverityHigh
		if methods > p.MaxMethods*2 {
			sm.Severity = domain.SeverityCritical
		}
		sm.Message = fmt.Sprintf("%s has %d methods and %d fields", c.Name, methods, fields)
	case overMethods:
		sm.Type = domain.SmellLargeClass
		sm.Severity = band(methods, p.MaxMethods)
		sm.Message = fmt.Sprintf("%s has %d methods (max %d)", c.Name, methods, p.MaxMethods)
	case overFields:
		sm.Type = domain.SmellLargeClass
		sm.Severity = band(fields, p.MaxFields)
		sm.Message = fmt.Sprintf("%s has %d fields (max %d)", c.Name, fields, p.MaxFields)
	default:
		return domain.CodeSmell{}, false
	}
	return sm, true
}
