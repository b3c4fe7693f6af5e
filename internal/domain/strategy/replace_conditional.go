package strategy

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// minSwitchArms is the shortest if/else-if chain turned into a switch.
const minSwitchArms = 3

// ReplaceConditional rewrites an if/else-if chain that compares one operand
// against distinct constants into a tagged switch.
type ReplaceConditional struct{}

func NewReplaceConditional() *ReplaceConditional { return &ReplaceConditional{} }

func (*ReplaceConditional) Type() domain.RefactoringType { return domain.ReplaceConditional }

func (*ReplaceConditional) Addresses() []domain.SmellType {
	return []domain.SmellType{domain.SmellSwitchStatement, domain.SmellComplexConditional, domain.SmellDeepNesting}
}

func (r *ReplaceConditional) CanApply(u *syntax.Unit, smell domain.CodeSmell) bool {
	return len(findChains(u, smell)) > 0
}

// Apply rewrites every qualifying chain in the targeted functions.
func (r *ReplaceConditional) Apply(u *syntax.Unit, smell domain.CodeSmell) ([]byte, error) {
	chains := findChains(u, smell)
	if len(chains) == 0 {
		return nil, notApplicable(r.Type(), smell)
	}
	edits := make([]syntax.Edit, 0, len(chains))
	for _, ch := range chains {
		edits = append(edits, u.Replace(ch.stmt, ch.render(u)))
	}
	out, err := syntax.ApplyEdits(u.Document.Source, edits)
	if err != nil {
		return nil, fmt.Errorf("replacing conditionals in %s: %w", smell.Target, err)
	}
	return out, nil
}

func (r *ReplaceConditional) EstimateImprovement(u *syntax.Unit, smell domain.CodeSmell) (domain.Estimate, error) {
	chains := findChains(u, smell)
	if len(chains) == 0 {
		return domain.Estimate{}, notApplicable(r.Type(), smell)
	}
	arms := 0
	for _, ch := range chains {
		arms += len(ch.arms) - 1
	}
	return domain.Estimate{
		ComplexityImprovement: float64(arms),
		Description:           fmt.Sprintf("replace %d if/else-if chain(s) with switch", len(chains)),
	}, nil
}

type switchArm struct {
	values []ast.Expr
	body   *ast.BlockStmt
}

type conditionalChain struct {
	stmt     *ast.IfStmt
	tag      ast.Expr
	arms     []switchArm
	fallback *ast.BlockStmt
}

func (ch conditionalChain) render(u *syntax.Unit) string {
	var b strings.Builder
	b.WriteString("switch " + u.Text(ch.tag) + " {\n")
	for _, arm := range ch.arms {
		values := make([]string, len(arm.values))
		for i, v := range arm.values {
			values[i] = u.Text(v)
		}
		b.WriteString("case " + strings.Join(values, ", ") + ":" + u.BlockBody(arm.body) + "\n")
	}
	if ch.fallback != nil {
		b.WriteString("default:" + u.BlockBody(ch.fallback) + "\n")
	}
	b.WriteString("}")
	return b.String()
}

// findChains returns the outermost qualifying chains of the targeted
// functions. Chains nested in another chain are left for a later pass.
func findChains(u *syntax.Unit, smell domain.CodeSmell) []conditionalChain {
	var out []conditionalChain
	for _, fd := range targetFuncs(u, smell) {
		var found []conditionalChain
		statementLists(fd.Body, func(list []ast.Stmt) {
			for _, s := range list {
				ifs, ok := s.(*ast.IfStmt)
				if !ok {
					continue
				}
				if ch, ok := ifChain(u, ifs); ok && !nestedIn(ch, found) {
					found = append(found, ch)
				}
			}
		})
		out = append(out, found...)
	}
	return out
}

func nestedIn(ch conditionalChain, outer []conditionalChain) bool {
	for _, o := range outer {
		if o.stmt.Pos() <= ch.stmt.Pos() && ch.stmt.End() <= o.stmt.End() {
			return true
		}
	}
	return false
}

func ifChain(u *syntax.Unit, first *ast.IfStmt) (conditionalChain, bool) {
	ch := conditionalChain{stmt: first}
	seen := map[string]bool{}
	for cur := first; cur != nil; {
		if cur.Init != nil || hasUnenclosedBreak(cur.Body) {
			return conditionalChain{}, false
		}
		tag, values, ok := equalityArm(u, cur.Cond)
		if !ok {
			return conditionalChain{}, false
		}
		if ch.tag == nil {
			ch.tag = tag
		} else if u.Text(tag) != u.Text(ch.tag) {
			return conditionalChain{}, false
		}
		for _, v := range values {
			key := constKey(u, v)
			if seen[key] {
				return conditionalChain{}, false
			}
			seen[key] = true
		}
		ch.arms = append(ch.arms, switchArm{values: values, body: cur.Body})

		switch els := cur.Else.(type) {
		case *ast.IfStmt:
			cur = els
		case *ast.BlockStmt:
			if hasUnenclosedBreak(els) {
				return conditionalChain{}, false
			}
			ch.fallback = els
			cur = nil
		default:
			cur = nil
		}
	}
	return ch, len(ch.arms) >= minSwitchArms
}

// equalityArm matches "x == c" or a disjunction of such comparisons on the
// same operand, where every c is a constant and x has no side effects.
func equalityArm(u *syntax.Unit, cond ast.Expr) (ast.Expr, []ast.Expr, bool) {
	cond = ast.Unparen(cond)
	bin, ok := cond.(*ast.BinaryExpr)
	if !ok {
		return nil, nil, false
	}
	switch bin.Op {
	case token.LOR:
		lt, lv, ok := equalityArm(u, bin.X)
		if !ok {
			return nil, nil, false
		}
		rt, rv, ok := equalityArm(u, bin.Y)
		if !ok || u.Text(lt) != u.Text(rt) {
			return nil, nil, false
		}
		return lt, append(lv, rv...), true
	case token.EQL:
		x, y := bin.X, bin.Y
		if isConstant(u, x) {
			x, y = y, x
		}
		if !isConstant(u, y) || isConstant(u, x) || !pure(x) {
			return nil, nil, false
		}
		return x, []ast.Expr{y}, true
	}
	return nil, nil, false
}

func isConstant(u *syntax.Unit, e ast.Expr) bool {
	if tv, ok := u.Info.Types[e]; ok {
		return tv.Value != nil
	}
	_, ok := ast.Unparen(e).(*ast.BasicLit)
	return ok
}

// pure reports whether evaluating e more than once is indistinguishable from
// evaluating it once.
func pure(e ast.Expr) bool {
	switch x := e.(type) {
	case *ast.Ident:
		return true
	case *ast.SelectorExpr:
		return pure(x.X)
	case *ast.ParenExpr:
		return pure(x.X)
	}
	return false
}

func constKey(u *syntax.Unit, e ast.Expr) string {
	if tv, ok := u.Info.Types[e]; ok && tv.Value != nil {
		return tv.Value.ExactString()
	}
	return u.Text(e)
}
