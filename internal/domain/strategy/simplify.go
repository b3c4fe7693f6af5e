package strategy

import (
	"fmt"
	"go/ast"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// maxSimplifications bounds the rewrite loop of a single Apply.
const maxSimplifications = 32

// SimplifyMethod flattens control flow inside a function: it drops else
// branches after terminating ifs, collapses boolean if/return pairs and
// turns a trailing if in a function without results into a guard clause.
type SimplifyMethod struct{}

func NewSimplifyMethod() *SimplifyMethod { return &SimplifyMethod{} }

func (*SimplifyMethod) Type() domain.RefactoringType { return domain.SimplifyMethod }

func (*SimplifyMethod) Addresses() []domain.SmellType {
	return []domain.SmellType{domain.SmellLongMethod, domain.SmellDeepNesting, domain.SmellComplexConditional}
}

func (s *SimplifyMethod) CanApply(u *syntax.Unit, smell domain.CodeSmell) bool {
	for _, fd := range targetFuncs(u, smell) {
		if len(simplifications(u, fd)) > 0 {
			return true
		}
	}
	return false
}

// Apply rewrites one site at a time, re-reading the document after each
// edit, until the targeted functions have nothing left to simplify.
func (s *SimplifyMethod) Apply(u *syntax.Unit, smell domain.CodeSmell) ([]byte, error) {
	targets := map[string]bool{}
	for _, fd := range targetFuncs(u, smell) {
		targets[syntax.FuncName(fd)] = true
	}

	cur, changed := u, false
	for i := 0; i < maxSimplifications; i++ {
		edit, ok := nextSimplification(cur, targets)
		if !ok {
			break
		}
		out, err := syntax.ApplyEdits(cur.Document.Source, []syntax.Edit{edit})
		if err != nil {
			return nil, fmt.Errorf("simplifying %s: %w", smell.Target, err)
		}
		next, err := cur.WithSource(out)
		if err != nil {
			return nil, fmt.Errorf("simplifying %s: %w", smell.Target, err)
		}
		cur, changed = next, true
	}
	if !changed {
		return nil, notApplicable(s.Type(), smell)
	}
	return cur.Document.Source, nil
}

func (s *SimplifyMethod) EstimateImprovement(u *syntax.Unit, smell domain.CodeSmell) (domain.Estimate, error) {
	sites := 0
	for _, fd := range targetFuncs(u, smell) {
		sites += len(simplifications(u, fd))
	}
	if sites == 0 {
		return domain.Estimate{}, notApplicable(s.Type(), smell)
	}
	return domain.Estimate{
		ComplexityImprovement: float64(sites),
		Description:           fmt.Sprintf("flatten %d branch site(s) in %s", sites, smell.Target),
	}, nil
}

func nextSimplification(u *syntax.Unit, targets map[string]bool) (syntax.Edit, bool) {
	for _, fd := range syntax.Funcs(u.File) {
		if !targets[syntax.FuncName(fd)] {
			continue
		}
		if edits := simplifications(u, fd); len(edits) > 0 {
			return edits[0], true
		}
	}
	return syntax.Edit{}, false
}

// simplifications lists every rewrite available in fd. Edits may overlap;
// callers apply one at a time.
func simplifications(u *syntax.Unit, fd *ast.FuncDecl) []syntax.Edit {
	var edits []syntax.Edit
	statementLists(fd.Body, func(list []ast.Stmt) {
		scope := declaredNames(list)
		if sameList(list, fd.Body.List) {
			for name := range signatureNames(fd) {
				scope[name] = true
			}
		}
		for i, stmt := range list {
			ifs, ok := stmt.(*ast.IfStmt)
			if !ok || ifs.Init != nil {
				continue
			}
			if e, ok := dropElse(u, ifs, list[i+1:], scope); ok {
				edits = append(edits, e)
			}
			if i+1 < len(list) {
				if e, ok := collapseBoolReturn(u, ifs, list[i+1]); ok {
					edits = append(edits, e)
				}
			}
		}
	})
	if e, ok := guardClause(u, fd); ok {
		edits = append(edits, e)
	}
	return edits
}

// dropElse turns "if c { ...; return } else { body }" into
// "if c { ...; return }; body" when hoisting body cannot change name
// resolution in the surrounding list.
func dropElse(u *syntax.Unit, ifs *ast.IfStmt, rest []ast.Stmt, scope map[string]bool) (syntax.Edit, bool) {
	if ifs.Else == nil || !terminates(ifs.Body) {
		return syntax.Edit{}, false
	}
	start := u.Offset(ifs.Body.End())
	switch els := ifs.Else.(type) {
	case *ast.IfStmt:
		return syntax.Edit{Start: start, End: u.Offset(els.Pos()), Text: "\n"}, true
	case *ast.BlockStmt:
		hoisted := declaredNames(els.List)
		if intersects(hoisted, scope) || mentions(rest, hoisted) {
			return syntax.Edit{}, false
		}
		return syntax.Edit{Start: start, End: u.Offset(els.End()), Text: "\n" + u.BlockBody(els)}, true
	}
	return syntax.Edit{}, false
}

// collapseBoolReturn turns "if c { return true }; return false" into
// "return c", and the inverted pair into "return !c".
func collapseBoolReturn(u *syntax.Unit, ifs *ast.IfStmt, next ast.Stmt) (syntax.Edit, bool) {
	if ifs.Else != nil || len(ifs.Body.List) != 1 {
		return syntax.Edit{}, false
	}
	first, ok := boolReturn(u, ifs.Body.List[0])
	if !ok {
		return syntax.Edit{}, false
	}
	second, ok := boolReturn(u, next)
	if !ok || first == second || !isPlainBool(u.TypeOf(ifs.Cond)) {
		return syntax.Edit{}, false
	}
	result := u.Text(ifs.Cond)
	if !first {
		result = negate(u, ifs.Cond)
	}
	return syntax.Edit{Start: u.Offset(ifs.Pos()), End: u.Offset(next.End()), Text: "return " + result}, true
}

// boolReturn matches "return true" or "return false" returning the
// predeclared bool.
func boolReturn(u *syntax.Unit, s ast.Stmt) (bool, bool) {
	ret, ok := s.(*ast.ReturnStmt)
	if !ok || len(ret.Results) != 1 {
		return false, false
	}
	id, ok := ret.Results[0].(*ast.Ident)
	if !ok || (id.Name != "true" && id.Name != "false") {
		return false, false
	}
	if !isPlainBool(u.TypeOf(id)) {
		return false, false
	}
	return id.Name == "true", true
}

// guardClause inverts the trailing if of a function without results:
// "if c { body }" at the end becomes "if !c { return }; body".
func guardClause(u *syntax.Unit, fd *ast.FuncDecl) (syntax.Edit, bool) {
	if fd.Type.Results.NumFields() != 0 || len(fd.Body.List) == 0 {
		return syntax.Edit{}, false
	}
	ifs, ok := fd.Body.List[len(fd.Body.List)-1].(*ast.IfStmt)
	if !ok || ifs.Init != nil || ifs.Else != nil || len(ifs.Body.List) < 2 {
		return syntax.Edit{}, false
	}
	scope := declaredNames(fd.Body.List)
	for name := range signatureNames(fd) {
		scope[name] = true
	}
	if intersects(declaredNames(ifs.Body.List), scope) {
		return syntax.Edit{}, false
	}
	if containsOutsideClosures(ifs.Body, func(n ast.Node) bool {
		_, ok := n.(*ast.LabeledStmt)
		return ok
	}) {
		return syntax.Edit{}, false
	}
	text := "if " + negate(u, ifs.Cond) + " {\nreturn\n}\n" + u.BlockBody(ifs.Body)
	return u.Replace(ifs, text), true
}

func sameList(a, b []ast.Stmt) bool {
	return len(a) > 0 && len(a) == len(b) && &a[0] == &b[0]
}
