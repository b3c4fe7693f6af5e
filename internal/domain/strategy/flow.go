package strategy

import (
	"go/ast"
	"go/token"
	"go/types"

	"github.com/reforge/reforge/internal/domain/syntax"
)

// escapingBranches returns the branch statements under root whose target
// lies outside root. Labelled branches, goto and fallthrough always count.
// Function literals are not entered.
func escapingBranches(root ast.Node) []*ast.BranchStmt {
	var out []*ast.BranchStmt
	var visit func(n ast.Node, loops, breakables int)
	visit = func(n ast.Node, loops, breakables int) {
		switch n.(type) {
		case *ast.ForStmt, *ast.RangeStmt:
			loops++
			breakables++
		case *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
			breakables++
		}
		ast.Inspect(n, func(c ast.Node) bool {
			if c == n {
				return true
			}
			switch x := c.(type) {
			case *ast.FuncLit:
				return false
			case *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt:
				visit(x, loops, breakables)
				return false
			case *ast.BranchStmt:
				switch {
				case x.Label != nil, x.Tok == token.GOTO, x.Tok == token.FALLTHROUGH:
					out = append(out, x)
				case x.Tok == token.BREAK && breakables == 0:
					out = append(out, x)
				case x.Tok == token.CONTINUE && loops == 0:
					out = append(out, x)
				}
			}
			return true
		})
	}
	visit(root, 0, 0)
	return out
}

// hasUnenclosedBreak reports whether a break under root would bind to a
// construct outside it.
func hasUnenclosedBreak(root ast.Node) bool {
	for _, b := range escapingBranches(root) {
		if b.Tok == token.BREAK && b.Label == nil {
			return true
		}
	}
	return false
}

// containsOutsideClosures reports whether match holds for any node under
// root, not counting function literals.
func containsOutsideClosures(root ast.Node, match func(ast.Node) bool) bool {
	found := false
	ast.Inspect(root, func(n ast.Node) bool {
		if found {
			return false
		}
		if _, ok := n.(*ast.FuncLit); ok {
			return false
		}
		if n != nil && match(n) {
			found = true
			return false
		}
		return true
	})
	return found
}

// terminates reports whether a block always leaves its enclosing statement
// list through its last statement.
func terminates(b *ast.BlockStmt) bool {
	if b == nil || len(b.List) == 0 {
		return false
	}
	switch s := b.List[len(b.List)-1].(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.BranchStmt:
		return s.Tok != token.FALLTHROUGH
	case *ast.ExprStmt:
		call, ok := s.X.(*ast.CallExpr)
		if !ok {
			return false
		}
		id, ok := call.Fun.(*ast.Ident)
		return ok && id.Name == "panic"
	case *ast.BlockStmt:
		return terminates(s)
	case *ast.IfStmt:
		els, ok := s.Else.(*ast.BlockStmt)
		return ok && terminates(s.Body) && terminates(els)
	}
	return false
}

// declaredNames returns the names the statements of one list declare in the
// list's own scope.
func declaredNames(list []ast.Stmt) map[string]bool {
	names := map[string]bool{}
	for _, s := range list {
		switch x := s.(type) {
		case *ast.AssignStmt:
			if x.Tok != token.DEFINE {
				continue
			}
			for _, lhs := range x.Lhs {
				if id, ok := lhs.(*ast.Ident); ok && id.Name != "_" {
					names[id.Name] = true
				}
			}
		case *ast.DeclStmt:
			gd, ok := x.Decl.(*ast.GenDecl)
			if !ok {
				continue
			}
			for _, spec := range gd.Specs {
				switch sp := spec.(type) {
				case *ast.ValueSpec:
					for _, id := range sp.Names {
						if id.Name != "_" {
							names[id.Name] = true
						}
					}
				case *ast.TypeSpec:
					names[sp.Name.Name] = true
				}
			}
		}
	}
	return names
}

// signatureNames returns the receiver, parameter and result names of fd,
// which share the scope of the function body.
func signatureNames(fd *ast.FuncDecl) map[string]bool {
	names := map[string]bool{}
	for _, fl := range []*ast.FieldList{fd.Recv, fd.Type.Params, fd.Type.Results} {
		if fl == nil {
			continue
		}
		for _, f := range fl.List {
			for _, id := range f.Names {
				names[id.Name] = true
			}
		}
	}
	return names
}

// mentions reports whether any identifier under the statements is named in
// names.
func mentions(list []ast.Stmt, names map[string]bool) bool {
	for _, s := range list {
		found := false
		ast.Inspect(s, func(n ast.Node) bool {
			if id, ok := n.(*ast.Ident); ok && names[id.Name] {
				found = true
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

func intersects(a, b map[string]bool) bool {
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

// statementLists calls fn for every statement list under root: block
// bodies, case clauses and select clauses.
func statementLists(root ast.Node, fn func(list []ast.Stmt)) {
	ast.Inspect(root, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.BlockStmt:
			fn(x.List)
		case *ast.CaseClause:
			fn(x.Body)
		case *ast.CommClause:
			fn(x.Body)
		}
		return true
	})
}

var inverted = map[token.Token]token.Token{
	token.EQL: token.NEQ,
	token.NEQ: token.EQL,
	token.LSS: token.GEQ,
	token.GEQ: token.LSS,
	token.GTR: token.LEQ,
	token.LEQ: token.GTR,
}

// negate renders the logical negation of cond. Ordered comparisons are only
// inverted for non-float operands, where the inversion is exact.
func negate(u *syntax.Unit, cond ast.Expr) string {
	switch x := cond.(type) {
	case *ast.ParenExpr:
		return negate(u, x.X)
	case *ast.UnaryExpr:
		if x.Op == token.NOT {
			return u.Text(x.X)
		}
	case *ast.BinaryExpr:
		if inv, ok := inverted[x.Op]; ok && (x.Op == token.EQL || x.Op == token.NEQ || !isFloat(u.TypeOf(x.X))) {
			return u.Text(x.X) + " " + inv.String() + " " + u.Text(x.Y)
		}
	case *ast.Ident, *ast.CallExpr, *ast.SelectorExpr, *ast.IndexExpr:
		return "!" + u.Text(cond)
	}
	return "!(" + u.Text(cond) + ")"
}

func isFloat(t types.Type) bool {
	if t == nil {
		return true
	}
	b, ok := t.Underlying().(*types.Basic)
	return ok && b.Info()&(types.IsFloat|types.IsComplex) != 0
}

// isPlainBool reports whether t is the predeclared bool or an untyped
// boolean. Unknown types count as plain.
func isPlainBool(t types.Type) bool {
	if t == nil {
		return true
	}
	return types.Identical(t, types.Typ[types.Bool]) || types.Identical(t, types.Typ[types.UntypedBool])
}

// rootIdent strips selectors, indexes, dereferences and parentheses from an
// addressable expression.
func rootIdent(e ast.Expr) *ast.Ident {
	for {
		switch x := e.(type) {
		case *ast.Ident:
			return x
		case *ast.SelectorExpr:
			e = x.X
		case *ast.IndexExpr:
			e = x.X
		case *ast.StarExpr:
			e = x.X
		case *ast.ParenExpr:
			e = x.X
		default:
			return nil
		}
	}
}

// sharesStorage reports whether writes through a value of type t are
// visible to other holders of the same value.
func sharesStorage(t types.Type) bool {
	if t == nil {
		return false
	}
	switch t.Underlying().(type) {
	case *types.Pointer, *types.Map, *types.Slice, *types.Chan, *types.Interface:
		return true
	}
	return false
}
