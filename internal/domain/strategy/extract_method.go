package strategy

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strings"
	"unicode"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/metrics"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// minExtractLines is the smallest statement worth moving out.
const minExtractLines = 3

// ExtractMethod moves the largest self-contained compound statement of the
// targeted function into a new function or method. Free locals of the
// statement become parameters.
type ExtractMethod struct{}

func NewExtractMethod() *ExtractMethod { return &ExtractMethod{} }

func (*ExtractMethod) Type() domain.RefactoringType { return domain.ExtractMethod }

func (*ExtractMethod) Addresses() []domain.SmellType {
	return []domain.SmellType{domain.SmellLongMethod, domain.SmellGodClass, domain.SmellLargeClass, domain.SmellDeepNesting}
}

func (e *ExtractMethod) CanApply(u *syntax.Unit, smell domain.CodeSmell) bool {
	_, ok := planMethodExtraction(u, smell)
	return ok
}

func (e *ExtractMethod) Apply(u *syntax.Unit, smell domain.CodeSmell) ([]byte, error) {
	p, ok := planMethodExtraction(u, smell)
	if !ok {
		return nil, notApplicable(e.Type(), smell)
	}
	out, err := syntax.ApplyEdits(u.Document.Source, p.edits(u))
	if err != nil {
		return nil, fmt.Errorf("extracting %s from %s: %w", p.name, syntax.FuncName(p.fn), err)
	}
	return out, nil
}

func (e *ExtractMethod) EstimateImprovement(u *syntax.Unit, smell domain.CodeSmell) (domain.Estimate, error) {
	p, ok := planMethodExtraction(u, smell)
	if !ok {
		return domain.Estimate{}, notApplicable(e.Type(), smell)
	}
	return domain.Estimate{
		ComplexityImprovement: float64(metrics.Cyclomatic(p.stmt)),
		Description:           fmt.Sprintf("move %d lines of %s into %s", p.lines, syntax.FuncName(p.fn), p.name),
	}, nil
}

type methodExtraction struct {
	fn      *ast.FuncDecl
	stmt    ast.Stmt
	lines   int
	params  []*types.Var
	useRecv bool
	name    string
}

func (p methodExtraction) edits(u *syntax.Unit) []syntax.Edit {
	args := make([]string, len(p.params))
	params := make([]string, len(p.params))
	qual := u.Qualifier()
	for i, v := range p.params {
		args[i] = v.Name()
		params[i] = v.Name() + " " + types.TypeString(v.Type(), qual)
	}

	call := p.name + "(" + strings.Join(args, ", ") + ")"
	header := "func " + p.name
	if p.useRecv {
		call = syntax.ReceiverIdent(p.fn).Name + "." + call
		header = "func (" + u.Text(p.fn.Recv.List[0]) + ") " + p.name
	}

	body := u.Text(p.stmt)
	if b, ok := p.stmt.(*ast.BlockStmt); ok {
		body = u.BlockBody(b)
	}
	decl := "\n\n" + header + "(" + strings.Join(params, ", ") + ") {\n" + body + "\n}"

	return []syntax.Edit{
		u.Replace(p.stmt, call),
		u.InsertAt(p.fn.End(), decl),
	}
}

func planMethodExtraction(u *syntax.Unit, smell domain.CodeSmell) (methodExtraction, bool) {
	for _, fd := range targetFuncs(u, smell) {
		if fd.Type.TypeParams != nil || (fd.Recv != nil && syntax.ReceiverIdent(fd) == nil) {
			continue
		}
		var best methodExtraction
		for _, stmt := range compoundStatements(fd) {
			lines := u.Line(stmt.End()) - u.Line(stmt.Pos()) + 1
			if lines < minExtractLines || lines <= best.lines || !selfContained(stmt) {
				continue
			}
			params, ok := freeLocals(u, fd, stmt)
			if !ok {
				continue
			}
			// Code lifted out of a method stays a method on the same receiver.
			best = methodExtraction{fn: fd, stmt: stmt, lines: lines, params: params, useRecv: syntax.ReceiverIdent(fd) != nil}
		}
		if best.stmt != nil {
			best.name = syntax.FreshName("run"+exportedName(fd.Name.Name)+"Step", u.UsedNames())
			return best, true
		}
	}
	return methodExtraction{}, false
}

// compoundStatements returns the block-structured statements of fd that sit
// directly in a statement list, excluding a sole top-level statement.
func compoundStatements(fd *ast.FuncDecl) []ast.Stmt {
	var out []ast.Stmt
	statementLists(fd.Body, func(list []ast.Stmt) {
		if sameList(list, fd.Body.List) && len(list) == 1 {
			return
		}
		for _, s := range list {
			switch s.(type) {
			case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt, *ast.SwitchStmt,
				*ast.TypeSwitchStmt, *ast.SelectStmt, *ast.BlockStmt:
				out = append(out, s)
			}
		}
	})
	return out
}

// selfContained reports whether control can only leave stmt by falling off
// its end.
func selfContained(stmt ast.Stmt) bool {
	if len(escapingBranches(stmt)) > 0 {
		return false
	}
	return !containsOutsideClosures(stmt, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.ReturnStmt, *ast.DeferStmt, *ast.GoStmt, *ast.LabeledStmt:
			return true
		}
		return false
	})
}

// freeLocals returns the locals of fd that stmt reads but does not declare,
// in order of first use. The receiver is never a parameter. It fails when
// stmt writes to a free local in a way the extracted copy would not
// propagate, when it names a constant or type declared in fd outside stmt,
// or when a parameter type cannot be spelled in this file.
func freeLocals(u *syntax.Unit, fd *ast.FuncDecl, stmt ast.Stmt) ([]*types.Var, bool) {
	var recvObj types.Object
	if id := syntax.ReceiverIdent(fd); id != nil {
		recvObj = u.Info.Defs[id]
	}
	declaredOutside := func(obj types.Object) bool {
		return fd.Pos() <= obj.Pos() && obj.Pos() < fd.End() &&
			!(stmt.Pos() <= obj.Pos() && obj.Pos() < stmt.End())
	}
	outer := func(v *types.Var) bool {
		return v != nil && !v.IsField() && declaredOutside(v)
	}

	var params []*types.Var
	seen := map[*types.Var]bool{}
	ok := true
	ast.Inspect(stmt, func(n ast.Node) bool {
		id, isIdent := n.(*ast.Ident)
		if !isIdent {
			return true
		}
		switch obj := u.Info.Uses[id].(type) {
		case *types.Const, *types.TypeName:
			if declaredOutside(obj) {
				ok = false
			}
			return ok
		}
		v, _ := u.Info.Uses[id].(*types.Var)
		if !outer(v) {
			return true
		}
		if !seen[v] && types.Object(v) != recvObj {
			seen[v] = true
			params = append(params, v)
		}
		return true
	})

	lost := func(target ast.Expr) bool {
		root := rootIdent(target)
		if root == nil {
			return false
		}
		v, _ := u.Info.Uses[root].(*types.Var)
		if !outer(v) {
			return false
		}
		if ast.Expr(root) == ast.Unparen(target) {
			return true
		}
		return !sharesStorage(v.Type())
	}
	ast.Inspect(stmt, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.AssignStmt:
			for _, lhs := range x.Lhs {
				if lost(lhs) {
					ok = false
				}
			}
		case *ast.IncDecStmt:
			if lost(x.X) {
				ok = false
			}
		case *ast.RangeStmt:
			if x.Tok == token.ASSIGN && ((x.Key != nil && lost(x.Key)) || (x.Value != nil && lost(x.Value))) {
				ok = false
			}
		case *ast.UnaryExpr:
			if x.Op == token.AND && lost(x.X) {
				ok = false
			}
		case *ast.SelectorExpr:
			if addressedReceiver(u, x) && lost(x.X) {
				ok = false
			}
		}
		return ok
	})
	if !ok {
		return nil, false
	}

	for _, v := range params {
		if !spellable(u, v.Type()) {
			return nil, false
		}
	}
	return params, true
}

// addressedReceiver reports whether sel calls a pointer method on an
// addressable value, which takes the value's address implicitly.
func addressedReceiver(u *syntax.Unit, sel *ast.SelectorExpr) bool {
	s := u.Info.Selections[sel]
	if s == nil || s.Kind() != types.MethodVal {
		return false
	}
	sig, ok := s.Obj().Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return false
	}
	if _, ptr := sig.Recv().Type().(*types.Pointer); !ptr {
		return false
	}
	_, ptrX := s.Recv().Underlying().(*types.Pointer)
	return !ptrX
}

// spellable reports whether t can be written in the unit's file: it is
// valid and every package it mentions is imported there.
func spellable(u *syntax.Unit, t types.Type) bool {
	ok := true
	types.TypeString(t, func(p *types.Package) string {
		if u.Pkg != nil && p.Path() == u.Pkg.Path() {
			return ""
		}
		for _, imp := range u.File.Imports {
			if strings.Trim(imp.Path.Value, `"`) == p.Path() {
				return p.Name()
			}
		}
		ok = false
		return p.Name()
	})
	if n, isNamed := t.(*types.Named); isNamed && n.Obj().Pkg() != nil && n.Obj().Parent() != n.Obj().Pkg().Scope() {
		// Declared inside a function body.
		return false
	}
	return ok && !strings.Contains(types.TypeString(t, nil), "invalid type")
}

func exportedName(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
