package scoring

import (
	"go/ast"
	"go/types"
	"path"
	"strings"

	"github.com/reforge/reforge/internal/domain/syntax"
)

// utilityPackages may be called freely without hurting testability.
var utilityPackages = toSet(
	"strings", "strconv", "fmt", "errors", "math", "sort", "bytes",
	"unicode", "utf8", "slices", "maps", "time", "context", "sync",
	"atomic", "filepath", "path",
)

// Testability scores how easy the document is to exercise in isolation,
// from 0 to 100 starting at 50: +5 per constructor taking parameters, +5 per
// interface assertion, -2 per call into a non-utility package and -5 per
// struct field initialised with an in-place construction.
func Testability(u *syntax.Unit) int {
	score := 50
	file := u.File
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && strings.HasPrefix(d.Name.Name, "New") && d.Type.Params.NumFields() > 0 {
				score += 5
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if ok && vs.Type != nil && len(vs.Names) == 1 && vs.Names[0].Name == "_" {
					score += 5
				}
			}
		}
	}

	ast.Inspect(file, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.CallExpr:
			if pkg := calledPackage(u, x); pkg != "" && !utilityPackages[pkg] {
				score -= 2
			}
		case *ast.CompositeLit:
			for _, elt := range x.Elts {
				kv, ok := elt.(*ast.KeyValueExpr)
				if ok && isConstruction(kv.Value) && isStructLit(u, x) {
					score -= 5
				}
			}
		}
		return true
	})
	return clampInt(score, 0, 100)
}

// calledPackage returns the base import path of a pkg.Func call, or "".
func calledPackage(u *syntax.Unit, call *ast.CallExpr) string {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return ""
	}
	id, ok := sel.X.(*ast.Ident)
	if !ok {
		return ""
	}
	if obj, ok := u.Info.Uses[id].(*types.PkgName); ok {
		return path.Base(obj.Imported().Path())
	}
	if u.Info.Uses[id] != nil {
		return ""
	}
	// Unresolved: fall back to the file's import names.
	for _, imp := range u.File.Imports {
		p := strings.Trim(imp.Path.Value, `"`)
		name := path.Base(p)
		if imp.Name != nil {
			name = imp.Name.Name
		}
		if name == id.Name {
			return path.Base(p)
		}
	}
	return ""
}

func isConstruction(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.UnaryExpr:
		return isConstruction(v.X)
	case *ast.CompositeLit:
		return isNamedType(v.Type)
	case *ast.CallExpr:
		switch fn := v.Fun.(type) {
		case *ast.Ident:
			return strings.HasPrefix(fn.Name, "New")
		case *ast.SelectorExpr:
			return strings.HasPrefix(fn.Sel.Name, "New")
		}
	}
	return false
}

func isNamedType(e ast.Expr) bool {
	switch e.(type) {
	case *ast.Ident, *ast.SelectorExpr:
		return true
	}
	return false
}

func isStructLit(u *syntax.Unit, lit *ast.CompositeLit) bool {
	t := u.TypeOf(lit)
	if t == nil {
		return isNamedType(lit.Type)
	}
	_, ok := t.Underlying().(*types.Struct)
	return ok
}
