// Package metrics computes complexity and size measures over Go syntax trees.
package metrics

import (
	"bytes"
	"go/ast"
	"go/token"
	"math"
)

// FuncMetrics holds the measures of one function or method.
type FuncMetrics struct {
	Name       string
	StartLine  int
	EndLine    int
	Lines      int
	Params     int
	Cyclomatic int
	Cognitive  int
	MaxNesting int
	MaxCondOps int
	Volume     float64
}

// FileMetrics aggregates the measures of one file.
type FileMetrics struct {
	Funcs           []FuncMetrics
	Cyclomatic      int
	Cognitive       int
	Lines           int
	Maintainability float64
}

// Analyze measures every function in file. src is the file text and is used
// for the non-blank line count.
func Analyze(fset *token.FileSet, file *ast.File, src []byte) FileMetrics {
	fm := FileMetrics{Lines: CodeLines(src)}
	var miSum float64
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		m := Func(fset, fd)
		fm.Funcs = append(fm.Funcs, m)
		fm.Cyclomatic += m.Cyclomatic
		fm.Cognitive += m.Cognitive
		miSum += Maintainability(m.Volume, m.Cyclomatic, m.Lines)
	}
	if len(fm.Funcs) == 0 {
		fm.Maintainability = 100
	} else {
		fm.Maintainability = miSum / float64(len(fm.Funcs))
	}
	return fm
}

// Func measures a single function declaration.
func Func(fset *token.FileSet, fd *ast.FuncDecl) FuncMetrics {
	start := fset.Position(fd.Pos()).Line
	end := fset.Position(fd.End()).Line
	name := fd.Name.Name
	if fd.Recv != nil && len(fd.Recv.List) > 0 {
		if recv := recvName(fd.Recv.List[0].Type); recv != "" {
			name = recv + "." + name
		}
	}
	return FuncMetrics{
		Name:       name,
		StartLine:  start,
		EndLine:    end,
		Lines:      end - start + 1,
		Params:     fd.Type.Params.NumFields(),
		Cyclomatic: Cyclomatic(fd.Body),
		Cognitive:  Cognitive(fd.Body),
		MaxNesting: MaxNesting(fd.Body),
		MaxCondOps: MaxCondOps(fd.Body),
		Volume:     HalsteadVolume(fd.Body),
	}
}

// Cyclomatic returns McCabe complexity: one plus the number of decision
// points.
func Cyclomatic(n ast.Node) int {
	if n == nil {
		return 1
	}
	cc := 1
	ast.Inspect(n, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt:
			cc++
		case *ast.CaseClause:
			if x.List != nil {
				cc++
			}
		case *ast.CommClause:
			if x.Comm != nil {
				cc++
			}
		case *ast.BinaryExpr:
			if x.Op == token.LAND || x.Op == token.LOR {
				cc++
			}
		}
		return true
	})
	return cc
}

// Cognitive returns a cognitive-complexity score: structural statements cost
// one plus their nesting level, else branches and label jumps cost one, and
// each run of like boolean operators costs one.
func Cognitive(body *ast.BlockStmt) int {
	if body == nil {
		return 0
	}
	w := &cognitiveWalker{}
	w.stmts(body.List, 0)
	return w.score
}

type cognitiveWalker struct{ score int }

func (w *cognitiveWalker) stmts(list []ast.Stmt, nesting int) {
	for _, s := range list {
		w.stmt(s, nesting)
	}
}

func (w *cognitiveWalker) stmt(s ast.Stmt, nesting int) {
	switch x := s.(type) {
	case *ast.IfStmt:
		w.score += 1 + nesting
		w.ifChain(x, nesting)
	case *ast.ForStmt:
		w.score += 1 + nesting
		w.expr(x.Cond)
		w.stmts(x.Body.List, nesting+1)
	case *ast.RangeStmt:
		w.score += 1 + nesting
		w.stmts(x.Body.List, nesting+1)
	case *ast.SwitchStmt:
		w.score += 1 + nesting
		w.clauses(x.Body, nesting+1)
	case *ast.TypeSwitchStmt:
		w.score += 1 + nesting
		w.clauses(x.Body, nesting+1)
	case *ast.SelectStmt:
		w.score += 1 + nesting
		w.clauses(x.Body, nesting+1)
	case *ast.BranchStmt:
		if x.Label != nil {
			w.score++
		}
	case *ast.BlockStmt:
		w.stmts(x.List, nesting)
	case *ast.LabeledStmt:
		w.stmt(x.Stmt, nesting)
	default:
		ast.Inspect(s, func(n ast.Node) bool {
			e, ok := n.(ast.Expr)
			if !ok {
				return true
			}
			w.expr(e)
			w.funcLits(e, nesting)
			return false
		})
	}
}

func (w *cognitiveWalker) funcLits(e ast.Expr, nesting int) {
	ast.Inspect(e, func(n ast.Node) bool {
		if fl, ok := n.(*ast.FuncLit); ok {
			w.stmts(fl.Body.List, nesting+1)
			return false
		}
		return true
	})
}

func (w *cognitiveWalker) ifChain(x *ast.IfStmt, nesting int) {
	w.expr(x.Cond)
	w.stmts(x.Body.List, nesting+1)
	switch e := x.Else.(type) {
	case *ast.IfStmt:
		w.score++
		w.ifChain(e, nesting)
	case *ast.BlockStmt:
		w.score++
		w.stmts(e.List, nesting+1)
	}
}

func (w *cognitiveWalker) clauses(body *ast.BlockStmt, nesting int) {
	for _, c := range body.List {
		switch cc := c.(type) {
		case *ast.CaseClause:
			w.stmts(cc.Body, nesting)
		case *ast.CommClause:
			w.stmts(cc.Body, nesting)
		}
	}
}

func (w *cognitiveWalker) expr(e ast.Expr) {
	if e == nil {
		return
	}
	w.score += boolRuns(e, token.ILLEGAL)
}

// boolRuns counts maximal sequences of the same logical operator.
func boolRuns(e ast.Expr, parent token.Token) int {
	switch x := e.(type) {
	case *ast.ParenExpr:
		return boolRuns(x.X, token.ILLEGAL)
	case *ast.UnaryExpr:
		return boolRuns(x.X, token.ILLEGAL)
	case *ast.BinaryExpr:
		if x.Op != token.LAND && x.Op != token.LOR {
			return boolRuns(x.X, token.ILLEGAL) + boolRuns(x.Y, token.ILLEGAL)
		}
		n := 0
		if x.Op != parent {
			n = 1
		}
		return n + boolRuns(x.X, x.Op) + boolRuns(x.Y, x.Op)
	case *ast.CallExpr:
		n := 0
		for _, a := range x.Args {
			n += boolRuns(a, token.ILLEGAL)
		}
		return n
	}
	return 0
}

// MaxNesting returns the deepest block nesting inside body.
func MaxNesting(body *ast.BlockStmt) int {
	if body == nil {
		return 0
	}
	return nestDepth(body.List, 0)
}

func nestDepth(list []ast.Stmt, depth int) int {
	deepest := depth
	visit := func(inner []ast.Stmt) {
		if d := nestDepth(inner, depth+1); d > deepest {
			deepest = d
		}
	}
	for _, s := range list {
		switch x := s.(type) {
		case *ast.IfStmt:
			for cur := x; cur != nil; {
				visit(cur.Body.List)
				switch e := cur.Else.(type) {
				case *ast.IfStmt:
					cur = e
					continue
				case *ast.BlockStmt:
					visit(e.List)
				}
				cur = nil
			}
		case *ast.ForStmt:
			visit(x.Body.List)
		case *ast.RangeStmt:
			visit(x.Body.List)
		case *ast.SwitchStmt:
			visit(caseBodies(x.Body))
		case *ast.TypeSwitchStmt:
			visit(caseBodies(x.Body))
		case *ast.SelectStmt:
			visit(caseBodies(x.Body))
		case *ast.BlockStmt:
			if d := nestDepth(x.List, depth); d > deepest {
				deepest = d
			}
		}
	}
	return deepest
}

func caseBodies(body *ast.BlockStmt) []ast.Stmt {
	var out []ast.Stmt
	for _, c := range body.List {
		switch cc := c.(type) {
		case *ast.CaseClause:
			out = append(out, cc.Body...)
		case *ast.CommClause:
			out = append(out, cc.Body...)
		}
	}
	return out
}

// MaxCondOps returns the largest number of && and || operators found in a
// single if or for condition.
func MaxCondOps(n ast.Node) int {
	most := 0
	ast.Inspect(n, func(n ast.Node) bool {
		var cond ast.Expr
		switch x := n.(type) {
		case *ast.IfStmt:
			cond = x.Cond
		case *ast.ForStmt:
			cond = x.Cond
		}
		if cond != nil {
			if c := CondOps(cond); c > most {
				most = c
			}
		}
		return true
	})
	return most
}

// CondOps counts the logical operators in expr.
func CondOps(expr ast.Expr) int {
	count := 0
	ast.Inspect(expr, func(n ast.Node) bool {
		if be, ok := n.(*ast.BinaryExpr); ok && (be.Op == token.LAND || be.Op == token.LOR) {
			count++
		}
		return true
	})
	return count
}

// HalsteadVolume estimates N*log2(n) from identifiers and literals as
// operands and operator tokens, calls and selectors as operators.
func HalsteadVolume(n ast.Node) float64 {
	if n == nil {
		return 0
	}
	operators := map[string]int{}
	operands := map[string]int{}
	ast.Inspect(n, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.Ident:
			operands[x.Name]++
		case *ast.BasicLit:
			operands[x.Value]++
		case *ast.BinaryExpr:
			operators[x.Op.String()]++
		case *ast.UnaryExpr:
			operators[x.Op.String()]++
		case *ast.AssignStmt:
			operators[x.Tok.String()]++
		case *ast.IncDecStmt:
			operators[x.Tok.String()]++
		case *ast.CallExpr:
			operators["()"]++
		case *ast.SelectorExpr:
			operators["."]++
		case *ast.IndexExpr:
			operators["[]"]++
		case *ast.ReturnStmt:
			operators["return"]++
		case *ast.IfStmt:
			operators["if"]++
		case *ast.ForStmt, *ast.RangeStmt:
			operators["for"]++
		case *ast.SwitchStmt, *ast.TypeSwitchStmt:
			operators["switch"]++
		}
		return true
	})
	vocab := len(operators) + len(operands)
	length := 0
	for _, c := range operators {
		length += c
	}
	for _, c := range operands {
		length += c
	}
	if vocab < 2 {
		return float64(length)
	}
	return float64(length) * math.Log2(float64(vocab))
}

// Maintainability returns the maintainability index normalised to 0-100.
func Maintainability(volume float64, cyclomatic, lines int) float64 {
	if volume < 1 {
		volume = 1
	}
	if lines < 1 {
		lines = 1
	}
	mi := 171 - 5.2*math.Log(volume) - 0.23*float64(cyclomatic) - 16.2*math.Log(float64(lines))
	mi = mi * 100 / 171
	return math.Max(0, math.Min(100, mi))
}

// CodeLines counts non-blank lines.
func CodeLines(src []byte) int {
	n := 0
	for _, line := range bytes.Split(src, []byte("\n")) {
		if len(bytes.TrimSpace(line)) > 0 {
			n++
		}
	}
	return n
}

func recvName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return recvName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return recvName(t.X)
	case *ast.IndexListExpr:
		return recvName(t.X)
	default:
		return ""
	}
}
