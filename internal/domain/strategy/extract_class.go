package strategy

import (
	"fmt"
	"go/ast"
	"go/types"
	"sort"
	"strings"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/cohesion"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// ExtractClass moves the largest movable extractable cluster of a struct
// into a new struct embedded by value in the original. Promotion keeps the
// original's method set intact.
type ExtractClass struct{}

func NewExtractClass() *ExtractClass { return &ExtractClass{} }

func (*ExtractClass) Type() domain.RefactoringType { return domain.ExtractClass }

func (*ExtractClass) Addresses() []domain.SmellType {
	return []domain.SmellType{
		domain.SmellLowCohesion, domain.SmellMultipleResponsibilities,
		domain.SmellGodClass, domain.SmellLargeClass,
		domain.SmellFeatureEnvy, domain.SmellDataClump,
	}
}

func (e *ExtractClass) CanApply(u *syntax.Unit, smell domain.CodeSmell) bool {
	_, ok := planClassExtraction(u, smell, pickFirst)
	return ok
}

func (e *ExtractClass) Apply(u *syntax.Unit, smell domain.CodeSmell) ([]byte, error) {
	p, ok := planClassExtraction(u, smell, pickFirst)
	if !ok {
		return nil, notApplicable(e.Type(), smell)
	}
	return p.apply(u)
}

func (e *ExtractClass) EstimateImprovement(u *syntax.Unit, smell domain.CodeSmell) (domain.Estimate, error) {
	p, ok := planClassExtraction(u, smell, pickFirst)
	if !ok {
		return domain.Estimate{}, notApplicable(e.Type(), smell)
	}
	return p.estimate(), nil
}

// SplitGodClass moves every movable extractable cluster except the largest
// into its own embedded struct. The largest cluster stays in place.
type SplitGodClass struct{}

func NewSplitGodClass() *SplitGodClass { return &SplitGodClass{} }

func (*SplitGodClass) Type() domain.RefactoringType { return domain.SplitGodClass }

func (*SplitGodClass) Addresses() []domain.SmellType {
	return []domain.SmellType{domain.SmellGodClass, domain.SmellMultipleResponsibilities, domain.SmellLowCohesion}
}

func (s *SplitGodClass) CanApply(u *syntax.Unit, smell domain.CodeSmell) bool {
	_, ok := planClassExtraction(u, smell, pickAllButLargest)
	return ok
}

func (s *SplitGodClass) Apply(u *syntax.Unit, smell domain.CodeSmell) ([]byte, error) {
	p, ok := planClassExtraction(u, smell, pickAllButLargest)
	if !ok {
		return nil, notApplicable(s.Type(), smell)
	}
	return p.apply(u)
}

func (s *SplitGodClass) EstimateImprovement(u *syntax.Unit, smell domain.CodeSmell) (domain.Estimate, error) {
	p, ok := planClassExtraction(u, smell, pickAllButLargest)
	if !ok {
		return domain.Estimate{}, notApplicable(s.Type(), smell)
	}
	return p.estimate(), nil
}

// picker chooses the clusters to move from the extractable clusters of a
// class, largest first.
type picker func(extractable []cohesion.Cluster, movable func(cohesion.Cluster) bool) []cohesion.Cluster

func pickFirst(extractable []cohesion.Cluster, movable func(cohesion.Cluster) bool) []cohesion.Cluster {
	for _, cl := range extractable {
		if movable(cl) {
			return []cohesion.Cluster{cl}
		}
	}
	return nil
}

func pickAllButLargest(extractable []cohesion.Cluster, movable func(cohesion.Cluster) bool) []cohesion.Cluster {
	if len(extractable) < 2 {
		return nil
	}
	var out []cohesion.Cluster
	for _, cl := range extractable[1:] {
		if movable(cl) {
			out = append(out, cl)
		}
	}
	return out
}

type extractedType struct {
	name    string
	cluster cohesion.Cluster
}

type classExtraction struct {
	class   syntax.Class
	report  cohesion.Report
	targets []extractedType
}

func (p classExtraction) estimate() domain.Estimate {
	names := make([]string, len(p.targets))
	for i, t := range p.targets {
		names[i] = t.name
	}
	return domain.Estimate{
		CohesionImprovement: float64(len(p.targets)) / float64(p.report.LCOM4),
		Description:         fmt.Sprintf("move %s out of %s", strings.Join(names, ", "), p.class.Name),
	}
}

func planClassExtraction(u *syntax.Unit, smell domain.CodeSmell, pick picker) (classExtraction, bool) {
	c, ok := targetClass(u, smell)
	if !ok || c.Spec.TypeParams != nil {
		return classExtraction{}, false
	}
	report := cohesion.Analyze(u, c)
	if report.LCOM4 < 2 {
		return classExtraction{}, false
	}
	chosen := pick(report.Extractable(), func(cl cohesion.Cluster) bool { return canMove(u, c, cl) })
	if len(chosen) == 0 {
		return classExtraction{}, false
	}

	used := u.UsedNames()
	p := classExtraction{class: c, report: report}
	for _, cl := range chosen {
		p.targets = append(p.targets, extractedType{name: syntax.FreshName(cl.SuggestedName, used), cluster: cl})
	}
	return p, true
}

// canMove reports whether cl can leave class c without breaking the code
// that stays behind. Only methods declared in the document can move, and
// keyed literals naming a moved field must all be in the document.
func canMove(u *syntax.Unit, c syntax.Class, cl cohesion.Cluster) bool {
	members := toSet(cl.Members())
	for _, name := range append(append([]string(nil), cl.Methods...), cl.Properties...) {
		m := c.Method(name)
		if m == nil {
			return false
		}
		for _, ref := range cohesion.MemberRefs(u, c, m) {
			if !members[ref] {
				return false
			}
		}
		if receiverEscapes(u, m) {
			return false
		}
	}
	for _, f := range c.Struct.Fields.List {
		moving := 0
		for _, n := range fieldNames(f) {
			if members[n] {
				moving++
			}
		}
		if moving > 0 && moving < len(fieldNames(f)) {
			return false
		}
	}

	for _, f := range u.Files {
		if f == u.File {
			continue
		}
		for _, lit := range literalsIn(u, f, c) {
			if len(movedKeys(lit, members)) > 0 {
				return false
			}
		}
	}

	moved := movedMethods(c, cl)
	for _, lit := range classLiterals(u, c) {
		if len(lit.Elts) > 0 && !keyed(lit) {
			return false
		}
		if len(movedKeys(lit, members)) == 0 {
			continue
		}
		for _, m := range moved {
			if m.Pos() <= lit.Pos() && lit.End() <= m.End() {
				return false
			}
		}
	}
	return true
}

// receiverEscapes reports whether m uses its receiver other than to select
// a member.
func receiverEscapes(u *syntax.Unit, m *ast.FuncDecl) bool {
	recv := syntax.ReceiverIdent(m)
	if recv == nil || m.Body == nil {
		return false
	}
	obj := u.Info.Defs[recv]
	if obj == nil {
		return false
	}
	selected := map[*ast.Ident]bool{}
	ast.Inspect(m.Body, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				selected[id] = true
			}
		}
		return true
	})
	escapes := false
	ast.Inspect(m.Body, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok && u.Info.Uses[id] == obj && !selected[id] {
			escapes = true
		}
		return !escapes
	})
	return escapes
}

func (p classExtraction) apply(u *syntax.Unit) ([]byte, error) {
	src := u.Document.Source
	c := p.class
	var edits []syntax.Edit
	var embedded, decls strings.Builder

	for _, t := range p.targets {
		members := toSet(t.cluster.Members())
		embedded.WriteString("\n" + t.name)

		fmt.Fprintf(&decls, "\n\n// %s holds the %s part of %s.\ntype %s struct {\n",
			t.name, strings.ToLower(t.cluster.Responsibility), c.Name, t.name)
		for _, f := range c.Struct.Fields.List {
			if !members[firstFieldName(f)] {
				continue
			}
			start, end := fieldRange(u, f)
			decls.WriteString(string(src[start:end]) + "\n")
			edits = append(edits, syntax.Edit{Start: lineStart(src, start), End: lineEnd(src, end)})
		}
		decls.WriteString("}")

		for _, m := range movedMethods(c, t.cluster) {
			start, end := u.DeclRange(m)
			recvType := m.Recv.List[0].Type
			newRecv := t.name
			if syntax.IsPointerReceiver(m) {
				newRecv = "*" + t.name
			}
			decls.WriteString("\n\n" + string(src[start:u.Offset(recvType.Pos())]) + newRecv + string(src[u.Offset(recvType.End()):end]))
			edits = append(edits, syntax.Edit{Start: lineStart(src, start), End: lineEnd(src, end)})
		}
	}

	edits = append(edits, u.InsertAt(c.Struct.Fields.Opening+1, embedded.String()))
	typeDecl := syntax.EnclosingDecl(u.File, c.Spec.Pos())
	edits = append(edits, u.InsertAt(typeDecl.End(), decls.String()))
	edits = append(edits, p.literalEdits(u)...)

	out, err := syntax.ApplyEdits(src, edits)
	if err != nil {
		return nil, fmt.Errorf("extracting from %s: %w", c.Name, err)
	}
	return out, nil
}

// literalEdits rewrites keyed composite literals of the class so moved
// fields initialise the embedded value.
func (p classExtraction) literalEdits(u *syntax.Unit) []syntax.Edit {
	var edits []syntax.Edit
	for _, lit := range classLiterals(u, p.class) {
		var kept []string
		var nested []string
		for _, t := range p.targets {
			moved := movedKeys(lit, toSet(t.cluster.Fields))
			if len(moved) == 0 {
				continue
			}
			parts := make([]string, len(moved))
			for i, kv := range moved {
				parts[i] = u.Text(kv)
			}
			nested = append(nested, t.name+": "+t.name+"{"+strings.Join(parts, ", ")+"}")
		}
		if len(nested) == 0 {
			continue
		}
		all := map[string]bool{}
		for _, t := range p.targets {
			for _, f := range t.cluster.Fields {
				all[f] = true
			}
		}
		for _, elt := range lit.Elts {
			kv := elt.(*ast.KeyValueExpr)
			if id, ok := kv.Key.(*ast.Ident); ok && all[id.Name] {
				continue
			}
			kept = append(kept, u.Text(kv))
		}
		prefix := ""
		if lit.Type != nil {
			prefix = u.Text(lit.Type)
		}
		text := prefix + "{" + strings.Join(append(kept, nested...), ", ") + "}"
		edits = append(edits, u.Replace(lit, text))
	}
	return edits
}

func movedMethods(c syntax.Class, cl cohesion.Cluster) []*ast.FuncDecl {
	names := toSet(append(append([]string(nil), cl.Methods...), cl.Properties...))
	var out []*ast.FuncDecl
	for _, m := range c.Methods {
		if names[m.Name.Name] {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos() < out[j].Pos() })
	return out
}

// classLiterals returns the outermost composite literals of c's type in the
// document.
func classLiterals(u *syntax.Unit, c syntax.Class) []*ast.CompositeLit {
	return literalsIn(u, u.File, c)
}

func literalsIn(u *syntax.Unit, file *ast.File, c syntax.Class) []*ast.CompositeLit {
	var out []*ast.CompositeLit
	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.CompositeLit)
		if !ok {
			return true
		}
		if isClassLiteral(u, c, lit) {
			out = append(out, lit)
			return false
		}
		return true
	})
	return out
}

func isClassLiteral(u *syntax.Unit, c syntax.Class, lit *ast.CompositeLit) bool {
	if t := u.TypeOf(lit); t != nil {
		n, ok := t.(*types.Named)
		return ok && n.Obj().Name() == c.Name && n.Obj().Pkg() == u.Pkg
	}
	id, ok := lit.Type.(*ast.Ident)
	return ok && id.Name == c.Name
}

func keyed(lit *ast.CompositeLit) bool {
	for _, elt := range lit.Elts {
		if _, ok := elt.(*ast.KeyValueExpr); !ok {
			return false
		}
	}
	return true
}

func movedKeys(lit *ast.CompositeLit, fields map[string]bool) []*ast.KeyValueExpr {
	var out []*ast.KeyValueExpr
	for _, elt := range lit.Elts {
		kv, ok := elt.(*ast.KeyValueExpr)
		if !ok {
			continue
		}
		if id, ok := kv.Key.(*ast.Ident); ok && fields[id.Name] {
			out = append(out, kv)
		}
	}
	return out
}

func fieldNames(f *ast.Field) []string {
	if len(f.Names) == 0 {
		if n := embeddedTypeName(f.Type); n != "" {
			return []string{n}
		}
		return nil
	}
	names := make([]string, len(f.Names))
	for i, n := range f.Names {
		names[i] = n.Name
	}
	return names
}

func firstFieldName(f *ast.Field) string {
	if names := fieldNames(f); len(names) > 0 {
		return names[0]
	}
	return ""
}

func embeddedTypeName(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.StarExpr:
		return embeddedTypeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.IndexExpr:
		return embeddedTypeName(t.X)
	case *ast.IndexListExpr:
		return embeddedTypeName(t.X)
	}
	return ""
}

// fieldRange covers a struct field with its doc and line comments.
func fieldRange(u *syntax.Unit, f *ast.Field) (int, int) {
	start, end := f.Pos(), f.End()
	if f.Doc != nil {
		start = f.Doc.Pos()
	}
	if f.Comment != nil {
		end = f.Comment.End()
	}
	return u.Offset(start), u.Offset(end)
}

// lineStart moves off back to the start of its line when only whitespace
// precedes it there.
func lineStart(src []byte, off int) int {
	i := off
	for i > 0 && (src[i-1] == ' ' || src[i-1] == '\t') {
		i--
	}
	if i == 0 || src[i-1] == '\n' {
		return i
	}
	return off
}

// lineEnd moves off past the end of its line when only whitespace follows
// it there.
func lineEnd(src []byte, off int) int {
	i := off
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\r') {
		i++
	}
	if i < len(src) && src[i] == '\n' {
		return i + 1
	}
	if i == len(src) {
		return i
	}
	return off
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
