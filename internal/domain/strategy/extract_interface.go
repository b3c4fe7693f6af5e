package strategy

import (
	"fmt"
	"go/ast"
	"strings"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/syntax"
)

const minInterfaceMethods = 2

// ExtractInterface declares <Type>API with the exported methods the
// document declares on a struct, plus a compile-time assertion that the
// struct satisfies it.
type ExtractInterface struct{}

func NewExtractInterface() *ExtractInterface { return &ExtractInterface{} }

func (*ExtractInterface) Type() domain.RefactoringType { return domain.ExtractInterface }

func (*ExtractInterface) Addresses() []domain.SmellType {
	return []domain.SmellType{
		domain.SmellGodClass, domain.SmellLargeClass,
		domain.SmellLowCohesion, domain.SmellMultipleResponsibilities,
	}
}

func (x *ExtractInterface) CanApply(u *syntax.Unit, smell domain.CodeSmell) bool {
	_, _, ok := interfacePlan(u, smell)
	return ok
}

func (x *ExtractInterface) Apply(u *syntax.Unit, smell domain.CodeSmell) ([]byte, error) {
	c, methods, ok := interfacePlan(u, smell)
	if !ok {
		return nil, notApplicable(x.Type(), smell)
	}
	name := c.Name + "API"

	var b strings.Builder
	fmt.Fprintf(&b, "\n\n// %s is the exported method set of %s.\n", name, c.Name)
	fmt.Fprintf(&b, "type %s interface {\n", name)
	for _, m := range methods {
		b.WriteString(m.Name.Name + u.Span(m.Type.Params.Pos(), m.Type.End()) + "\n")
	}
	fmt.Fprintf(&b, "}\n\nvar _ %s = (*%s)(nil)", name, c.Name)

	decl := syntax.EnclosingDecl(u.File, c.Spec.Pos())
	out, err := syntax.ApplyEdits(u.Document.Source, []syntax.Edit{u.InsertAt(decl.End(), b.String())})
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", name, err)
	}
	return out, nil
}

func (x *ExtractInterface) EstimateImprovement(u *syntax.Unit, smell domain.CodeSmell) (domain.Estimate, error) {
	c, methods, ok := interfacePlan(u, smell)
	if !ok {
		return domain.Estimate{}, notApplicable(x.Type(), smell)
	}
	return domain.Estimate{
		CohesionImprovement: 0.1,
		Description:         fmt.Sprintf("declare %sAPI with %d methods", c.Name, len(methods)),
	}, nil
}

func interfacePlan(u *syntax.Unit, smell domain.CodeSmell) (syntax.Class, []*ast.FuncDecl, bool) {
	c, ok := targetClass(u, smell)
	if !ok || c.Spec.TypeParams != nil {
		return syntax.Class{}, nil, false
	}
	if u.UsedNames()[c.Name+"API"] {
		return syntax.Class{}, nil, false
	}
	var methods []*ast.FuncDecl
	for _, m := range c.Methods {
		if m.Name.IsExported() {
			methods = append(methods, m)
		}
	}
	if len(methods) < minInterfaceMethods {
		return syntax.Class{}, nil, false
	}
	return c, methods, true
}
