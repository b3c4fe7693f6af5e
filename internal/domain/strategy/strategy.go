// Package strategy holds the refactoring strategies and the registry the
// orchestrator dispatches through. Strategies are pure: they read a typed
// unit and return replacement document text.
package strategy

import (
	"fmt"
	"go/ast"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// Strategy is one refactoring operation.
type Strategy interface {
	Type() domain.RefactoringType
	// Addresses lists the smells the strategy declares it can improve.
	Addresses() []domain.SmellType
	// CanApply reports whether Apply would produce an edit for smell.
	CanApply(u *syntax.Unit, smell domain.CodeSmell) bool
	// Apply returns the formatted replacement text of the unit's document.
	// It returns an error wrapping domain.ErrNotApplicable when there is
	// nothing to do.
	Apply(u *syntax.Unit, smell domain.CodeSmell) ([]byte, error)
	EstimateImprovement(u *syntax.Unit, smell domain.CodeSmell) (domain.Estimate, error)
}

// Registry maps refactoring types to strategies.
type Registry struct {
	byType map[domain.RefactoringType]Strategy
	logger *zap.Logger
}

// NewRegistry returns an empty registry. A nil logger disables logging.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{byType: map[domain.RefactoringType]Strategy{}, logger: logger}
}

// DefaultRegistry returns a registry holding every built-in strategy.
func DefaultRegistry(logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	for _, s := range []Strategy{
		NewExtractMethod(),
		NewExtractClass(),
		NewSplitGodClass(),
		NewSimplifyMethod(),
		NewExtractInterface(),
		NewReplaceConditional(),
	} {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds s. Registering a second strategy for the same type fails.
func (r *Registry) Register(s Strategy) error {
	if _, ok := r.byType[s.Type()]; ok {
		return fmt.Errorf("registering %s: strategy already registered", s.Type())
	}
	r.byType[s.Type()] = s
	r.logger.Debug("strategy registered", zap.Stringer("type", s.Type()))
	return nil
}

// Get returns the strategy for t.
func (r *Registry) Get(t domain.RefactoringType) (Strategy, error) {
	s, ok := r.byType[t]
	if !ok {
		return nil, fmt.Errorf("looking up %s: %w", t, domain.ErrStrategyNotFound)
	}
	return s, nil
}

// For returns the strategies that address smell type st, in refactoring type
// order.
func (r *Registry) For(st domain.SmellType) []Strategy {
	var out []Strategy
	for _, s := range r.All() {
		for _, a := range s.Addresses() {
			if a == st {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// All returns the registered strategies in refactoring type order.
func (r *Registry) All() []Strategy {
	out := make([]Strategy, 0, len(r.byType))
	for _, s := range r.byType {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type() < out[j].Type() })
	return out
}

func notApplicable(t domain.RefactoringType, smell domain.CodeSmell) error {
	return fmt.Errorf("%s on %s: %w", t, smell.Target, domain.ErrNotApplicable)
}

// targetFuncs resolves the functions a smell points at. A "Type.Method" or
// function target resolves to that function; a type target resolves to the
// type's methods, longest first. Without a usable target the smell's line
// span decides.
func targetFuncs(u *syntax.Unit, smell domain.CodeSmell) []*ast.FuncDecl {
	funcs := syntax.Funcs(u.File)
	if smell.Target != "" {
		for _, fd := range funcs {
			if syntax.FuncName(fd) == smell.Target {
				return []*ast.FuncDecl{fd}
			}
		}
		if !strings.Contains(smell.Target, ".") {
			if c, ok := syntax.FindClass(u.File, smell.Target); ok {
				out := append([]*ast.FuncDecl(nil), c.Methods...)
				sort.SliceStable(out, func(i, j int) bool {
					return syntax.FuncLines(u.Fset, out[i]) > syntax.FuncLines(u.Fset, out[j])
				})
				return out
			}
		}
	}
	var out []*ast.FuncDecl
	for _, fd := range funcs {
		if overlaps(u, fd, smell.Location) {
			out = append(out, fd)
		}
	}
	return out
}

// targetClass resolves the struct type a smell points at.
func targetClass(u *syntax.Unit, smell domain.CodeSmell) (syntax.Class, bool) {
	if smell.Target != "" {
		if c, ok := u.FindClass(smell.TargetType()); ok {
			return c, true
		}
	}
	for _, c := range u.Classes() {
		if overlaps(u, c.Spec, smell.Location) {
			return c, true
		}
	}
	return syntax.Class{}, false
}

func overlaps(u *syntax.Unit, n ast.Node, span domain.Span) bool {
	if span.StartLine == 0 {
		return false
	}
	end := span.EndLine
	if end < span.StartLine {
		end = span.StartLine
	}
	return u.Line(n.Pos()) <= end && span.StartLine <= u.Line(n.End())
}
