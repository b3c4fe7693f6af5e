// Package syntax parses and type-checks the package that owns a snapshot
// document, producing the bound representation the analyzers and strategies
// consume.
package syntax

import (
	"fmt"
	"go/ast"
	goparser "go/parser"
	"go/token"
	"go/types"
	"strings"

	"github.com/reforge/reforge/internal/domain"
)

// Loader turns a snapshot document into a Unit. Implementations may cache.
type Loader interface {
	Load(snap *domain.Snapshot, id domain.DocumentID) (*Unit, error)
}

// Unit is one document together with its parsed and type-checked package.
// A Unit handed out by a Loader may be shared and must be treated as
// read-only.
type Unit struct {
	Fset       *token.FileSet
	File       *ast.File
	Files      []*ast.File
	Info       *types.Info
	Pkg        *types.Package
	Document   domain.Document
	TypeErrors []types.Error

	siblings []domain.Document
	checker  *Checker
}

// WithSource returns a fresh Unit for the same package in which the unit's
// document text is replaced by src.
func (u *Unit) WithSource(src []byte) (*Unit, error) {
	doc := domain.Document{ID: u.Document.ID, Source: src}
	return u.checker.check(doc, u.siblings)
}

// Line returns the line number of pos.
func (u *Unit) Line(pos token.Pos) int { return u.Fset.Position(pos).Line }

// Classes returns the struct types declared in the unit's document, each
// carrying the methods the rest of the package declares on it.
func (u *Unit) Classes() []Class { return PackageClasses(u.File, u.Files) }

// FindClass looks up a class of the unit's document by type name.
func (u *Unit) FindClass(name string) (Class, bool) {
	for _, c := range u.Classes() {
		if c.Name == name {
			return c, true
		}
	}
	return Class{}, false
}

// TypeOf returns the type of an expression, or nil when unknown.
func (u *Unit) TypeOf(e ast.Expr) types.Type { return u.Info.TypeOf(e) }

// Qualifier renders package-qualified names relative to the unit's package.
func (u *Unit) Qualifier() types.Qualifier {
	return func(p *types.Package) string {
		if u.Pkg != nil && p.Path() == u.Pkg.Path() {
			return ""
		}
		for _, imp := range u.File.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if path != p.Path() {
				continue
			}
			if imp.Name != nil {
				return imp.Name.Name
			}
			return p.Name()
		}
		return p.Name()
	}
}

// ParseFile parses a single document without type information.
func ParseFile(fset *token.FileSet, doc domain.Document) (*ast.File, error) {
	f, err := goparser.ParseFile(fset, string(doc.ID), doc.Source, goparser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", doc.ID, err)
	}
	return f, nil
}
