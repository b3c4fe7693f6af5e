package syntax

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/token"
	"go/types"
	"path"
	"strings"
	"sync"

	"github.com/reforge/reforge/internal/domain"
)

// Checker type-checks packages. It resolves standard-library imports from
// source and leaves every other import unresolved; the resulting errors are
// recorded on the Unit and the partial type information is kept.
type Checker struct {
	mu  sync.Mutex
	imp types.Importer
}

// NewChecker returns a Checker with its own import cache.
func NewChecker() *Checker {
	return &Checker{imp: importer.ForCompiler(token.NewFileSet(), "source", nil)}
}

// Import implements types.Importer.
func (c *Checker) Import(importPath string) (*types.Package, error) {
	if !isStdlib(importPath) {
		return nil, fmt.Errorf("package %s not resolved", importPath)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.imp.Import(importPath)
}

// Load parses and type-checks the package that owns id.
func (c *Checker) Load(snap *domain.Snapshot, id domain.DocumentID) (*Unit, error) {
	doc, ok := snap.Document(id)
	if !ok {
		return nil, fmt.Errorf("loading %s: %w", id, domain.ErrDocumentNotFound)
	}
	return c.check(doc, snap.PackageDocuments(doc.Dir()))
}

func (c *Checker) check(target domain.Document, pkgDocs []domain.Document) (*Unit, error) {
	fset := token.NewFileSet()
	file, err := ParseFile(fset, target)
	if err != nil {
		return nil, err
	}

	targetIsTest := strings.HasSuffix(string(target.ID), "_test.go")
	files := []*ast.File{file}
	var siblings []domain.Document
	for _, d := range pkgDocs {
		if d.ID == target.ID {
			continue
		}
		if strings.HasSuffix(string(d.ID), "_test.go") && !targetIsTest {
			continue
		}
		f, err := ParseFile(fset, d)
		if err != nil || f.Name.Name != file.Name.Name {
			continue
		}
		files = append(files, f)
		siblings = append(siblings, d)
	}

	u := &Unit{
		Fset:     fset,
		File:     file,
		Files:    files,
		Document: target,
		siblings: siblings,
		checker:  c,
		Info: &types.Info{
			Types:      make(map[ast.Expr]types.TypeAndValue),
			Defs:       make(map[*ast.Ident]types.Object),
			Uses:       make(map[*ast.Ident]types.Object),
			Selections: make(map[*ast.SelectorExpr]*types.Selection),
			Implicits:  make(map[ast.Node]types.Object),
			Scopes:     make(map[ast.Node]*types.Scope),
		},
	}
	conf := types.Config{
		Importer: c,
		Error: func(err error) {
			if te, ok := err.(types.Error); ok {
				u.TypeErrors = append(u.TypeErrors, te)
			}
		},
	}
	pkgPath := path.Dir(string(target.ID))
	// Errors are collected through conf.Error; the partial package is usable.
	u.Pkg, _ = conf.Check(pkgPath, fset, files, u.Info)
	return u, nil
}

func isStdlib(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".") && importPath != "C"
}
