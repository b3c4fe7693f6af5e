package syntax

import (
	"go/ast"
	"go/token"
	"sort"
)

// Class is a struct type declared in a file together with the methods the
// same file declares on it. Elsewhere holds the methods declared on the type
// in the package's other files; they belong to the type but cannot be
// edited through the document.
type Class struct {
	Name      string
	Spec      *ast.TypeSpec
	Struct    *ast.StructType
	Methods   []*ast.FuncDecl
	Elsewhere []*ast.FuncDecl
}

// Classes returns every struct type declared at the top level of file, in
// declaration order.
func Classes(file *ast.File) []Class {
	var classes []Class
	index := map[string]int{}
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			st, ok := ts.Type.(*ast.StructType)
			if !ok {
				continue
			}
			index[ts.Name.Name] = len(classes)
			classes = append(classes, Class{Name: ts.Name.Name, Spec: ts, Struct: st})
		}
	}
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Recv == nil {
			continue
		}
		i, ok := index[ReceiverTypeName(fd)]
		if !ok {
			continue
		}
		classes[i].Methods = append(classes[i].Methods, fd)
	}
	return classes
}

// PackageClasses returns the classes declared in file with the methods the
// other files declare on them attached as Elsewhere.
func PackageClasses(file *ast.File, files []*ast.File) []Class {
	classes := Classes(file)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c.Name] = i
	}
	for _, f := range files {
		if f == file {
			continue
		}
		for _, decl := range f.Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil {
				continue
			}
			if i, ok := index[ReceiverTypeName(fd)]; ok {
				classes[i].Elsewhere = append(classes[i].Elsewhere, fd)
			}
		}
	}
	return classes
}

// FindClass looks up a class by type name.
func FindClass(file *ast.File, name string) (Class, bool) {
	for _, c := range Classes(file) {
		if c.Name == name {
			return c, true
		}
	}
	return Class{}, false
}

// Method returns the method with the given name declared in the class's
// own file, or nil.
func (c Class) Method(name string) *ast.FuncDecl {
	for _, m := range c.Methods {
		if m.Name.Name == name {
			return m
		}
	}
	return nil
}

// AllMethods returns the methods of the file followed by those declared
// elsewhere in the package.
func (c Class) AllMethods() []*ast.FuncDecl {
	return append(append([]*ast.FuncDecl(nil), c.Methods...), c.Elsewhere...)
}

// Lookup returns the method with the given name wherever in the package it
// is declared, or nil.
func (c Class) Lookup(name string) *ast.FuncDecl {
	if m := c.Method(name); m != nil {
		return m
	}
	for _, m := range c.Elsewhere {
		if m.Name.Name == name {
			return m
		}
	}
	return nil
}

// FieldNames returns the named fields of the struct in declaration order.
// Embedded fields are reported by their type name.
func (c Class) FieldNames() []string {
	var names []string
	for _, f := range c.Struct.Fields.List {
		if len(f.Names) == 0 {
			if n := typeName(f.Type); n != "" {
				names = append(names, n)
			}
			continue
		}
		for _, n := range f.Names {
			names = append(names, n.Name)
		}
	}
	return names
}

// ReceiverTypeName returns the base type name of a method receiver,
// stripping pointers and type parameters.
func ReceiverTypeName(fd *ast.FuncDecl) string {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return ""
	}
	return typeName(fd.Recv.List[0].Type)
}

// ReceiverIdent returns the receiver's name, or nil when it is unnamed or
// blank.
func ReceiverIdent(fd *ast.FuncDecl) *ast.Ident {
	if fd.Recv == nil || len(fd.Recv.List) == 0 || len(fd.Recv.List[0].Names) == 0 {
		return nil
	}
	id := fd.Recv.List[0].Names[0]
	if id.Name == "_" {
		return nil
	}
	return id
}

// IsPointerReceiver reports whether fd has a pointer receiver.
func IsPointerReceiver(fd *ast.FuncDecl) bool {
	if fd.Recv == nil || len(fd.Recv.List) == 0 {
		return false
	}
	_, ok := fd.Recv.List[0].Type.(*ast.StarExpr)
	return ok
}

// IsAccessor reports whether fd is a property: no parameters, exactly one
// result and a body that is a single return statement.
func IsAccessor(fd *ast.FuncDecl) bool {
	if fd.Body == nil || fd.Type.Params.NumFields() != 0 || fd.Type.Results.NumFields() != 1 {
		return false
	}
	if len(fd.Body.List) != 1 {
		return false
	}
	ret, ok := fd.Body.List[0].(*ast.ReturnStmt)
	return ok && len(ret.Results) == 1
}

// FuncLines returns the number of source lines fd spans.
func FuncLines(fset *token.FileSet, fd *ast.FuncDecl) int {
	return fset.Position(fd.End()).Line - fset.Position(fd.Pos()).Line + 1
}

// Funcs returns all function and method declarations with bodies, ordered by
// position.
func Funcs(file *ast.File) []*ast.FuncDecl {
	var out []*ast.FuncDecl
	for _, decl := range file.Decls {
		if fd, ok := decl.(*ast.FuncDecl); ok && fd.Body != nil {
			out = append(out, fd)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos() < out[j].Pos() })
	return out
}

// FuncName renders "Type.Method" for methods and the plain name otherwise.
func FuncName(fd *ast.FuncDecl) string {
	if recv := ReceiverTypeName(fd); recv != "" {
		return recv + "." + fd.Name.Name
	}
	return fd.Name.Name
}

func typeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return typeName(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.IndexExpr:
		return typeName(t.X)
	case *ast.IndexListExpr:
		return typeName(t.X)
	default:
		return ""
	}
}
