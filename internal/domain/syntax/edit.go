package syntax

import (
	"fmt"
	"go/ast"
	"go/format"
	"go/token"
	"sort"
	"strconv"
	"strings"
)

// Edit replaces the source bytes in [Start, End) with Text. Start == End
// inserts.
type Edit struct {
	Start, End int
	Text       string
}

// ApplyEdits applies non-overlapping edits to src and formats the result.
// Insertions at the same offset keep their relative order.
func ApplyEdits(src []byte, edits []Edit) ([]byte, error) {
	sorted := append([]Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	last := 0
	for _, e := range sorted {
		if e.Start < last || e.End < e.Start || e.End > len(src) {
			return nil, fmt.Errorf("overlapping or out-of-range edit at %d-%d", e.Start, e.End)
		}
		b.Write(src[last:e.Start])
		b.WriteString(e.Text)
		last = e.End
	}
	b.Write(src[last:])

	out, err := format.Source([]byte(b.String()))
	if err != nil {
		return nil, fmt.Errorf("formatting edited source: %w", err)
	}
	return out, nil
}

// Offset converts pos to a byte offset in the unit's document.
func (u *Unit) Offset(pos token.Pos) int { return u.Fset.Position(pos).Offset }

// Text returns the document source covered by node.
func (u *Unit) Text(node ast.Node) string {
	return string(u.Document.Source[u.Offset(node.Pos()):u.Offset(node.End())])
}

// Span returns the document source between two positions.
func (u *Unit) Span(from, to token.Pos) string {
	return string(u.Document.Source[u.Offset(from):u.Offset(to)])
}

// BlockBody returns the text between a block's braces.
func (u *Unit) BlockBody(b *ast.BlockStmt) string {
	return string(u.Document.Source[u.Offset(b.Lbrace)+1 : u.Offset(b.Rbrace)])
}

// Replace builds an edit replacing node with text.
func (u *Unit) Replace(node ast.Node, text string) Edit {
	return Edit{Start: u.Offset(node.Pos()), End: u.Offset(node.End()), Text: text}
}

// InsertAt builds an edit inserting text at pos.
func (u *Unit) InsertAt(pos token.Pos, text string) Edit {
	off := u.Offset(pos)
	return Edit{Start: off, End: off, Text: text}
}

// DeclRange returns the start and end offsets of a declaration including its
// doc comment.
func (u *Unit) DeclRange(decl ast.Decl) (int, int) {
	start := decl.Pos()
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Doc != nil {
			start = d.Doc.Pos()
		}
	case *ast.GenDecl:
		if d.Doc != nil {
			start = d.Doc.Pos()
		}
	}
	return u.Offset(start), u.Offset(decl.End())
}

// UsedNames collects every identifier name appearing in the package files,
// so generated declarations can avoid collisions.
func (u *Unit) UsedNames() map[string]bool {
	names := map[string]bool{}
	for _, f := range u.Files {
		ast.Inspect(f, func(n ast.Node) bool {
			if id, ok := n.(*ast.Ident); ok {
				names[id.Name] = true
			}
			return true
		})
	}
	return names
}

// FreshName returns base, or base followed by a counter, that does not clash
// with used. The returned name is added to used.
func FreshName(base string, used map[string]bool) string {
	if !used[base] {
		used[base] = true
		return base
	}
	for i := 2; ; i++ {
		name := base + strconv.Itoa(i)
		if !used[name] {
			used[name] = true
			return name
		}
	}
}

// EnclosingDecl returns the top-level declaration containing pos.
func EnclosingDecl(file *ast.File, pos token.Pos) ast.Decl {
	for _, d := range file.Decls {
		if d.Pos() <= pos && pos < d.End() {
			return d
		}
	}
	return nil
}
