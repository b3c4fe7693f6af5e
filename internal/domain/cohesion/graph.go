// Package cohesion builds method/field relationship graphs for struct types
// and derives LCOM4, cohesive clusters and cohesion smells from them.
package cohesion

import (
	"go/ast"
	"go/types"
	"sort"

	"github.com/reforge/reforge/internal/domain/syntax"
)

// NodeKind distinguishes the members of a class graph.
type NodeKind int

const (
	KindField NodeKind = iota
	KindProperty
	KindMethod
)

func (k NodeKind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindProperty:
		return "property"
	default:
		return "method"
	}
}

// Node is a member of a class.
type Node struct {
	Name string
	Kind NodeKind
}

// Graph is an undirected member graph for one class. Node order follows
// declaration order: fields first, then properties and methods.
type Graph struct {
	Class string
	Nodes []Node
	index map[string]int
	adj   map[int]map[int]bool
}

// NewGraph returns an empty graph for class.
func NewGraph(class string) *Graph {
	return &Graph{Class: class, index: map[string]int{}, adj: map[int]map[int]bool{}}
}

// AddNode adds a member. Adding an existing name is a no-op.
func (g *Graph) AddNode(name string, kind NodeKind) {
	if _, ok := g.index[name]; ok {
		return
	}
	g.index[name] = len(g.Nodes)
	g.Nodes = append(g.Nodes, Node{Name: name, Kind: kind})
}

// AddEdge connects two existing members. Self edges and unknown names are
// ignored.
func (g *Graph) AddEdge(a, b string) {
	i, ok := g.index[a]
	j, ok2 := g.index[b]
	if !ok || !ok2 || i == j {
		return
	}
	if g.adj[i] == nil {
		g.adj[i] = map[int]bool{}
	}
	if g.adj[j] == nil {
		g.adj[j] = map[int]bool{}
	}
	g.adj[i][j] = true
	g.adj[j][i] = true
}

// HasEdge reports whether a and b are adjacent.
func (g *Graph) HasEdge(a, b string) bool {
	i, ok := g.index[a]
	j, ok2 := g.index[b]
	return ok && ok2 && g.adj[i][j]
}

// Node returns the member named name.
func (g *Graph) Node(name string) (Node, bool) {
	i, ok := g.index[name]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, nb := range g.adj {
		n += len(nb)
	}
	return n / 2
}

// Components returns the connected components as lists of member names in
// node order, found by depth-first traversal.
func (g *Graph) Components() [][]string {
	visited := make([]bool, len(g.Nodes))
	var comps [][]string
	for start := range g.Nodes {
		if visited[start] {
			continue
		}
		var members []int
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, cur)
			for _, next := range g.neighbors(cur) {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Ints(members)
		names := make([]string, len(members))
		for i, m := range members {
			names[i] = g.Nodes[m].Name
		}
		comps = append(comps, names)
	}
	return comps
}

// LCOM4 counts the components that contain at least one method or property.
// Components made only of unused fields do not count.
func (g *Graph) LCOM4() int {
	n := 0
	for _, comp := range g.Components() {
		for _, name := range comp {
			if nd, _ := g.Node(name); nd.Kind != KindField {
				n++
				break
			}
		}
	}
	return n
}

func (g *Graph) neighbors(i int) []int {
	out := make([]int, 0, len(g.adj[i]))
	for j := range g.adj[i] {
		out = append(out, j)
	}
	sort.Ints(out)
	return out
}

// Build constructs the member graph of class c from every method the package
// declares on it. A selector on the receiver binds to a member only when the
// type checker resolves it to that member, or, where type information is
// missing, when the receiver identifier resolves to the receiver object
// itself. Same-named locals never bind.
func Build(u *syntax.Unit, c syntax.Class) *Graph {
	g := NewGraph(c.Name)
	for _, f := range c.FieldNames() {
		g.AddNode(f, KindField)
	}
	methods := c.AllMethods()
	for _, m := range methods {
		if syntax.IsAccessor(m) {
			g.AddNode(m.Name.Name, KindProperty)
		} else {
			g.AddNode(m.Name.Name, KindMethod)
		}
	}

	st := structOf(u, c.Name)
	for _, m := range methods {
		for _, target := range memberRefs(u, m, st) {
			g.AddEdge(m.Name.Name, target)
		}
	}
	return g
}

// MemberRefs returns the names m reaches through its receiver.
func MemberRefs(u *syntax.Unit, c syntax.Class, m *ast.FuncDecl) []string {
	return memberRefs(u, m, structOf(u, c.Name))
}

// memberRefs returns the class members that method m references through its
// receiver.
func memberRefs(u *syntax.Unit, m *ast.FuncDecl, st *types.Struct) []string {
	recv := syntax.ReceiverIdent(m)
	if recv == nil || m.Body == nil {
		return nil
	}
	recvObj := u.Info.Defs[recv]

	var refs []string
	ast.Inspect(m.Body, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		x, ok := sel.X.(*ast.Ident)
		if !ok || x.Name != recv.Name {
			return true
		}
		if recvObj != nil {
			if obj := u.Info.Uses[x]; obj != recvObj {
				return true
			}
		}
		if name := resolveMember(u, sel, st); name != "" {
			refs = append(refs, name)
		}
		return true
	})
	return refs
}

func resolveMember(u *syntax.Unit, sel *ast.SelectorExpr, st *types.Struct) string {
	s := u.Info.Selections[sel]
	if s == nil || st == nil {
		return sel.Sel.Name
	}
	idx := s.Index()
	if len(idx) > 1 && idx[0] < st.NumFields() {
		// Promoted through an embedded field: the edge goes to the embedding.
		return embeddedName(st.Field(idx[0]))
	}
	return s.Obj().Name()
}

func embeddedName(v *types.Var) string {
	if !v.Embedded() {
		return v.Name()
	}
	t := v.Type()
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	if n, ok := t.(*types.Named); ok {
		return n.Obj().Name()
	}
	return v.Name()
}

func structOf(u *syntax.Unit, name string) *types.Struct {
	if u.Pkg == nil {
		return nil
	}
	obj := u.Pkg.Scope().Lookup(name)
	if obj == nil {
		return nil
	}
	st, _ := obj.Type().Underlying().(*types.Struct)
	return st
}
