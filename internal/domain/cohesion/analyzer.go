package cohesion

import (
	"go/ast"
	"go/types"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/fatih/camelcase"

	"github.com/reforge/reforge/internal/domain/syntax"
)

// MinClusterMethods is the number of methods a component needs to become a
// cluster. MinExtractableMethods is the number a cluster needs to be worth
// moving into its own type. Accessors count as methods for both.
const (
	MinClusterMethods     = 2
	MinExtractableMethods = 3
	minPrefixLen          = 3
)

// Cluster is a connected component holding at least two methods. Accessor
// methods are listed under Properties.
type Cluster struct {
	Methods        []string `json:"methods"`
	Properties     []string `json:"properties,omitempty"`
	Fields         []string `json:"fields,omitempty"`
	InternalEdges  int      `json:"internal_edges"`
	Cohesion       float64  `json:"cohesion"`
	Extractable    bool     `json:"extractable"`
	SuggestedName  string   `json:"suggested_name"`
	Responsibility string   `json:"responsibility"`
	Dependencies   []string `json:"dependencies,omitempty"`
}

// Members returns every method, property and field name of the cluster.
func (c Cluster) Members() []string {
	out := make([]string, 0, len(c.Methods)+len(c.Properties)+len(c.Fields))
	out = append(out, c.Methods...)
	out = append(out, c.Properties...)
	return append(out, c.Fields...)
}

// MethodCount returns the number of methods in the cluster, accessors
// included.
func (c Cluster) MethodCount() int { return len(c.Methods) + len(c.Properties) }

func (c Cluster) allMethods() []string {
	return append(append([]string(nil), c.Methods...), c.Properties...)
}

// Report is the cohesion analysis of one class.
type Report struct {
	Class     string    `json:"class"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`
	Methods   int       `json:"methods"`
	Fields    int       `json:"fields"`
	LCOM4     int       `json:"lcom4"`
	Clusters  []Cluster `json:"clusters,omitempty"`
}

// Extractable returns the clusters that qualify for extraction.
func (r Report) Extractable() []Cluster {
	var out []Cluster
	for _, c := range r.Clusters {
		if c.Extractable {
			out = append(out, c)
		}
	}
	return out
}

// Analyze computes the cohesion report of class c.
func Analyze(u *syntax.Unit, c syntax.Class) Report {
	g := Build(u, c)
	r := Report{
		Class:     c.Name,
		StartLine: u.Line(c.Spec.Pos()),
		EndLine:   u.Line(c.Spec.End()),
		Methods:   len(c.AllMethods()),
		Fields:    len(c.FieldNames()),
		LCOM4:     g.LCOM4(),
	}
	for _, comp := range g.Components() {
		cl, ok := buildCluster(u, c, g, comp)
		if ok {
			r.Clusters = append(r.Clusters, cl)
		}
	}
	sort.SliceStable(r.Clusters, func(i, j int) bool {
		return r.Clusters[i].MethodCount() > r.Clusters[j].MethodCount()
	})
	return r
}

// AnalyzeFile analyzes every class declared in the unit's document, counting
// the methods its package declares on the class in other files.
func AnalyzeFile(u *syntax.Unit) []Report {
	var reports []Report
	for _, c := range u.Classes() {
		reports = append(reports, Analyze(u, c))
	}
	return reports
}

func buildCluster(u *syntax.Unit, c syntax.Class, g *Graph, comp []string) (Cluster, bool) {
	var cl Cluster
	for _, name := range comp {
		nd, _ := g.Node(name)
		switch nd.Kind {
		case KindMethod:
			cl.Methods = append(cl.Methods, name)
		case KindProperty:
			cl.Properties = append(cl.Properties, name)
		case KindField:
			cl.Fields = append(cl.Fields, name)
		}
	}
	methods := cl.MethodCount()
	if methods < MinClusterMethods {
		return Cluster{}, false
	}

	for i, a := range comp {
		for _, b := range comp[i+1:] {
			if g.HasEdge(a, b) {
				cl.InternalEdges++
			}
		}
	}
	if len(cl.Fields) > 0 {
		cl.Cohesion = math.Min(1, float64(cl.InternalEdges)/float64(methods*len(cl.Fields)))
	}
	cl.Extractable = methods >= MinExtractableMethods
	cl.SuggestedName = SuggestName(c.Name, cl.Fields, cl.allMethods())
	cl.Responsibility = InferResponsibility(cl.Members())
	cl.Dependencies = dependencies(u, c, cl)
	return cl, true
}

// SuggestName derives a type name from the longest common prefix of the
// field names, then of the method names, falling back to <class>Component.
// Prefixes are cut back to a camel-case word boundary when one exists.
func SuggestName(class string, fields, methods []string) string {
	for _, names := range [][]string{fields, methods} {
		if p := commonPrefix(names); len(p) >= minPrefixLen {
			return exportName(p)
		}
	}
	return class + "Component"
}

func commonPrefix(names []string) string {
	if len(names) < 2 {
		return ""
	}
	prefix := names[0]
	for _, n := range names[1:] {
		for !strings.HasPrefix(n, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	// Prefer whole words: "cacheSize" and "cacheStats" share "cacheS".
	words := camelcase.Split(prefix)
	for k := len(words); k > 0; k-- {
		cand := strings.Join(words[:k], "")
		if len(cand) < minPrefixLen {
			break
		}
		if allWordPrefix(names, cand) {
			return cand
		}
	}
	return prefix
}

// allWordPrefix reports whether p ends on a word boundary in every name.
func allWordPrefix(names []string, p string) bool {
	for _, n := range names {
		if len(n) == len(p) {
			continue
		}
		r := rune(n[len(p)])
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

func exportName(s string) string {
	s = strings.Trim(s, "_")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var responsibilityTable = []struct {
	label string
	re    *regexp.Regexp
}{
	{"Persistence", regexp.MustCompile(`(?i)save|store|persist|repo|insert|delete|db`)},
	{"Data Access", regexp.MustCompile(`(?i)query|fetch|find|select|lookup|load`)},
	{"Validation", regexp.MustCompile(`(?i)valid|check|verify|ensure|sanitiz`)},
	{"Presentation", regexp.MustCompile(`(?i)render|format|display|print|view|template|html`)},
	{"Computation", regexp.MustCompile(`(?i)calc|comput|sum|total|average|score|count`)},
	{"Communication", regexp.MustCompile(`(?i)send|receive|publish|notify|request|client|mail`)},
	{"Logging", regexp.MustCompile(`(?i)log|trace|audit`)},
	{"Caching", regexp.MustCompile(`(?i)cache|memo|evict|ttl`)},
	{"Authentication", regexp.MustCompile(`(?i)auth|login|token|password|credential|session`)},
	{"Configuration", regexp.MustCompile(`(?i)config|setting|option|env`)},
	{"Serialization", regexp.MustCompile(`(?i)marshal|encode|decode|serializ|json|parse`)},
	{"Scheduling", regexp.MustCompile(`(?i)schedul|worker|queue|job|retry|timer`)},
}

// DefaultResponsibility labels clusters no keyword matches.
const DefaultResponsibility = "Core Logic"

// InferResponsibility returns the label of the first table entry matching
// any member name.
func InferResponsibility(members []string) string {
	for _, entry := range responsibilityTable {
		for _, m := range members {
			if entry.re.MatchString(m) {
				return entry.label
			}
		}
	}
	return DefaultResponsibility
}

// dependencies lists the named types, other than the class itself, that
// the cluster's methods mention, including composite literal types.
func dependencies(u *syntax.Unit, c syntax.Class, cl Cluster) []string {
	seen := map[string]bool{}
	qual := u.Qualifier()
	for _, name := range cl.allMethods() {
		m := c.Lookup(name)
		if m == nil {
			continue
		}
		ast.Inspect(m, func(n ast.Node) bool {
			var obj types.Object
			switch x := n.(type) {
			case *ast.Ident:
				obj = u.Info.Uses[x]
			case *ast.CompositeLit:
				if t := u.TypeOf(x); t != nil {
					if named, ok := derefNamed(t); ok {
						obj = named.Obj()
					}
				}
			}
			tn, ok := obj.(*types.TypeName)
			if !ok || tn.Pkg() == nil || tn.Name() == c.Name && tn.Pkg() == u.Pkg {
				return true
			}
			seen[types.TypeString(tn.Type(), qual)] = true
			return true
		})
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func derefNamed(t types.Type) (*types.Named, bool) {
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	n, ok := t.(*types.Named)
	return n, ok
}
