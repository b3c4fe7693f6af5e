// Package validator checks a candidate document against the original: it
// type-checks the candidate, diffs the exported surface and measures metric
// deltas.
package validator

import (
	"context"
	"errors"
	"fmt"
	"go/types"
	"sort"
	"strings"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/metrics"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// maxEmbedDepth bounds the walk through embedded structs when collecting
// promoted fields.
const maxEmbedDepth = 4

// Validator implements domain.Validator.
type Validator struct {
	loader syntax.Loader
}

func New(loader syntax.Loader) *Validator {
	return &Validator{loader: loader}
}

func (v *Validator) Validate(ctx context.Context, original, candidate *domain.Snapshot, id domain.DocumentID) (domain.TransformationScore, error) {
	var score domain.TransformationScore
	if err := ctx.Err(); err != nil {
		return score, err
	}

	before, err := v.loader.Load(original, id)
	if err != nil {
		return score, fmt.Errorf("loading original %s: %w", id, err)
	}
	after, err := v.loader.Load(candidate, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return score, fmt.Errorf("loading candidate %s: %w", id, err)
		}
		// Anything else is a parse failure of the candidate text.
		score.CompileErrors = []string{err.Error()}
		return score, nil
	}

	score.CompileErrors = newTypeErrors(before, after)
	score.Compiles = len(score.CompileErrors) == 0
	score.BreakingChanges = breakingChanges(surfaceOf(before.Pkg), surfaceOf(after.Pkg))
	score.SemanticsPreserved = score.Compiles && len(score.BreakingChanges) == 0

	om := metrics.Analyze(before.Fset, before.File, before.Document.Source)
	cm := metrics.Analyze(after.Fset, after.File, after.Document.Source)
	score.OriginalCyclomatic = om.Cyclomatic
	score.OriginalMaintainability = om.Maintainability
	score.CyclomaticDelta = cm.Cyclomatic - om.Cyclomatic
	score.CognitiveDelta = cm.Cognitive - om.Cognitive
	score.LinesDelta = cm.Lines - om.Lines
	score.MaintainabilityDelta = cm.Maintainability - om.Maintainability
	return score, nil
}

// newTypeErrors returns the candidate's type errors that the original did
// not already have. Errors are matched by file and message since line
// numbers shift with the edit.
func newTypeErrors(before, after *syntax.Unit) []string {
	known := map[string]int{}
	for _, te := range before.TypeErrors {
		known[errorKey(te)]++
	}
	var out []string
	for _, te := range after.TypeErrors {
		key := errorKey(te)
		if known[key] > 0 {
			known[key]--
			continue
		}
		out = append(out, te.Error())
	}
	return out
}

func errorKey(te types.Error) string {
	return te.Fset.Position(te.Pos).Filename + "\x00" + te.Msg
}

// surface is the exported API of a package. members maps each exported
// package-level name, and every exported field or method reachable from an
// exported type, to a rendering of its type. fields maps each exported field
// to the embedded field it is promoted through, or "" when the owner
// declares it directly.
type surface struct {
	members map[string]string
	fields  map[string]string
}

func surfaceOf(pkg *types.Package) surface {
	s := surface{members: map[string]string{}, fields: map[string]string{}}
	if pkg == nil {
		return s
	}
	out := s.members
	q := types.RelativeTo(pkg)
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		if !obj.Exported() {
			continue
		}
		tn, ok := obj.(*types.TypeName)
		if !ok {
			out[name] = types.ObjectString(obj, q)
			continue
		}
		t := tn.Type()
		out[name] = "type " + kind(t, q)

		ms := types.NewMethodSet(types.NewPointer(t))
		if types.IsInterface(t) {
			ms = types.NewMethodSet(t)
		}
		for i := 0; i < ms.Len(); i++ {
			if m := ms.At(i).Obj(); m.Exported() {
				out[name+"."+m.Name()] = types.TypeString(m.Type(), q)
			}
		}
		if st, ok := t.Underlying().(*types.Struct); ok {
			s.collectFields(name, st, q, 0, "")
		}
	}
	return s
}

func kind(t types.Type, q types.Qualifier) string {
	switch u := t.Underlying().(type) {
	case *types.Struct:
		return "struct"
	case *types.Interface:
		return "interface"
	default:
		return types.TypeString(u, q)
	}
}

// collectFields records exported fields, shallowest first, following
// embedded structs so promoted fields count as present. through names the
// owner's embedded field the walk is currently inside.
func (s surface) collectFields(owner string, st *types.Struct, q types.Qualifier, depth int, through string) {
	type embedding struct {
		st   *types.Struct
		name string
	}
	var embedded []embedding
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		key := owner + "." + f.Name()
		if f.Exported() {
			if _, seen := s.members[key]; !seen {
				s.members[key] = types.TypeString(f.Type(), q)
				s.fields[key] = through
			}
		}
		if f.Embedded() {
			t := f.Type()
			if p, ok := t.(*types.Pointer); ok {
				t = p.Elem()
			}
			if inner, ok := t.Underlying().(*types.Struct); ok {
				name := through
				if depth == 0 {
					name = f.Name()
				}
				embedded = append(embedded, embedding{st: inner, name: name})
			}
		}
	}
	if depth >= maxEmbedDepth {
		return
	}
	for _, e := range embedded {
		s.collectFields(owner, e.st, q, depth+1, e.name)
	}
}

// breakingChanges lists names removed or retyped between two surfaces,
// methods added to an existing exported interface, and exported fields that
// moved into an embedded struct. A promoted field still reads the same but
// can no longer be named as a key in a composite literal of the owner.
func breakingChanges(before, after surface) []string {
	var out []string
	for name, sig := range before.members {
		got, ok := after.members[name]
		switch {
		case !ok:
			out = append(out, "removed "+name)
		case got != sig:
			out = append(out, fmt.Sprintf("changed %s: %s -> %s", name, sig, got))
		}
	}
	for name := range after.members {
		if _, ok := before.members[name]; ok {
			continue
		}
		owner, _, member := strings.Cut(name, ".")
		if member && before.members[owner] == "type interface" {
			out = append(out, "added method "+name+" to interface "+owner)
		}
	}
	for name, through := range after.fields {
		if prev, ok := before.fields[name]; ok && prev == "" && through != "" {
			out = append(out, fmt.Sprintf("moved field %s into embedded %s", name, through))
		}
	}
	sort.Strings(out)
	return out
}
