package syntax_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/syntax"
)

const counterSrc = `package counter

type Counter struct {
	n    int
	name string
}

func (c *Counter) Name() string { return c.name }

func (c *Counter) Inc() { c.n++ }

func helper() int { return 1 }
`

const otherSrc = `package counter

func useCounter(c *Counter) int { return c.n + helper() }

func (c *Counter) Dec() { c.n-- }
`

var checker = syntax.NewChecker()

func snapshot(t *testing.T) *domain.Snapshot {
	t.Helper()
	return domain.NewSnapshot("/tmp/p", []domain.Document{
		{ID: "counter/counter.go", Source: []byte(counterSrc)},
		{ID: "counter/use.go", Source: []byte(otherSrc)},
	})
}

func TestLoad_TypeChecksWholePackage(t *testing.T) {
	u, err := checker.Load(snapshot(t), "counter/counter.go")
	require.NoError(t, err)

	assert.Len(t, u.Files, 2)
	assert.Empty(t, u.TypeErrors)
	assert.Equal(t, "counter", u.Pkg.Name())
}

func TestLoad_MissingDocument(t *testing.T) {
	_, err := checker.Load(snapshot(t), "nope.go")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestClasses_CollectsMethodsAndAccessors(t *testing.T) {
	u, err := checker.Load(snapshot(t), "counter/counter.go")
	require.NoError(t, err)

	classes := syntax.Classes(u.File)
	require.Len(t, classes, 1)
	c := classes[0]
	assert.Equal(t, "Counter", c.Name)
	assert.Equal(t, []string{"n", "name"}, c.FieldNames())
	require.Len(t, c.Methods, 2)
	assert.True(t, syntax.IsAccessor(c.Method("Name")))
	assert.False(t, syntax.IsAccessor(c.Method("Inc")))
	assert.True(t, syntax.IsPointerReceiver(c.Method("Inc")))
}

func TestUnitClasses_AttachMethodsFromSiblingFiles(t *testing.T) {
	u, err := checker.Load(snapshot(t), "counter/counter.go")
	require.NoError(t, err)

	c, ok := u.FindClass("Counter")
	require.True(t, ok)
	require.Len(t, c.Methods, 2)
	require.Len(t, c.Elsewhere, 1)
	assert.Nil(t, c.Method("Dec"))
	assert.NotNil(t, c.Lookup("Dec"))
	assert.Len(t, c.AllMethods(), 3)

	_, ok = u.FindClass("Missing")
	assert.False(t, ok)
}

func TestApplyEdits_RemovesAndInserts(t *testing.T) {
	u, err := checker.Load(snapshot(t), "counter/counter.go")
	require.NoError(t, err)

	var edits []syntax.Edit
	for _, fd := range syntax.Funcs(u.File) {
		if fd.Name.Name == "helper" {
			start, end := u.DeclRange(fd)
			edits = append(edits, syntax.Edit{Start: start, End: end})
		}
	}
	inc := syntax.Classes(u.File)[0].Method("Inc")
	edits = append(edits, u.InsertAt(inc.End(), "\n\nfunc (c *Counter) Reset() { c.n = 0 }\n"))

	out, err := syntax.ApplyEdits(u.Document.Source, edits)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "func helper")
	assert.Contains(t, string(out), "func (c *Counter) Reset() { c.n = 0 }")
	assert.True(t, strings.HasPrefix(string(out), "package counter"))
}

func TestApplyEdits_RejectsOverlap(t *testing.T) {
	_, err := syntax.ApplyEdits([]byte("package p\n"), []syntax.Edit{{Start: 0, End: 5}, {Start: 3, End: 6}})
	assert.Error(t, err)
}

func TestText_BlockBody(t *testing.T) {
	u, err := checker.Load(snapshot(t), "counter/counter.go")
	require.NoError(t, err)

	inc := syntax.Classes(u.File)[0].Method("Inc")
	assert.Equal(t, " c.n++ ", u.BlockBody(inc.Body))
	assert.Equal(t, "func (c *Counter) Inc() { c.n++ }", u.Text(inc))
}

func TestWithSource_ReportsTypeErrors(t *testing.T) {
	u, err := checker.Load(snapshot(t), "counter/counter.go")
	require.NoError(t, err)

	broken, err := u.WithSource([]byte("package counter\n\ntype Counter struct{}\n"))
	require.NoError(t, err)
	assert.NotEmpty(t, broken.TypeErrors)
}

func TestFreshName(t *testing.T) {
	used := map[string]bool{"run": true, "run2": true}
	assert.Equal(t, "run3", syntax.FreshName("run", used))
	assert.Equal(t, "walk", syntax.FreshName("walk", used))
}
