package metrics_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reforge/reforge/internal/domain/metrics"
)

const src = `package p

func flat(a int) int {
	return a + 1
}

func branchy(a, b int) int {
	if a > 0 && b > 0 {
		for i := 0; i < a; i++ {
			if i == b {
				return i
			}
		}
	} else if a < 0 || b < 0 || a == b {
		return -1
	}
	switch a {
	case 1:
		return 1
	case 2:
		return 2
	default:
		return 0
	}
}
`

func parse(t *testing.T) (*token.FileSet, *ast.File) {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "p.go", src, 0)
	require.NoError(t, err)
	return fset, f
}

func funcByName(f *ast.File, name string) *ast.FuncDecl {
	for _, d := range f.Decls {
		if fd, ok := d.(*ast.FuncDecl); ok && fd.Name.Name == name {
			return fd
		}
	}
	return nil
}

func TestCyclomatic(t *testing.T) {
	_, f := parse(t)
	assert.Equal(t, 1, metrics.Cyclomatic(funcByName(f, "flat").Body))
	// if, &&, for, if, else-if, ||, ||, case 1, case 2
	assert.Equal(t, 10, metrics.Cyclomatic(funcByName(f, "branchy").Body))
}

func TestCognitive(t *testing.T) {
	_, f := parse(t)
	assert.Equal(t, 0, metrics.Cognitive(funcByName(f, "flat").Body))
	// if(1) &&(1) for(2) if(3) else-if(1) ||(1) switch(1)
	assert.Equal(t, 10, metrics.Cognitive(funcByName(f, "branchy").Body))
}

func TestMaxNestingAndCondOps(t *testing.T) {
	_, f := parse(t)
	fd := funcByName(f, "branchy")
	assert.Equal(t, 3, metrics.MaxNesting(fd.Body))
	assert.Equal(t, 2, metrics.MaxCondOps(fd.Body))
}

func TestAnalyze(t *testing.T) {
	fset, f := parse(t)
	fm := metrics.Analyze(fset, f, []byte(src))

	require.Len(t, fm.Funcs, 2)
	assert.Equal(t, 11, fm.Cyclomatic)
	assert.Equal(t, 2, fm.Funcs[1].Params)
	assert.Greater(t, fm.Maintainability, 0.0)
	assert.LessOrEqual(t, fm.Maintainability, 100.0)
	assert.Equal(t, 23, fm.Lines)
}

func TestMaintainability_DecreasesWithSize(t *testing.T) {
	small := metrics.Maintainability(50, 1, 5)
	large := metrics.Maintainability(5000, 20, 200)
	assert.Greater(t, small, large)
}
