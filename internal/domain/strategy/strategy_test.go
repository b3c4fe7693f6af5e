package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/cohesion"
	"github.com/reforge/reforge/internal/domain/strategy"
	"github.com/reforge/reforge/internal/domain/syntax"
)

var checker = syntax.NewChecker()

func unit(t *testing.T, src string) *syntax.Unit {
	t.Helper()
	snap := domain.NewSnapshot("/p", []domain.Document{{ID: "p/a.go", Source: []byte(src)}})
	u, err := checker.Load(snap, "p/a.go")
	require.NoError(t, err)
	require.Empty(t, u.TypeErrors)
	return u
}

// apply runs s and checks that the result still type-checks.
func apply(t *testing.T, s strategy.Strategy, u *syntax.Unit, smell domain.CodeSmell) (string, *syntax.Unit) {
	t.Helper()
	require.True(t, s.CanApply(u, smell))
	out, err := s.Apply(u, smell)
	require.NoError(t, err)
	next, err := u.WithSource(out)
	require.NoError(t, err)
	assert.Empty(t, next.TypeErrors, string(out))
	return string(out), next
}

func smell(st domain.SmellType, target string) domain.CodeSmell {
	return domain.CodeSmell{Type: st, Severity: domain.SeverityHigh, Target: target}
}

func TestDefaultRegistry(t *testing.T) {
	r := strategy.DefaultRegistry(nil)
	assert.Len(t, r.All(), 6)

	var types []domain.RefactoringType
	for _, s := range r.For(domain.SmellGodClass) {
		types = append(types, s.Type())
	}
	assert.Equal(t, []domain.RefactoringType{
		domain.ExtractMethod, domain.ExtractClass, domain.SplitGodClass, domain.ExtractInterface,
	}, types)

	err := r.Register(strategy.NewSimplifyMethod())
	assert.Error(t, err)
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := strategy.NewRegistry(nil)
	_, err := r.Get(domain.ExtractClass)
	assert.ErrorIs(t, err, domain.ErrStrategyNotFound)

	require.NoError(t, r.Register(strategy.NewExtractClass()))
	s, err := r.Get(domain.ExtractClass)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractClass, s.Type())
}

const flowSrc = `package p

func Classify(n int) string {
	if n < 0 {
		return "negative"
	} else {
		if n == 0 {
			return "zero"
		}
		return "positive"
	}
}

func IsEven(n int) bool {
	if n%2 == 0 {
		return true
	}
	return false
}

func Log(msgs []string, verbose bool) {
	if verbose {
		for _, m := range msgs {
			println(m)
		}
		println("done")
	}
}

func Flat(n int) int { return n }
`

func TestSimplifyMethod_DropsElseAfterReturn(t *testing.T) {
	u := unit(t, flowSrc)
	out, _ := apply(t, strategy.NewSimplifyMethod(), u, smell(domain.SmellDeepNesting, "Classify"))
	assert.NotContains(t, out, "else")
	assert.Contains(t, out, `return "positive"`)
}

func TestSimplifyMethod_CollapsesBoolReturn(t *testing.T) {
	u := unit(t, flowSrc)
	out, _ := apply(t, strategy.NewSimplifyMethod(), u, smell(domain.SmellComplexConditional, "IsEven"))
	assert.Contains(t, out, "return n%2 == 0")
	assert.NotContains(t, out, "return true")
}

func TestSimplifyMethod_GuardClause(t *testing.T) {
	u := unit(t, flowSrc)
	out, _ := apply(t, strategy.NewSimplifyMethod(), u, smell(domain.SmellDeepNesting, "Log"))
	assert.Contains(t, out, "if !verbose {\n\t\treturn\n\t}")
}

func TestSimplifyMethod_NothingToDo(t *testing.T) {
	u := unit(t, flowSrc)
	s := strategy.NewSimplifyMethod()
	sm := smell(domain.SmellLongMethod, "Flat")
	assert.False(t, s.CanApply(u, sm))
	_, err := s.Apply(u, sm)
	assert.ErrorIs(t, err, domain.ErrNotApplicable)
	_, err = s.EstimateImprovement(u, sm)
	assert.ErrorIs(t, err, domain.ErrNotApplicable)
}

const reportSrc = `package p

import "strings"

type Report struct {
	lines []string
	title string
}

func (r *Report) Render(sep string, upper bool) string {
	b := &strings.Builder{}
	b.WriteString(r.title)
	for i, l := range r.lines {
		if upper {
			l = strings.ToUpper(l)
		}
		b.WriteString(sep)
		b.WriteString(l)
		_ = i
	}
	return b.String()
}
`

func TestExtractMethod_MovesLoopIntoMethod(t *testing.T) {
	u := unit(t, reportSrc)
	s := strategy.NewExtractMethod()
	sm := smell(domain.SmellLongMethod, "Report.Render")

	est, err := s.EstimateImprovement(u, sm)
	require.NoError(t, err)
	assert.Greater(t, est.ComplexityImprovement, 0.0)

	out, _ := apply(t, s, u, sm)
	assert.Contains(t, out, "r.runRenderStep(upper, b, sep)")
	assert.Contains(t, out, "func (r *Report) runRenderStep(upper bool, b *strings.Builder, sep string) {")
}

func TestExtractMethod_RejectsLostWrites(t *testing.T) {
	src := `package p

import "strings"

func Join(parts []string, upper bool) string {
	var b strings.Builder
	for i, l := range parts {
		if upper {
			l = strings.ToUpper(l)
		}
		b.WriteString(l)
		_ = i
	}
	return b.String()
}
`
	u := unit(t, src)
	// The loop writes to b through an implicit &b, and the inner if writes
	// to the loop variable; neither survives extraction.
	assert.False(t, strategy.NewExtractMethod().CanApply(u, smell(domain.SmellLongMethod, "Join")))
}

func TestExtractMethod_SkipsStatementsUsingLocalDeclarations(t *testing.T) {
	src := `package p

func Sum(xs []int, out []int) {
	const limit = 10
	type pair struct{ a, b int }
	for i, x := range xs {
		if x > limit {
			x = limit
		}
		p := pair{a: x, b: x}
		out[i] = p.a + p.b
	}
	for i := range out {
		if out[i] < 0 {
			out[i] = 0
		}
	}
}
`
	u := unit(t, src)
	out, _ := apply(t, strategy.NewExtractMethod(), u, smell(domain.SmellLongMethod, "Sum"))
	assert.Contains(t, out, "runSumStep(out)")
	assert.Contains(t, out, "func runSumStep(out []int) {")
	assert.Contains(t, out, "for i, x := range xs {")
}

func TestExtractMethod_NothingLeftWithoutLocalDeclarations(t *testing.T) {
	src := `package p

func Clamp(xs []int) {
	const limit = 10
	for i := range xs {
		if xs[i] > limit {
			xs[i] = limit
		}
	}
}
`
	u := unit(t, src)
	s := strategy.NewExtractMethod()
	sm := smell(domain.SmellLongMethod, "Clamp")
	assert.False(t, s.CanApply(u, sm))
	_, err := s.EstimateImprovement(u, sm)
	assert.ErrorIs(t, err, domain.ErrNotApplicable)
}

const colorSrc = `package p

const (
	Red = iota
	Green
	Blue
)

func Name(c int) string {
	if c == Red {
		return "red"
	} else if c == Green || c == Blue {
		return "cool"
	} else if 7 == c {
		return "seven"
	} else {
		return "unknown"
	}
}

func Count(xs []int) int {
	n := 0
	for _, x := range xs {
		if x == 1 {
			break
		} else if x == 2 {
			n++
		} else if x == 3 {
			n--
		}
	}
	return n
}
`

func TestReplaceConditional_BuildsSwitch(t *testing.T) {
	u := unit(t, colorSrc)
	out, _ := apply(t, strategy.NewReplaceConditional(), u, smell(domain.SmellSwitchStatement, "Name"))
	assert.Contains(t, out, "switch c {")
	assert.Contains(t, out, "case Green, Blue:")
	assert.Contains(t, out, "case 7:")
	assert.Contains(t, out, "default:")
}

func TestReplaceConditional_KeepsBreakSemantics(t *testing.T) {
	u := unit(t, colorSrc)
	assert.False(t, strategy.NewReplaceConditional().CanApply(u, smell(domain.SmellComplexConditional, "Count")))
}

const storeSrc = `package p

type Store struct {
	cacheData map[string]string
	cacheHits int
	mailHost  string
	mailSent  int
}

func NewStore(host string) *Store {
	return &Store{cacheData: map[string]string{}, mailHost: host}
}

func (s *Store) CacheGet(k string) string {
	s.cacheHits++
	return s.cacheData[k]
}

func (s *Store) CachePut(k, v string) { s.cacheData[k] = v }

func (s *Store) CacheDrop(k string) { delete(s.cacheData, k) }

// MailSend formats the address.
func (s *Store) MailSend(to string) string {
	s.mailSent++
	return s.mailHost + ":" + to
}

func (s *Store) MailReset() { s.mailSent = 0 }

func (s *Store) MailTotal() int { n := s.mailSent; return n }
`

func TestExtractInterface(t *testing.T) {
	u := unit(t, storeSrc)
	s := strategy.NewExtractInterface()
	out, next := apply(t, s, u, smell(domain.SmellGodClass, "Store"))
	assert.Contains(t, out, "type StoreAPI interface {")
	assert.Contains(t, out, "CacheGet(k string) string")
	assert.Contains(t, out, "var _ StoreAPI = (*Store)(nil)")

	assert.False(t, s.CanApply(next, smell(domain.SmellGodClass, "Store")))
}

func TestExtractClass_EmbedsLargestCluster(t *testing.T) {
	u := unit(t, storeSrc)
	s := strategy.NewExtractClass()
	sm := smell(domain.SmellLowCohesion, "Store")

	est, err := s.EstimateImprovement(u, sm)
	require.NoError(t, err)
	assert.Equal(t, 0.5, est.CohesionImprovement)

	out, next := apply(t, s, u, sm)
	assert.Contains(t, out, "type Cache struct {")
	assert.Contains(t, out, "func (s *Cache) CacheGet(k string) string {")
	assert.Contains(t, out, "Cache: Cache{cacheData: map[string]string{}}")

	store, ok := syntax.FindClass(next.File, "Store")
	require.True(t, ok)
	assert.Equal(t, []string{"Cache", "mailHost", "mailSent"}, store.FieldNames())
	assert.Equal(t, 1, cohesion.Analyze(next, store).LCOM4)
}

func TestExtractClass_SkipsClusterWhoseReceiverEscapes(t *testing.T) {
	src := storeSrc + `
func (s *Store) CacheReset() *Store {
	s.cacheHits = 0
	return s
}
`
	u := unit(t, src)
	out, _ := apply(t, strategy.NewExtractClass(), u, smell(domain.SmellLowCohesion, "Store"))
	assert.Contains(t, out, "type Mail struct {")
	assert.NotContains(t, out, "type Cache struct {")
	// Doc comments travel with their methods.
	assert.Contains(t, out, "// MailSend formats the address.\nfunc (s *Mail) MailSend")
}

func TestSplitGodClass_KeepsLargestCluster(t *testing.T) {
	u := unit(t, storeSrc)
	out, _ := apply(t, strategy.NewSplitGodClass(), u, smell(domain.SmellGodClass, "Store"))
	assert.Contains(t, out, "type Mail struct {")
	assert.NotContains(t, out, "type Cache struct {")
	assert.Contains(t, out, "func (s *Store) CacheGet(k string) string {")
	assert.Contains(t, out, "Mail: Mail{mailHost: host}")
}

func TestSplitGodClass_NeedsTwoClusters(t *testing.T) {
	u := unit(t, reportSrc)
	assert.False(t, strategy.NewSplitGodClass().CanApply(u, smell(domain.SmellGodClass, "Report")))
}

func TestExtractClass_LeavesClusterWithMethodsInOtherFiles(t *testing.T) {
	src := `package p

type Store struct {
	cacheData map[string]string
	mailHost  string
	mailSent  int
}

func (s *Store) CacheGet(k string) string { return s.cacheData[k] }
func (s *Store) CachePut(k, v string)     { s.cacheData[k] = v }

func (s *Store) MailSend(to string) string {
	s.mailSent++
	return s.mailHost + ":" + to
}

func (s *Store) MailReset() { s.mailSent = 0 }

func (s *Store) MailHost() string { return s.mailHost }
`
	snap := domain.NewSnapshot("/p", []domain.Document{
		{ID: "p/a.go", Source: []byte(src)},
		{ID: "p/b.go", Source: []byte("package p\n\nfunc (s *Store) CacheDrop(k string) { delete(s.cacheData, k) }\n")},
	})
	u, err := checker.Load(snap, "p/a.go")
	require.NoError(t, err)
	require.Empty(t, u.TypeErrors)

	out, _ := apply(t, strategy.NewExtractClass(), u, smell(domain.SmellLowCohesion, "Store"))
	assert.Contains(t, out, "type Mail struct {")
	assert.NotContains(t, out, "type Cache struct {")
	assert.Contains(t, out, "func (s *Store) CacheGet(k string) string {")
}

func TestExtractClass_RefusesFieldsKeyedInOtherFiles(t *testing.T) {
	snap := domain.NewSnapshot("/p", []domain.Document{
		{ID: "p/a.go", Source: []byte(storeSrc)},
		{ID: "p/b.go", Source: []byte("package p\n\nvar mailer = Store{mailHost: \"smtp\", cacheData: nil}\n")},
	})
	u, err := checker.Load(snap, "p/a.go")
	require.NoError(t, err)
	require.Empty(t, u.TypeErrors)

	assert.False(t, strategy.NewExtractClass().CanApply(u, smell(domain.SmellLowCohesion, "Store")))
}
