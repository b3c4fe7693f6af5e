package application_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reforge/reforge/internal/application"
	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/syntax"
)

const storeDoc = `package p

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

func (s *Store) MailSend(to string) string {
	s.mailSent++
	return s.mailHost + ":" + to
}

func (s *Store) MailReset() { s.mailSent = 0 }

func (s *Store) MailTotal() int { n := s.mailSent; return n }
`

const flowDoc = `package p

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
`

// --- fakes ---

type fakeSnapshots struct {
	mu       sync.Mutex
	docs     []domain.Document
	written  map[domain.DocumentID][]byte
	writeErr error
}

func newFakeSnapshots(docs ...domain.Document) *fakeSnapshots {
	return &fakeSnapshots{docs: docs, written: map[domain.DocumentID][]byte{}}
}

func (f *fakeSnapshots) Load(_ context.Context, root string, _ []string) (*domain.Snapshot, error) {
	return domain.NewSnapshot(root, f.docs), nil
}

func (f *fakeSnapshots) Persist(_ context.Context, _ string, doc domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written[doc.ID] = doc.Source
	return nil
}

// fakeValidator reports every candidate as compiling and public-surface
// compatible unless verdict says otherwise.
type fakeValidator struct {
	mu      sync.Mutex
	calls   int
	verdict func(call int, candidate []byte) domain.TransformationScore
}

func (f *fakeValidator) Validate(_ context.Context, _, candidate *domain.Snapshot, id domain.DocumentID) (domain.TransformationScore, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	doc, _ := candidate.Document(id)
	if f.verdict != nil {
		return f.verdict(call, doc.Source), nil
	}
	return passing(), nil
}

func passing() domain.TransformationScore {
	return domain.TransformationScore{Compiles: true, SemanticsPreserved: true}
}

type fakeFeed struct{ smells []domain.CodeSmell }

func (f *fakeFeed) Smells(_ context.Context, _ *domain.Snapshot, id domain.DocumentID, _ domain.DetectionProfile) ([]domain.CodeSmell, error) {
	var out []domain.CodeSmell
	for _, s := range f.smells {
		if s.Location.File == string(id) {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeBackups struct {
	created  [][]string
	restored []string
}

func (f *fakeBackups) Create(_ context.Context, _ string, paths []string) (string, error) {
	f.created = append(f.created, paths)
	return "backup-1", nil
}

func (f *fakeBackups) Restore(_ context.Context, _ string, id string) error {
	f.restored = append(f.restored, id)
	return nil
}

type fakeHistory struct{ entries []domain.RunEntry }

func (f *fakeHistory) Save(_ string, e domain.RunEntry) error {
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeHistory) Load(string) ([]domain.RunEntry, error) { return f.entries, nil }

type fakeGit struct{ clean bool }

func (f fakeGit) IsGitRepo(string) bool              { return true }
func (f fakeGit) CommitHash(string) (string, error) { return "abc123", nil }
func (f fakeGit) IsClean(string) (bool, error)      { return f.clean, nil }

type fakeConfig struct{ cfg domain.ProjectConfig }

func (f fakeConfig) Load(string) (domain.ProjectConfig, error) { return f.cfg, nil }

type harness struct {
	svc       *application.RefactorService
	snapshots *fakeSnapshots
	validator *fakeValidator
	backups   *fakeBackups
	history   *fakeHistory
	config    fakeConfig
}

func newHarness(cfg domain.ProjectConfig, feed []domain.CodeSmell) *harness {
	h := &harness{
		snapshots: newFakeSnapshots(
			domain.Document{ID: "p/store.go", Source: []byte(storeDoc)},
			domain.Document{ID: "p/flow.go", Source: []byte(flowDoc)},
		),
		validator: &fakeValidator{},
		backups:   &fakeBackups{},
		history:   &fakeHistory{},
		config:    fakeConfig{cfg: cfg},
	}
	h.svc = application.NewRefactorService(application.RefactorDeps{
		Snapshots: h.snapshots,
		Loader:    syntax.NewChecker(),
		Feed:      &fakeFeed{smells: feed},
		Validator: h.validator,
		Backups:   h.backups,
		History:   h.history,
		Config:    h.config,
	}, nil)
	return h
}

// withGit rebuilds the service with git metadata available.
func (h *harness) withGit(git domain.GitInfo) {
	h.svc = application.NewRefactorService(application.RefactorDeps{
		Snapshots: h.snapshots,
		Loader:    syntax.NewChecker(),
		Validator: h.validator,
		Backups:   h.backups,
		History:   h.history,
		Git:       git,
		Config:    h.config,
	}, nil)
}

func lowCohesion(t *testing.T, plan *domain.RefactoringPlan) domain.RefactoringOpportunity {
	t.Helper()
	for _, o := range plan.Opportunities {
		if o.Smell.Type == domain.SmellLowCohesion && o.Smell.Target == "Store" {
			return o
		}
	}
	require.Fail(t, "no low-cohesion opportunity for Store")
	return domain.RefactoringOpportunity{}
}

// --- Plan ---

func TestPlan_MergesFeedAndCohesionSmells(t *testing.T) {
	nesting := domain.CodeSmell{
		Type:     domain.SmellDeepNesting,
		Severity: domain.SeverityHigh,
		Location: domain.Span{File: "p/flow.go", StartLine: 3, EndLine: 12},
		Target:   "Classify",
	}
	h := newHarness(domain.ProjectConfig{}, []domain.CodeSmell{nesting})

	plan, err := h.svc.Plan(context.Background(), "/proj")
	require.NoError(t, err)
	assert.Equal(t, 2, plan.DocumentsScanned)
	require.NotEmpty(t, plan.Opportunities)

	first := plan.Opportunities[0]
	assert.Equal(t, domain.SmellDeepNesting, first.Smell.Type)
	assert.Equal(t, []domain.RefactoringType{domain.SimplifyMethod}, first.Strategies)
	assert.Contains(t, first.Recommendation, "simplify_method")

	opp := lowCohesion(t, plan)
	assert.Contains(t, opp.Strategies, domain.ExtractClass)
	assert.Contains(t, opp.Strategies, domain.ExtractInterface)
	assert.Equal(t, 0.5, opp.EstimatedCohesionImprovement)
}

func TestPlan_FiltersBySeverityAndDenyList(t *testing.T) {
	h := newHarness(domain.ProjectConfig{MinSeverity: "medium"}, nil)
	plan, err := h.svc.Plan(context.Background(), "/proj")
	require.NoError(t, err)
	// LCOM4=2 is a low-severity smell.
	assert.Empty(t, plan.Opportunities)

	h = newHarness(domain.ProjectConfig{ExcludedStrategies: []string{"extract_interface"}}, nil)
	plan, err = h.svc.Plan(context.Background(), "/proj")
	require.NoError(t, err)
	assert.NotContains(t, lowCohesion(t, plan).Strategies, domain.ExtractInterface)
}

// --- Compare and ApplyBest ---

func TestCompare_RanksCandidatesOnIsolatedBranches(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	h.validator.verdict = func(_ int, candidate []byte) domain.TransformationScore {
		if bytes.Contains(candidate, []byte("StoreAPI")) {
			return domain.TransformationScore{CompileErrors: []string{"boom"}}
		}
		return passing()
	}
	ctx := context.Background()
	plan, err := h.svc.Plan(ctx, "/proj")
	require.NoError(t, err)
	opp := lowCohesion(t, plan)

	snap, err := h.svc.LoadSnapshot(ctx, "/proj")
	require.NoError(t, err)
	cmp, err := h.svc.Compare(ctx, snap, opp)
	require.NoError(t, err)

	assert.Len(t, cmp.Succeeded, len(opp.Strategies)-1)
	require.Len(t, cmp.Failed, 1)
	assert.Equal(t, domain.ExtractInterface, cmp.Failed[0].Strategy)
	assert.Contains(t, cmp.Failed[0].Error, "boom")

	require.NotNil(t, cmp.Best)
	assert.Equal(t, cmp.Succeeded[0].Strategy, cmp.Best.Strategy)
	for i := 1; i < len(cmp.Succeeded); i++ {
		assert.GreaterOrEqual(t, cmp.Succeeded[i-1].Score.Overall, cmp.Succeeded[i].Score.Overall)
	}
	assert.NotEqual(t, storeDoc, string(cmp.Best.Document.Source))

	// The canonical snapshot is untouched.
	doc, _ := snap.Document("p/store.go")
	assert.Equal(t, storeDoc, string(doc.Source))
}

func TestCompare_MinScoreGate(t *testing.T) {
	minScore := 99.9
	h := newHarness(domain.ProjectConfig{MinScore: &minScore}, nil)
	ctx := context.Background()
	plan, err := h.svc.Plan(ctx, "/proj")
	require.NoError(t, err)
	snap, err := h.svc.LoadSnapshot(ctx, "/proj")
	require.NoError(t, err)

	cmp, err := h.svc.Compare(ctx, snap, lowCohesion(t, plan))
	require.NoError(t, err)
	assert.NotEmpty(t, cmp.Succeeded)
	assert.Nil(t, cmp.Best)

	_, err = h.svc.ApplyBest(ctx, "/proj", cmp)
	assert.ErrorIs(t, err, domain.ErrNoQualifyingResult)
}

func TestApplyBest_WritesBackupAndHistory(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	best := domain.Candidate{
		Strategy: domain.ExtractClass,
		Document: domain.Document{ID: "p/store.go", Source: []byte("package p\n")},
	}
	cmp := &domain.StrategyComparison{
		Opportunity: domain.RefactoringOpportunity{DocumentID: "p/store.go"},
		Best:        &best,
	}

	res, err := h.svc.ApplyBest(context.Background(), "/proj", cmp)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "backup-1", res.BackupID)
	assert.Equal(t, [][]string{{"p/store.go"}}, h.backups.created)
	assert.Equal(t, "package p\n", string(h.snapshots.written["p/store.go"]))

	require.Len(t, h.history.entries, 1)
	assert.Equal(t, "apply", h.history.entries[0].Kind)
	assert.Equal(t, []string{"extract_class"}, h.history.entries[0].Strategies)
}

func TestApplyBest_WriteFailureRestoresBackup(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	h.snapshots.writeErr = errors.New("disk full")
	best := domain.Candidate{Strategy: domain.ExtractClass, Document: domain.Document{ID: "p/store.go"}}
	cmp := &domain.StrategyComparison{
		Opportunity: domain.RefactoringOpportunity{DocumentID: "p/store.go"},
		Best:        &best,
	}

	res, err := h.svc.ApplyBest(context.Background(), "/proj", cmp)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "disk full", res.Error)
	assert.Equal(t, "backup-1", res.BackupID)
	assert.Equal(t, []string{"backup-1"}, h.backups.restored)
}

func TestApplyBest_RequireCleanTree(t *testing.T) {
	on := true
	best := domain.Candidate{Strategy: domain.ExtractClass, Document: domain.Document{ID: "p/store.go", Source: []byte("package p\n")}}
	cmp := &domain.StrategyComparison{
		Opportunity: domain.RefactoringOpportunity{DocumentID: "p/store.go"},
		Best:        &best,
	}

	h := newHarness(domain.ProjectConfig{RequireCleanTree: &on}, nil)
	h.withGit(fakeGit{clean: false})
	_, err := h.svc.ApplyBest(context.Background(), "/proj", cmp)
	assert.ErrorIs(t, err, domain.ErrDirtyWorkTree)
	assert.Empty(t, h.backups.created)
	assert.Empty(t, h.snapshots.written)

	h = newHarness(domain.ProjectConfig{RequireCleanTree: &on}, nil)
	h.withGit(fakeGit{clean: true})
	res, err := h.svc.ApplyBest(context.Background(), "/proj", cmp)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "abc123", h.history.entries[0].CommitHash)
}

func TestApplyBest_DirtyTreeAllowedByDefault(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	h.withGit(fakeGit{clean: false})
	best := domain.Candidate{Strategy: domain.ExtractClass, Document: domain.Document{ID: "p/store.go", Source: []byte("package p\n")}}
	res, err := h.svc.ApplyBest(context.Background(), "/proj", &domain.StrategyComparison{
		Opportunity: domain.RefactoringOpportunity{DocumentID: "p/store.go"},
		Best:        &best,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

// --- ApplyChain ---

var seamChain = domain.StrategyChain{
	Name:       "seams",
	Strategies: []domain.RefactoringType{domain.ExtractInterface, domain.ExtractClass},
}

func TestApplyChain_WritesTerminalDocumentOnce(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	res, err := h.svc.ApplyChain(context.Background(), "/proj", "p/store.go", seamChain)
	require.NoError(t, err)

	assert.Equal(t, 2, res.StepsCompleted)
	assert.False(t, res.Halted())
	assert.True(t, res.Written)
	assert.Equal(t, "backup-1", res.BackupID)
	require.NotNil(t, res.FinalScore)
	assert.Equal(t, 2, res.FinalScore.OriginalLCOM4)
	assert.Equal(t, 1, res.FinalScore.TransformedLCOM4)

	out := string(h.snapshots.written["p/store.go"])
	assert.Contains(t, out, "type StoreAPI interface {")
	assert.Contains(t, out, "type Cache struct {")
	assert.Len(t, h.backups.created, 1)
}

func TestApplyChain_StopsOnSecondStepRegression(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	h.validator.verdict = func(call int, _ []byte) domain.TransformationScore {
		v := passing()
		if call == 2 {
			v.SemanticsPreserved = false
			v.BreakingChanges = []string{"removed Store.CacheGet"}
		}
		return v
	}

	res, err := h.svc.ApplyChain(context.Background(), "/proj", "p/store.go", seamChain)
	require.NoError(t, err)
	assert.Equal(t, 1, res.StepsCompleted)
	require.NotNil(t, res.StopReason)
	assert.Equal(t, 2, res.StopReason.Step)
	assert.Equal(t, domain.ExtractClass, res.StopReason.Strategy)
	assert.Less(t, res.StopReason.Score, 0.0)

	// Only step one's output reaches storage.
	require.True(t, res.Written)
	out := string(h.snapshots.written["p/store.go"])
	assert.Contains(t, out, "StoreAPI")
	assert.NotContains(t, out, "type Cache struct {")
	require.Len(t, h.history.entries, 1)
	assert.False(t, h.history.entries[0].Success)
	assert.Equal(t, "step scored -50.0", h.history.entries[0].StopReason)
}

func TestApplyChain_FirstStepRegressionWritesNothing(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	h.validator.verdict = func(call int, _ []byte) domain.TransformationScore {
		v := passing()
		if call == 1 {
			v.SemanticsPreserved = false
		}
		return v
	}

	res, err := h.svc.ApplyChain(context.Background(), "/proj", "p/store.go", seamChain)
	require.NoError(t, err)
	assert.Equal(t, 0, res.StepsCompleted)
	assert.True(t, res.Halted())
	assert.False(t, res.Written)
	assert.Empty(t, h.snapshots.written)
}

func TestApplyChain_SkipsInapplicableSteps(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	chain := domain.StrategyChain{
		Name:       "simplify",
		Strategies: []domain.RefactoringType{domain.SimplifyMethod, domain.ExtractClass},
	}
	res, err := h.svc.ApplyChain(context.Background(), "/proj", "p/store.go", chain)
	require.NoError(t, err)
	require.Len(t, res.Steps, 2)
	// Nothing in store.go is nested or conditional enough for SimplifyMethod.
	assert.True(t, res.Steps[0].Skipped)
	assert.True(t, res.Steps[1].Success)
	assert.Equal(t, 1, res.StepsCompleted)
}

func TestApplyChain_RejectsInvalidChains(t *testing.T) {
	h := newHarness(domain.ProjectConfig{MaxChainLength: 1}, nil)
	ctx := context.Background()

	_, err := h.svc.ApplyChain(ctx, "/proj", "p/store.go", domain.StrategyChain{
		Strategies: []domain.RefactoringType{domain.ExtractClass, domain.SplitGodClass},
	})
	assert.Error(t, err)

	_, err = h.svc.ApplyChain(ctx, "/proj", "p/store.go", seamChain)
	assert.ErrorContains(t, err, "max_chain_length")

	_, err = h.svc.ApplyChain(ctx, "/proj", "p/missing.go", domain.StrategyChain{
		Strategies: []domain.RefactoringType{domain.ExtractClass},
	})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	assert.Empty(t, h.backups.created)
}

// --- Cohesion, Chains, Rollback ---

func TestCohesion_ReportsClasses(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	docs, err := h.svc.Cohesion(context.Background(), "/proj")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, domain.DocumentID("p/store.go"), docs[0].DocumentID)
	require.Len(t, docs[0].Reports, 1)
	assert.Equal(t, 2, docs[0].Reports[0].LCOM4)
}

func TestChains_UsesConfiguredLength(t *testing.T) {
	h := newHarness(domain.ProjectConfig{MaxChainLength: 2}, nil)
	chains, err := h.svc.Chains("/proj", 0)
	require.NoError(t, err)
	require.NotEmpty(t, chains)
	for _, c := range chains {
		assert.LessOrEqual(t, len(c.Strategies), 2)
	}
}

func TestRollback_RestoresAndRecords(t *testing.T) {
	h := newHarness(domain.ProjectConfig{}, nil)
	require.NoError(t, h.svc.Rollback(context.Background(), "/proj", "backup-9"))
	assert.Equal(t, []string{"backup-9"}, h.backups.restored)

	entries, err := h.svc.History("/proj")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "rollback", entries[0].Kind)
}

func TestApplyChain_RequireCleanTree(t *testing.T) {
	on := true
	h := newHarness(domain.ProjectConfig{RequireCleanTree: &on}, nil)
	h.withGit(fakeGit{clean: false})
	_, err := h.svc.ApplyChain(context.Background(), "/proj", "p/store.go", seamChain)
	assert.ErrorIs(t, err, domain.ErrDirtyWorkTree)
	assert.Empty(t, h.snapshots.written)
}
