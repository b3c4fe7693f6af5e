package application

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/branch"
	"github.com/reforge/reforge/internal/domain/cohesion"
	"github.com/reforge/reforge/internal/domain/composer"
	"github.com/reforge/reforge/internal/domain/scoring"
	"github.com/reforge/reforge/internal/domain/strategy"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// RefactorDeps are the ports the RefactorService drives. Snapshots, Loader,
// Validator and Config are required; Feed, Backups, History and Git are
// optional.
type RefactorDeps struct {
	Snapshots domain.SnapshotProvider
	Loader    syntax.Loader
	Feed      domain.SmellFeed
	Validator domain.Validator
	Backups   domain.BackupStore
	History   domain.RunHistory
	Git       domain.GitInfo
	Config    domain.ConfigLoader
	Registry  *strategy.Registry
}

// RefactorService orchestrates the refactoring pipeline:
// load → detect smells → plan → compare on branches → apply or chain.
type RefactorService struct {
	deps   RefactorDeps
	logger *zap.Logger
}

// DocumentCohesion is the cohesion analysis of one document.
type DocumentCohesion struct {
	DocumentID domain.DocumentID `json:"document_id"`
	Reports    []cohesion.Report `json:"reports"`
}

func NewRefactorService(deps RefactorDeps, logger *zap.Logger) *RefactorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = strategy.DefaultRegistry(logger)
	}
	return &RefactorService{deps: deps, logger: logger}
}

// Settings loads the project's config and resolves it against defaults.
func (s *RefactorService) Settings(projectPath string) (domain.Settings, error) {
	cfg, err := s.deps.Config.Load(projectPath)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("loading config: %w", err)
	}
	return BuildSettings(cfg), nil
}

// LoadSnapshot reads the project into a snapshot, honouring exclude_paths.
func (s *RefactorService) LoadSnapshot(ctx context.Context, projectPath string) (*domain.Snapshot, error) {
	settings, err := s.Settings(projectPath)
	if err != nil {
		return nil, err
	}
	snap, err := s.deps.Snapshots.Load(ctx, projectPath, settings.ExcludePaths)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	return snap, nil
}

// Plan finds refactoring opportunities across the project, ordered by
// severity and then by estimated improvement.
func (s *RefactorService) Plan(ctx context.Context, projectPath string) (*domain.RefactoringPlan, error) {
	// 0. Load config
	settings, err := s.Settings(projectPath)
	if err != nil {
		return nil, err
	}

	// 1. Load the snapshot
	snap, err := s.deps.Snapshots.Load(ctx, projectPath, settings.ExcludePaths)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}

	plan := &domain.RefactoringPlan{ProjectPath: projectPath, DocumentsScanned: snap.Len()}

	// 2. Collect opportunities per document
	for _, id := range snap.DocumentIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isTestDocument(id) {
			continue
		}
		u, err := s.deps.Loader.Load(snap, id)
		if err != nil {
			s.logger.Warn("skipping unparseable document", zap.String("document", string(id)), zap.Error(err))
			continue
		}
		smells, err := s.smells(ctx, snap, u, settings)
		if err != nil {
			return nil, err
		}
		for _, sm := range smells {
			if opp, ok := s.opportunity(u, sm, settings); ok {
				plan.Opportunities = append(plan.Opportunities, opp)
			}
		}
	}

	// 3. Rank
	sort.SliceStable(plan.Opportunities, func(i, j int) bool {
		a, b := plan.Opportunities[i], plan.Opportunities[j]
		if a.Smell.Severity != b.Smell.Severity {
			return a.Smell.Severity > b.Smell.Severity
		}
		return a.CombinedImprovement() > b.CombinedImprovement()
	})

	plan.CommitHash = s.commitHash(projectPath)
	s.logger.Info("plan built",
		zap.String("project", projectPath),
		zap.Int("documents", plan.DocumentsScanned),
		zap.Int("opportunities", len(plan.Opportunities)))
	return plan, nil
}

// smells merges cohesion smells with the feed's smells and drops those
// under the minimum severity.
func (s *RefactorService) smells(ctx context.Context, snap *domain.Snapshot, u *syntax.Unit, settings domain.Settings) ([]domain.CodeSmell, error) {
	id := u.Document.ID
	all := cohesion.Smells(string(id), cohesion.AnalyzeFile(u))
	if s.deps.Feed != nil {
		fed, err := s.deps.Feed.Smells(ctx, snap, id, settings.Profile)
		if err != nil {
			return nil, fmt.Errorf("detecting smells in %s: %w", id, err)
		}
		all = append(all, fed...)
	}
	out := all[:0]
	for _, sm := range all {
		if sm.Severity >= settings.MinSeverity {
			out = append(out, sm)
		}
	}
	return out, nil
}

// opportunity binds sm to the allowed strategies that address it and can
// estimate an improvement. Estimates are the best any strategy offers.
func (s *RefactorService) opportunity(u *syntax.Unit, sm domain.CodeSmell, settings domain.Settings) (domain.RefactoringOpportunity, bool) {
	opp := domain.RefactoringOpportunity{DocumentID: u.Document.ID, Smell: sm}
	best := math.Inf(-1)
	for _, st := range s.deps.Registry.For(sm.Type) {
		if !settings.IsAllowed(st.Type()) {
			continue
		}
		est, err := st.EstimateImprovement(u, sm)
		if err != nil {
			s.logger.Debug("estimate skipped",
				zap.String("strategy", st.Type().String()),
				zap.String("target", sm.Target),
				zap.Error(err))
			continue
		}
		opp.Strategies = append(opp.Strategies, st.Type())
		opp.EstimatedComplexityImprovement = math.Max(opp.EstimatedComplexityImprovement, est.ComplexityImprovement)
		opp.EstimatedCohesionImprovement = math.Max(opp.EstimatedCohesionImprovement, est.CohesionImprovement)
		if combined := est.ComplexityImprovement + est.CohesionImprovement; combined > best {
			best = combined
			opp.Recommendation = fmt.Sprintf("%s: %s", st.Type(), est.Description)
		}
	}
	return opp, len(opp.Strategies) > 0
}

// Compare applies every applicable strategy of opp to its own branch of
// snap, scores the results and picks the best one that clears MinScore.
func (s *RefactorService) Compare(ctx context.Context, snap *domain.Snapshot, opp domain.RefactoringOpportunity) (*domain.StrategyComparison, error) {
	settings, err := s.Settings(snap.Root())
	if err != nil {
		return nil, err
	}
	original, err := s.deps.Loader.Load(snap, opp.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", opp.DocumentID, err)
	}

	// 1. Select applicable strategies
	limit := settings.MaxStrategies
	if settings.MaxBranches > 0 && settings.MaxBranches < limit {
		limit = settings.MaxBranches
	}
	var selected []strategy.Strategy
	for _, t := range opp.Strategies {
		if len(selected) == limit {
			break
		}
		st, err := s.deps.Registry.Get(t)
		if err != nil {
			return nil, err
		}
		if settings.IsAllowed(t) && st.CanApply(original, opp.Smell) {
			selected = append(selected, st)
		}
	}

	// 2. One branch per strategy, evaluated concurrently
	mgr := branch.NewManager(snap, branch.WithLogger(s.logger))
	defer mgr.Cleanup(0)

	candidates := make([]domain.Candidate, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, st := range selected {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			candidates[i] = s.evaluate(gctx, mgr, st, opp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 3. Partition and rank
	cmp := &domain.StrategyComparison{Opportunity: opp}
	for _, c := range candidates {
		if c.Error != "" || !c.Score.Base.Compiles {
			if c.Error == "" {
				c.Error = "candidate does not compile: " + strings.Join(c.Score.Base.CompileErrors, "; ")
			}
			cmp.Failed = append(cmp.Failed, c)
			continue
		}
		cmp.Succeeded = append(cmp.Succeeded, c)
	}
	sort.SliceStable(cmp.Succeeded, func(i, j int) bool {
		return cmp.Succeeded[i].Score.Overall > cmp.Succeeded[j].Score.Overall
	})
	if len(cmp.Succeeded) > 0 && cmp.Succeeded[0].Score.Overall >= settings.MinScore {
		best := cmp.Succeeded[0]
		cmp.Best = &best
	}

	s.logger.Info("strategies compared",
		zap.String("document", string(opp.DocumentID)),
		zap.String("smell", string(opp.Smell.Type)),
		zap.Int("succeeded", len(cmp.Succeeded)),
		zap.Int("failed", len(cmp.Failed)),
		zap.Bool("qualified", cmp.Best != nil))
	return cmp, nil
}

// evaluate runs one strategy on a fresh branch. Failures are recorded on
// the candidate.
func (s *RefactorService) evaluate(ctx context.Context, mgr *branch.Manager, st strategy.Strategy, opp domain.RefactoringOpportunity) domain.Candidate {
	name := fmt.Sprintf("%s-%s", st.Type(), uuid.NewString()[:8])
	c := domain.Candidate{Strategy: st.Type(), Branch: name}
	if err := mgr.CreateBranch(name, ""); err != nil {
		c.Error = err.Error()
		return c
	}

	next, err := mgr.ApplyTransformation(ctx, name, opp.DocumentID, func(_ context.Context, snap *domain.Snapshot, doc domain.Document) (domain.Document, error) {
		u, err := s.deps.Loader.Load(snap, doc.ID)
		if err != nil {
			return domain.Document{}, err
		}
		out, err := st.Apply(u, opp.Smell)
		if err != nil {
			return domain.Document{}, err
		}
		return domain.Document{ID: doc.ID, Source: out}, nil
	})
	if err != nil {
		c.Error = err.Error()
		return c
	}

	score, err := s.score(ctx, mgr.Canonical(), next, opp.DocumentID)
	if err != nil {
		c.Error = err.Error()
		return c
	}
	c.Score = score
	c.Document, _ = next.Document(opp.DocumentID)
	return c
}

// score validates after against before for document id and extends the
// verdict with design-quality terms.
func (s *RefactorService) score(ctx context.Context, before, after *domain.Snapshot, id domain.DocumentID) (domain.RefactoringScore, error) {
	base, err := s.deps.Validator.Validate(ctx, before, after, id)
	if err != nil {
		return domain.RefactoringScore{}, fmt.Errorf("validating %s: %w", id, err)
	}
	original, err := s.deps.Loader.Load(before, id)
	if err != nil {
		return domain.RefactoringScore{}, fmt.Errorf("loading %s: %w", id, err)
	}
	// An unparseable candidate still gets a (failing) score.
	transformed, _ := s.deps.Loader.Load(after, id)
	return scoring.Score(base, original, transformed), nil
}

// ApplyBest writes the best candidate of cmp to disk. A write failure is
// reported in the result, after a best-effort restore from the backup.
func (s *RefactorService) ApplyBest(ctx context.Context, projectPath string, cmp *domain.StrategyComparison) (*domain.RefactoringResult, error) {
	if cmp == nil || cmp.Best == nil {
		return nil, fmt.Errorf("applying best candidate: %w", domain.ErrNoQualifyingResult)
	}
	settings, err := s.Settings(projectPath)
	if err != nil {
		return nil, err
	}

	if err := s.checkWorkTree(projectPath, settings); err != nil {
		return nil, err
	}

	best := cmp.Best
	id := cmp.Opportunity.DocumentID
	res := &domain.RefactoringResult{
		Strategy:      best.Strategy,
		Score:         best.Score,
		ModifiedFiles: []string{string(id)},
	}

	// 1. Backup
	if settings.CreateBackup && s.deps.Backups != nil {
		backupID, err := s.deps.Backups.Create(ctx, projectPath, []string{string(id)})
		if err != nil {
			return nil, fmt.Errorf("creating backup: %w", err)
		}
		res.BackupID = backupID
	}

	// 2. Write
	if err := s.deps.Snapshots.Persist(ctx, projectPath, best.Document); err != nil {
		s.rollback(ctx, projectPath, res.BackupID)
		res.Error = err.Error()
	} else {
		res.Success = true
	}

	s.record(projectPath, domain.RunEntry{
		Kind:       "apply",
		Document:   string(id),
		Strategies: []string{best.Strategy.String()},
		Success:    res.Success,
		Score:      best.Score.Overall,
		BackupID:   res.BackupID,
	})
	s.logger.Info("candidate applied",
		zap.String("document", string(id)),
		zap.String("strategy", best.Strategy.String()),
		zap.Bool("success", res.Success))
	return res, nil
}

// ApplyChain runs chain against document id step by step on an in-memory
// snapshot and writes only the terminal document.
func (s *RefactorService) ApplyChain(ctx context.Context, projectPath string, id domain.DocumentID, chain domain.StrategyChain) (*domain.ChainResult, error) {
	// 0. Validate
	if err := composer.ValidateChain(chain.Strategies); err != nil {
		return nil, fmt.Errorf("validating chain %q: %w", chain.Name, err)
	}
	settings, err := s.Settings(projectPath)
	if err != nil {
		return nil, err
	}
	if settings.MaxChainLength > 0 && len(chain.Strategies) > settings.MaxChainLength {
		return nil, fmt.Errorf("chain %q has %d steps, max_chain_length is %d", chain.Name, len(chain.Strategies), settings.MaxChainLength)
	}
	if err := s.checkWorkTree(projectPath, settings); err != nil {
		return nil, err
	}
	steps := make([]strategy.Strategy, len(chain.Strategies))
	for i, t := range chain.Strategies {
		if steps[i], err = s.deps.Registry.Get(t); err != nil {
			return nil, err
		}
	}

	// 1. Load
	snap, err := s.deps.Snapshots.Load(ctx, projectPath, settings.ExcludePaths)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	original, ok := snap.Document(id)
	if !ok {
		return nil, fmt.Errorf("running chain on %s: %w", id, domain.ErrDocumentNotFound)
	}

	result := &domain.ChainResult{Chain: chain, DocumentID: id}

	// 2. One backup for the whole run
	if settings.CreateBackup && s.deps.Backups != nil {
		backupID, err := s.deps.Backups.Create(ctx, projectPath, []string{string(id)})
		if err != nil {
			return nil, fmt.Errorf("creating backup: %w", err)
		}
		result.BackupID = backupID
	}

	// 3. Walk the chain
	current := snap
	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, step, err := s.runStep(ctx, current, id, st, settings)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, step)
		log := s.logger.With(zap.Int("step", i+1), zap.String("strategy", st.Type().String()))

		switch {
		case step.Skipped:
			log.Debug("step skipped")
		case settings.StopOnRegression && step.Score.IsRegression():
			result.StopReason = &domain.StopReason{
				Step:     i + 1,
				Strategy: st.Type(),
				Reason:   fmt.Sprintf("step scored %.1f", step.Score.Overall),
				Score:    step.Score.Overall,
			}
			log.Info("chain halted on regression", zap.Float64("score", step.Score.Overall))
		case !step.Success:
			log.Info("step discarded", zap.String("error", step.Error))
		default:
			current = next
			result.StepsCompleted++
			log.Debug("step applied", zap.Float64("score", step.Score.Overall))
		}
		if result.Halted() {
			break
		}
	}

	// 4. Persist the terminal document if it changed
	terminal, _ := current.Document(id)
	if !bytes.Equal(terminal.Source, original.Source) {
		if err := s.deps.Snapshots.Persist(ctx, projectPath, terminal); err != nil {
			s.rollback(ctx, projectPath, result.BackupID)
			result.Error = err.Error()
		} else {
			result.Written = true
		}
	}

	// 5. Cumulative score, original vs terminal
	final, err := s.score(ctx, snap, current, id)
	if err != nil {
		return nil, err
	}
	result.FinalScore = &final

	entry := domain.RunEntry{
		Kind:     "chain",
		Document: string(id),
		Success:  result.Error == "" && !result.Halted(),
		Score:    final.Overall,
		BackupID: result.BackupID,
	}
	for _, t := range chain.Strategies {
		entry.Strategies = append(entry.Strategies, t.String())
	}
	if result.Halted() {
		entry.StopReason = result.StopReason.Reason
	}
	s.record(projectPath, entry)
	return result, nil
}

// runStep applies st to the current state. A step whose strategy no longer
// applies is skipped; a step that fails or does not compile is reported
// without success and its output is not returned.
func (s *RefactorService) runStep(ctx context.Context, current *domain.Snapshot, id domain.DocumentID, st strategy.Strategy, settings domain.Settings) (*domain.Snapshot, domain.RefactoringResult, error) {
	step := domain.RefactoringResult{Strategy: st.Type()}
	u, err := s.deps.Loader.Load(current, id)
	if err != nil {
		return nil, step, fmt.Errorf("loading %s: %w", id, err)
	}
	smell, ok, err := s.chainTarget(ctx, current, u, st, settings)
	if err != nil {
		return nil, step, err
	}
	if !ok {
		step.Skipped = true
		return nil, step, nil
	}

	out, err := st.Apply(u, smell)
	if err != nil {
		step.Error = err.Error()
		return nil, step, nil
	}
	next, err := current.WithDocument(domain.Document{ID: id, Source: out})
	if err != nil {
		return nil, step, err
	}
	step.Score, err = s.score(ctx, current, next, id)
	if err != nil {
		return nil, step, err
	}
	if !step.Score.Base.Compiles {
		step.Error = "candidate does not compile: " + strings.Join(step.Score.Base.CompileErrors, "; ")
		return nil, step, nil
	}
	step.Success = true
	step.ModifiedFiles = []string{string(id)}
	return next, step, nil
}

// chainTarget picks the most severe current smell st addresses and can
// apply to.
func (s *RefactorService) chainTarget(ctx context.Context, snap *domain.Snapshot, u *syntax.Unit, st strategy.Strategy, settings domain.Settings) (domain.CodeSmell, bool, error) {
	smells, err := s.smells(ctx, snap, u, settings)
	if err != nil {
		return domain.CodeSmell{}, false, err
	}
	sort.SliceStable(smells, func(i, j int) bool { return smells[i].Severity > smells[j].Severity })
	addressed := map[domain.SmellType]bool{}
	for _, t := range st.Addresses() {
		addressed[t] = true
	}
	for _, sm := range smells {
		if addressed[sm.Type] && st.CanApply(u, sm) {
			return sm, true, nil
		}
	}
	return domain.CodeSmell{}, false, nil
}

// Cohesion reports the cohesion of every class in the project.
func (s *RefactorService) Cohesion(ctx context.Context, projectPath string) ([]DocumentCohesion, error) {
	snap, err := s.LoadSnapshot(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	var out []DocumentCohesion
	for _, id := range snap.DocumentIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isTestDocument(id) {
			continue
		}
		u, err := s.deps.Loader.Load(snap, id)
		if err != nil {
			continue // skip files that can't be parsed
		}
		if reports := cohesion.AnalyzeFile(u); len(reports) > 0 {
			out = append(out, DocumentCohesion{DocumentID: id, Reports: reports})
		}
	}
	return out, nil
}

// Chains lists the valid strategy chains up to maxLen steps, or up to the
// configured max_chain_length when maxLen is not positive.
func (s *RefactorService) Chains(projectPath string, maxLen int) ([]domain.StrategyChain, error) {
	if maxLen <= 0 {
		settings, err := s.Settings(projectPath)
		if err != nil {
			return nil, err
		}
		maxLen = settings.MaxChainLength
	}
	return composer.GetAllValidChains(maxLen), nil
}

// Rollback restores the files captured in a backup.
func (s *RefactorService) Rollback(ctx context.Context, projectPath, backupID string) error {
	if s.deps.Backups == nil {
		return fmt.Errorf("rolling back %s: no backup store configured", backupID)
	}
	if err := s.deps.Backups.Restore(ctx, projectPath, backupID); err != nil {
		return fmt.Errorf("rolling back %s: %w", backupID, err)
	}
	s.record(projectPath, domain.RunEntry{Kind: "rollback", BackupID: backupID, Success: true})
	return nil
}

// History returns the recorded runs of the project.
func (s *RefactorService) History(projectPath string) ([]domain.RunEntry, error) {
	if s.deps.History == nil {
		return nil, nil
	}
	entries, err := s.deps.History.Load(projectPath)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return entries, nil
}

func (s *RefactorService) rollback(ctx context.Context, projectPath, backupID string) {
	if backupID == "" || s.deps.Backups == nil {
		return
	}
	if err := s.deps.Backups.Restore(ctx, projectPath, backupID); err != nil {
		s.logger.Warn("restore after failed write", zap.String("backup", backupID), zap.Error(err))
	}
}

// record saves a history entry. Failures are logged, never returned.
func (s *RefactorService) record(projectPath string, entry domain.RunEntry) {
	if s.deps.History == nil {
		return
	}
	entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	entry.CommitHash = s.commitHash(projectPath)
	if err := s.deps.History.Save(projectPath, entry); err != nil {
		s.logger.Warn("saving run history", zap.Error(err))
	}
}

// checkWorkTree enforces require_clean_tree. Projects outside git pass.
func (s *RefactorService) checkWorkTree(projectPath string, settings domain.Settings) error {
	if !settings.RequireCleanTree || s.deps.Git == nil || !s.deps.Git.IsGitRepo(projectPath) {
		return nil
	}
	clean, err := s.deps.Git.IsClean(projectPath)
	if err != nil {
		return fmt.Errorf("checking work tree: %w", err)
	}
	if !clean {
		return fmt.Errorf("writing to %s: %w", projectPath, domain.ErrDirtyWorkTree)
	}
	return nil
}

func (s *RefactorService) commitHash(projectPath string) string {
	if s.deps.Git == nil || !s.deps.Git.IsGitRepo(projectPath) {
		return ""
	}
	hash, _ := s.deps.Git.CommitHash(projectPath)
	return hash
}

func isTestDocument(id domain.DocumentID) bool {
	return strings.HasSuffix(string(id), "_test.go")
}
