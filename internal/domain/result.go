package domain

// TransformationScore is the validator's verdict on one (original, candidate)
// document pair. Deltas are candidate minus original.
type TransformationScore struct {
	Compiles                bool     `json:"compiles"`
	SemanticsPreserved      bool     `json:"semantics_preserved"`
	CompileErrors           []string `json:"compile_errors,omitempty"`
	BreakingChanges         []string `json:"breaking_changes,omitempty"`
	CyclomaticDelta         int      `json:"cyclomatic_delta"`
	CognitiveDelta          int      `json:"cognitive_delta"`
	LinesDelta              int      `json:"lines_delta"`
	MaintainabilityDelta    float64  `json:"maintainability_delta"`
	OriginalCyclomatic      int      `json:"original_cyclomatic"`
	OriginalMaintainability float64  `json:"original_maintainability"`
}

// RefactoringScore extends a TransformationScore with design-quality terms.
// Overall is in [-100, 100]; negative means regression.
type RefactoringScore struct {
	Base                 TransformationScore `json:"base"`
	OriginalLCOM4        int                 `json:"original_lcom4"`
	TransformedLCOM4     int                 `json:"transformed_lcom4"`
	CohesionScore        float64             `json:"cohesion_score"`
	ComplexityScore      float64             `json:"complexity_score"`
	MaintainabilityScore float64             `json:"maintainability_score"`
	ResponsibilityScore  float64             `json:"responsibility_score"`
	Testability          int                 `json:"testability"`
	NamingQuality        int                 `json:"naming_quality"`
	SingleResponsibility float64             `json:"single_responsibility"`
	Overall              float64             `json:"overall"`
}

// IsRegression reports whether the aggregate score is negative.
func (s RefactoringScore) IsRegression() bool { return s.Overall < 0 }

// Candidate is one strategy's outcome inside a comparison.
type Candidate struct {
	Strategy RefactoringType  `json:"strategy"`
	Branch   string           `json:"branch"`
	Score    RefactoringScore `json:"score"`
	Error    string           `json:"error,omitempty"`
	Document Document         `json:"-"`
}

// StrategyComparison ranks competing strategies for one opportunity.
// Best is nil when no succeeded candidate clears the minimum score.
type StrategyComparison struct {
	Opportunity RefactoringOpportunity `json:"opportunity"`
	Succeeded   []Candidate            `json:"succeeded"`
	Failed      []Candidate            `json:"failed"`
	Best        *Candidate             `json:"best,omitempty"`
}

// RefactoringResult records the outcome of applying one strategy.
type RefactoringResult struct {
	Success       bool             `json:"success"`
	Strategy      RefactoringType  `json:"strategy"`
	Score         RefactoringScore `json:"score"`
	BackupID      string           `json:"backup_id,omitempty"`
	ModifiedFiles []string         `json:"modified_files,omitempty"`
	Skipped       bool             `json:"skipped,omitempty"`
	Error         string           `json:"error,omitempty"`
}

// StopReason explains why a chain halted before its last step.
type StopReason struct {
	Step     int             `json:"step"`
	Strategy RefactoringType `json:"strategy"`
	Reason   string          `json:"reason"`
	Score    float64         `json:"score"`
}

// ChainResult records a chain run step by step. FinalScore compares the
// pristine document with the terminal one, independent of per-step scores.
type ChainResult struct {
	Chain          StrategyChain       `json:"chain"`
	DocumentID     DocumentID          `json:"document_id"`
	Steps          []RefactoringResult `json:"steps"`
	StepsCompleted int                 `json:"steps_completed"`
	StopReason     *StopReason         `json:"stop_reason,omitempty"`
	FinalScore     *RefactoringScore   `json:"final_score,omitempty"`
	BackupID       string              `json:"backup_id,omitempty"`
	Written        bool                `json:"written"`
	Error          string              `json:"error,omitempty"`
}

// Halted reports whether the chain stopped early.
func (r ChainResult) Halted() bool { return r.StopReason != nil }
