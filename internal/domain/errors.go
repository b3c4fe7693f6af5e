package domain

import "errors"

// Misuse conditions. Expected runtime outcomes (compile failures, skipped
// steps, regressions) are reported through scores and results instead.
var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrBranchNotFound     = errors.New("branch not found")
	ErrBranchExists       = errors.New("branch already exists")
	ErrBranchConflict     = errors.New("branch was updated concurrently")
	ErrStrategyNotFound   = errors.New("strategy not registered")
	ErrNoQualifyingResult = errors.New("no candidate cleared the minimum score")
	ErrNotApplicable      = errors.New("strategy not applicable")
	ErrDirtyWorkTree      = errors.New("work tree has uncommitted changes")
)
