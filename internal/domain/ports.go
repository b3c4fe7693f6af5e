package domain

import (
	"context"
	"strings"
)

// ProjectScanner scans a project directory and returns file metadata.
type ProjectScanner interface {
	Scan(projectPath string, excludePaths ...string) (*ScanResult, error)
}

// ScanResult holds the result of scanning a project directory.
type ScanResult struct {
	RootPath  string   `json:"root_path"`
	GoFiles   []string `json:"go_files"`
	TestFiles []string `json:"test_files"`
	HasGoMod  bool     `json:"has_go_mod"`
}

// AddFile records a slash-separated relative path. Non-Go files and
// duplicates are ignored.
func (s *ScanResult) AddFile(rel string) {
	if !strings.HasSuffix(rel, ".go") {
		return
	}
	for _, f := range s.GoFiles {
		if f == rel {
			return
		}
	}
	s.GoFiles = append(s.GoFiles, rel)
	if strings.HasSuffix(rel, "_test.go") {
		s.TestFiles = append(s.TestFiles, rel)
	}
}

// SnapshotProvider loads a project into an immutable snapshot and persists
// final document text back to storage.
type SnapshotProvider interface {
	Load(ctx context.Context, projectPath string, excludePaths []string) (*Snapshot, error)
	Persist(ctx context.Context, projectPath string, doc Document) error
}

// SmellFeed supplies smells found by detectors other than cohesion analysis.
type SmellFeed interface {
	Smells(ctx context.Context, snap *Snapshot, id DocumentID, profile DetectionProfile) ([]CodeSmell, error)
}

// Validator compares an original document with a candidate replacement and
// reports compile validity, public-surface compatibility and metric deltas.
type Validator interface {
	Validate(ctx context.Context, original, candidate *Snapshot, id DocumentID) (TransformationScore, error)
}

// BackupStore snapshots files before a mutating operation.
type BackupStore interface {
	Create(ctx context.Context, projectPath string, paths []string) (string, error)
	Restore(ctx context.Context, projectPath, id string) error
}

// RunHistory records apply and chain runs for later inspection.
type RunHistory interface {
	Save(projectPath string, entry RunEntry) error
	Load(projectPath string) ([]RunEntry, error)
}

// ConfigLoader loads project configuration.
type ConfigLoader interface {
	Load(projectPath string) (ProjectConfig, error)
}

// GitInfo exposes version-control metadata for a project.
type GitInfo interface {
	IsGitRepo(projectPath string) bool
	CommitHash(projectPath string) (string, error)
	IsClean(projectPath string) (bool, error)
}

// RunEntry is one persisted apply or chain run.
type RunEntry struct {
	Timestamp  string   `json:"timestamp"`
	CommitHash string   `json:"commit_hash,omitempty"`
	Kind       string   `json:"kind"`
	Document   string   `json:"document"`
	Strategies []string `json:"strategies"`
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	BackupID   string   `json:"backup_id,omitempty"`
	StopReason string   `json:"stop_reason,omitempty"`
}
