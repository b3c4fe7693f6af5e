// Package workspace loads a project directory into a domain.Snapshot and
// writes refactored documents back.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/reforge/reforge/internal/domain"
)

// Workspace implements domain.SnapshotProvider on the local filesystem.
type Workspace struct {
	scanner domain.ProjectScanner
	logger  *zap.Logger
}

func New(scanner domain.ProjectScanner, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{scanner: scanner, logger: logger}
}

// Load reads every Go file the scanner reports, tests included, so that
// validation type-checks packages the way the compiler sees them.
func (w *Workspace) Load(ctx context.Context, projectPath string, excludePaths []string) (*domain.Snapshot, error) {
	scan, err := w.scanner.Scan(projectPath, excludePaths...)
	if err != nil {
		return nil, fmt.Errorf("scanning project: %w", err)
	}

	docs := make([]domain.Document, 0, len(scan.GoFiles))
	for _, rel := range scan.GoFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := os.ReadFile(filepath.Join(scan.RootPath, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		docs = append(docs, domain.Document{ID: domain.DocumentID(rel), Source: src})
	}
	w.logger.Debug("snapshot loaded", zap.String("root", scan.RootPath), zap.Int("documents", len(docs)))
	return domain.NewSnapshot(scan.RootPath, docs), nil
}

// Persist replaces the document's file. The text is written to a temporary
// file in the same directory and renamed over the original.
func (w *Workspace) Persist(ctx context.Context, projectPath string, doc domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := resolve(projectPath, string(doc.ID))
	if err != nil {
		return err
	}
	mode := os.FileMode(0o644)
	if fi, err := os.Stat(target); err == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".reforge-*.go.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", doc.ID, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(doc.Source); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", doc.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", doc.ID, err)
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("writing %s: %w", doc.ID, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("writing %s: %w", doc.ID, err)
	}
	w.logger.Info("document written", zap.String("document", string(doc.ID)))
	return nil
}

// resolve joins a slash-separated relative path onto root and refuses
// paths that would leave it.
func resolve(root, rel string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	p := filepath.Join(absRoot, filepath.FromSlash(rel))
	if p != absRoot && !strings.HasPrefix(p, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes project root", rel)
	}
	return p, nil
}
