// Package backup copies project files into .reforge/backups before they are
// overwritten and restores them on request.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reforge/reforge/internal/domain"
)

const (
	backupDir    = ".reforge/backups"
	manifestFile = "manifest.json"
	filesDir     = "files"
)

// Manifest describes one backup.
type Manifest struct {
	ID         string   `json:"id"`
	CreatedAt  string   `json:"created_at"`
	CommitHash string   `json:"commit_hash,omitempty"`
	Files      []string `json:"files"`
}

// FileStore implements domain.BackupStore on the local filesystem.
type FileStore struct {
	git domain.GitInfo
	now func() time.Time
}

// New creates a FileStore. git may be nil.
func New(git domain.GitInfo) *FileStore {
	return &FileStore{git: git, now: time.Now}
}

// Create copies paths (slash-separated, relative to projectPath) into a new
// backup and returns its ID.
func (s *FileStore) Create(ctx context.Context, projectPath string, paths []string) (string, error) {
	id := uuid.NewString()
	dir := filepath.Join(projectPath, backupDir, id)

	m := Manifest{
		ID:        id,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
		Files:     append([]string(nil), paths...),
	}
	if s.git != nil && s.git.IsGitRepo(projectPath) {
		m.CommitHash, _ = s.git.CommitHash(projectPath)
	}

	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		src, err := inside(projectPath, rel)
		if err != nil {
			return "", err
		}
		dst := filepath.Join(dir, filesDir, filepath.FromSlash(rel))
		if err := copyFile(src, dst); err != nil {
			_ = os.RemoveAll(dir)
			return "", fmt.Errorf("backing up %s: %w", rel, err)
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0644); err != nil {
		return "", fmt.Errorf("writing backup manifest: %w", err)
	}
	return id, nil
}

// Restore copies every file of backup id back into projectPath.
func (s *FileStore) Restore(ctx context.Context, projectPath, id string) error {
	m, err := s.Manifest(projectPath, id)
	if err != nil {
		return err
	}
	dir := filepath.Join(projectPath, backupDir, m.ID)
	for _, rel := range m.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst, err := inside(projectPath, rel)
		if err != nil {
			return err
		}
		if err := copyFile(filepath.Join(dir, filesDir, filepath.FromSlash(rel)), dst); err != nil {
			return fmt.Errorf("restoring %s: %w", rel, err)
		}
	}
	return nil
}

// Manifest reads the manifest of backup id.
func (s *FileStore) Manifest(projectPath, id string) (Manifest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Manifest{}, fmt.Errorf("backup %q: invalid id", id)
	}
	data, err := os.ReadFile(filepath.Join(projectPath, backupDir, id, manifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("backup %s: %w", id, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing backup %s manifest: %w", id, err)
	}
	return m, nil
}

// List returns the project's backups, newest first. Unreadable entries are
// skipped.
func (s *FileStore) List(projectPath string) ([]Manifest, error) {
	entries, err := os.ReadDir(filepath.Join(projectPath, backupDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if m, err := s.Manifest(projectPath, e.Name()); err == nil {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func inside(root, rel string) (string, error) {
	p := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes project root", rel)
	}
	return p, nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	mode := os.FileMode(0644)
	if fi, err := os.Stat(src); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, mode)
}
