package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/reforge/reforge/internal/domain"
)

var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	".git":         true,
	".reforge":     true,
	"dist":         true,
	"bin":          true,
	"testdata":     true,
}

// FileScanner implements domain.ProjectScanner by walking the filesystem.
type FileScanner struct{}

func New() *FileScanner {
	return &FileScanner{}
}

// Scan lists the Go files under projectPath as slash-separated relative
// paths. excludePaths are glob patterns matched against each path, its base
// name and its parent directories.
func (s *FileScanner) Scan(projectPath string, excludePaths ...string) (*domain.ScanResult, error) {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, err
	}

	result := &domain.ScanResult{
		RootPath: absPath,
	}

	err = filepath.WalkDir(absPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, _ := filepath.Rel(absPath, path)
		rel := filepath.ToSlash(relPath)

		if d.IsDir() {
			if path == absPath {
				return nil
			}
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") || domain.ExcludedPath(excludePaths, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Name() == "go.mod" && rel == "go.mod" {
			result.HasGoMod = true
		}
		if domain.ExcludedPath(excludePaths, rel) {
			return nil
		}
		result.AddFile(rel)
		return nil
	})

	return result, err
}
