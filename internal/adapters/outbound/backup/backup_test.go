package backup_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reforge/reforge/internal/adapters/outbound/backup"
)

type stubGit struct{ hash string }

func (g stubGit) IsGitRepo(string) bool { return true }
func (g stubGit) CommitHash(string) (string, error) { return g.hash, nil }
func (g stubGit) IsClean(string) (bool, error)      { return true, nil }

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func read(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestFileStore_CreateAndRestore(t *testing.T) {
	root := t.TempDir()
	write(t, root, "store/store.go", "package store\n")
	ctx := context.Background()
	s := backup.New(stubGit{hash: "deadbeef"})

	id, err := s.Create(ctx, root, []string{"store/store.go"})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	write(t, root, "store/store.go", "package store\n\nvar Broken = 1\n")
	require.NoError(t, s.Restore(ctx, root, id))
	assert.Equal(t, "package store\n", read(t, root, "store/store.go"))

	m, err := s.Manifest(root, id)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", m.CommitHash)
	assert.Equal(t, []string{"store/store.go"}, m.Files)
}

func TestFileStore_CreateFailsOnMissingFile(t *testing.T) {
	root := t.TempDir()
	s := backup.New(nil)
	_, err := s.Create(context.Background(), root, []string{"missing.go"})
	assert.ErrorContains(t, err, "backing up missing.go")

	list, err := s.List(root)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFileStore_RejectsBadIDsAndPaths(t *testing.T) {
	root := t.TempDir()
	s := backup.New(nil)
	ctx := context.Background()

	assert.Error(t, s.Restore(ctx, root, "../../etc"))
	assert.Error(t, s.Restore(ctx, root, "7c9e6679-7425-40de-944b-e07fc1f90ae7"))

	_, err := s.Create(ctx, root, []string{"../outside.go"})
	assert.ErrorContains(t, err, "escapes project root")
}

func TestFileStore_List(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.go", "package a\n")
	s := backup.New(nil)

	first, err := s.Create(context.Background(), root, []string{"a.go"})
	require.NoError(t, err)
	second, err := s.Create(context.Background(), root, []string{"a.go"})
	require.NoError(t, err)

	list, err := s.List(root)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{first, second}, ids)
}
