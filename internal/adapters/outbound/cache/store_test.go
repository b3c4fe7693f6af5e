package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reforge/reforge/internal/adapters/outbound/cache"
	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/syntax"
)

func snapshot() *domain.Snapshot {
	return domain.NewSnapshot("/p", []domain.Document{
		{ID: "a/a.go", Source: []byte("package a\n\nfunc A() int { return B() }\n")},
		{ID: "a/b.go", Source: []byte("package a\n\nfunc B() int { return 1 }\n")},
		{ID: "c/c.go", Source: []byte("package c\n")},
	})
}

func TestStore_HitsOnUnchangedPackage(t *testing.T) {
	s, err := cache.New(8, syntax.NewChecker())
	require.NoError(t, err)
	snap := snapshot()

	first, err := s.Load(snap, "a/a.go")
	require.NoError(t, err)
	assert.Empty(t, first.TypeErrors)

	second, err := s.Load(snap, "a/a.go")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, s.Len())
}

func TestStore_MissesWhenSiblingChanges(t *testing.T) {
	s, err := cache.New(8, syntax.NewChecker())
	require.NoError(t, err)
	snap := snapshot()

	before, err := s.Load(snap, "a/a.go")
	require.NoError(t, err)

	next, err := snap.WithDocument(domain.Document{ID: "a/b.go", Source: []byte("package a\n\nfunc B() int { return 2 }\n")})
	require.NoError(t, err)
	after, err := s.Load(next, "a/a.go")
	require.NoError(t, err)
	assert.NotSame(t, before, after)

	// A package that did not change keeps its entry.
	c1, err := s.Load(snap, "c/c.go")
	require.NoError(t, err)
	c2, err := s.Load(next, "c/c.go")
	require.NoError(t, err)
	assert.Same(t, c1, c2)
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s, err := cache.New(1, syntax.NewChecker())
	require.NoError(t, err)
	snap := snapshot()

	_, err = s.Load(snap, "a/a.go")
	require.NoError(t, err)
	_, err = s.Load(snap, "c/c.go")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	s.Purge()
	assert.Equal(t, 0, s.Len())
}

func TestStore_MissingDocument(t *testing.T) {
	s, err := cache.New(0, syntax.NewChecker())
	require.NoError(t, err)
	_, err = s.Load(snapshot(), "nope.go")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestNew_RequiresChecker(t *testing.T) {
	_, err := cache.New(8, nil)
	assert.Error(t, err)
}
