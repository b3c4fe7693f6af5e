// Package cache keeps type-checked syntax units in memory so that plan,
// compare and chain runs do not re-check unchanged packages.
package cache

import (
	"crypto/sha256"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/reforge/reforge/internal/domain"
	"github.com/reforge/reforge/internal/domain/syntax"
)

// DefaultSize is the number of units kept when New is given a size <= 0.
const DefaultSize = 256

// Store implements syntax.Loader with an LRU cache keyed by the content of
// the document's package. Cached units are shared and must not be mutated.
type Store struct {
	checker *syntax.Checker
	units   *lru.Cache[string, *syntax.Unit]
}

// New creates a cache of up to size units backed by checker.
func New(size int, checker *syntax.Checker) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if checker == nil {
		return nil, errors.New("creating unit cache: nil checker")
	}
	units, err := lru.New[string, *syntax.Unit](size)
	if err != nil {
		return nil, err
	}
	return &Store{checker: checker, units: units}, nil
}

// Load returns the unit for id, type-checking its package on a miss.
func (s *Store) Load(snap *domain.Snapshot, id domain.DocumentID) (*syntax.Unit, error) {
	doc, ok := snap.Document(id)
	if !ok {
		return nil, fmt.Errorf("loading %s: %w", id, domain.ErrDocumentNotFound)
	}
	key := packageKey(doc, snap.PackageDocuments(doc.Dir()))
	if u, ok := s.units.Get(key); ok {
		return u, nil
	}
	u, err := s.checker.Load(snap, id)
	if err != nil {
		return nil, err
	}
	s.units.Add(key, u)
	return u, nil
}

// Len returns the number of cached units.
func (s *Store) Len() int { return s.units.Len() }

// Purge drops every cached unit.
func (s *Store) Purge() { s.units.Purge() }

// packageKey identifies target within the exact sources of its package.
func packageKey(target domain.Document, pkg []domain.Document) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", target.ID)
	for _, d := range pkg {
		fmt.Fprintf(h, "%s\x00%s\x00", d.ID, d.Hash())
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
