// Package branch keeps named, isolated views of a project snapshot.
package branch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/reforge/reforge/internal/domain"
)

// TransformFunc computes the replacement for doc given the branch snapshot it
// belongs to. It runs outside the manager's lock and must not mutate snap.
type TransformFunc func(ctx context.Context, snap *domain.Snapshot, doc domain.Document) (domain.Document, error)

type slot struct {
	name string
	snap atomic.Pointer[domain.Snapshot]
}

// Manager holds one canonical snapshot and a set of named branches derived
// from it. A branch is a reference to an immutable snapshot, so creating one
// is O(1) and mutating one never affects its siblings.
type Manager struct {
	mu        sync.RWMutex
	canonical *domain.Snapshot
	slots     map[string]*slot
	order     []*slot
	logger    *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager over canonical.
func NewManager(canonical *domain.Snapshot, opts ...Option) *Manager {
	m := &Manager{
		canonical: canonical,
		slots:     map[string]*slot{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Canonical returns the snapshot branches are created from by default.
func (m *Manager) Canonical() *domain.Snapshot { return m.canonical }

// CreateBranch binds name to the canonical snapshot, or to the current
// snapshot of branch from when from is not empty.
func (m *Manager) CreateBranch(name, from string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.slots[name]; exists {
		return fmt.Errorf("creating branch %q: %w", name, domain.ErrBranchExists)
	}
	origin := m.canonical
	if from != "" {
		src, ok := m.slots[from]
		if !ok {
			return fmt.Errorf("creating branch %q from %q: %w", name, from, domain.ErrBranchNotFound)
		}
		origin = src.snap.Load()
	}

	s := &slot{name: name}
	s.snap.Store(origin)
	m.slots[name] = s
	m.order = append(m.order, s)
	m.logger.Debug("branch created", zap.String("branch", name), zap.String("from", from))
	return nil
}

// GetBranch returns the current snapshot of a branch.
func (m *Manager) GetBranch(name string) (*domain.Snapshot, bool) {
	m.mu.RLock()
	s, ok := m.slots[name]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.snap.Load(), true
}

// ApplyTransformation replaces document id on branch name with the result of
// fn and returns the branch's new snapshot. fn runs without holding any lock;
// the new snapshot is published with compare-and-swap, and if another writer
// published first the call fails with domain.ErrBranchConflict and the
// branch keeps the other writer's result.
func (m *Manager) ApplyTransformation(ctx context.Context, name string, id domain.DocumentID, fn TransformFunc) (*domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	s, ok := m.slots[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transforming branch %q: %w", name, domain.ErrBranchNotFound)
	}

	cur := s.snap.Load()
	doc, ok := cur.Document(id)
	if !ok {
		return nil, fmt.Errorf("transforming %s on branch %q: %w", id, name, domain.ErrDocumentNotFound)
	}

	updated, err := fn(ctx, cur, doc)
	if err != nil {
		return nil, err
	}
	updated.ID = id
	next, err := cur.WithDocument(updated)
	if err != nil {
		return nil, err
	}

	if !s.snap.CompareAndSwap(cur, next) {
		m.logger.Warn("branch update lost race", zap.String("branch", name), zap.String("document", string(id)))
		return nil, fmt.Errorf("transforming branch %q: %w", name, domain.ErrBranchConflict)
	}
	return next, nil
}

// DeleteBranch removes a branch.
func (m *Manager) DeleteBranch(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[name]
	if !ok {
		return fmt.Errorf("deleting branch %q: %w", name, domain.ErrBranchNotFound)
	}
	delete(m.slots, name)
	for i, o := range m.order {
		if o == s {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Branches returns branch names in creation order.
func (m *Manager) Branches() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.order))
	for i, s := range m.order {
		names[i] = s.name
	}
	return names
}

// Len returns the number of live branches.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// Cleanup evicts the oldest branches by creation order until at most keep
// remain, and returns how many were removed.
func (m *Manager) Cleanup(keep int) int {
	if keep < 0 {
		keep = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	excess := len(m.order) - keep
	if excess <= 0 {
		return 0
	}
	for _, s := range m.order[:excess] {
		delete(m.slots, s.name)
	}
	m.order = append([]*slot(nil), m.order[excess:]...)
	m.logger.Debug("branches evicted", zap.Int("count", excess), zap.Int("kept", keep))
	return excess
}
