package domain

import (
	"crypto/sha256"
	"fmt"
	"path"
	"sort"
)

// DocumentID identifies a document inside a snapshot. It is the slash
// separated path relative to the project root.
type DocumentID string

// Document is one Go source file. Source must not be modified once the
// document is placed in a snapshot.
type Document struct {
	ID     DocumentID `json:"id"`
	Source []byte     `json:"-"`
}

// Dir returns the package directory of the document relative to the root.
func (d Document) Dir() string { return path.Dir(string(d.ID)) }

// Hash returns a content hash used for cache keys and change detection.
func (d Document) Hash() string {
	h := sha256.Sum256(d.Source)
	return fmt.Sprintf("%x", h[:12])
}

// Snapshot is an immutable view of a project's Go documents. Mutations
// return a new Snapshot and leave the receiver untouched, which makes
// sharing one snapshot between branches safe.
type Snapshot struct {
	root string
	ids  []DocumentID
	docs map[DocumentID]Document
}

// NewSnapshot builds a snapshot rooted at root from the given documents.
func NewSnapshot(root string, docs []Document) *Snapshot {
	s := &Snapshot{root: root, docs: make(map[DocumentID]Document, len(docs))}
	for _, d := range docs {
		if _, dup := s.docs[d.ID]; !dup {
			s.ids = append(s.ids, d.ID)
		}
		s.docs[d.ID] = d
	}
	sort.Slice(s.ids, func(i, j int) bool { return s.ids[i] < s.ids[j] })
	return s
}

func (s *Snapshot) Root() string { return s.root }
func (s *Snapshot) Len() int { return len(s.ids) }

// DocumentIDs returns the IDs of all documents in lexical order.
func (s *Snapshot) DocumentIDs() []DocumentID {
	out := make([]DocumentID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Document looks up a document by ID.
func (s *Snapshot) Document(id DocumentID) (Document, bool) {
	d, ok := s.docs[id]
	return d, ok
}

// PackageDocuments returns every document sharing dir, in lexical order.
func (s *Snapshot) PackageDocuments(dir string) []Document {
	var out []Document
	for _, id := range s.ids {
		d := s.docs[id]
		if d.Dir() == dir {
			out = append(out, d)
		}
	}
	return out
}

// WithDocument returns a new snapshot in which the document with doc.ID is
// replaced. The document must already exist.
func (s *Snapshot) WithDocument(doc Document) (*Snapshot, error) {
	if _, ok := s.docs[doc.ID]; !ok {
		return nil, fmt.Errorf("replacing %s: %w", doc.ID, ErrDocumentNotFound)
	}
	next := &Snapshot{
		root: s.root,
		ids:  s.ids,
		docs: make(map[DocumentID]Document, len(s.docs)),
	}
	for id, d := range s.docs {
		next.docs[id] = d
	}
	next.docs[doc.ID] = doc
	return next, nil
}
