// Package memstore is an in-process notes.Store used in dev mode and tests.
package memstore

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"

	"github.com/google/uuid"
)

type entry struct {
	seq uint64
	doc notes.Document
}

// Store keeps documents in a map keyed by id. Documents are copied on the way
// in and out so callers never share state with the store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]entry
	seq  uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{docs: make(map[string]entry)}
}

// Insert stores doc under a fresh UUID.
func (s *Store) Insert(ctx context.Context, doc notes.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	stored := maps.Clone(doc)
	delete(stored, notes.FieldID)

	s.mu.Lock()
	s.seq++
	s.docs[id] = entry{seq: s.seq, doc: stored}
	s.mu.Unlock()

	return id, nil
}

// Query returns the documents matching q, sorted by q.OrderBy. Documents
// with equal or incomparable sort keys keep insertion order.
func (s *Store) Query(ctx context.Context, q notes.QuerySpec) ([]notes.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]entry, 0, len(s.docs))
	for id, e := range s.docs {
		if q.Field != "" && e.doc[q.Field] != q.Equals {
			continue
		}
		matched = append(matched, entry{seq: e.seq, doc: withID(id, e.doc)})
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b entry) int {
		if q.OrderBy != "" {
			c := compareValues(a.doc[q.OrderBy], b.doc[q.OrderBy])
			if q.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	out := make([]notes.Document, len(matched))
	for i, e := range matched {
		out[i] = e.doc
	}
	return out, nil
}

// Get returns the document stored under id.
func (s *Store) Get(ctx context.Context, id string) (notes.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.docs[id]
	if !ok {
		return nil, notes.ErrNoDocument
	}
	return withID(id, e.doc), nil
}

// Merge overwrites the given fields of the document stored under id.
func (s *Store) Merge(ctx context.Context, id string, fields notes.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.docs[id]
	if !ok {
		return notes.ErrNoDocument
	}
	merged := maps.Clone(e.doc)
	for k, v := range fields {
		if k == notes.FieldID {
			continue
		}
		merged[k] = v
	}
	s.docs[id] = entry{seq: e.seq, doc: merged}
	return nil
}

// Delete removes the document stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return notes.ErrNoDocument
	}
	delete(s.docs, id)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Put stores doc under a caller-chosen id, replacing any existing document.
// Tests use it to plant documents written in legacy shapes.
func (s *Store) Put(id string, doc notes.Document) {
	stored := maps.Clone(doc)
	delete(stored, notes.FieldID)

	s.mu.Lock()
	s.seq++
	s.docs[id] = entry{seq: s.seq, doc: stored}
	s.mu.Unlock()
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func withID(id string, doc notes.Document) notes.Document {
	out := maps.Clone(doc)
	out[notes.FieldID] = id
	return out
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	}
	return 0
}
