package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store keeping documents in insertion order.
// It backs tests and ephemeral knowledge bases.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  []*Document
	index map[string]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[string]int)}
}

func (s *MemoryStore) Insert(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[doc.ID]; exists {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	stored := *doc
	s.index[doc.ID] = len(s.docs)
	s.docs = append(s.docs, &stored)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *s.docs[i]
	return &copied, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Document, len(s.docs))
	for i, doc := range s.docs {
		copied := *doc
		out[i] = &copied
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, fields DocumentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return ErrNotFound
	}
	applyUpdate(s.docs[i], fields)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return ErrNotFound
	}
	s.docs = append(s.docs[:i], s.docs[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.docs); j++ {
		s.index[s.docs[j].ID] = j
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
