package record

import (
	"context"
	"sort"
	"sync"
)

// InMemoryStore is a volatile Store implementation keeping documents in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Returned documents carry cloned field maps
// to prevent external mutation of internal state.
type InMemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields
}

// NewInMemoryStore constructs an empty in-memory record store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{collections: make(map[string]map[string]Fields)}
}

// List returns all documents in the collection matching the optional filter,
// ordered by identifier (creation order for ULID ids).
func (s *InMemoryStore) List(_ context.Context, collection string, filter Fields) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]Document, 0, len(s.collections[collection]))
	for id, fields := range s.collections[collection] {
		if len(filter) > 0 && !fields.Matches(filter) {
			continue
		}
		docs = append(docs, Document{ID: id, Fields: fields.Clone()})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Get resolves a single document or ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: fields.Clone()}, nil
}

// Create stores the fields under a freshly generated identifier and returns it.
func (s *InMemoryStore) Create(_ context.Context, collection string, fields Fields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = make(map[string]Fields)
	}
	id := NewDocumentID()
	s.collections[collection][id] = fields.Clone()
	return id, nil
}

// Update merges the given fields into an existing document, failing with
// ErrNotFound if the identifier does not exist.
func (s *InMemoryStore) Update(_ context.Context, collection, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}
