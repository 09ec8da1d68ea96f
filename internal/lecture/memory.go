package lecture

import (
	"context"
	"sync"
)

// MemoryStore is a map-backed Store for dev and testing.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Lecture
	byToken map[string]Lecture
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Lecture),
		byToken: make(map[string]Lecture),
	}
}

// Insert stores a lecture.
func (s *MemoryStore) Insert(ctx context.Context, lec Lecture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[lec.ID] = lec
	s.byToken[lec.QRToken] = lec
	return nil
}

// Get returns a lecture by id.
func (s *MemoryStore) Get(ctx context.Context, id string) (Lecture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lec, ok := s.byID[id]
	if !ok {
		return Lecture{}, ErrNotFound
	}
	return lec, nil
}

// GetByToken returns a lecture by its QR token.
func (s *MemoryStore) GetByToken(ctx context.Context, qrToken string) (Lecture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lec, ok := s.byToken[qrToken]
	if !ok {
		return Lecture{}, ErrNotFound
	}
	return lec, nil
}
