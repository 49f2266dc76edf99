package credstore

import (
	"context"
	"sync"

	"github.com/spec-kit/repairshop-session/internal/domain"
)

// MemoryStore keeps credentials in process memory. Used by tests and by
// agents that deliberately forget the session on restart.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot *Snapshot
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save overwrites any prior entry.
func (s *MemoryStore) Save(_ context.Context, creds domain.Credentials, actor domain.Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &Snapshot{Credentials: creds, Actor: actor}
	return nil
}

// Load returns the stored snapshot, or nil when empty.
func (s *MemoryStore) Load(_ context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil, nil
	}
	copied := *s.snapshot
	return &copied, nil
}

// Clear wipes the stored snapshot.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	return nil
}
