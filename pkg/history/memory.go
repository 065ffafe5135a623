package history

import (
	"sync"

	"github.com/histofy/histofy/pkg/errors"
	"github.com/histofy/histofy/pkg/types"
)

// MemoryStore is an in-memory Store for tests and throwaway sessions.
type MemoryStore struct {
	mu  sync.Mutex
	ops []types.Operation
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds an operation to the end of the ledger.
func (s *MemoryStore) Append(op types.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
	return nil
}

// List returns all operations in append order, oldest first.
func (s *MemoryStore) List() ([]types.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Operation, len(s.ops))
	copy(out, s.ops)
	return out, nil
}

// Get returns the operation with the exact id.
func (s *MemoryStore) Get(id string) (*types.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ops {
		if s.ops[i].ID == id {
			op := s.ops[i]
			return &op, nil
		}
	}
	return nil, errors.Newf(errors.ErrNotFound, "operation %s not found", id)
}

// MarkUndone flips the operation's status to undone.
func (s *MemoryStore) MarkUndone(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.ops {
		if s.ops[i].ID == id {
			s.ops[i].Status = types.StatusUndone
			return nil
		}
	}
	return errors.Newf(errors.ErrNotFound, "operation %s not found", id)
}

// Clear drops every operation.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = nil
	return nil
}
