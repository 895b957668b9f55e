package memory

import (
	"context"
	"fmt"
	"sync"

	"expenses/internal/core"
	"expenses/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store keeps expenses in process memory with the same semantics as the
// SQLite repository, including ids that are never reused.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Expense
}

func New() *Store {
	return &Store{nextID: 1}
}

func (s *Store) Initialize(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) Add(_ context.Context, e core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	s.items = append(s.items, clone(e))
	return e.ID, nil
}

func (s *Store) Update(_ context.Context, id int64, p core.Patch) (int64, error) {
	if p.Empty() {
		return 0, nil
	}
	if err := p.Check(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return 0, nil
	}
	e := s.items[i]
	if err := p.Apply(&e); err != nil {
		return 0, err
	}
	s.items[i] = clone(e)
	return 1, nil
}

func (s *Store) Delete(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return 0, nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return 1, nil
}

func (s *Store) List(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, len(s.items))
	for i, e := range s.items {
		out[i] = clone(e)
	}
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, storage.ErrNotFound)
	}
	return clone(s.items[i]), nil
}

func (s *Store) EraseAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.items))
	s.items = nil
	return n, nil
}

// index must be called with mu held.
func (s *Store) index(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(e core.Expense) core.Expense {
	if e.Receipt != nil {
		e.Receipt = append([]byte(nil), e.Receipt...)
	}
	return e
}
