// Package memory provides an in-memory entry store. It backs the memory
// data backend and keeps http handler tests free of filesystem state.
package memory

import (
	"context"
	"sync"

	"nutrilog/internal/core"
	"nutrilog/internal/ledger"
)

type Store struct {
	mu      sync.Mutex
	entries []core.FoodEntry
	nextID  core.EntryID
}

func New() *Store {
	return &Store{nextID: 1}
}

func (s *Store) Append(_ context.Context, e core.FoodEntry) (core.EntryID, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, e)
	return e.ID, nil
}

func (s *Store) Load(_ context.Context) ([]core.FoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FoodEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *Store) ListRange(_ context.Context, start, end core.Date) ([]core.FoodEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.FoodEntry
	for _, e := range s.entries {
		if e.Date.Before(start.Time) || e.Date.After(end.Time) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, id core.EntryID, e core.FoodEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			e.ID = id
			s.entries[i] = e
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) Delete(_ context.Context, id core.EntryID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
