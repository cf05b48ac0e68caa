// Package memory is an in-process mirror used when no spreadsheet is
// configured and in worker tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"nutrilog/internal/core"
)

type Store struct {
	mu    sync.Mutex
	items []core.FoodEntry
}

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, e core.FoodEntry) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, e)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) DeleteEntryByData(_ context.Context, e core.FoodEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.Date.Equal(e.Date) && item.Time == e.Time &&
			item.Label == e.Label && item.Calories == e.Calories && item.Protein == e.Protein {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

// Items returns a copy of the mirrored entries.
func (s *Store) Items() []core.FoodEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.FoodEntry, len(s.items))
	copy(out, s.items)
	return out
}
