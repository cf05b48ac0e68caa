// Package goals persists the daily calorie and protein targets in a small
// YAML file. The store hands out the current goals and validates before
// saving a change, so only well-formed targets ever reach disk.
package goals

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"nutrilog/internal/core"
)

type fileGoals struct {
	Calories float64 `yaml:"calories"`
	Protein  float64 `yaml:"protein"`
}

// Store is safe for concurrent use by the http handlers.
type Store struct {
	mu      sync.RWMutex
	path    string
	current core.Goals
}

// Open loads goals from path. A missing file yields the defaults without
// writing anything; the file is only created on the first Set.
func Open(path string) (*Store, error) {
	s := &Store{path: path, current: core.DefaultGoals()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("Goals file not present, using defaults",
			"path", path,
			"calories", s.current.Calories,
			"protein", s.current.Protein,
		)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read goals file: %w", err)
	}

	var fg fileGoals
	if err := yaml.Unmarshal(data, &fg); err != nil {
		return nil, fmt.Errorf("parse goals file %s: %w", path, err)
	}
	g := core.Goals{Calories: fg.Calories, Protein: fg.Protein}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("goals file %s: %w", path, err)
	}
	s.current = g
	return s, nil
}

// Get returns the goals currently in effect.
func (s *Store) Get() core.Goals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Set validates, persists, and only then swaps the in-memory goals, so a
// failed write never leaves memory and disk disagreeing.
func (s *Store) Set(g core.Goals) error {
	if err := g.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(fileGoals{Calories: g.Calories, Protein: g.Protein})
	if err != nil {
		return fmt.Errorf("encode goals: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create goals directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write goals file: %w", err)
	}
	s.current = g
	return nil
}
