// Package csvfile implements the flat-file entry store: a single CSV file
// with columns date,time,calories,protein,label, rewritten whole on every
// mutation. This read-modify-write model is the accepted durability strategy
// for a single local user; see the sqlite backend for anything beyond that.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"nutrilog/internal/core"
	"nutrilog/internal/ledger"
)

var header = []string{"date", "time", "calories", "protein", "label"}

// Store keeps the full entry set in memory and mirrors every mutation to the
// backing file, so a read immediately after a write always observes it.
type Store struct {
	mu      sync.Mutex
	path    string
	entries []core.FoodEntry
	nextID  core.EntryID
}

// Open reads the backing file if it exists. A missing file is a valid empty
// store. Entry ids are assigned by insertion order and are stable for the
// lifetime of the process.
func Open(path string) (*Store, error) {
	s := &Store{path: path, nextID: 1}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("Entry file not present, starting empty", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open entry file: %w", err)
	}
	defer f.Close()

	entries, err := readAll(f)
	if err != nil {
		return nil, fmt.Errorf("read entry file %s: %w", path, err)
	}
	for i := range entries {
		entries[i].ID = core.EntryID(i + 1)
	}
	s.entries = entries
	s.nextID = core.EntryID(len(entries) + 1)

	slog.Info("Entry file loaded", "path", path, "entries", len(entries))
	return s, nil
}

func (s *Store) Append(_ context.Context, e core.FoodEntry) (core.EntryID, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = s.nextID
	s.entries = append(s.entries, e)
	if err := s.persist(); err != nil {
		// Roll back the in-memory append so a failed write leaves no
		// partial state behind.
		s.entries = s.entries[:len(s.entries)-1]
		return 0, err
	}
	s.nextID++
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
		if s.entries[i].ID != id {
			continue
		}
		prev := s.entries[i]
		e.ID = id
		s.entries[i] = e
		if err := s.persist(); err != nil {
			s.entries[i] = prev
			return err
		}
		return nil
	}
	return ledger.ErrNotFound
}

func (s *Store) Delete(_ context.Context, id core.EntryID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID != id {
			continue
		}
		removed := s.entries[i]
		s.entries = append(s.entries[:i], s.entries[i+1:]...)
		if err := s.persist(); err != nil {
			s.entries = append(s.entries[:i], append([]core.FoodEntry{removed}, s.entries[i:]...)...)
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// persist rewrites the whole backing file via a temp file + rename, so a
// crash mid-write never leaves a truncated log. Caller holds the lock.
func (s *Store) persist() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".nutrilog-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := writeAll(tmp, s.entries); err != nil {
		tmp.Close()
		return fmt.Errorf("write entry file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace entry file: %w", err)
	}
	return nil
}

func readAll(r io.Reader) ([]core.FoodEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // label column is optional

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []core.FoodEntry
	for i, rec := range records[1:] { // skip header
		e, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseRecord(rec []string) (core.FoodEntry, error) {
	if len(rec) < 4 {
		return core.FoodEntry{}, fmt.Errorf("expected at least 4 columns, got %d", len(rec))
	}
	date, err := core.ParseDate(rec[0])
	if err != nil {
		return core.FoodEntry{}, err
	}
	tod, err := core.ParseTimeOfDay(rec[1])
	if err != nil {
		return core.FoodEntry{}, err
	}
	calories, err := core.ParseAmount(rec[2])
	if err != nil {
		return core.FoodEntry{}, fmt.Errorf("calories: %w", err)
	}
	protein, err := core.ParseAmount(rec[3])
	if err != nil {
		return core.FoodEntry{}, fmt.Errorf("protein: %w", err)
	}
	var label string
	if len(rec) > 4 {
		label = rec[4]
	}
	return core.FoodEntry{Date: date, Time: tod, Label: label, Calories: calories, Protein: protein}, nil
}

func writeAll(w io.Writer, entries []core.FoodEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range entries {
		rec := []string{
			e.Date.String(),
			e.Time.String(),
			core.FormatAmount(e.Calories),
			core.FormatAmount(e.Protein),
			e.Label,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
