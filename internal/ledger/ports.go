package ledger

import (
	"context"
	"errors"

	"nutrilog/internal/core"
)

// ErrNotFound is returned by Update when the target entry does not exist.
// Delete deliberately does not use it: deleting an absent id is not an error.
var ErrNotFound = errors.New("entry not found")

// Ports for entry storage backends.
type (
	EntryWriter interface {
		// Append validates and persists a new entry, returning its id.
		Append(ctx context.Context, e core.FoodEntry) (core.EntryID, error)
	}

	EntryLister interface {
		// Load returns every stored entry in insertion order. A backing
		// file that does not exist yet yields an empty result, not an error.
		Load(ctx context.Context) ([]core.FoodEntry, error)
		// ListRange returns entries whose date falls in [start, end] inclusive.
		ListRange(ctx context.Context, start, end core.Date) ([]core.FoodEntry, error)
	}

	EntryUpdater interface {
		// Update replaces the entry identified by id. Returns ErrNotFound
		// when no such entry exists.
		Update(ctx context.Context, id core.EntryID, e core.FoodEntry) error
	}

	EntryDeleter interface {
		// Delete removes the entry if present and reports whether a row
		// was removed.
		Delete(ctx context.Context, id core.EntryID) (bool, error)
	}

	// Store is the full entry-store surface the HTTP layer depends on.
	Store interface {
		EntryWriter
		EntryLister
		EntryUpdater
		EntryDeleter
	}
)
