package adapters

import (
	"context"

	"nutrilog/internal/core"
	"nutrilog/internal/ledger"
	"nutrilog/internal/services"
	"nutrilog/internal/storage"
)

// SQLiteAdapter adapts SQLiteRepository and EntryService to the ledger.Store
// interface, so the HTTP handlers work unchanged on the SQLite + AMQP backend.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.EntryService
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.EntryService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

var _ ledger.Store = (*SQLiteAdapter)(nil)

func (a *SQLiteAdapter) Append(ctx context.Context, e core.FoodEntry) (core.EntryID, error) {
	return a.service.CreateEntry(ctx, e)
}

func (a *SQLiteAdapter) Load(ctx context.Context) ([]core.FoodEntry, error) {
	return a.storage.ListEntries(ctx)
}

func (a *SQLiteAdapter) ListRange(ctx context.Context, start, end core.Date) ([]core.FoodEntry, error) {
	return a.storage.ListEntriesByDateRange(ctx, start, end)
}

func (a *SQLiteAdapter) Update(ctx context.Context, id core.EntryID, e core.FoodEntry) error {
	found, err := a.service.UpdateEntry(ctx, int64(id), e)
	if err != nil {
		return err
	}
	if !found {
		return ledger.ErrNotFound
	}
	return nil
}

func (a *SQLiteAdapter) Delete(ctx context.Context, id core.EntryID) (bool, error) {
	return a.service.DeleteEntry(ctx, int64(id))
}
