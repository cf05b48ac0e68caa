package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"nutrilog/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.FoodEntry) (Entry, error) {
	row, err := r.queries.CreateEntry(ctx, CreateEntryParams{
		EntryDate: e.Date.String(),
		EntryTime: e.Time.String(),
		Label:     e.Label,
		Calories:  e.Calories,
		Protein:   e.Protein,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("create entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", row.ID,
		"date", row.EntryDate,
		"label", row.Label,
		"calories", row.Calories,
		"protein", row.Protein)

	return row, nil
}

func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	e, err := r.queries.GetEntry(ctx, id)
	if err != nil {
		return Entry{}, fmt.Errorf("get entry by id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.FoodEntry, error) {
	rows, err := r.queries.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return toFoodEntries(rows)
}

func (r *SQLiteRepository) ListEntriesByDateRange(ctx context.Context, start, end core.Date) ([]core.FoodEntry, error) {
	rows, err := r.queries.ListEntriesByDateRange(ctx, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("list entries by date range: %w", err)
	}
	return toFoodEntries(rows)
}

// UpdateEntry reports how many rows matched; zero means the entry does not
// exist or was already deleted.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, id int64, e core.FoodEntry) (int64, error) {
	affected, err := r.queries.UpdateEntry(ctx, UpdateEntryParams{
		ID:        id,
		EntryDate: e.Date.String(),
		EntryTime: e.Time.String(),
		Label:     e.Label,
		Calories:  e.Calories,
		Protein:   e.Protein,
	})
	if err != nil {
		return 0, fmt.Errorf("update entry: %w", err)
	}
	return affected, nil
}

func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	affected, err := r.queries.SoftDeleteEntry(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return affected > 0, nil
}

// PendingSyncEntry carries the minimal data the sync queue message needs.
type PendingSyncEntry struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

func (r *SQLiteRepository) GetPendingSyncEntries(ctx context.Context, limit int) ([]PendingSyncEntry, error) {
	rows, err := r.queries.GetPendingSyncEntries(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	out := make([]PendingSyncEntry, len(rows))
	for i, e := range rows {
		out[i] = PendingSyncEntry{ID: e.ID, Version: e.Version, CreatedAt: e.CreatedAt}
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkEntrySynced(ctx, id); err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}
	slog.InfoContext(ctx, "Entry marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkEntrySyncError(ctx, id); err != nil {
		return fmt.Errorf("mark entry sync error: %w", err)
	}
	slog.WarnContext(ctx, "Entry marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) CreateRecurringEntry(ctx context.Context, re core.RecurringEntry) (int64, error) {
	var endDate sql.NullString
	if !re.EndDate.IsZero() {
		endDate = sql.NullString{String: re.EndDate.String(), Valid: true}
	}
	id, err := r.queries.CreateRecurringEntry(ctx, CreateRecurringEntryParams{
		Label:          re.Label,
		Calories:       re.Calories,
		Protein:        re.Protein,
		EntryTime:      re.Time.String(),
		RepeatInterval: string(re.Every),
		StartDate:      re.StartDate.String(),
		EndDate:        endDate,
	})
	if err != nil {
		return 0, fmt.Errorf("create recurring entry: %w", err)
	}
	slog.InfoContext(ctx, "Recurring entry saved", "id", id, "label", re.Label, "every", re.Every)
	return id, nil
}

func (r *SQLiteRepository) ListActiveRecurringEntries(ctx context.Context) ([]RecurringEntry, error) {
	rows, err := r.queries.ListActiveRecurringEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active recurring entries: %w", err)
	}
	return rows, nil
}

func (r *SQLiteRepository) MarkRecurringApplied(ctx context.Context, id int64, day core.Date) error {
	if err := r.queries.MarkRecurringApplied(ctx, id, day.String()); err != nil {
		return fmt.Errorf("mark recurring applied: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeactivateRecurringEntry(ctx context.Context, id int64) error {
	if err := r.queries.DeactivateRecurringEntry(ctx, id); err != nil {
		return fmt.Errorf("deactivate recurring entry: %w", err)
	}
	slog.InfoContext(ctx, "Recurring entry deactivated", "id", id)
	return nil
}

func toFoodEntries(rows []Entry) ([]core.FoodEntry, error) {
	entries := make([]core.FoodEntry, len(rows))
	for i, row := range rows {
		e, err := toFoodEntry(row)
		if err != nil {
			return nil, err
		}
		entries[i] = e
	}
	return entries, nil
}

func toFoodEntry(row Entry) (core.FoodEntry, error) {
	date, err := core.ParseDate(row.EntryDate)
	if err != nil {
		return core.FoodEntry{}, fmt.Errorf("entry %d: %w", row.ID, err)
	}
	tod, err := core.ParseTimeOfDay(row.EntryTime)
	if err != nil {
		return core.FoodEntry{}, fmt.Errorf("entry %d: %w", row.ID, err)
	}
	return core.FoodEntry{
		ID:       core.EntryID(row.ID),
		Date:     date,
		Time:     tod,
		Label:    row.Label,
		Calories: row.Calories,
		Protein:  row.Protein,
	}, nil
}
