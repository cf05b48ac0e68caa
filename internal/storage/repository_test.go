package storage

import (
	"context"
	"path/filepath"
	"testing"

	"nutrilog/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleEntry() core.FoodEntry {
	return core.FoodEntry{
		Date:     core.NewDate(2026, 8, 30),
		Time:     core.TimeOfDay{Hour: 12, Minute: 30},
		Label:    "chicken salad",
		Calories: 420,
		Protein:  38,
	}
}

func TestCreateAndGetEntry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	row, err := repo.CreateEntry(ctx, sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if row.ID == 0 {
		t.Fatal("expected non-zero id")
	}
	if row.SyncStatus != "pending" {
		t.Errorf("SyncStatus = %q, want pending", row.SyncStatus)
	}
	if row.Version != 1 {
		t.Errorf("Version = %d, want 1", row.Version)
	}

	got, err := repo.GetEntry(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.EntryDate != "2026-08-30" || got.EntryTime != "12:30:00" {
		t.Errorf("stored date/time = %s %s", got.EntryDate, got.EntryTime)
	}
	if got.Label != "chicken salad" || got.Calories != 420 || got.Protein != 38 {
		t.Errorf("stored row = %+v", got)
	}
}

func TestUpdateEntryBumpsVersionAndResetsSync(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	row, err := repo.CreateEntry(ctx, sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if err := repo.MarkSynced(ctx, row.ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	updated := sampleEntry()
	updated.Calories = 500
	affected, err := repo.UpdateEntry(ctx, row.ID, updated)
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if affected != 1 {
		t.Fatalf("affected = %d, want 1", affected)
	}

	got, err := repo.GetEntry(ctx, row.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Calories != 500 {
		t.Errorf("Calories = %v, want 500", got.Calories)
	}
	if got.Version != 2 {
		t.Errorf("Version = %d, want 2", got.Version)
	}
	if got.SyncStatus != "pending" {
		t.Errorf("SyncStatus = %q, want pending after update", got.SyncStatus)
	}

	// Updating a missing row affects nothing.
	affected, err = repo.UpdateEntry(ctx, 9999, updated)
	if err != nil {
		t.Fatalf("UpdateEntry missing: %v", err)
	}
	if affected != 0 {
		t.Errorf("affected = %d, want 0 for missing row", affected)
	}
}

func TestSoftDeleteHidesEntry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	row, err := repo.CreateEntry(ctx, sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	removed, err := repo.DeleteEntry(ctx, row.ID)
	if err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if !removed {
		t.Fatal("expected delete to report a removed row")
	}

	if _, err := repo.GetEntry(ctx, row.ID); err == nil {
		t.Fatal("expected GetEntry to fail after delete")
	}
	entries, err := repo.ListEntries(ctx)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("ListEntries after delete = %+v", entries)
	}

	// Deleting again reports nothing removed.
	removed, err = repo.DeleteEntry(ctx, row.ID)
	if err != nil {
		t.Fatalf("repeat DeleteEntry: %v", err)
	}
	if removed {
		t.Fatal("expected repeat delete to report no removed row")
	}
}

func TestListEntriesByDateRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for day := 28; day <= 31; day++ {
		e := sampleEntry()
		e.Date = core.NewDate(2026, 8, day)
		if _, err := repo.CreateEntry(ctx, e); err != nil {
			t.Fatalf("CreateEntry day %d: %v", day, err)
		}
	}

	entries, err := repo.ListEntriesByDateRange(ctx, core.NewDate(2026, 8, 29), core.NewDate(2026, 8, 30))
	if err != nil {
		t.Fatalf("ListEntriesByDateRange: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("range returned %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Date.Day() < 29 || e.Date.Day() > 30 {
			t.Errorf("entry outside range: %s", e.Date)
		}
	}
}

func TestPendingSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.CreateEntry(ctx, sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	second, err := repo.CreateEntry(ctx, sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	pending, err := repo.GetPendingSyncEntries(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncEntries: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	if err := repo.MarkSynced(ctx, first.ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, second.ID); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}

	pending, err = repo.GetPendingSyncEntries(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncEntries: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending after marks = %d, want 0", len(pending))
	}
}

func TestRecurringEntryLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.CreateRecurringEntry(ctx, core.RecurringEntry{
		Label:     "morning shake",
		Calories:  250,
		Protein:   30,
		Time:      core.TimeOfDay{Hour: 7},
		Every:     core.Daily,
		StartDate: core.NewDate(2026, 8, 1),
	})
	if err != nil {
		t.Fatalf("CreateRecurringEntry: %v", err)
	}

	rows, err := repo.ListActiveRecurringEntries(ctx)
	if err != nil {
		t.Fatalf("ListActiveRecurringEntries: %v", err)
	}
	if len(rows) != 1 || rows[0].Label != "morning shake" {
		t.Fatalf("active rows = %+v", rows)
	}
	if rows[0].LastApplied.Valid {
		t.Error("new template should have no last_applied")
	}

	if err := repo.MarkRecurringApplied(ctx, id, core.NewDate(2026, 8, 30)); err != nil {
		t.Fatalf("MarkRecurringApplied: %v", err)
	}
	rows, _ = repo.ListActiveRecurringEntries(ctx)
	if !rows[0].LastApplied.Valid || rows[0].LastApplied.String != "2026-08-30" {
		t.Fatalf("last_applied = %+v", rows[0].LastApplied)
	}

	if err := repo.DeactivateRecurringEntry(ctx, id); err != nil {
		t.Fatalf("DeactivateRecurringEntry: %v", err)
	}
	rows, _ = repo.ListActiveRecurringEntries(ctx)
	if len(rows) != 0 {
		t.Fatalf("active rows after deactivate = %+v", rows)
	}
}
