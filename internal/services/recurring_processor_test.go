package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"nutrilog/internal/core"
	"nutrilog/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newProcessor(t *testing.T) (*RecurringProcessor, *storage.SQLiteRepository) {
	t.Helper()
	repo := newTestRepo(t)
	svc := NewEntryService(repo, nil)
	return NewRecurringProcessor(repo, svc), repo
}

func createTemplate(t *testing.T, repo *storage.SQLiteRepository, re core.RecurringEntry) int64 {
	t.Helper()
	id, err := repo.CreateRecurringEntry(context.Background(), re)
	if err != nil {
		t.Fatalf("CreateRecurringEntry: %v", err)
	}
	return id
}

func TestProcessDueEntriesCreatesEntry(t *testing.T) {
	processor, repo := newProcessor(t)
	ctx := context.Background()

	createTemplate(t, repo, core.RecurringEntry{
		Label:     "morning shake",
		Calories:  250,
		Protein:   30,
		Time:      core.TimeOfDay{Hour: 7},
		Every:     core.Daily,
		StartDate: core.NewDate(2026, 8, 1),
	})

	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	count, err := processor.ProcessDueEntries(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDueEntries: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	entries, err := repo.ListEntries(ctx)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	e := entries[0]
	if e.Label != "morning shake" || e.Calories != 250 || !e.Date.Equal(core.NewDate(2026, 8, 30)) {
		t.Errorf("created entry = %+v", e)
	}

	// Same day again: already applied, nothing new.
	count, err = processor.ProcessDueEntries(ctx, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("repeat ProcessDueEntries: %v", err)
	}
	if count != 0 {
		t.Fatalf("repeat count = %d, want 0", count)
	}

	// Next day: due again.
	count, err = processor.ProcessDueEntries(ctx, now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("next day ProcessDueEntries: %v", err)
	}
	if count != 1 {
		t.Fatalf("next day count = %d, want 1", count)
	}
}

func TestProcessDueEntriesSkipsBeforeStart(t *testing.T) {
	processor, repo := newProcessor(t)
	ctx := context.Background()

	createTemplate(t, repo, core.RecurringEntry{
		Label:     "future meal",
		Calories:  400,
		Protein:   25,
		Time:      core.TimeOfDay{Hour: 12},
		Every:     core.Daily,
		StartDate: core.NewDate(2026, 9, 15),
	})

	count, err := processor.ProcessDueEntries(ctx, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDueEntries: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0 before start date", count)
	}
}

func TestProcessDueEntriesDeactivatesExpired(t *testing.T) {
	processor, repo := newProcessor(t)
	ctx := context.Background()

	createTemplate(t, repo, core.RecurringEntry{
		Label:     "old habit",
		Calories:  300,
		Protein:   20,
		Time:      core.TimeOfDay{Hour: 8},
		Every:     core.Daily,
		StartDate: core.NewDate(2026, 7, 1),
		EndDate:   core.NewDate(2026, 7, 31),
	})

	count, err := processor.ProcessDueEntries(ctx, time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDueEntries: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0 for expired template", count)
	}

	rows, err := repo.ListActiveRecurringEntries(ctx)
	if err != nil {
		t.Fatalf("ListActiveRecurringEntries: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expired template still active: %+v", rows)
	}
}

func TestProcessDueEntriesWeekly(t *testing.T) {
	processor, repo := newProcessor(t)
	ctx := context.Background()

	id := createTemplate(t, repo, core.RecurringEntry{
		Label:     "sunday roast",
		Calories:  900,
		Protein:   60,
		Time:      core.TimeOfDay{Hour: 18},
		Every:     core.Weekly,
		StartDate: core.NewDate(2026, 8, 2),
	})
	if err := repo.MarkRecurringApplied(ctx, id, core.NewDate(2026, 8, 23)); err != nil {
		t.Fatalf("MarkRecurringApplied: %v", err)
	}

	// Six days later: not yet due.
	count, err := processor.ProcessDueEntries(ctx, time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDueEntries: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0 six days after last application", count)
	}

	// Seven days later: due.
	count, err = processor.ProcessDueEntries(ctx, time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ProcessDueEntries: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 a week after last application", count)
	}
}
