package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nutrilog/internal/core"
	"nutrilog/internal/storage"
)

// RecurringProcessor turns due meal templates into logged entries.
type RecurringProcessor struct {
	storage      *storage.SQLiteRepository
	entryService *EntryService
}

func NewRecurringProcessor(storage *storage.SQLiteRepository, entryService *EntryService) *RecurringProcessor {
	return &RecurringProcessor{
		storage:      storage,
		entryService: entryService,
	}
}

// ProcessDueEntries logs an entry for every active template that is due at
// now. It returns the number of entries created; per-template failures are
// logged and skipped so one bad template cannot stall the rest.
func (p *RecurringProcessor) ProcessDueEntries(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.entryService == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.storage.ListActiveRecurringEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active recurring entries: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring entries",
		"total_active", len(templates),
		"processing_date", now.Format("2006-01-02"))

	today := core.DateOf(now)
	processed := 0

	for _, row := range templates {
		template, lastApplied, err := fromRecurringRow(row)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping malformed recurring entry",
				"id", row.ID, "error", err)
			continue
		}

		if today.Before(template.StartDate.Time) {
			continue
		}
		if !template.EndDate.IsZero() && today.After(template.EndDate.Time) {
			slog.InfoContext(ctx, "Recurring entry past its end date, deactivating",
				"id", row.ID, "label", template.Label, "end_date", template.EndDate.String())
			if err := p.storage.DeactivateRecurringEntry(ctx, row.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to deactivate recurring entry",
					"id", row.ID, "error", err)
			}
			continue
		}

		checker, err := GetDuenessChecker(template.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Skipping recurring entry with unknown interval",
				"id", row.ID, "interval", template.Every)
			continue
		}
		if !checker.IsDue(lastApplied, now, template.StartDate) {
			continue
		}

		entry := core.FoodEntry{
			Date:     today,
			Time:     template.Time,
			Label:    template.Label,
			Calories: template.Calories,
			Protein:  template.Protein,
		}
		if _, err := p.entryService.CreateEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to create entry from recurring template",
				"recurring_id", row.ID,
				"label", template.Label,
				"error", err)
			continue
		}

		if err := p.storage.MarkRecurringApplied(ctx, row.ID, today); err != nil {
			slog.ErrorContext(ctx, "Failed to record last applied date",
				"recurring_id", row.ID,
				"error", err)
			// Continue anyway, the entry was created
		}

		processed++
		slog.InfoContext(ctx, "Created entry from recurring template",
			"recurring_id", row.ID,
			"label", template.Label,
			"calories", template.Calories,
			"interval", template.Every)
	}

	slog.InfoContext(ctx, "Recurring entry processing complete",
		"processed", processed,
		"total_checked", len(templates))

	return processed, nil
}

func fromRecurringRow(row storage.RecurringEntry) (core.RecurringEntry, time.Time, error) {
	startDate, err := core.ParseDate(row.StartDate)
	if err != nil {
		return core.RecurringEntry{}, time.Time{}, fmt.Errorf("start date: %w", err)
	}
	tod, err := core.ParseTimeOfDay(row.EntryTime)
	if err != nil {
		return core.RecurringEntry{}, time.Time{}, fmt.Errorf("entry time: %w", err)
	}

	var endDate core.Date
	if row.EndDate.Valid {
		endDate, err = core.ParseDate(row.EndDate.String)
		if err != nil {
			return core.RecurringEntry{}, time.Time{}, fmt.Errorf("end date: %w", err)
		}
	}

	var lastApplied time.Time
	if row.LastApplied.Valid {
		applied, err := core.ParseDate(row.LastApplied.String)
		if err != nil {
			return core.RecurringEntry{}, time.Time{}, fmt.Errorf("last applied: %w", err)
		}
		lastApplied = applied.Time
	}

	return core.RecurringEntry{
		ID:        row.ID,
		Label:     row.Label,
		Calories:  row.Calories,
		Protein:   row.Protein,
		Time:      tod,
		Every:     core.RepeatInterval(row.RepeatInterval),
		StartDate: startDate,
		EndDate:   endDate,
	}, lastApplied, nil
}
