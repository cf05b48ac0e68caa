// Package worker synchronizes the local entry log to the configured mirror.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"nutrilog/internal/amqp"
	"nutrilog/internal/core"
	"nutrilog/internal/mirror"
	"nutrilog/internal/storage"
)

// SyncWorker mirrors entries from SQLite to the configured mirror. AMQP
// messages drive the happy path; a periodic pending-sync sweep is the backup
// for lost messages.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	writer    mirror.EntryWriter
	deleter   mirror.EntryDeleter
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, writer mirror.EntryWriter, deleter mirror.EntryDeleter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		writer:    writer,
		deleter:   deleter,
		batchSize: batchSize,
	}
}

// Run consumes both queues and sweeps pending entries until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client, pollInterval time.Duration) error {
	if err := w.StartupSyncCheck(ctx); err != nil {
		slog.ErrorContext(ctx, "Startup sync check failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeEntrySync(ctx, func(msg *amqp.EntrySyncMessage) error {
			return w.HandleSyncMessage(ctx, msg)
		})
	})
	g.Go(func() error {
		return client.ConsumeEntryDelete(ctx, func(msg *amqp.EntryDeleteMessage) error {
			return w.HandleDeleteMessage(ctx, msg)
		})
	})
	g.Go(func() error {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPendingEntries(ctx); err != nil {
					slog.ErrorContext(ctx, "Pending sync sweep failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

// HandleSyncMessage processes a single entry sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	row, err := w.storage.GetEntry(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	entry, err := entryFromRow(row)
	if err != nil {
		return fmt.Errorf("decode entry %d: %w", msg.ID, err)
	}

	return w.syncEntryToMirror(ctx, msg.ID, entry)
}

// HandleDeleteMessage processes a single entry delete message from AMQP.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.EntryDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if w.deleter == nil {
		slog.WarnContext(ctx, "No mirror deleter configured, skipping deletion", "id", msg.ID)
		return nil
	}

	// The row is already gone locally, so reconstruct the entry from the
	// message to locate the mirrored row.
	date, err := core.ParseDate(msg.Date)
	if err != nil {
		return fmt.Errorf("decode delete message date: %w", err)
	}
	tod, err := core.ParseTimeOfDay(msg.Time)
	if err != nil {
		return fmt.Errorf("decode delete message time: %w", err)
	}
	entry := core.FoodEntry{
		Date:     date,
		Time:     tod,
		Label:    msg.Label,
		Calories: msg.Calories,
		Protein:  msg.Protein,
	}

	if err := w.deleter.DeleteEntryByData(ctx, entry); err != nil {
		return fmt.Errorf("delete entry from mirror: %w", err)
	}

	slog.InfoContext(ctx, "Deleted entry from mirror",
		"id", msg.ID,
		"date", msg.Date,
		"label", msg.Label)
	return nil
}

// ProcessPendingEntries mirrors entries that never got a sync message. This
// is the backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingEntries(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncEntries(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	for _, p := range pending {
		row, err := w.storage.GetEntry(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get entry", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		entry, err := entryFromRow(row)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to decode entry", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.syncEntryToMirror(ctx, p.ID, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to sync entry", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck mirrors any backlog left over from worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncEntries(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending entries on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		row, err := w.storage.GetEntry(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get entry for startup sync",
				"id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			failed++
			continue
		}

		entry, err := entryFromRow(row)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to decode entry during startup",
				"id", p.ID, "error", err)
			failed++
			continue
		}

		if err := w.syncEntryToMirror(ctx, p.ID, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to sync entry during startup",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) syncEntryToMirror(ctx context.Context, id int64, entry core.FoodEntry) error {
	ref, err := w.writer.Append(ctx, entry)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Entry mirrored",
		"id", id,
		"row_ref", ref,
		"date", entry.Date.String(),
		"label", entry.Label)
	return nil
}

func entryFromRow(row storage.Entry) (core.FoodEntry, error) {
	date, err := core.ParseDate(row.EntryDate)
	if err != nil {
		return core.FoodEntry{}, err
	}
	tod, err := core.ParseTimeOfDay(row.EntryTime)
	if err != nil {
		return core.FoodEntry{}, err
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
