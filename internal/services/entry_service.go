// Package services provides business logic and orchestration on top of the
// SQLite storage layer.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"nutrilog/internal/amqp"
	"nutrilog/internal/core"
	"nutrilog/internal/storage"
)

// EntryService orchestrates entry operations across SQLite and AMQP. The
// database write is the source of truth; sync messages are best effort and
// the pending-sync backup catches anything the broker loses.
type EntryService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewEntryService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *EntryService {
	return &EntryService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateEntry saves an entry locally and publishes a sync message.
func (s *EntryService) CreateEntry(ctx context.Context, e core.FoodEntry) (core.EntryID, error) {
	row, err := s.storage.CreateEntry(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("save entry: %w", err)
	}

	if err := s.publishSyncMessage(ctx, row.ID, row.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", row.ID, "error", err)
		// Don't fail the request, the entry is saved locally
	}

	return core.EntryID(row.ID), nil
}

// UpdateEntry rewrites an entry in place. Reports zero affected rows through
// the bool so the caller can map it to its own not-found handling.
func (s *EntryService) UpdateEntry(ctx context.Context, id int64, e core.FoodEntry) (bool, error) {
	affected, err := s.storage.UpdateEntry(ctx, id, e)
	if err != nil {
		return false, fmt.Errorf("update entry: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	row, err := s.storage.GetEntry(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reload entry after update", "id", id, "error", err)
		return true, nil
	}
	if err := s.publishSyncMessage(ctx, row.ID, row.Version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message after update",
			"id", id, "error", err)
	}
	return true, nil
}

// DeleteEntry soft deletes an entry locally and publishes a delete message
// carrying the entry data, since the mirror can only find the row by content.
func (s *EntryService) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	row, err := s.storage.GetEntry(ctx, id)
	if err != nil {
		// Already gone or never existed.
		return false, nil
	}

	removed, err := s.storage.DeleteEntry(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	if !removed {
		return false, nil
	}

	if err := s.publishDeleteMessage(ctx, row); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
	}
	return true, nil
}

func (s *EntryService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishEntrySync(ctx, id, version)
}

func (s *EntryService) publishDeleteMessage(ctx context.Context, row storage.Entry) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishEntryDelete(ctx, &amqp.EntryDeleteMessage{
		ID:        row.ID,
		Date:      row.EntryDate,
		Time:      row.EntryTime,
		Label:     row.Label,
		Calories:  row.Calories,
		Protein:   row.Protein,
		Timestamp: row.CreatedAt,
	})
}

// Close closes both storage and AMQP connections.
func (s *EntryService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %v", errs)
	}
	return nil
}
