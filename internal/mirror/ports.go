package mirror

import (
	"context"

	"nutrilog/internal/core"
)

// Ports for outbound mirror adapters.
type (
	EntryWriter interface {
		Append(ctx context.Context, e core.FoodEntry) (rowRef string, err error)
	}

	// EntryDeleter locates a mirrored row by its contents. Mirrors have no
	// natural row ids, so the full entry data is the lookup key.
	EntryDeleter interface {
		DeleteEntryByData(ctx context.Context, e core.FoodEntry) error
	}
)
