package intents

import (
	"context"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
)

type Repository interface {
	// Put upserts an intent by key.
	Put(ctx context.Context, in models.Intent) error
	// Get returns a queued intent or common.ErrorNotFound.
	Get(ctx context.Context, key models.IntentKey) (*models.Intent, error)
	// List returns queued intents in the order they were first queued.
	List(ctx context.Context) ([]models.Intent, error)
	// Remove deletes one intent. Removing a missing key is not an error.
	Remove(ctx context.Context, key models.IntentKey) error
	// RemoveByRecord deletes every intent naming the record id.
	RemoveByRecord(ctx context.Context, recordID int64) error
}
