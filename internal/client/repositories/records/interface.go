package records

import (
	"context"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
)

// Repository describes persistence of Record values.
type Repository interface {
	// Save inserts a record without an id and returns the assigned id, or
	// upserts a record that already has one.
	Save(ctx context.Context, r *models.Record) (int64, error)

	// GetByID returns the record or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.Record, error)

	// GetByGUID returns the record linked to a remote file id or
	// common.ErrorNotFound.
	GetByGUID(ctx context.Context, guid string) (*models.Record, error)

	// List returns all records ordered by id.
	List(ctx context.Context) ([]*models.Record, error)

	// UpdateLocal applies a local edit to a stored record without touching
	// its sync fields. Returns common.ErrorNotFound when the record is gone.
	UpdateLocal(ctx context.Context, id int64, u models.LocalUpdate) error

	// SetGUID links a stored record to a remote file.
	SetGUID(ctx context.Context, id int64, guid string) error

	// MarkSynced records a finished upload. The filter flag is cleared only
	// when the stored transform still equals sent, the image flag only when
	// imageSynced is set.
	MarkSynced(ctx context.Context, id int64, guid string, version int64, sent models.Transform, imageSynced bool) error

	// ApplyRemote overwrites a stored record that has no local changes with
	// remote state. Returns common.ErrorNotFound when the record is gone or
	// was edited meanwhile.
	ApplyRemote(ctx context.Context, r *models.Record) error

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id int64) error
}
