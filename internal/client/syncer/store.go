package syncer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
)

// Store is the record store as seen by the sync engine.
type Store interface {
	GetRecord(ctx context.Context, id int64) (*models.Record, error)
	GetRecordByGUID(ctx context.Context, guid string) (*models.Record, error)
	ListRecords(ctx context.Context) ([]*models.Record, error)
	PutRecord(ctx context.Context, r *models.Record) (int64, error)
	SetRecordGUID(ctx context.Context, id int64, guid string) error
	MarkRecordSynced(ctx context.Context, id int64, guid string, version int64, sent models.Transform, imageSynced bool) error
	ApplyRemoteRecord(ctx context.Context, r *models.Record) error
	DeleteRecord(ctx context.Context, id int64, refs []string) error

	PutIntent(ctx context.Context, in models.Intent) error
	ListIntents(ctx context.Context) ([]models.Intent, error)
	RemoveIntent(ctx context.Context, key models.IntentKey) error

	GetMeta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
	LastSyncTime(ctx context.Context) (time.Time, error)
	SetLastSyncTime(ctx context.Context, t time.Time) error

	GetContent(ctx context.Context, ref string) ([]byte, error)
	PutContent(ctx context.Context, ref string, data []byte) error
	DeleteContent(ctx context.Context, refs ...string) error
}

// AuthSource yields the token to use for the next remote call.
type AuthSource interface {
	Current() client.AuthContext
}
