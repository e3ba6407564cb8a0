// Package store is the Record Store: one handle over the library database
// that the media cache, the reconciler and the executor share. Every call
// is its own transaction; DeleteRecord removes the record, its intents and
// its content together.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/content"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/intents"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/records"
	"github.com/dmitrijs2005/snapkeeper/internal/dbx"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

type Store struct {
	db       *sql.DB
	content  content.Store
	records  records.Repository
	intents  intents.Repository
	metadata metadata.Repository
	log      logging.Logger
}

// New wraps an open, migrated database. A nil cs keeps content in the
// database itself.
func New(db *sql.DB, cs content.Store, log logging.Logger) *Store {
	if cs == nil {
		cs = content.NewSQLiteStore(db)
	}
	return &Store{
		db:       db,
		content:  cs,
		records:  records.NewSQLiteRepository(db),
		intents:  intents.NewSQLiteRepository(db),
		metadata: metadata.NewSQLiteRepository(db),
		log:      log.With("component", "store"),
	}
}

// Open opens and migrates the library at dsn. Any failure wraps
// common.ErrStorageUnavailable.
func Open(ctx context.Context, dsn string, cs content.Store, log logging.Logger) (*Store, error) {
	db, err := client.InitDatabase(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return New(db, cs, log), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// PutRecord saves r and returns its id; a new record gets one assigned.
func (s *Store) PutRecord(ctx context.Context, r *models.Record) (int64, error) {
	return s.records.Save(ctx, r)
}

// UpdateRecordLocal writes a local edit; sync fields are left alone.
func (s *Store) UpdateRecordLocal(ctx context.Context, id int64, u models.LocalUpdate) error {
	return s.records.UpdateLocal(ctx, id, u)
}

func (s *Store) SetRecordGUID(ctx context.Context, id int64, guid string) error {
	return s.records.SetGUID(ctx, id, guid)
}

func (s *Store) MarkRecordSynced(ctx context.Context, id int64, guid string, version int64, sent models.Transform, imageSynced bool) error {
	return s.records.MarkSynced(ctx, id, guid, version, sent, imageSynced)
}

// ApplyRemoteRecord overwrites a clean record with remote state.
func (s *Store) ApplyRemoteRecord(ctx context.Context, r *models.Record) error {
	return s.records.ApplyRemote(ctx, r)
}

func (s *Store) GetRecord(ctx context.Context, id int64) (*models.Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Store) GetRecordByGUID(ctx context.Context, guid string) (*models.Record, error) {
	return s.records.GetByGUID(ctx, guid)
}

func (s *Store) ListRecords(ctx context.Context) ([]*models.Record, error) {
	return s.records.List(ctx)
}

// DeleteRecord removes the record, the intents keyed by its id and the
// given content refs. Content kept outside the database is released after
// the commit; a failure there only leaves unreferenced blobs behind.
func (s *Store) DeleteRecord(ctx context.Context, id int64, refs []string) error {
	binder, inDB := s.content.(content.TxBinder)

	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx dbx.DBTX) error {
		if err := records.NewSQLiteRepository(tx).Delete(ctx, id); err != nil {
			return err
		}
		if err := intents.NewSQLiteRepository(tx).RemoveByRecord(ctx, id); err != nil {
			return err
		}
		if inDB && len(refs) > 0 {
			return binder.WithTx(tx).Delete(ctx, refs...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %d: %w", id, err)
	}

	if !inDB && len(refs) > 0 {
		if err := s.content.Delete(ctx, refs...); err != nil {
			s.log.Warn(ctx, "content left behind after record delete", "id", id, "err", err)
		}
	}
	return nil
}

func (s *Store) PutIntent(ctx context.Context, in models.Intent) error {
	return s.intents.Put(ctx, in)
}

func (s *Store) GetIntent(ctx context.Context, key models.IntentKey) (*models.Intent, error) {
	return s.intents.Get(ctx, key)
}

func (s *Store) ListIntents(ctx context.Context) ([]models.Intent, error) {
	return s.intents.List(ctx)
}

func (s *Store) RemoveIntent(ctx context.Context, key models.IntentKey) error {
	return s.intents.Remove(ctx, key)
}

func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	return s.metadata.Get(ctx, key)
}

func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	return s.metadata.Set(ctx, key, value)
}

func (s *Store) DeleteMeta(ctx context.Context, keys ...string) error {
	return s.metadata.Delete(ctx, keys...)
}

// LastSyncTime returns the time of the last reconcile pass, zero if none.
func (s *Store) LastSyncTime(ctx context.Context) (time.Time, error) {
	return s.metaTime(ctx, metadata.KeyLastSyncTime, time.UnixMilli)
}

func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.metadata.Set(ctx, metadata.KeyLastSyncTime, strconv.FormatInt(t.UnixMilli(), 10))
}

func (s *Store) metaTime(ctx context.Context, key string, conv func(int64) time.Time) (time.Time, error) {
	v, ok, err := s.metadata.Get(ctx, key)
	if err != nil || !ok || v == "" {
		return time.Time{}, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse metadata[%s]: %w", key, err)
	}
	return conv(n), nil
}

func (s *Store) PutContent(ctx context.Context, ref string, data []byte) error {
	return s.content.Put(ctx, ref, data)
}

func (s *Store) GetContent(ctx context.Context, ref string) ([]byte, error) {
	return s.content.Get(ctx, ref)
}

func (s *Store) DeleteContent(ctx context.Context, refs ...string) error {
	return s.content.Delete(ctx, refs...)
}
