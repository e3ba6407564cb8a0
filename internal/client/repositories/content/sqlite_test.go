package content

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/snapkeeper/internal/common"
	"github.com/dmitrijs2005/snapkeeper/internal/dbx"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE content (
  ref TEXT PRIMARY KEY,
  data BLOB NOT NULL,
  checksum TEXT NOT NULL DEFAULT '',
  size INTEGER NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)
	return db
}

func TestSQLiteStore_PutGet(t *testing.T) {
	s := NewSQLiteStore(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "r1", []byte("jpeg")))
	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), got)

	require.NoError(t, s.Put(ctx, "r1", []byte("png")))
	got, err = s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)
}

func TestSQLiteStore_EmptyBlob(t *testing.T) {
	s := NewSQLiteStore(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "empty", nil))
	got, err := s.Get(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s := NewSQLiteStore(setupDB(t))
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteStore_DetectsCorruption(t *testing.T) {
	db := setupDB(t)
	s := NewSQLiteStore(db)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "r", []byte("original")))
	_, err := db.Exec(`UPDATE content SET data = ? WHERE ref = 'r'`, []byte("flipped"))
	require.NoError(t, err)

	_, err = s.Get(ctx, "r")
	assert.ErrorIs(t, err, common.ErrChecksumMismatch)
}

func TestSQLiteStore_Delete(t *testing.T) {
	s := NewSQLiteStore(setupDB(t))
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "a", []byte("1")))
	require.NoError(t, s.Put(ctx, "b", []byte("2")))
	require.NoError(t, s.Delete(ctx, "a", "b", "missing"))

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteStore_WithTxRollsBack(t *testing.T) {
	db := setupDB(t)
	s := NewSQLiteStore(db)
	ctx := context.Background()

	err := dbx.WithTx(ctx, db, func(ctx context.Context, tx dbx.DBTX) error {
		require.NoError(t, s.WithTx(tx).Put(ctx, "tx", []byte("x")))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = s.Get(ctx, "tx")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLiteStore_ClosedDBErrors(t *testing.T) {
	db := setupDB(t)
	s := NewSQLiteStore(db)
	require.NoError(t, db.Close())
	ctx := context.Background()

	assert.ErrorContains(t, s.Put(ctx, "r", []byte("x")), "failed to put content r")
	_, err := s.Get(ctx, "r")
	assert.ErrorContains(t, err, "failed to get content r")
	assert.ErrorContains(t, s.Delete(ctx, "r"), "failed to delete content r")
}

func TestNewRef_Unique(t *testing.T) {
	assert.NotEqual(t, NewRef(), NewRef())
	assert.Len(t, NewRef(), 36)
}
