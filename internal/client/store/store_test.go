package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/content"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

func openStore(t *testing.T, cs content.Store) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "library.db"), cs, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// memContent is a content store outside the database.
type memContent struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	deleteErr error
}

func newMemContent() *memContent { return &memContent{blobs: map[string][]byte{}} }

func (m *memContent) Put(ctx context.Context, ref string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[ref] = data
	return nil
}

func (m *memContent) Get(ctx context.Context, ref string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[ref]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return b, nil
}

func (m *memContent) Delete(ctx context.Context, refs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	for _, r := range refs {
		delete(m.blobs, r)
	}
	return nil
}

func TestOpen_UnavailableStorage(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing", "dir", "library.db"), nil, logging.Discard())
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestPutGetRecord_RoundTrip(t *testing.T) {
	s := openStore(t, nil)
	ctx := context.Background()

	rec := models.NewRecord()
	rec.GUID = "g1"
	rec.OriginalRef = models.Ref("o1")
	rec.Transform.Vignette = 0.7
	rec.LocalFilterChanges = true
	rec.LastSyncVersion = 3

	id, err := s.PutRecord(ctx, rec)
	require.NoError(t, err)
	rec.ID = id

	got, err := s.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	byGUID, err := s.GetRecordByGUID(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, id, byGUID.ID)
}

func TestDeleteRecord_RemovesRecordIntentsAndContent(t *testing.T) {
	s := openStore(t, nil)
	ctx := context.Background()

	require.NoError(t, s.PutContent(ctx, "orig", []byte("o")))
	require.NoError(t, s.PutContent(ctx, "thumb", []byte("t")))
	require.NoError(t, s.PutContent(ctx, "other", []byte("x")))

	rec := models.NewRecord()
	rec.OriginalRef = models.Ref("orig")
	rec.ThumbnailRef = models.Ref("thumb")
	id, err := s.PutRecord(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, s.PutIntent(ctx, models.UploadIntent(id, "", true)))
	require.NoError(t, s.PutIntent(ctx, models.DownloadIntent(0, "unrelated")))

	require.NoError(t, s.DeleteRecord(ctx, id, []string{"orig", "thumb"}))

	_, err = s.GetRecord(ctx, id)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.GetContent(ctx, "orig")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = s.GetContent(ctx, "thumb")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	other, err := s.GetContent(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), other)

	list, err := s.ListIntents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "unrelated", list[0].GUID)
}

func TestDeleteRecord_ExternalContentReleasedAfterCommit(t *testing.T) {
	mc := newMemContent()
	s := openStore(t, mc)
	ctx := context.Background()

	require.NoError(t, s.PutContent(ctx, "orig", []byte("o")))
	rec := models.NewRecord()
	rec.OriginalRef = models.Ref("orig")
	id, err := s.PutRecord(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecord(ctx, id, rec.Refs()))
	assert.Empty(t, mc.blobs)
}

func TestDeleteRecord_ExternalContentFailureIsNotFatal(t *testing.T) {
	mc := newMemContent()
	mc.deleteErr = errors.New("bucket offline")
	s := openStore(t, mc)
	ctx := context.Background()

	id, err := s.PutRecord(ctx, models.NewRecord())
	require.NoError(t, err)

	require.NoError(t, s.DeleteRecord(ctx, id, []string{"orig"}))
	_, err = s.GetRecord(ctx, id)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestIntents_UpsertAndRemove(t *testing.T) {
	s := openStore(t, nil)
	ctx := context.Background()

	require.NoError(t, s.PutIntent(ctx, models.UploadIntent(1, "", true)))
	require.NoError(t, s.PutIntent(ctx, models.UploadIntent(1, "", false)))

	list, err := s.ListIntents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IncludeMedia)

	got, err := s.GetIntent(ctx, list[0].IntentKey)
	require.NoError(t, err)
	assert.Equal(t, list[0], *got)

	require.NoError(t, s.RemoveIntent(ctx, list[0].IntentKey))
	list, err = s.ListIntents(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMeta_AndLastSyncTime(t *testing.T) {
	s := openStore(t, nil)
	ctx := context.Background()

	last, err := s.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	now := time.UnixMilli(1700000000123)
	require.NoError(t, s.SetLastSyncTime(ctx, now))
	last, err = s.LastSyncTime(ctx)
	require.NoError(t, err)
	assert.True(t, now.Equal(last))

	require.NoError(t, s.SetMeta(ctx, "lastSyncTime", "garbage"))
	_, err = s.LastSyncTime(ctx)
	assert.ErrorContains(t, err, "failed to parse metadata[lastSyncTime]")

	require.NoError(t, s.SetMeta(ctx, "token", "t"))
	require.NoError(t, s.DeleteMeta(ctx, "token"))
	_, ok, err := s.GetMeta(ctx, "token")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutRecord_IDsAreMonotonic(t *testing.T) {
	s := openStore(t, nil)
	ctx := context.Background()

	id1, err := s.PutRecord(ctx, models.NewRecord())
	require.NoError(t, err)
	require.NoError(t, s.DeleteRecord(ctx, id1, nil))

	id2, err := s.PutRecord(ctx, models.NewRecord())
	require.NoError(t, err)
	assert.Greater(t, id2, id1)
}
