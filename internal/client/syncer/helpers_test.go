package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/client/notify"
	"github.com/dmitrijs2005/snapkeeper/internal/client/store"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
	"github.com/dmitrijs2005/snapkeeper/internal/logging"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type staticAuth struct{ ac client.AuthContext }

func (s staticAuth) Current() client.AuthContext { return s.ac }

var validAuth = staticAuth{client.AuthContext{Token: "tok", Expiry: testNow.Add(time.Hour)}}

// fakeRemote is an in-memory folder store.
type fakeRemote struct {
	mu      sync.Mutex
	folders map[string]string
	files   map[string]*models.RemoteFile
	order   []string
	content map[string][]byte
	nextID  int
	calls   map[string]int
	fail    map[string]error
}

var _ client.Remote = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		folders: map[string]string{},
		files:   map[string]*models.RemoteFile{},
		content: map[string][]byte{},
		calls:   map[string]int{},
		fail:    map[string]error{},
	}
}

func (f *fakeRemote) enter(method string) error {
	f.calls[method]++
	return f.fail[method]
}

func (f *fakeRemote) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRemote) setFail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

func (f *fakeRemote) put(file models.RemoteFile, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[file.ID]; !ok {
		f.order = append(f.order, file.ID)
	}
	cp := file
	f.files[file.ID] = &cp
	f.content[file.ID] = data
}

func (f *fakeRemote) file(id string) models.RemoteFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.files[id]
}

func (f *fakeRemote) FindOrCreateFolder(_ context.Context, _ client.AuthContext, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("FindOrCreateFolder"); err != nil {
		return "", err
	}
	if id, ok := f.folders[name]; ok {
		return id, nil
	}
	id := "folder-" + name
	f.folders[name] = id
	return id, nil
}

func (f *fakeRemote) ListFolder(_ context.Context, _ client.AuthContext, folderID string) ([]models.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListFolder"); err != nil {
		return nil, err
	}
	var out []models.RemoteFile
	for _, id := range f.order {
		if file := f.files[id]; slices.Contains(file.Parents, folderID) {
			out = append(out, *file)
		}
	}
	return out, nil
}

func (f *fakeRemote) GetFile(_ context.Context, _ client.AuthContext, id string) (*models.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetFile"); err != nil {
		return nil, err
	}
	file, ok := f.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *file
	return &cp, nil
}

func (f *fakeRemote) GetContent(_ context.Context, _ client.AuthContext, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetContent"); err != nil {
		return nil, err
	}
	data, ok := f.content[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return data, nil
}

func (f *fakeRemote) CreateFile(_ context.Context, _ client.AuthContext, file models.RemoteFile) (*models.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreateFile"); err != nil {
		return nil, err
	}
	f.nextID++
	file.ID = fmt.Sprintf("file-%d", f.nextID)
	file.Version = 1
	f.files[file.ID] = &file
	f.order = append(f.order, file.ID)
	cp := file
	return &cp, nil
}

func (f *fakeRemote) UpdateMetadata(_ context.Context, _ client.AuthContext, file models.RemoteFile) (*models.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateMetadata"); err != nil {
		return nil, err
	}
	cur, ok := f.files[file.ID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cur.Attributes = file.Attributes
	cur.Version++
	cp := *cur
	return &cp, nil
}

func (f *fakeRemote) UpdateContent(_ context.Context, _ client.AuthContext, id string, data []byte) (*models.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateContent"); err != nil {
		return nil, err
	}
	cur, ok := f.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	f.content[id] = data
	cur.Version++
	cp := *cur
	return &cp, nil
}

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Publish(_ context.Context, msg notify.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) events() []models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ChangeEvent, 0, len(r.msgs))
	for _, m := range r.msgs {
		out = append(out, m.Event())
	}
	return out
}

type countingWaker struct{ n int }

func (w *countingWaker) Wake() { w.n++ }

const testFolder = "Snapshot"

type env struct {
	store    *store.Store
	remote   *fakeRemote
	pub      *recorder
	folder   *Folder
	exec     *Executor
	rec      *Reconciler
	waker    *countingWaker
	folderID string
}

// newEnv wires a reconciler that wakes a counting waker instead of
// draining inline, so tests can inspect the queue between the steps.
func newEnv(t *testing.T) *env {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "library.db"), nil, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	e := &env{store: st, remote: newFakeRemote(), pub: &recorder{}, waker: &countingWaker{}, folderID: "folder-" + testFolder}
	e.folder = NewFolder(e.remote, st, testFolder)
	e.exec = NewExecutor(st, e.remote, validAuth, e.folder, e.pub, logging.Discard())
	e.exec.now = func() time.Time { return testNow }
	e.rec = NewReconciler(ReconcilerConfig{
		Store:    st,
		Remote:   e.remote,
		Auth:     validAuth,
		Folder:   e.folder,
		Notify:   e.pub,
		Waker:    e.waker,
		Interval: time.Minute,
		Log:      logging.Discard(),
	})
	e.rec.now = func() time.Time { return testNow }
	return e
}

// addLocal stores a record with an original.
func (e *env) addLocal(t *testing.T, mutate func(r *models.Record)) *models.Record {
	t.Helper()
	ctx := context.Background()
	rec := models.NewRecord()
	ref := fmt.Sprintf("orig-%d", time.Now().UnixNano())
	require.NoError(t, e.store.PutContent(ctx, ref, []byte("\xff\xd8\xff local jpeg")))
	rec.OriginalRef = models.Ref(ref)
	if mutate != nil {
		mutate(rec)
	}
	id, err := e.store.PutRecord(ctx, rec)
	require.NoError(t, err)
	rec.ID = id
	return rec
}

func (e *env) addRemote(id string, version int64, trashed bool, attrs map[string]string) {
	e.remote.put(models.RemoteFile{
		ID:         id,
		Name:       id,
		MimeType:   "image/jpeg",
		Version:    version,
		Trashed:    trashed,
		Attributes: attrs,
		Parents:    []string{e.folderID},
	}, []byte("remote bytes of "+id))
}

func (e *env) intents(t *testing.T) []models.Intent {
	t.Helper()
	list, err := e.store.ListIntents(context.Background())
	require.NoError(t, err)
	return list
}

func (e *env) record(t *testing.T, id int64) *models.Record {
	t.Helper()
	rec, err := e.store.GetRecord(context.Background(), id)
	require.NoError(t, err)
	return rec
}
