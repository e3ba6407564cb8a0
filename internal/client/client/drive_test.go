package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
	"github.com/dmitrijs2005/snapkeeper/internal/common"
)

const testToken = "tok"

// fakeDrive is an in-memory stand-in for the Drive v3 endpoints used by
// DriveClient.
type fakeDrive struct {
	mu       sync.Mutex
	files    map[string]*drive.File
	content  map[string][]byte
	nextID   int
	pageSize int
	requests []string
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: map[string]*drive.File{}, content: map[string][]byte{}, pageSize: 2}
}

func (f *fakeDrive) add(file *drive.File) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[file.Id] = file
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": map[string]any{"code": code, "message": msg}})
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeError(w, http.StatusUnauthorized, "Invalid Credentials")
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/upload/drive/v3/files/"):
		f.upload(w, r, strings.TrimPrefix(r.URL.Path, "/upload/drive/v3/files/"))
	case r.URL.Path == "/files" && r.Method == http.MethodGet:
		f.list(w, r)
	case r.URL.Path == "/files" && r.Method == http.MethodPost:
		var in drive.File
		_ = json.NewDecoder(r.Body).Decode(&in)
		f.nextID++
		in.Id = fmt.Sprintf("file-%d", f.nextID)
		in.Version = 1
		f.files[in.Id] = &in
		writeJSON(w, http.StatusOK, &in)
	case strings.HasPrefix(r.URL.Path, "/files/"):
		id := strings.TrimPrefix(r.URL.Path, "/files/")
		file, ok := f.files[id]
		if !ok {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("alt") == "media" {
				_, _ = w.Write(f.content[id])
				return
			}
			writeJSON(w, http.StatusOK, file)
		case http.MethodPatch:
			var in drive.File
			_ = json.NewDecoder(r.Body).Decode(&in)
			file.AppProperties = in.AppProperties
			if in.Name != "" {
				file.Name = in.Name
			}
			file.Version++
			writeJSON(w, http.StatusOK, file)
		}
	default:
		writeError(w, http.StatusInternalServerError, "unexpected "+r.URL.Path)
	}
}

func (f *fakeDrive) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	ids := make([]string, 0, len(f.files))
	for id := range f.files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matched []*drive.File
	for _, id := range ids {
		file := f.files[id]
		if strings.Contains(q, "'root' in parents") {
			if file.MimeType == models.FolderMimeType && strings.Contains(q, "'"+file.Name+"'") {
				matched = append(matched, file)
			}
			continue
		}
		for _, p := range file.Parents {
			if strings.Contains(q, "'"+p+"' in parents") {
				matched = append(matched, file)
			}
		}
	}

	start := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		_, _ = fmt.Sscanf(tok, "%d", &start)
	}
	end := start + f.pageSize
	resp := &drive.FileList{}
	if end < len(matched) {
		resp.NextPageToken = fmt.Sprintf("%d", end)
	} else {
		end = len(matched)
	}
	resp.Files = matched[start:end]
	writeJSON(w, http.StatusOK, resp)
}

func (f *fakeDrive) upload(w http.ResponseWriter, r *http.Request, id string) {
	file, ok := f.files[id]
	if !ok {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mr := multipart.NewReader(r.Body, params["boundary"])
	var media []byte
	for i := 0; ; i++ {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		data, _ := io.ReadAll(part)
		if i == 1 {
			media = data
		}
	}
	f.content[id] = media
	file.Version++
	file.Size = int64(len(media))
	writeJSON(w, http.StatusOK, file)
}

func newTestClient(t *testing.T) (*DriveClient, *fakeDrive) {
	t.Helper()
	fake := newFakeDrive()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewDriveClient(srv.URL+"/", srv.Client()), fake
}

var validAuth = AuthContext{Token: testToken}

func TestAuthContext_Valid(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.False(t, AuthContext{}.Valid(now))
	assert.True(t, AuthContext{Token: "t"}.Valid(now))
	assert.True(t, AuthContext{Token: "t", Expiry: now.Add(time.Minute)}.Valid(now))
	assert.False(t, AuthContext{Token: "t", Expiry: now}.Valid(now))
}

func TestDrive_MissingOrExpiredTokenFailsWithoutRequest(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	_, err := c.ListFolder(ctx, AuthContext{}, "folder")
	assert.ErrorIs(t, err, ErrUnauthorized)

	expired := AuthContext{Token: testToken, Expiry: time.Now().Add(-time.Minute)}
	_, err = c.GetContent(ctx, expired, "x")
	assert.ErrorIs(t, err, ErrUnauthorized)

	assert.Empty(t, fake.requests)
}

func TestDrive_RejectedTokenIsUnauthorized(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.ListFolder(context.Background(), AuthContext{Token: "stale"}, "folder")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDrive_FindOrCreateFolder(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	id, err := c.FindOrCreateFolder(ctx, validAuth, "Snapshot")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, models.FolderMimeType, fake.files[id].MimeType)
	assert.Equal(t, []string{"root"}, fake.files[id].Parents)

	again, err := c.FindOrCreateFolder(ctx, validAuth, "Snapshot")
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Len(t, fake.files, 1)
}

func TestDrive_ListFolderPaginates(t *testing.T) {
	c, fake := newTestClient(t)
	for i := 1; i <= 5; i++ {
		fake.add(&drive.File{
			Id:            fmt.Sprintf("file-%d", i),
			Name:          fmt.Sprintf("%d_photo", i),
			Parents:       []string{"folder"},
			Version:       int64(10 + i),
			Trashed:       i == 3,
			AppProperties: map[string]string{"grey": "0.25"},
		})
	}
	fake.add(&drive.File{Id: "file-9", Parents: []string{"elsewhere"}})

	files, err := c.ListFolder(context.Background(), validAuth, "folder")
	require.NoError(t, err)
	require.Len(t, files, 5)
	assert.Equal(t, "file-1", files[0].ID)
	assert.Equal(t, int64(11), files[0].Version)
	assert.True(t, files[2].Trashed)
	assert.Equal(t, "0.25", files[4].Attributes["grey"])
}

func TestDrive_CreateUpdateAndDownload(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	created, err := c.CreateFile(ctx, validAuth, models.RemoteFile{
		Name:       "1_1700000000000",
		MimeType:   "image/jpeg",
		Parents:    []string{"folder"},
		Attributes: map[string]string{"saturation": "1"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, []string{"folder"}, fake.files[created.ID].Parents)

	updated, err := c.UpdateContent(ctx, validAuth, created.ID, []byte("\xff\xd8\xffjpeg"))
	require.NoError(t, err)
	assert.Equal(t, created.Version+1, updated.Version)

	meta, err := c.UpdateMetadata(ctx, validAuth, models.RemoteFile{
		ID:         created.ID,
		Attributes: map[string]string{"saturation": "0.5"},
	})
	require.NoError(t, err)
	assert.Equal(t, updated.Version+1, meta.Version)
	assert.Equal(t, "0.5", meta.Attributes["saturation"])

	data, err := c.GetContent(ctx, validAuth, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("\xff\xd8\xffjpeg"), data)

	got, err := c.GetFile(ctx, validAuth, created.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.Version, got.Version)
	assert.Equal(t, "0.5", got.Attributes["saturation"])

	_, err = c.GetFile(ctx, validAuth, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDrive_NotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.GetContent(context.Background(), validAuth, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDrive_ServerDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/"
	srv.Close()

	c := NewDriveClient(url, nil)
	_, err := c.ListFolder(context.Background(), validAuth, "folder")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDrive_CanceledContext(t *testing.T) {
	c, _ := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListFolder(ctx, validAuth, "folder")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEscapeQuery(t *testing.T) {
	assert.Equal(t, `O\'Brien`, escapeQuery(`O'Brien`))
	assert.Equal(t, `a\\b`, escapeQuery(`a\b`))
}
