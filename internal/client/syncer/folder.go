package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/snapkeeper/internal/client/client"
	"github.com/dmitrijs2005/snapkeeper/internal/client/repositories/metadata"
)

// Folder resolves the id of the sync folder once and remembers it in
// memory and in metadata.
type Folder struct {
	remote client.Remote
	store  Store
	name   string

	mu sync.Mutex
	id string
}

func NewFolder(remote client.Remote, store Store, name string) *Folder {
	return &Folder{remote: remote, store: store, name: name}
}

func (f *Folder) ID(ctx context.Context, auth client.AuthContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.id != "" {
		return f.id, nil
	}

	id, ok, err := f.store.GetMeta(ctx, metadata.KeyRemoteFolderID)
	if err != nil {
		return "", fmt.Errorf("failed to read folder id: %w", err)
	}
	if ok && id != "" {
		f.id = id
		return id, nil
	}

	id, err = f.remote.FindOrCreateFolder(ctx, auth, f.name)
	if err != nil {
		return "", err
	}
	if err := f.store.SetMeta(ctx, metadata.KeyRemoteFolderID, id); err != nil {
		return "", fmt.Errorf("failed to save folder id: %w", err)
	}
	f.id = id
	return id, nil
}

// Forget drops the remembered id, e.g. after the folder was not found.
func (f *Folder) Forget(ctx context.Context) error {
	f.mu.Lock()
	f.id = ""
	f.mu.Unlock()
	return f.store.SetMeta(ctx, metadata.KeyRemoteFolderID, "")
}
