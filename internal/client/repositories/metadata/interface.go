// Package metadata stores flat key/value settings of the local library:
// the auth token and its expiry, the last reconcile time and the cached
// remote folder id.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyToken          = "token"
	KeyTokenExpiry    = "tokenExpiry"
	KeyLastSyncTime   = "lastSyncTime"
	KeyRemoteFolderID = "remoteFolderId"
)

type Repository interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	// Delete removes the keys; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string]string, error)
}
