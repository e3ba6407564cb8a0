package content

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/snapkeeper/internal/dbx"
)

// Store is a keyed blob store.
type Store interface {
	// Put writes data under ref, replacing any previous blob.
	Put(ctx context.Context, ref string, data []byte) error
	// Get returns the blob or common.ErrorNotFound.
	Get(ctx context.Context, ref string) ([]byte, error)
	// Delete removes blobs; missing refs are ignored.
	Delete(ctx context.Context, refs ...string) error
}

// TxBinder is implemented by stores living in the library database.
type TxBinder interface {
	WithTx(tx dbx.DBTX) Store
}

// NewRef allocates a fresh content ref.
func NewRef() string {
	return uuid.NewString()
}
