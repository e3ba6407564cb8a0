package client

import (
	"context"

	"github.com/dmitrijs2005/snapkeeper/internal/client/models"
)

// Remote is a single-folder cloud file store.
type Remote interface {
	// FindOrCreateFolder returns the id of the named folder at the root,
	// creating it when absent.
	FindOrCreateFolder(ctx context.Context, auth AuthContext, name string) (string, error)
	// ListFolder returns every file in the folder, trashed ones included.
	ListFolder(ctx context.Context, auth AuthContext, folderID string) ([]models.RemoteFile, error)
	// GetFile returns current metadata of one file.
	GetFile(ctx context.Context, auth AuthContext, fileID string) (*models.RemoteFile, error)
	GetContent(ctx context.Context, auth AuthContext, fileID string) ([]byte, error)
	// CreateFile creates file metadata only; content follows via UpdateContent.
	CreateFile(ctx context.Context, auth AuthContext, file models.RemoteFile) (*models.RemoteFile, error)
	// UpdateMetadata writes name, mime type and attributes of file.ID.
	UpdateMetadata(ctx context.Context, auth AuthContext, file models.RemoteFile) (*models.RemoteFile, error)
	UpdateContent(ctx context.Context, auth AuthContext, fileID string, data []byte) (*models.RemoteFile, error)
}
