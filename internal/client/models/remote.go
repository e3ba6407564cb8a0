package models

// FolderMimeType marks a remote file as a folder.
const FolderMimeType = "application/vnd.google-apps.folder"

// RemoteFile is the subset of remote file metadata the sync engine uses.
type RemoteFile struct {
	ID         string
	Name       string
	MimeType   string
	Version    int64
	Trashed    bool
	Size       int64
	Attributes map[string]string
	Parents    []string
}
