// Package client talks to the remote photo folder and bootstraps the local
// library database.
//
// # Remote
//
// Remote is the contract the sync engine uses: find or create the sync
// folder, list it, and read, create and update files. DriveClient
// implements it over the Google Drive v3 API. Every call takes an explicit
// AuthContext; a missing or expired token fails with ErrUnauthorized before
// any request is made.
//
// # Error Handling
//
// HTTP 401 maps to ErrUnauthorized, 404 to common.ErrorNotFound and any other
// transport or server failure to ErrUnavailable. Match with errors.Is.
//
// # Local database
//
// InitDatabase opens the SQLite library and applies the embedded goose
// migrations. Failures are reported as common.ErrStorageUnavailable.
package client
