// Package cli provides the interactive SnapKeeper command-line client.
//
// The REPL reads one command per line and dispatches it to the photo, auth
// and status services. Sync runs in the background (see syncer.Runner);
// the "sync" command forces an extra pass that ignores the debounce window.
//
// Commands:
//   - login / logout: store or forget the remote access token
//   - import, list, show, edit, export, delete: manage local photos
//   - sync, status: run a pass now, show library and queue counters
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
