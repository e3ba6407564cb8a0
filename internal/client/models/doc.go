// Package models defines the photo library types shared by the store, the
// media cache and the sync engine: Record, Transform, Intent, RemoteFile
// and ChangeEvent.
package models
