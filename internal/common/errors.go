// Package common holds sentinel errors shared by the snapkeeper layers.
// Callers match them with errors.Is.
package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// ErrStorageUnavailable means the local database could not be opened or
	// migrated. It is fatal for the process that hit it.
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// ErrChecksumMismatch is returned when stored content no longer matches
	// the checksum recorded at write time.
	ErrChecksumMismatch = errors.New("content checksum mismatch")

	// ErrRender wraps failures of the filter renderer.
	ErrRender = errors.New("render failed")

	ErrInvalidToken = errors.New("invalid token")
)
