// Package media keeps the derived variants of a record (edited and
// thumbnail) consistent with the original and transform they come from.
//
// Every slot of a Record handle is in one of four states. NotLoaded means
// a stored ref exists but the bytes were not read yet. Loaded means the
// bytes match storage. Changed means the bytes are newer than storage.
// OutOfDate means the variant must be rendered again before use; a slot
// without a stored ref starts in this state.
//
// SetOriginal and SetTransform mark both variants OutOfDate, so a read
// after either call always renders afresh.
package media
