// Package content is the blob store behind record media. Blobs are
// addressed by an opaque ref; every blob carries a BLAKE2b checksum that
// is verified on read.
//
// SQLiteStore keeps blobs in the library database and can join a caller's
// transaction through WithTx. S3Store keeps them in an S3 compatible bucket
// and is released by the store facade after the record row is gone.
package content
