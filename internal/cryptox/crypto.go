// Package cryptox computes content checksums for stored media.
package cryptox

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/dmitrijs2005/snapkeeper/internal/common"
)

// Checksum returns the hex encoded BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Verify reports common.ErrChecksumMismatch when data does not hash to sum.
// An empty sum is accepted for rows written before checksums existed.
func Verify(data []byte, sum string) error {
	if sum == "" {
		return nil
	}
	if got := Checksum(data); got != sum {
		return fmt.Errorf("%w: want %s, got %s", common.ErrChecksumMismatch, sum, got)
	}
	return nil
}
