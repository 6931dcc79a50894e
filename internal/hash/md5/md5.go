// Package md5 provides the deterministic digest used for cache keys and file names.
package md5

import (
	"crypto/md5" //nolint:gosec // non-cryptographic key derivation
	"encoding/hex"
)

// Hasher hashes bytes to a hex MD5 digest.
type Hasher struct{}

// New returns an MD5 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // non-cryptographic key derivation
	return hex.EncodeToString(sum[:])
}

// Key derives the cache key for an analysis of url under kind.
func (h *Hasher) Key(url, kind string) string {
	return h.Hash([]byte(url + ":" + kind))
}
