// Package crypto provides key and hash primitives for shardwallet.
package crypto

import (
	sha256 "github.com/minio/sha256-simd"
)

// HashSize is the length of a SHA-256 digest in bytes.
const HashSize = sha256.Size

// ChecksumSize is the length of an address checksum in bytes.
const ChecksumSize = 4

// Hash computes a SHA-256 hash of the input data.
func Hash(data []byte) [HashSize]byte {
	return sha256.Sum256(data)
}

// DoubleHash computes Hash(Hash(data)).
func DoubleHash(data []byte) [HashSize]byte {
	first := Hash(data)
	return Hash(first[:])
}

// Checksum returns the first four bytes of DoubleHash(data).
// Used by base58check addresses.
func Checksum(data []byte) [ChecksumSize]byte {
	h := DoubleHash(data)
	var sum [ChecksumSize]byte
	copy(sum[:], h[:ChecksumSize])
	return sum
}
