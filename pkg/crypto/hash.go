// Package crypto provides the cryptographic primitives of the Catalyst
// wallet: BLAKE2b hashing, Ristretto255 keys and Schnorr signatures.
package crypto

import "golang.org/x/crypto/blake2b"

// Hash512 computes a BLAKE2b-512 hash of the input data.
func Hash512(data []byte) [64]byte {
	return blake2b.Sum512(data)
}

// Hash256 computes a BLAKE2b-256 hash of the input data.
func Hash256(data []byte) [32]byte {
	return blake2b.Sum256(data)
}

// HashTagged512 computes BLAKE2b-512 over a domain separation tag followed
// by the parts, in order. The tag binds the digest to one context.
func HashTagged512(tag string, parts ...[]byte) [64]byte {
	h, _ := blake2b.New512(nil)
	h.Write([]byte(tag))
	for _, p := range parts {
		h.Write(p)
	}
	var out [64]byte
	copy(out[:], h.Sum(nil))
	return out
}
