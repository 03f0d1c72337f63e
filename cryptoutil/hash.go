// Package cryptoutil wraps every cryptographic primitive the KDBX core
// needs — hashing, HMAC, AES-CBC, ChaCha20, Salsa20, Argon2 and AES-KDF
// — behind small functions, built on golang.org/x/crypto exactly as the
// teacher's go.mod already requires it. Every function here is
// deterministic and side-effect free apart from the explicit Zero
// helper and RandomBytes, which reads the system random source.
package cryptoutil

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
)

// SHA256 returns the SHA-256 digest of data.
func SHA256(data ...[]byte) []byte {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// SHA512 returns the SHA-512 digest of data.
func SHA512(data ...[]byte) []byte {
	h := sha512.New()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// HMACSHA256 computes HMAC-SHA-256 over msg with the given key.
func HMACSHA256(key, msg []byte) []byte {
	m := hmac.New(sha256.New, key)
	m.Write(msg)
	return m.Sum(nil)
}

// Zero overwrites every byte of b with zero. Callers hold secret
// material (composite keys, transformed keys, HMAC keys, decrypted
// plaintext buffers) in scoped buffers and must call Zero on every
// release path, including error paths, per spec.md §5.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
