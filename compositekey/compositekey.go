// Package compositekey assembles the composite master key from its
// ordered components — password, key-file, optional windows-user-
// account blob — per spec.md §4.3.
package compositekey

import (
	"github.com/ledgerwatch/kdbxcore/cryptoutil"
)

// Components holds the pre-hashed 32-byte digests of every supplied
// key component, in canonical order: password, key-file, windows
// blob. A nil entry means that component was not supplied.
type Components struct {
	Password     []byte // SHA-256 of UTF-8 password bytes
	KeyFile      []byte // 32 bytes, see package compositekey/keyfile.go
	WindowsBlob  []byte // opaque 32 bytes from the platform, ignored if absent
}

// Build combines the supplied components into the 32-byte composite
// key: SHA-256(concat(components)), per spec.md §4.3. At least one
// component must be non-empty.
func Build(c Components) []byte {
	var parts [][]byte
	if len(c.Password) > 0 {
		parts = append(parts, c.Password)
	}
	if len(c.KeyFile) > 0 {
		parts = append(parts, c.KeyFile)
	}
	if len(c.WindowsBlob) > 0 {
		parts = append(parts, c.WindowsBlob)
	}
	return cryptoutil.SHA256(parts...)
}

// HashPassword reduces a UTF-8 password string to its 32-byte digest.
func HashPassword(password string) []byte {
	return cryptoutil.SHA256([]byte(password))
}

// Zero releases every component buffer by overwriting it with zeros,
// per spec.md §5's scoped-buffer zeroization requirement.
func (c *Components) Zero() {
	cryptoutil.Zero(c.Password)
	cryptoutil.Zero(c.KeyFile)
	cryptoutil.Zero(c.WindowsBlob)
}
