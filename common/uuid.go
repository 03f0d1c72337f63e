// Package common holds small value types shared across every layer of
// the KDBX core, the way turbo-geth's own common package holds Hash and
// Address: fixed-size, comparable, with the hex/base64 helpers every
// higher package needs.
package common

import (
	"encoding/base64"
	"fmt"

	"github.com/pborman/uuid"
)

// UUIDSize is the fixed width of a node identity, per KDBX's 128-bit UUIDs.
const UUIDSize = 16

// UUID is a 128-bit node identity. The zero UUID is reserved and never
// assigned by NewUUID; it is used as a sentinel for "no parent"/"no icon".
type UUID [UUIDSize]byte

// NewUUID returns a fresh random UUID, generated the same way the
// teacher generates node identities: github.com/pborman/uuid's v4
// generator, truncated/reinterpreted as a raw 16-byte array instead of
// the dashed string form.
func NewUUID() UUID {
	var u UUID
	copy(u[:], uuid.NewRandom())
	return u
}

// IsZero reports whether u is the reserved all-zero UUID.
func (u UUID) IsZero() bool {
	return u == UUID{}
}

// Base64 encodes u the way the KDBX XML body stores every UUID: base64
// of the raw 16 bytes, no padding stripped.
func (u UUID) Base64() string {
	return base64.StdEncoding.EncodeToString(u[:])
}

// ParseUUIDBase64 decodes a KDBX-XML-style base64 UUID.
func ParseUUIDBase64(s string) (UUID, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return UUID{}, fmt.Errorf("uuid: bad base64: %w", err)
	}
	if len(b) != UUIDSize {
		return UUID{}, fmt.Errorf("uuid: expected %d bytes, got %d", UUIDSize, len(b))
	}
	var u UUID
	copy(u[:], b)
	return u, nil
}

func (u UUID) String() string {
	return u.Base64()
}
