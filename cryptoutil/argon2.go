package cryptoutil

import (
	"context"

	"golang.org/x/crypto/argon2"

	"github.com/ledgerwatch/kdbxcore/kderr"
)

// argon2Version13 is the only Argon2 version x/crypto/argon2.IDKey
// implements (RFC 9106's "version 0x13"); it does not accept a
// caller-supplied version byte at all.
const argon2Version13 = 0x13

// Argon2Params mirrors the KDF parameter variant dict fields relevant
// to Argon2d/Argon2id (spec.md §6): memory in KiB, iterations, degree
// of parallelism, salt, version and optional secret/associated data.
type Argon2Params struct {
	Salt        []byte
	Parallelism uint8
	Memory      uint32 // KiB
	Iterations  uint32
	Version     uint8 // 0x13 or 0x10
	Secret      []byte
	AssocData   []byte
}

// Argon2d derives a 32-byte key from password using Argon2d.
// x/crypto/argon2 only exports Argon2i's Key and Argon2id's IDKey, so
// Argon2d (argon2core.go) implements RFC 9106's compression function
// and data-dependent indexing directly on top of the same
// golang.org/x/crypto/blake2b primitive that package is built on.
func Argon2d(ctx context.Context, password []byte, p Argon2Params) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return argon2d(ctx, password, p)
}

// Argon2id derives a 32-byte key from password using Argon2id, the
// memory-hard KDF x/crypto exposes directly as argon2.IDKey.
//
// argon2.IDKey only implements RFC 9106 version 0x13 and has no
// parameter for a secret key or associated data; a KDF parameter
// dictionary carrying a different version, a "K" secret, or an "A"
// associated-data value would silently derive the wrong transformed
// key if passed through unchecked. Rather than drop those fields on
// the floor, reject them explicitly so a mismatched load surfaces as
// UnsupportedKDF instead of a confusing AuthFailure.
func Argon2id(ctx context.Context, password []byte, p Argon2Params) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Version != 0 && p.Version != argon2Version13 {
		return nil, kderr.New(kderr.UnsupportedKDF, "Argon2id version other than 0x13 is not supported")
	}
	if len(p.Secret) != 0 {
		return nil, kderr.New(kderr.UnsupportedKDF, "Argon2id with a KDF secret key is not supported")
	}
	if len(p.AssocData) != 0 {
		return nil, kderr.New(kderr.UnsupportedKDF, "Argon2id with KDF associated data is not supported")
	}
	return argon2.IDKey(password, p.Salt, p.Iterations, p.Memory, p.Parallelism, 32), nil
}
