package kdfparams

import (
	"github.com/ledgerwatch/kdbxcore/common"
	"github.com/ledgerwatch/kdbxcore/common/dbutils"
)

// KDFParams is the typed view over a Dict for the KDF parameter keys
// listed in spec.md §6 ($UUID, R, S, P, M, I, V, K, A).
type KDFParams struct {
	UUID        common.UUID
	Rounds      uint64 // AES-KDF
	Salt        []byte // Argon2
	Parallelism uint32 // Argon2
	Memory      uint64 // Argon2, bytes
	Iterations  uint64 // Argon2
	Version     uint32 // Argon2
	SecretKey   []byte // optional
	AssocData   []byte // optional
}

// ToDict serializes p into a variant Dict ready for the outer header.
func (p KDFParams) ToDict() *Dict {
	d := NewDict()
	d.SetBytes(dbutils.KdfKeyUUID, p.UUID[:])
	switch p.UUID {
	case dbutils.KDFAES:
		d.SetUInt64(dbutils.KdfKeyRounds, p.Rounds)
		d.SetBytes(dbutils.KdfKeySalt, p.Salt)
	case dbutils.KDFArgon2d, dbutils.KDFArgon2id:
		d.SetBytes(dbutils.KdfKeySalt, p.Salt)
		d.SetUInt32(dbutils.KdfKeyParallelism, p.Parallelism)
		d.SetUInt64(dbutils.KdfKeyMemory, p.Memory)
		d.SetUInt64(dbutils.KdfKeyIterations, p.Iterations)
		d.SetUInt32(dbutils.KdfKeyVersion, p.Version)
		if len(p.SecretKey) > 0 {
			d.SetBytes(dbutils.KdfKeySecretKey, p.SecretKey)
		}
		if len(p.AssocData) > 0 {
			d.SetBytes(dbutils.KdfKeyAssocData, p.AssocData)
		}
	}
	return d
}

// FromDict reconstructs KDFParams from a decoded variant Dict.
func FromDict(d *Dict) (KDFParams, bool) {
	raw, ok := d.GetBytes(dbutils.KdfKeyUUID)
	if !ok || len(raw) != common.UUIDSize {
		return KDFParams{}, false
	}
	var p KDFParams
	copy(p.UUID[:], raw)
	if r, ok := d.GetUInt64(dbutils.KdfKeyRounds); ok {
		p.Rounds = r
	}
	if s, ok := d.GetBytes(dbutils.KdfKeySalt); ok {
		p.Salt = s
	}
	if par, ok := d.GetUInt32(dbutils.KdfKeyParallelism); ok {
		p.Parallelism = par
	}
	if m, ok := d.GetUInt64(dbutils.KdfKeyMemory); ok {
		p.Memory = m
	}
	if it, ok := d.GetUInt64(dbutils.KdfKeyIterations); ok {
		p.Iterations = it
	}
	if v, ok := d.GetUInt32(dbutils.KdfKeyVersion); ok {
		p.Version = v
	}
	if k, ok := d.GetBytes(dbutils.KdfKeySecretKey); ok {
		p.SecretKey = k
	}
	if a, ok := d.GetBytes(dbutils.KdfKeyAssocData); ok {
		p.AssocData = a
	}
	return p, true
}

// DefaultAESKDF returns AES-KDF parameters with the given round count
// and a fresh random seed slot left for the caller to fill.
func DefaultAESKDF(rounds uint64, seed []byte) KDFParams {
	return KDFParams{UUID: dbutils.KDFAES, Rounds: rounds, Salt: seed}
}

// DefaultArgon2id returns reasonable default Argon2id parameters.
func DefaultArgon2id(salt []byte) KDFParams {
	return KDFParams{
		UUID:        dbutils.KDFArgon2id,
		Salt:        salt,
		Parallelism: 2,
		Memory:      64 * 1024 * 1024,
		Iterations:  2,
		Version:     0x13,
	}
}

// DefaultArgon2d returns reasonable default Argon2d parameters.
func DefaultArgon2d(salt []byte) KDFParams {
	p := DefaultArgon2id(salt)
	p.UUID = dbutils.KDFArgon2d
	return p
}
