// Package dbutils is the constant-ID table for the KDBX core: cipher
// and KDF UUIDs, outer/inner header field identifiers and variant-dict
// type tags. Modeled on turbo-geth's common/dbutils/bucket.go, which
// plays the same role for LMDB bucket names — a single file of named
// byte constants that every other package imports instead of
// hardcoding magic bytes.
package dbutils

import "github.com/ledgerwatch/kdbxcore/common"

// Cipher UUIDs, big-endian as they appear on the wire (spec.md §6).
var (
	CipherAES256  = mustUUID(0x31, 0xC1, 0xF2, 0xE6, 0xBF, 0x71, 0x43, 0x50, 0xBE, 0x58, 0x05, 0x21, 0x6A, 0xFC, 0x5A, 0xFF)
	CipherChaCha20 = mustUUID(0xD6, 0x03, 0x8A, 0x2B, 0x8B, 0x6F, 0x4C, 0xB5, 0xA5, 0x24, 0x33, 0x9A, 0x31, 0xDB, 0xB5, 0x9A)
)

// KDF UUIDs.
var (
	KDFAES   = mustUUID(0xC9, 0xD9, 0xF3, 0x9A, 0x62, 0x8A, 0x44, 0x60, 0xBF, 0x74, 0x0D, 0x08, 0xC1, 0x8A, 0x4F, 0xEA)
	KDFArgon2d = mustUUID(0xEF, 0x63, 0x6D, 0xDF, 0x8C, 0x29, 0x44, 0x4B, 0x91, 0xF7, 0xA9, 0xA4, 0x03, 0xE3, 0x0A, 0x0C)
	KDFArgon2id = mustUUID(0x9E, 0x29, 0x8B, 0x19, 0x56, 0xDB, 0x47, 0x73, 0xB2, 0x3D, 0xFC, 0x3E, 0xC6, 0xF0, 0xA1, 0xE6)
)

func mustUUID(b ...byte) common.UUID {
	var u common.UUID
	copy(u[:], b)
	return u
}

// Outer header field IDs (TLV, spec.md §4.4).
const (
	HdrEndOfHeader        byte = 0
	HdrComment            byte = 1
	HdrCipherID           byte = 2
	HdrCompressionFlags   byte = 3
	HdrMasterSeed         byte = 4
	HdrTransformSeed      byte = 5 // v3 only
	HdrTransformRounds    byte = 6 // v3 only
	HdrEncryptionIV       byte = 7
	HdrProtectedStreamKey byte = 8  // v3 only
	HdrStreamStartBytes   byte = 9  // v3 only
	HdrInnerRandomStream  byte = 10 // v3 only
	HdrKdfParameters      byte = 11 // v4 only
	HdrPublicCustomData   byte = 12 // v4 only
)

// Inner header field IDs (v4 only, spec.md §4.4).
const (
	InnerHdrEnd             byte = 0
	InnerHdrRandomStreamID  byte = 1
	InnerHdrRandomStreamKey byte = 2
	InnerHdrBinary          byte = 3
)

// InnerRandomStreamID values (v3 field 10 and v4 inner header field 1).
const (
	InnerStreamNone   uint32 = 0
	InnerStreamSalsa20 uint32 = 2
	InnerStreamChaCha20 uint32 = 3
)

// Compression flags (outer header field 3).
const (
	CompressionNone uint32 = 0
	CompressionGZip uint32 = 1
)

// Variant dictionary type tags (spec.md §4.2).
const (
	VDTypeEnd    byte = 0x00
	VDTypeUInt32 byte = 0x04
	VDTypeUInt64 byte = 0x05
	VDTypeBool   byte = 0x08
	VDTypeInt32  byte = 0x0C
	VDTypeInt64  byte = 0x0D
	VDTypeString byte = 0x18
	VDTypeBytes  byte = 0x42
)

// VariantDictVersion is the 2-byte version written/accepted on read;
// the major byte must match, the minor byte is tolerated either way.
const VariantDictVersion uint16 = 0x0100

// KDF parameter variant-dict keys (spec.md §6).
const (
	KdfKeyUUID        = "$UUID"
	KdfKeyRounds      = "R"
	KdfKeySalt        = "S"
	KdfKeyParallelism = "P"
	KdfKeyMemory      = "M"
	KdfKeyIterations  = "I"
	KdfKeyVersion     = "V"
	KdfKeySecretKey   = "K"
	KdfKeyAssocData   = "A"
)

// Magic signature bytes, in file byte order (spec.md §4.4 / §6).
var (
	Magic1        = [4]byte{0x9A, 0xA2, 0xD9, 0x03}
	Magic2KDBX    = [4]byte{0xB5, 0x4B, 0xFB, 0x65}
	Magic2KDBXPre = [4]byte{0xB5, 0x4B, 0xFB, 0x66}
	Magic2KDB     = [4]byte{0x65, 0xFB, 0x4B, 0xB5}
)

// Canonical string-field keys recognized on Entry (spec.md §3).
const (
	FieldTitle    = "Title"
	FieldUserName = "UserName"
	FieldPassword = "Password"
	FieldURL      = "URL"
	FieldNotes    = "Notes"
)
