// Package kdbxio orchestrates the full load/save pipeline described in
// spec.md §4.9: signature, header, composite key, KDF, block framing,
// compression and the XML body, wired together over the header,
// blockstream, compositekey, kdfparams, innerstream, kdbxxml and model
// packages. The save path is structured as an ordered list of named
// stages the way migrations.Migration{Name, Up} sequenced schema
// migrations in the teacher, and commits via the teacher's
// write-tmp-then-rename idiom.
package kdbxio

import (
	"github.com/ledgerwatch/kdbxcore/common"
	"github.com/ledgerwatch/kdbxcore/compositekey"
	"github.com/ledgerwatch/kdbxcore/kdfparams"
)

// CompositeKeyInputs carries the raw credential material a caller
// supplies to Load/Save; at least one field must be non-empty
// (spec.md §4.3).
type CompositeKeyInputs struct {
	Password    string
	KeyFile     []byte // raw bytes of a key-file, see compositekey.LoadKeyFile
	WindowsBlob []byte
}

// components reduces the raw inputs to their hashed composite-key
// components. The caller owns the returned Components and must Zero
// it when done.
func (in CompositeKeyInputs) components() (compositekey.Components, error) {
	var c compositekey.Components
	if in.Password != "" {
		c.Password = compositekey.HashPassword(in.Password)
	}
	if len(in.KeyFile) > 0 {
		kf, err := compositekey.LoadKeyFile(in.KeyFile)
		if err != nil {
			return c, err
		}
		c.KeyFile = kf
	}
	if len(in.WindowsBlob) > 0 {
		c.WindowsBlob = append([]byte(nil), in.WindowsBlob...)
	}
	return c, nil
}

// SaveOptions configures a Save call: target file format version and
// the cryptographic parameters to write into a freshly-built header. A
// zero-value SaveOptions picks the library's current defaults (KDBX4,
// AES-256, the Tree's own KDF params, 1 MiB blocks).
type SaveOptions struct {
	Inputs CompositeKeyInputs

	// Major selects the container version: 3 or 4. Zero defaults to 4.
	Major uint16

	// Cipher overrides the payload cipher; the zero UUID defaults to
	// AES-256 (dbutils.CipherAES256).
	Cipher common.UUID

	// KDF overrides tree.Meta.KDFParams when its UUID is non-zero.
	// Left zero-value, the Tree's own MetaData.KDFParams is reused as
	// the parameter shape but reseeded: reusing salt/seed material
	// across saves would defeat the KDF's purpose.
	KDF kdfparams.KDFParams

	// BlockSize bounds each block-stream frame; <=0 picks the package
	// default (1 MiB), matching blockstream.WriteV3Blocks/WriteV4Blocks.
	BlockSize int
}
