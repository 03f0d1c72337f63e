// Package kdb recognizes the pre-KDBX legacy KeePass 1.x container
// format just far enough to refuse it cleanly. Per spec.md §9
// ("implementers may stage it after KDBX is complete"), full KDB
// parsing (fixed un-versioned header, single AES-256-CBC block, no
// inner-stream cipher, flat entry list with fixed field IDs) is out of
// scope; this package exists so callers get kderr.LegacyUnsupported
// instead of header.ReadSignature silently misreading a KDB file as a
// malformed KDBX one.
package kdb

import (
	"io"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// IsLegacy reports whether m1 is the KDB base signature (0x9A 0xA2
// 0xD9 0x03) and m2 the KDB secondary signature (0x65 0xFB 0x4B 0xB5).
// It reads nothing itself; the caller supplies the eight bytes.
func IsLegacy(m1, m2 [4]byte) bool {
	return m1 == dbutils.Magic1 && m2 == dbutils.Magic2KDB
}

// Open reads the 8-byte signature from r and returns
// kderr.LegacyUnsupported if it identifies a KDB file, or
// kderr.UnknownFileFormat if it identifies neither KDB nor KDBX. It
// never returns nil: package kdb has nothing further to offer a
// caller once the format is confirmed.
func Open(r io.Reader) error {
	var m1, m2 [4]byte
	if _, err := io.ReadFull(r, m1[:]); err != nil {
		return kderr.Wrap(kderr.UnknownFileFormat, err)
	}
	if _, err := io.ReadFull(r, m2[:]); err != nil {
		return kderr.Wrap(kderr.UnknownFileFormat, err)
	}
	if IsLegacy(m1, m2) {
		return kderr.New(kderr.LegacyUnsupported, "KeePass 1.x (KDB) format is not supported by this library")
	}
	if m1 == dbutils.Magic1 && (m2 == dbutils.Magic2KDBX || m2 == dbutils.Magic2KDBXPre) {
		return kderr.New(kderr.UnknownFileFormat, "stream is KDBX, not KDB; use package kdbxio")
	}
	return kderr.New(kderr.UnknownFileFormat, "unrecognized file signature")
}
