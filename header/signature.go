// Package header implements the KDBX outer and inner header codecs:
// the magic signature, the versioned TLV field sequence, and (for v4)
// the inner header that follows decryption/decompression, per
// spec.md §4.4.
package header

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// Signature is the 12-byte file signature: two 4-byte magic values
// plus a 16-bit minor and 16-bit major version.
type Signature struct {
	Major uint16
	Minor uint16
}

// FormatKind distinguishes KDBX from legacy KDB at the signature
// level, before any version-specific parsing begins.
type FormatKind int

const (
	FormatKDBX FormatKind = iota
	FormatKDB
)

// ReadSignature reads and validates the 12-byte magic+version prefix.
// Major versions other than 3 and 4 (for KDBX) fail with
// UnsupportedVersion; an unrecognized second magic fails with
// UnknownFileFormat.
func ReadSignature(r io.Reader) (FormatKind, Signature, error) {
	var m1, m2 [4]byte
	if _, err := io.ReadFull(r, m1[:]); err != nil {
		return 0, Signature{}, kderr.Wrap(kderr.UnknownFileFormat, err)
	}
	if m1 != dbutils.Magic1 {
		return 0, Signature{}, kderr.New(kderr.UnknownFileFormat, "bad base signature")
	}
	if _, err := io.ReadFull(r, m2[:]); err != nil {
		return 0, Signature{}, kderr.Wrap(kderr.UnknownFileFormat, err)
	}

	var sig Signature
	switch m2 {
	case dbutils.Magic2KDB:
		return FormatKDB, sig, nil
	case dbutils.Magic2KDBX, dbutils.Magic2KDBXPre:
		// fall through to version parsing
	default:
		return 0, Signature{}, kderr.New(kderr.UnknownFileFormat, "unrecognized secondary signature")
	}

	if err := binary.Read(r, binary.LittleEndian, &sig.Minor); err != nil {
		return 0, Signature{}, kderr.Wrap(kderr.UnknownFileFormat, err)
	}
	if err := binary.Read(r, binary.LittleEndian, &sig.Major); err != nil {
		return 0, Signature{}, kderr.Wrap(kderr.UnknownFileFormat, err)
	}
	if sig.Major != 3 && sig.Major != 4 {
		return 0, Signature{}, kderr.New(kderr.UnsupportedVersion, fmt.Sprintf("unsupported major version %d", sig.Major))
	}
	return FormatKDBX, sig, nil
}

// WriteSignature writes the magic+version prefix for the given major
// version, picking the library's known current minor version.
func WriteSignature(w io.Writer, major uint16) error {
	minor := uint16(1)
	if major == 4 {
		minor = 0
	}
	if _, err := w.Write(dbutils.Magic1[:]); err != nil {
		return err
	}
	if _, err := w.Write(dbutils.Magic2KDBX[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, minor); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, major)
}
