package header

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ledgerwatch/kdbxcore/common"
	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kdfparams"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// Outer is the parsed outer header (spec.md §4.4). Fields not
// applicable to the file's major version are left zero.
type Outer struct {
	Major uint16

	CipherID          common.UUID
	CompressionFlags  uint32
	MasterSeed        []byte
	TransformSeed     []byte // v3
	TransformRounds   uint64 // v3
	EncryptionIV      []byte
	ProtectedStreamKey []byte // v3
	StreamStartBytes  []byte // v3
	InnerRandomStream uint32 // v3
	KdfParameters     kdfparams.KDFParams // v4
	PublicCustomData  *kdfparams.Dict     // v4

	// RawBytes is the exact serialized header (up to and including the
	// 0x00 terminator), needed by the block-stream layer to compute
	// the header hash/HMAC (spec.md §4.5).
	RawBytes []byte
}

// ReadOuter parses the TLV outer header that follows the signature.
// lengthSize is 2 for v3, 4 for v4 (spec.md §4.4).
func ReadOuter(r io.Reader, major uint16) (*Outer, error) {
	lengthSize := 2
	if major >= 4 {
		lengthSize = 4
	}
	var raw bytes.Buffer
	tr := io.TeeReader(r, &raw)

	o := &Outer{Major: major}
	for {
		var id byte
		if err := binary.Read(tr, binary.LittleEndian, &id); err != nil {
			return nil, kderr.Wrap(kderr.HeaderCorrupted, err)
		}
		var length uint32
		if lengthSize == 2 {
			var l16 uint16
			if err := binary.Read(tr, binary.LittleEndian, &l16); err != nil {
				return nil, kderr.Wrap(kderr.HeaderCorrupted, err)
			}
			length = uint32(l16)
		} else {
			if err := binary.Read(tr, binary.LittleEndian, &length); err != nil {
				return nil, kderr.Wrap(kderr.HeaderCorrupted, err)
			}
		}
		value := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(tr, value); err != nil {
				return nil, kderr.Wrap(kderr.HeaderCorrupted, err)
			}
		}
		if id == dbutils.HdrEndOfHeader {
			break
		}
		if err := o.applyField(id, value); err != nil {
			return nil, err
		}
	}
	o.RawBytes = raw.Bytes()
	return o, nil
}

func (o *Outer) applyField(id byte, value []byte) error {
	switch id {
	case dbutils.HdrCipherID:
		if len(value) != common.UUIDSize {
			return kderr.New(kderr.HeaderCorrupted, "bad CipherID length")
		}
		copy(o.CipherID[:], value)
	case dbutils.HdrCompressionFlags:
		if len(value) != 4 {
			return kderr.New(kderr.HeaderCorrupted, "bad CompressionFlags length")
		}
		o.CompressionFlags = binary.LittleEndian.Uint32(value)
		if o.CompressionFlags != dbutils.CompressionNone && o.CompressionFlags != dbutils.CompressionGZip {
			return kderr.New(kderr.UnsupportedCompression, fmt.Sprintf("flags=%d", o.CompressionFlags))
		}
	case dbutils.HdrMasterSeed:
		o.MasterSeed = value
	case dbutils.HdrTransformSeed:
		o.TransformSeed = value
	case dbutils.HdrTransformRounds:
		if len(value) != 8 {
			return kderr.New(kderr.HeaderCorrupted, "bad TransformRounds length")
		}
		o.TransformRounds = binary.LittleEndian.Uint64(value)
	case dbutils.HdrEncryptionIV:
		o.EncryptionIV = value
	case dbutils.HdrProtectedStreamKey:
		o.ProtectedStreamKey = value
	case dbutils.HdrStreamStartBytes:
		o.StreamStartBytes = value
	case dbutils.HdrInnerRandomStream:
		if len(value) != 4 {
			return kderr.New(kderr.HeaderCorrupted, "bad InnerRandomStreamID length")
		}
		o.InnerRandomStream = binary.LittleEndian.Uint32(value)
		switch o.InnerRandomStream {
		case dbutils.InnerStreamSalsa20, dbutils.InnerStreamChaCha20:
		default:
			return kderr.New(kderr.UnsupportedRandomStream, fmt.Sprintf("id=%d", o.InnerRandomStream))
		}
	case dbutils.HdrKdfParameters:
		d, err := kdfparams.Decode(bytes.NewReader(value))
		if err != nil {
			return err
		}
		p, ok := kdfparams.FromDict(d)
		if !ok {
			return kderr.New(kderr.HeaderCorrupted, "KdfParameters missing $UUID")
		}
		o.KdfParameters = p
	case dbutils.HdrPublicCustomData:
		d, err := kdfparams.Decode(bytes.NewReader(value))
		if err != nil {
			return err
		}
		o.PublicCustomData = d
	default:
		// Unknown/comment fields are accepted and silently ignored
		// (e.g. field 1, Comment); forward compatibility per spec.
	}
	return nil
}

// WriteOuter serializes o per spec.md §4.4, returning the exact bytes
// written (needed verbatim by the caller for the header hash/HMAC).
func WriteOuter(w io.Writer, o *Outer) ([]byte, error) {
	lengthSize := 2
	if o.Major >= 4 {
		lengthSize = 4
	}
	var buf bytes.Buffer
	writeField := func(id byte, value []byte) error {
		buf.WriteByte(id)
		if lengthSize == 2 {
			if len(value) > 0xFFFF {
				return fmt.Errorf("header: field %d too long for v3 16-bit length", id)
			}
			if err := binary.Write(&buf, binary.LittleEndian, uint16(len(value))); err != nil {
				return err
			}
		} else {
			if err := binary.Write(&buf, binary.LittleEndian, uint32(len(value))); err != nil {
				return err
			}
		}
		buf.Write(value)
		return nil
	}

	if err := writeField(dbutils.HdrCipherID, o.CipherID[:]); err != nil {
		return nil, err
	}
	if err := writeField(dbutils.HdrCompressionFlags, le32(o.CompressionFlags)); err != nil {
		return nil, err
	}
	if err := writeField(dbutils.HdrMasterSeed, o.MasterSeed); err != nil {
		return nil, err
	}
	if err := writeField(dbutils.HdrEncryptionIV, o.EncryptionIV); err != nil {
		return nil, err
	}

	if o.Major == 3 {
		if err := writeField(dbutils.HdrTransformSeed, o.TransformSeed); err != nil {
			return nil, err
		}
		if err := writeField(dbutils.HdrTransformRounds, le64(o.TransformRounds)); err != nil {
			return nil, err
		}
		if err := writeField(dbutils.HdrProtectedStreamKey, o.ProtectedStreamKey); err != nil {
			return nil, err
		}
		if err := writeField(dbutils.HdrStreamStartBytes, o.StreamStartBytes); err != nil {
			return nil, err
		}
		if err := writeField(dbutils.HdrInnerRandomStream, le32(o.InnerRandomStream)); err != nil {
			return nil, err
		}
	} else {
		var kdfBuf bytes.Buffer
		if err := o.KdfParameters.ToDict().Encode(&kdfBuf); err != nil {
			return nil, err
		}
		if err := writeField(dbutils.HdrKdfParameters, kdfBuf.Bytes()); err != nil {
			return nil, err
		}
		if o.PublicCustomData != nil {
			var pcd bytes.Buffer
			if err := o.PublicCustomData.Encode(&pcd); err != nil {
				return nil, err
			}
			if err := writeField(dbutils.HdrPublicCustomData, pcd.Bytes()); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte(dbutils.HdrEndOfHeader)
	if lengthSize == 2 {
		if err := binary.Write(&buf, binary.LittleEndian, uint16(0)); err != nil {
			return nil, err
		}
	} else {
		if err := binary.Write(&buf, binary.LittleEndian, uint32(0)); err != nil {
			return nil, err
		}
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	o.RawBytes = buf.Bytes()
	return o.RawBytes, nil
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
