package header

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// InnerBinary is one entry of the v4 inner header's binary pool
// (spec.md §4.4): a 1-byte flags field (bit 0 = protected) plus the
// raw attachment bytes.
type InnerBinary struct {
	Protected bool
	Data      []byte
}

// Inner is the parsed v4 inner header, present only after decryption
// and decompression, before the XML body.
type Inner struct {
	RandomStreamID  uint32
	RandomStreamKey []byte
	Binaries        []InnerBinary
}

// ReadInner parses the inner header TLV sequence.
func ReadInner(r io.Reader) (*Inner, error) {
	in := &Inner{}
	for {
		var id byte
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, kderr.Wrap(kderr.HeaderCorrupted, err)
		}
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, kderr.Wrap(kderr.HeaderCorrupted, err)
		}
		value := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(r, value); err != nil {
				return nil, kderr.Wrap(kderr.HeaderCorrupted, err)
			}
		}
		switch id {
		case dbutils.InnerHdrEnd:
			return in, nil
		case dbutils.InnerHdrRandomStreamID:
			if len(value) != 4 {
				return nil, kderr.New(kderr.HeaderCorrupted, "bad InnerRandomStreamID length")
			}
			in.RandomStreamID = binary.LittleEndian.Uint32(value)
			switch in.RandomStreamID {
			case dbutils.InnerStreamSalsa20, dbutils.InnerStreamChaCha20:
			default:
				return nil, kderr.New(kderr.UnsupportedRandomStream, "inner header")
			}
		case dbutils.InnerHdrRandomStreamKey:
			in.RandomStreamKey = value
		case dbutils.InnerHdrBinary:
			if len(value) < 1 {
				return nil, kderr.New(kderr.HeaderCorrupted, "empty Binary inner-header entry")
			}
			in.Binaries = append(in.Binaries, InnerBinary{
				Protected: value[0]&0x01 != 0,
				Data:      value[1:],
			})
		default:
			// forward-compatible: ignore unknown inner header fields
		}
	}
}

// WriteInner serializes the inner header.
func WriteInner(w io.Writer, in *Inner) error {
	var buf bytes.Buffer
	writeField := func(id byte, value []byte) error {
		buf.WriteByte(id)
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(value))); err != nil {
			return err
		}
		buf.Write(value)
		return nil
	}
	idBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(idBytes, in.RandomStreamID)
	if err := writeField(dbutils.InnerHdrRandomStreamID, idBytes); err != nil {
		return err
	}
	if err := writeField(dbutils.InnerHdrRandomStreamKey, in.RandomStreamKey); err != nil {
		return err
	}
	for _, b := range in.Binaries {
		flags := byte(0)
		if b.Protected {
			flags = 1
		}
		val := append([]byte{flags}, b.Data...)
		if err := writeField(dbutils.InnerHdrBinary, val); err != nil {
			return err
		}
	}
	if err := writeField(dbutils.InnerHdrEnd, nil); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
