package blockstream

import (
	"bytes"
	"crypto/hmac"
	"encoding/binary"
	"io"

	"github.com/ledgerwatch/kdbxcore/cryptoutil"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// VerifyStreamStartBytes compares the decrypted stream-start marker
// against the header's StreamStartBytes field (spec.md §4.5).
func VerifyStreamStartBytes(decrypted, want []byte) ([]byte, error) {
	if len(decrypted) < len(want) {
		return nil, kderr.New(kderr.IntegrityFailure, "plaintext shorter than StreamStartBytes")
	}
	got := decrypted[:len(want)]
	if !hmac.Equal(got, want) {
		return nil, kderr.New(kderr.IntegrityFailure, "StreamStartBytes mismatch")
	}
	return decrypted[len(want):], nil
}

// ReadV3Blocks reads the SHA-256-checksummed block sequence (the
// remainder of the v3 plaintext after StreamStartBytes) and returns
// the concatenated payload. Each block is
// <u32 blockIndex><32-byte SHA-256><u32 blockSize><data>; a
// zero-size, zero-hash block terminates the stream. The block index
// must equal its position (spec.md §4.5).
func ReadV3Blocks(r io.Reader) ([]byte, error) {
	var out bytes.Buffer
	var expectedIdx uint32
	for {
		var idx uint32
		if err := binary.Read(r, binary.LittleEndian, &idx); err != nil {
			return nil, kderr.Wrap(kderr.IntegrityFailure, err)
		}
		var gotHash [32]byte
		if _, err := io.ReadFull(r, gotHash[:]); err != nil {
			return nil, kderr.Wrap(kderr.IntegrityFailure, err)
		}
		var size uint32
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, kderr.Wrap(kderr.IntegrityFailure, err)
		}
		if idx != expectedIdx {
			return nil, kderr.New(kderr.IntegrityFailure, "block index mismatch")
		}
		if size == 0 {
			var zero [32]byte
			if !hmac.Equal(gotHash[:], zero[:]) {
				return nil, kderr.New(kderr.IntegrityFailure, "terminator block has non-zero hash")
			}
			break
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, kderr.Wrap(kderr.IntegrityFailure, err)
		}
		wantHash := cryptoutil.SHA256(data)
		if !hmac.Equal(wantHash, gotHash[:]) {
			return nil, kderr.New(kderr.IntegrityFailure, "block SHA-256 mismatch")
		}
		out.Write(data)
		expectedIdx++
	}
	return out.Bytes(), nil
}

// WriteV3Blocks frames payload into SHA-256-checksummed blocks of at
// most blockSize bytes, terminated by a zero-size/zero-hash block.
func WriteV3Blocks(w io.Writer, payload []byte, blockSize int) error {
	if blockSize <= 0 {
		blockSize = 1024 * 1024
	}
	var idx uint32
	writeBlock := func(data []byte) error {
		if err := binary.Write(w, binary.LittleEndian, idx); err != nil {
			return err
		}
		var h [32]byte
		if len(data) > 0 {
			copy(h[:], cryptoutil.SHA256(data))
		}
		if _, err := w.Write(h[:]); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		idx++
		return nil
	}
	for len(payload) > 0 {
		n := blockSize
		if n > len(payload) {
			n = len(payload)
		}
		if err := writeBlock(payload[:n]); err != nil {
			return err
		}
		payload = payload[n:]
	}
	return writeBlock(nil)
}
