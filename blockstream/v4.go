// Package blockstream implements the HMAC-authenticated (v4) and
// SHA-256-checksummed (v3) block framing that wraps the encrypted
// KDBX payload, per spec.md §4.5.
package blockstream

import (
	"bytes"
	"crypto/hmac"
	"encoding/binary"
	"io"

	"github.com/ledgerwatch/kdbxcore/cryptoutil"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// maxUint64Bytes is the special "pre-block" index used to key the
// header HMAC: eight 0xFF bytes, i.e. little-endian uint64 max.
var maxUint64Bytes = bytes.Repeat([]byte{0xFF}, 8)

// DeriveHMACBaseKey computes HMAC-base-key = SHA-512(masterSeed ||
// transformedKey || 0x01), per spec.md §4.5.
func DeriveHMACBaseKey(masterSeed, transformedKey []byte) []byte {
	return cryptoutil.SHA512(masterSeed, transformedKey, []byte{0x01})
}

func blockHMACKey(index []byte, hmacBaseKey []byte) []byte {
	return cryptoutil.SHA512(index, hmacBaseKey)
}

// HeaderHMAC computes the header HMAC (32 bytes) over the raw header
// bytes, keyed as the "pre-block" index per spec.md §4.5.
func HeaderHMAC(headerBytes, hmacBaseKey []byte) []byte {
	key := blockHMACKey(maxUint64Bytes, hmacBaseKey)
	return cryptoutil.HMACSHA256(key, headerBytes)
}

// HeaderSHA256 computes the plain SHA-256 of the header bytes, the
// first integrity field written immediately after the header in v4.
func HeaderSHA256(headerBytes []byte) []byte {
	return cryptoutil.SHA256(headerBytes)
}

// VerifyHeaderHash checks the keyless header SHA-256 read from the
// file against the actual header bytes. This check runs before any
// key material is derived, so a mismatch here means the header bytes
// themselves were altered in transit or on disk, not that the wrong
// password/key-file was supplied: it fails with IntegrityFailure.
func VerifyHeaderHash(headerBytes, gotHash []byte) error {
	wantHash := HeaderSHA256(headerBytes)
	if !hmac.Equal(wantHash, gotHash) {
		return kderr.New(kderr.IntegrityFailure, "header SHA-256 mismatch")
	}
	return nil
}

// VerifyHeaderHMAC checks the header HMAC read from the file against
// the actual header bytes. The HMAC key is derived from the
// transformed master key, so a mismatch here is indistinguishable
// from a wrong password/key-file/windows-user-account component: per
// spec.md §8 property 4 it fails with AuthFailure, not
// IntegrityFailure, matching the treatment of every other
// keyed-material check in this library.
func VerifyHeaderHMAC(headerBytes, gotHMAC, hmacBaseKey []byte) error {
	wantHMAC := HeaderHMAC(headerBytes, hmacBaseKey)
	if !hmac.Equal(wantHMAC, gotHMAC) {
		return kderr.New(kderr.AuthFailure, "header HMAC mismatch")
	}
	return nil
}

// ReadV4Blocks reads the HMAC-framed block sequence from r and returns
// the concatenated payload. Each block is <32-byte HMAC><u32
// length><length bytes>; a zero-length block (still HMAC'd) ends the
// stream. Any HMAC mismatch or length/index inconsistency fails with
// IntegrityFailure.
func ReadV4Blocks(r io.Reader, hmacBaseKey []byte) ([]byte, error) {
	var out bytes.Buffer
	var idx uint64
	for {
		var gotHMAC [32]byte
		if _, err := io.ReadFull(r, gotHMAC[:]); err != nil {
			return nil, kderr.Wrap(kderr.IntegrityFailure, err)
		}
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, kderr.Wrap(kderr.IntegrityFailure, err)
		}
		data := make([]byte, length)
		if length > 0 {
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, kderr.Wrap(kderr.IntegrityFailure, err)
			}
		}

		idxBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(idxBytes, idx)
		key := blockHMACKey(idxBytes, hmacBaseKey)

		lenBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBytes, length)
		wantHMAC := cryptoutil.HMACSHA256(key, append(append([]byte{}, idxBytes...), append(lenBytes, data...)...))
		if !hmac.Equal(wantHMAC, gotHMAC[:]) {
			return nil, kderr.New(kderr.IntegrityFailure, "block HMAC mismatch")
		}
		if length == 0 {
			break
		}
		out.Write(data)
		idx++
	}
	return out.Bytes(), nil
}

// WriteV4Blocks frames payload into HMAC-authenticated blocks of at
// most blockSize bytes each, followed by a zero-length terminator
// block, writing the result to w.
func WriteV4Blocks(w io.Writer, payload []byte, hmacBaseKey []byte, blockSize int) error {
	if blockSize <= 0 {
		blockSize = 1024 * 1024
	}
	var idx uint64
	writeBlock := func(data []byte) error {
		idxBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(idxBytes, idx)
		key := blockHMACKey(idxBytes, hmacBaseKey)

		lenBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBytes, uint32(len(data)))
		msg := append(append([]byte{}, idxBytes...), append(lenBytes, data...)...)
		mac := cryptoutil.HMACSHA256(key, msg)

		if _, err := w.Write(mac); err != nil {
			return err
		}
		if _, err := w.Write(lenBytes); err != nil {
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
