package blockstream

import (
	"bytes"
	"testing"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kderr"
	"github.com/stretchr/testify/require"
)

func TestV3BlocksRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 1000)
	var buf bytes.Buffer
	require.NoError(t, WriteV3Blocks(&buf, payload, 777))

	got, err := ReadV3Blocks(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestV3BlocksDetectCorruption(t *testing.T) {
	payload := []byte("hello world")
	var buf bytes.Buffer
	require.NoError(t, WriteV3Blocks(&buf, payload, 1024))
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF
	_, err := ReadV3Blocks(bytes.NewReader(corrupted))
	require.Error(t, err)
}

func TestV4BlocksRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 500)
	hmacBaseKey := bytes.Repeat([]byte{0x01}, 64)
	var buf bytes.Buffer
	require.NoError(t, WriteV4Blocks(&buf, payload, hmacBaseKey, 333))

	got, err := ReadV4Blocks(&buf, hmacBaseKey)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestV4BlocksDetectTamperedHMAC(t *testing.T) {
	payload := []byte("attack at dawn")
	hmacBaseKey := bytes.Repeat([]byte{0x02}, 64)
	var buf bytes.Buffer
	require.NoError(t, WriteV4Blocks(&buf, payload, hmacBaseKey, 1024))
	corrupted := buf.Bytes()
	corrupted[0] ^= 0xFF
	_, err := ReadV4Blocks(bytes.NewReader(corrupted), hmacBaseKey)
	require.Error(t, err)
}

func TestHeaderIntegrityRoundTrip(t *testing.T) {
	header := []byte("pretend serialized header bytes")
	masterSeed := bytes.Repeat([]byte{0x03}, 32)
	transformedKey := bytes.Repeat([]byte{0x04}, 32)
	base := DeriveHMACBaseKey(masterSeed, transformedKey)

	hash := HeaderSHA256(header)
	hmacVal := HeaderHMAC(header, base)

	require.NoError(t, VerifyHeaderHash(header, hash))
	require.NoError(t, VerifyHeaderHMAC(header, hmacVal, base))

	bad := append([]byte{}, header...)
	bad[0] ^= 0xFF
	require.Error(t, VerifyHeaderHash(bad, hash))

	require.NoError(t, VerifyHeaderHash(header, hash))
	badBase := append([]byte{}, base...)
	badBase[0] ^= 0xFF
	err := VerifyHeaderHMAC(header, hmacVal, badBase)
	require.Error(t, err)
	require.True(t, kderr.Is(err, kderr.AuthFailure))
}

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte{0x00}, 1<<20)
	compressed, err := Compress(data, dbutils.CompressionGZip)
	require.NoError(t, err)
	require.True(t, len(compressed) < len(data))

	got, err := Decompress(compressed, dbutils.CompressionGZip)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestCompressNoneIsIdentity(t *testing.T) {
	data := []byte("plain")
	out, err := Compress(data, dbutils.CompressionNone)
	require.NoError(t, err)
	require.Equal(t, data, out)
}
