package header

import (
	"bytes"
	"testing"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kdfparams"
	"github.com/stretchr/testify/require"
)

func TestSignatureRoundTripV4(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSignature(&buf, 4))
	kind, sig, err := ReadSignature(&buf)
	require.NoError(t, err)
	require.Equal(t, FormatKDBX, kind)
	require.Equal(t, uint16(4), sig.Major)
}

func TestSignatureRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	_, _, err := ReadSignature(buf)
	require.Error(t, err)
}

func TestSignatureDetectsLegacyKDB(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(dbutils.Magic1[:])
	buf.Write(dbutils.Magic2KDB[:])
	kind, _, err := ReadSignature(&buf)
	require.NoError(t, err)
	require.Equal(t, FormatKDB, kind)
}

func TestOuterHeaderRoundTripV4(t *testing.T) {
	o := &Outer{
		Major:            4,
		CipherID:         dbutils.CipherAES256,
		CompressionFlags: dbutils.CompressionGZip,
		MasterSeed:       bytes.Repeat([]byte{0x01}, 32),
		EncryptionIV:     bytes.Repeat([]byte{0x02}, 16),
		KdfParameters:    kdfparams.DefaultArgon2id(bytes.Repeat([]byte{0x03}, 32)),
	}
	var buf bytes.Buffer
	_, err := WriteOuter(&buf, o)
	require.NoError(t, err)

	got, err := ReadOuter(&buf, 4)
	require.NoError(t, err)
	require.Equal(t, o.CipherID, got.CipherID)
	require.Equal(t, o.CompressionFlags, got.CompressionFlags)
	require.Equal(t, o.MasterSeed, got.MasterSeed)
	require.Equal(t, o.KdfParameters.UUID, got.KdfParameters.UUID)
}

func TestOuterHeaderRoundTripV3(t *testing.T) {
	o := &Outer{
		Major:             3,
		CipherID:          dbutils.CipherAES256,
		CompressionFlags:  dbutils.CompressionNone,
		MasterSeed:        bytes.Repeat([]byte{0x01}, 32),
		TransformSeed:     bytes.Repeat([]byte{0x04}, 32),
		TransformRounds:   6000,
		EncryptionIV:      bytes.Repeat([]byte{0x02}, 16),
		ProtectedStreamKey: bytes.Repeat([]byte{0x05}, 32),
		StreamStartBytes:  bytes.Repeat([]byte{0x06}, 32),
		InnerRandomStream: dbutils.InnerStreamSalsa20,
	}
	var buf bytes.Buffer
	_, err := WriteOuter(&buf, o)
	require.NoError(t, err)

	got, err := ReadOuter(&buf, 3)
	require.NoError(t, err)
	require.Equal(t, o.TransformRounds, got.TransformRounds)
	require.Equal(t, o.InnerRandomStream, got.InnerRandomStream)
}

func TestOuterHeaderRejectsUnsupportedCompression(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(dbutils.HdrCompressionFlags)
	buf.Write([]byte{4, 0, 0, 0}) // v4 length = 4
	buf.Write([]byte{9, 0, 0, 0}) // flags = 9, unsupported
	buf.WriteByte(dbutils.HdrEndOfHeader)
	buf.Write([]byte{0, 0, 0, 0})
	_, err := ReadOuter(&buf, 4)
	require.Error(t, err)
}

func TestInnerHeaderRoundTrip(t *testing.T) {
	in := &Inner{
		RandomStreamID:  dbutils.InnerStreamChaCha20,
		RandomStreamKey: bytes.Repeat([]byte{0x07}, 64),
		Binaries: []InnerBinary{
			{Protected: true, Data: []byte("secret attachment")},
			{Protected: false, Data: []byte("plain attachment")},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteInner(&buf, in))
	got, err := ReadInner(&buf)
	require.NoError(t, err)
	require.Equal(t, in.RandomStreamID, got.RandomStreamID)
	require.Equal(t, in.RandomStreamKey, got.RandomStreamKey)
	require.Len(t, got.Binaries, 2)
	require.True(t, got.Binaries[0].Protected)
	require.Equal(t, []byte("secret attachment"), got.Binaries[0].Data)
}
