package kdfparams

import (
	"bytes"
	"context"
	"testing"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/stretchr/testify/require"
)

func TestDictRoundTrip(t *testing.T) {
	d := NewDict()
	d.SetUInt32("u32", 42)
	d.SetUInt64("u64", 1<<40)
	d.SetBool("flag", true)
	d.SetString("str", "hello")
	d.SetBytes("bin", []byte{1, 2, 3, 4})

	var buf bytes.Buffer
	require.NoError(t, d.Encode(&buf))

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	v, ok := decoded.GetUInt32("u32")
	require.True(t, ok)
	require.Equal(t, uint32(42), v)

	v64, ok := decoded.GetUInt64("u64")
	require.True(t, ok)
	require.Equal(t, uint64(1<<40), v64)

	b, ok := decoded.GetBool("flag")
	require.True(t, ok)
	require.True(t, b)

	s, ok := decoded.GetString("str")
	require.True(t, ok)
	require.Equal(t, "hello", s)

	bs, ok := decoded.GetBytes("bin")
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4}, bs)
}

func TestDictRejectsDuplicateKeys(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x01}) // version
	writeEntry := func(kind byte, key, val []byte) {
		buf.WriteByte(kind)
		lenBuf := make([]byte, 4)
		putLE32(lenBuf, len(key))
		buf.Write(lenBuf)
		buf.Write(key)
		putLE32(lenBuf, len(val))
		buf.Write(lenBuf)
		buf.Write(val)
	}
	writeEntry(dbutils.VDTypeUInt32, []byte("k"), []byte{1, 0, 0, 0})
	writeEntry(dbutils.VDTypeUInt32, []byte("k"), []byte{2, 0, 0, 0})
	buf.WriteByte(dbutils.VDTypeEnd)

	_, err := Decode(&buf)
	require.Error(t, err)
}

func TestDictRejectsUnknownType(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x01})
	buf.WriteByte(0x99) // unknown tag
	_, err := Decode(&buf)
	require.Error(t, err)
}

func TestKDFParamsDictRoundTrip(t *testing.T) {
	p := DefaultArgon2id(bytes.Repeat([]byte{0x01}, 32))
	d := p.ToDict()
	got, ok := FromDict(d)
	require.True(t, ok)
	require.Equal(t, p.UUID, got.UUID)
	require.Equal(t, p.Memory, got.Memory)
	require.Equal(t, p.Iterations, got.Iterations)
}

func TestTransformAESKDF(t *testing.T) {
	p := DefaultAESKDF(1000, bytes.Repeat([]byte{0x02}, 32))
	ck := bytes.Repeat([]byte{0x03}, 32)
	out, err := Transform(context.Background(), ck, p)
	require.NoError(t, err)
	require.Len(t, out, 32)
}

func TestTransformUnknownKDF(t *testing.T) {
	p := KDFParams{}
	_, err := Transform(context.Background(), bytes.Repeat([]byte{0}, 32), p)
	require.Error(t, err)
}

func putLE32(b []byte, v int) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
