package innerstream

import (
	"bytes"
	"testing"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/stretchr/testify/require"
)

func TestSalsa20CipherSequentialFields(t *testing.T) {
	c, err := New(dbutils.InnerStreamSalsa20, bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)

	f1 := []byte("first protected field")
	f2 := []byte("second protected field, different length")

	enc1 := c.XOR(f1)
	enc2 := c.XOR(f2)
	require.NotEqual(t, f1, enc1)
	require.NotEqual(t, f2, enc2)

	c2, err := New(dbutils.InnerStreamSalsa20, bytes.Repeat([]byte{0x01}, 32))
	require.NoError(t, err)
	dec1 := c2.XOR(enc1)
	dec2 := c2.XOR(enc2)
	require.Equal(t, f1, dec1)
	require.Equal(t, f2, dec2)
}

func TestChaCha20CipherSequentialFields(t *testing.T) {
	c, err := New(dbutils.InnerStreamChaCha20, bytes.Repeat([]byte{0x02}, 64))
	require.NoError(t, err)

	f1 := []byte("alpha")
	f2 := []byte("beta, a bit longer this time")

	enc1 := c.XOR(f1)
	enc2 := c.XOR(f2)

	c2, err := New(dbutils.InnerStreamChaCha20, bytes.Repeat([]byte{0x02}, 64))
	require.NoError(t, err)
	dec1 := c2.XOR(enc1)
	dec2 := c2.XOR(enc2)
	require.Equal(t, f1, dec1)
	require.Equal(t, f2, dec2)
}

func TestNewRejectsUnknownStream(t *testing.T) {
	_, err := New(99, bytes.Repeat([]byte{0}, 32))
	require.Error(t, err)
}

func TestOffsetNeverReusedChangesOutput(t *testing.T) {
	c, err := New(dbutils.InnerStreamSalsa20, bytes.Repeat([]byte{0x03}, 32))
	require.NoError(t, err)
	a := c.XOR([]byte("same text"))
	b := c.XOR([]byte("same text"))
	require.NotEqual(t, a, b, "two identical plaintexts at different offsets must not encrypt to the same ciphertext")
}
