package kdbxxml

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/innerstream"
	"github.com/ledgerwatch/kdbxcore/model"
)

func newCipherPair(t *testing.T, streamID uint32, key []byte) (innerstream.Cipher, innerstream.Cipher) {
	t.Helper()
	enc, err := innerstream.New(streamID, key)
	require.NoError(t, err)
	dec, err := innerstream.New(streamID, key)
	require.NoError(t, err)
	return enc, dec
}

// buildSampleTree mirrors the shape of a real database closely enough
// to exercise every codec path: a nested group, an entry with a
// protected string, custom data, a v4-pooled binary, and one history
// snapshot.
func buildSampleTree(now time.Time) *model.Tree {
	tr := model.New(now)
	sub := model.NewGroup(now, "Logins")
	_ = tr.InsertGroup(now, tr.Root, sub)

	e := model.NewEntry(now)
	e.SetString(now, dbutils.FieldTitle, "example.com")
	e.SetString(now, dbutils.FieldUserName, "carol")
	e.SetStringProtected(now, dbutils.FieldPassword, "s3cr3t", true)
	e.SetCustomData(now, "custom-key", "custom-value")
	_ = tr.InsertEntry(now, sub, e)

	b := tr.AddBinary([]byte("attachment contents"))
	e.AddBinary(now, "notes.txt", b, false)

	tr.PushHistory(e)
	e.SetString(now.Add(time.Minute), dbutils.FieldTitle, "example.com")

	return tr
}

func TestRoundTripV4Protected(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := buildSampleTree(now)

	encCipher, decCipher := newCipherPair(t, dbutils.InnerStreamChaCha20, make([]byte, 64))

	var buf bytes.Buffer
	pool, err := Encode(&buf, tr, Options{Major: 4, Cipher: encCipher})
	require.NoError(t, err)
	require.Len(t, pool, 1)

	got, err := Decode(bytes.NewReader(buf.Bytes()), Options{Major: 4, Cipher: decCipher}, pool)
	require.NoError(t, err)

	sub, ok := got.FindGroup(tr.Root.Groups[0].UUID)
	require.True(t, ok)
	require.Len(t, sub.Entries, 1)
	e := sub.Entries[0]
	require.Equal(t, "example.com", e.Title())
	require.Equal(t, "carol", e.UserName())
	require.Equal(t, "s3cr3t", e.Password())
	require.True(t, e.Strings[dbutils.FieldPassword].Protected)
	require.Equal(t, "custom-value", e.CustomData["custom-key"].Value)
	require.Len(t, e.Binaries, 1)
	require.Equal(t, []byte("attachment contents"), e.Binaries[0].Binary.Data)
	require.Len(t, e.History, 1)
	require.True(t, e.Times.Modified.After(e.History[0].Times.Modified))
}

// TestRoundTripV3Pool checks the v3 path, where the binary pool travels
// inside Meta/Binaries rather than a separate inner header, and field
// timestamps are ISO-8601 strings rather than packed int64s.
func TestRoundTripV3Pool(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := buildSampleTree(now)

	encCipher, decCipher := newCipherPair(t, dbutils.InnerStreamSalsa20, make([]byte, 32))

	var buf bytes.Buffer
	pool, err := Encode(&buf, tr, Options{Major: 3, Cipher: encCipher})
	require.NoError(t, err)
	require.Nil(t, pool) // v3 pool travels inside the XML body itself

	got, err := Decode(bytes.NewReader(buf.Bytes()), Options{Major: 3, Cipher: decCipher}, nil)
	require.NoError(t, err)

	sub, ok := got.FindGroup(tr.Root.Groups[0].UUID)
	require.True(t, ok)
	e := sub.Entries[0]
	require.Equal(t, "s3cr3t", e.Password())
	require.Equal(t, []byte("attachment contents"), e.Binaries[0].Binary.Data)
}

// TestProtectedCipherDesyncBreaksValue demonstrates why document order
// matters: decoding with a cipher that has already consumed a
// different number of keystream bytes than the encoder used yields
// garbage, not an error (spec.md §9) — the codec has no way to detect
// this itself, and correctness instead rests on both sides walking
// entries/strings in the same order, which buildGroup/parseGroup
// guarantee by construction.
func TestProtectedCipherDesyncBreaksValue(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := model.New(now)
	e := model.NewEntry(now)
	e.SetStringProtected(now, dbutils.FieldPassword, "hunter2", true)
	require.NoError(t, tr.InsertEntry(now, tr.Root, e))

	key := make([]byte, 64)
	encCipher, err := innerstream.New(dbutils.InnerStreamChaCha20, key)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = Encode(&buf, tr, Options{Major: 4, Cipher: encCipher})
	require.NoError(t, err)

	desynced, err := innerstream.New(dbutils.InnerStreamChaCha20, key)
	require.NoError(t, err)
	desynced.XOR(make([]byte, 4)) // burn four keystream bytes before decoding starts

	got, err := Decode(bytes.NewReader(buf.Bytes()), Options{Major: 4, Cipher: desynced}, nil)
	require.NoError(t, err)
	require.NotEqual(t, "hunter2", got.Root.Entries[0].Password())
}

func TestTriStateRoundTrip(t *testing.T) {
	require.Equal(t, "null", encodeTriState(nil))
	tr := true
	fa := false
	require.Equal(t, "True", encodeTriState(&tr))
	require.Equal(t, "False", encodeTriState(&fa))

	require.Nil(t, decodeTriState("null"))
	require.Nil(t, decodeTriState("garbage"))
	require.Equal(t, true, *decodeTriState("True"))
	require.Equal(t, false, *decodeTriState("False"))
}

func TestTimeEncodingByMajorVersion(t *testing.T) {
	when := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	v3 := encodeTime(3, when)
	require.Equal(t, "2024-03-15T12:30:00Z", v3)
	back3, err := decodeTime(3, v3)
	require.NoError(t, err)
	require.True(t, when.Equal(back3))

	v4 := encodeTime(4, when)
	require.NotEqual(t, v3, v4)
	back4, err := decodeTime(4, v4)
	require.NoError(t, err)
	require.True(t, when.Equal(back4))
}

func TestDecodeTimeRejectsGarbage(t *testing.T) {
	_, err := decodeTime(3, "not-a-timestamp")
	require.Error(t, err)

	_, err = decodeTime(4, "not-base64!!")
	require.Error(t, err)
}

// TestSniffAndStripBOM confirms a UTF-8 BOM-prefixed document decodes
// identically to one without, the edge case spec.md §4.7 calls out
// since some KDBX writers emit a BOM despite declaring utf-8.
func TestSniffAndStripBOM(t *testing.T) {
	plain := []byte(`<?xml version="1.0" encoding="utf-8"?><KeePassFile><Meta><Generator>g</Generator></Meta><Root><Group><UUID></UUID></Group><DeletedObjects></DeletedObjects></Root></KeePassFile>`)
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, plain...)

	clean, err := sniffAndStripBOM(bytes.NewReader(withBOM))
	require.NoError(t, err)
	require.False(t, bytes.HasPrefix(clean, []byte{0xEF, 0xBB, 0xBF}))

	noBOM, err := sniffAndStripBOM(bytes.NewReader(plain))
	require.NoError(t, err)
	require.Equal(t, plain, noBOM)
}

func TestUsageCountRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := model.New(now)
	e := model.NewEntry(now)
	e.UsageCount = 7
	require.NoError(t, tr.InsertEntry(now, tr.Root, e))

	cipher, err := innerstream.New(dbutils.InnerStreamChaCha20, make([]byte, 64))
	require.NoError(t, err)

	var buf bytes.Buffer
	pool, err := Encode(&buf, tr, Options{Major: 4, Cipher: cipher})
	require.NoError(t, err)

	decCipher, err := innerstream.New(dbutils.InnerStreamChaCha20, make([]byte, 64))
	require.NoError(t, err)
	got, err := Decode(bytes.NewReader(buf.Bytes()), Options{Major: 4, Cipher: decCipher}, pool)
	require.NoError(t, err)
	require.EqualValues(t, 7, got.Root.Entries[0].UsageCount)
}
