package kdbxio

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kderr"
	"github.com/ledgerwatch/kdbxcore/kdfparams"
	"github.com/ledgerwatch/kdbxcore/model"
)

func sampleTree(now time.Time) *model.Tree {
	tr := model.New(now)
	work := model.NewGroup(now, "Work")
	_ = tr.InsertGroup(now, tr.Root, work)

	e := model.NewEntry(now)
	e.SetString(now, dbutils.FieldTitle, "example.com")
	e.SetString(now, dbutils.FieldUserName, "alice")
	e.SetStringProtected(now, dbutils.FieldPassword, "hunter2", true)
	_ = tr.InsertEntry(now, work, e)
	return tr
}

// TestRoundTripV4 implements spec.md §8 scenario S1: an empty (well,
// near-empty) v4 database round-trips through Save then Load with the
// same password, every field equal.
func TestRoundTripV4(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := sampleTree(now)

	inputs := CompositeKeyInputs{Password: "correct horse battery staple"}

	var buf bytes.Buffer
	err := Save(context.Background(), &buf, tr, SaveOptions{Inputs: inputs, Major: 4})
	require.NoError(t, err)

	got, err := Load(context.Background(), bytes.NewReader(buf.Bytes()), inputs)
	require.NoError(t, err)

	work, ok := findGroupByName(got.Root, "Work")
	require.True(t, ok)
	require.Len(t, work.Entries, 1)
	e := work.Entries[0]
	require.Equal(t, "example.com", e.Title())
	require.Equal(t, "alice", e.UserName())
	require.Equal(t, "hunter2", e.Password())
}

// TestRoundTripV3AESKDF implements spec.md §8 scenario S2: a v3
// database using AES-KDF round-trips.
func TestRoundTripV3AESKDF(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := sampleTree(now)

	inputs := CompositeKeyInputs{Password: "v3-password"}
	opts := SaveOptions{
		Inputs: inputs,
		Major:  3,
		KDF:    kdfparams.DefaultAESKDF(2000, nil),
	}

	var buf bytes.Buffer
	require.NoError(t, Save(context.Background(), &buf, tr, opts))

	got, err := Load(context.Background(), bytes.NewReader(buf.Bytes()), inputs)
	require.NoError(t, err)

	work, ok := findGroupByName(got.Root, "Work")
	require.True(t, ok)
	require.Equal(t, "hunter2", work.Entries[0].Password())
}

// TestRoundTripV4Argon2d implements spec.md §8 scenario S1's explicit
// Argon2d case, here with M=8MiB, I=2, P=2 to keep the test fast: a v4
// database keyed with Argon2d, not the default Argon2id, round-trips. This is
// the orchestrator-level exercise of cryptoutil.Argon2d through
// kdfparams.Transform that the cryptoutil-level determinism tests
// can't provide on their own.
func TestRoundTripV4Argon2d(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := sampleTree(now)

	inputs := CompositeKeyInputs{Password: "argon2d-password"}
	opts := SaveOptions{
		Inputs: inputs,
		Major:  4,
		KDF: kdfparams.KDFParams{
			UUID:        dbutils.KDFArgon2d,
			Parallelism: 2,
			Memory:      8 * 1024 * 1024, // bytes; kdfparams.Transform divides by 1024 for cryptoutil's KiB
			Iterations:  2,
			Version:     0x13,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Save(context.Background(), &buf, tr, opts))

	got, err := Load(context.Background(), bytes.NewReader(buf.Bytes()), inputs)
	require.NoError(t, err)

	work, ok := findGroupByName(got.Root, "Work")
	require.True(t, ok)
	require.Len(t, work.Entries, 1)
	e := work.Entries[0]
	require.Equal(t, "example.com", e.Title())
	require.Equal(t, "alice", e.UserName())
	require.Equal(t, "hunter2", e.Password())

	_, err = Load(context.Background(), bytes.NewReader(buf.Bytes()), CompositeKeyInputs{Password: "wrong-password"})
	require.Error(t, err)
	require.True(t, kderr.Is(err, kderr.AuthFailure))
}

// TestRoundTripLargeBinary implements spec.md §8 scenario S3: an entry
// carrying a multi-megabyte attachment survives a v4 round trip intact.
func TestRoundTripLargeBinary(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := model.New(now)
	e := model.NewEntry(now)
	require.NoError(t, tr.InsertEntry(now, tr.Root, e))

	payload := make([]byte, 2*1024*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	b := tr.AddBinary(payload)
	e.AddBinary(now, "attachment.bin", b, false)

	inputs := CompositeKeyInputs{Password: "big-file-password"}
	var buf bytes.Buffer
	require.NoError(t, Save(context.Background(), &buf, tr, SaveOptions{Inputs: inputs, Major: 4}))

	got, err := Load(context.Background(), bytes.NewReader(buf.Bytes()), inputs)
	require.NoError(t, err)
	require.Len(t, got.Root.Entries, 1)
	require.Len(t, got.Root.Entries[0].Binaries, 1)
	require.Equal(t, payload, got.Root.Entries[0].Binaries[0].Binary.Data)
}

// TestLoadWrongPasswordFails implements spec.md §8 scenario S4's
// authentication-failure half: loading with the wrong password must
// fail with AuthFailure, not a panic or silent garbage tree.
func TestLoadWrongPasswordFails(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := sampleTree(now)
	inputs := CompositeKeyInputs{Password: "correct-password"}

	var buf bytes.Buffer
	require.NoError(t, Save(context.Background(), &buf, tr, SaveOptions{Inputs: inputs, Major: 4}))

	_, err := Load(context.Background(), bytes.NewReader(buf.Bytes()), CompositeKeyInputs{Password: "wrong-password"})
	require.Error(t, err)
	require.True(t, kderr.Is(err, kderr.AuthFailure))
}

// TestLoadBitFlipFailsIntegrity implements spec.md §8 scenario S4's
// tamper-detection half: flipping a byte in the ciphertext must be
// caught by the HMAC block framing, not silently accepted.
func TestLoadBitFlipFailsIntegrity(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	tr := sampleTree(now)
	inputs := CompositeKeyInputs{Password: "tamper-test"}

	var buf bytes.Buffer
	require.NoError(t, Save(context.Background(), &buf, tr, SaveOptions{Inputs: inputs, Major: 4}))

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF

	_, err := Load(context.Background(), bytes.NewReader(raw), inputs)
	require.Error(t, err)
	require.True(t, kderr.Is(err, kderr.IntegrityFailure))
}

func findGroupByName(g *model.Group, name string) (*model.Group, bool) {
	if g.Name == name {
		return g, true
	}
	for _, child := range g.Groups {
		if found, ok := findGroupByName(child, name); ok {
			return found, true
		}
	}
	return nil, false
}
