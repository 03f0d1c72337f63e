// Package genlib builds randomized KDBX fixture trees and writes them
// to disk, the way the teacher's cmd/headers/download package holds
// the logic a cmd/*/commands subcommand merely calls into.
package genlib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/kdbxio"
	"github.com/ledgerwatch/kdbxcore/kdfparams"
	"github.com/ledgerwatch/kdbxcore/model"
)

// FixtureOptions shapes a generated database: how many groups deep,
// how many entries per group, and whether entries carry a binary
// attachment.
type FixtureOptions struct {
	Major       uint16
	KDF         string // "argon2id", "argon2d", "aeskdf"
	GroupDepth  int
	EntriesPer  int
	BinarySize  int // 0 disables attachments
	Password    string
	Seed        int64 // varies deterministic-looking names across fixtures; not used for crypto
}

// BuildTree constructs a Tree matching opts, rooted at a single group
// chain of depth GroupDepth, each level holding EntriesPer entries.
func BuildTree(now time.Time, opts FixtureOptions) *model.Tree {
	tr := model.New(now)
	switch opts.KDF {
	case "argon2d":
		tr.Meta.KDFParams = kdfparams.DefaultArgon2d(nil)
	case "aeskdf":
		tr.Meta.KDFParams = kdfparams.DefaultAESKDF(20000, nil)
	default:
		tr.Meta.KDFParams = kdfparams.DefaultArgon2id(nil)
	}

	parent := tr.Root
	for depth := 0; depth < opts.GroupDepth; depth++ {
		g := model.NewGroup(now, fmt.Sprintf("group-%d-%d", opts.Seed, depth))
		_ = tr.InsertGroup(now, parent, g)
		for i := 0; i < opts.EntriesPer; i++ {
			e := model.NewEntry(now)
			e.SetString(now, dbutils.FieldTitle, fmt.Sprintf("site-%d-%d-%d.example", opts.Seed, depth, i))
			e.SetString(now, dbutils.FieldUserName, fmt.Sprintf("user%d", i))
			e.SetStringProtected(now, dbutils.FieldPassword, fmt.Sprintf("p@ssw0rd-%d-%d", depth, i), true)
			if opts.BinarySize > 0 {
				payload := make([]byte, opts.BinarySize)
				for j := range payload {
					payload[j] = byte((j + i + depth) % 251)
				}
				b := tr.AddBinary(payload)
				e.AddBinary(now, "attachment.bin", b, false)
			}
			_ = tr.InsertEntry(now, g, e)
		}
		parent = g
	}
	return tr
}

// WriteFixture builds a tree per opts and saves it atomically to path.
func WriteFixture(ctx context.Context, path string, opts FixtureOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tree := BuildTree(time.Now().UTC().Truncate(time.Second), opts)
	saveOpts := kdbxio.SaveOptions{
		Inputs: kdbxio.CompositeKeyInputs{Password: opts.Password},
		Major:  opts.Major,
		KDF:    tree.Meta.KDFParams,
	}
	return kdbxio.SaveFile(ctx, path, tree, saveOpts)
}

// VerifyFixture loads path back with the given password and confirms
// it parses cleanly; used by the self-check mode to close the loop on
// every fixture it just wrote.
func VerifyFixture(ctx context.Context, path, password string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = kdbxio.Load(ctx, f, kdbxio.CompositeKeyInputs{Password: password})
	return err
}
