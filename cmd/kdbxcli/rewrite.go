package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/logrusorgru/aurora"
	"github.com/urfave/cli"

	"github.com/ledgerwatch/kdbxcore/header"
	"github.com/ledgerwatch/kdbxcore/kdbxio"
)

// sourceMajor peeks the container version off path's signature without
// consuming credentials, so "rewrite" can default --to-major to "same
// version as the source" rather than silently forcing KDBX4.
func sourceMajor(path string) (uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	_, sig, err := header.ReadSignature(bufio.NewReader(f))
	if err != nil {
		return 0, err
	}
	return sig.Major, nil
}

var (
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "output path for the rewritten database",
	}
	toMajorFlag = cli.UintFlag{
		Name:  "to-major",
		Usage: "target container version (3 or 4); 0 keeps the source version",
	}
)

// rewriteCommand decrypts and re-encrypts a database with fresh random
// seed material, optionally changing its container version. This is
// the operation a caller reaches for after a suspected key compromise:
// every cryptographic seed kdbxio.Save generates is brand new even
// though the composite key itself is unchanged.
var rewriteCommand = cli.Command{
	Name:  "rewrite",
	Usage: "decrypt then re-encrypt a database with fresh seeds, optionally changing its version",
	Flags: []cli.Flag{outFlag, toMajorFlag},
	Action: func(c *cli.Context) error {
		path, err := filePathFromContext(c)
		if err != nil {
			return err
		}
		out := c.String(outFlag.Name)
		if out == "" {
			return fmt.Errorf("missing required --out flag")
		}
		creds, err := credentialsFromContext(c)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		tree, err := kdbxio.Load(context.Background(), f, creds)
		f.Close()
		if err != nil {
			return err
		}

		major := uint16(c.Uint(toMajorFlag.Name))
		if major == 0 {
			if major, err = sourceMajor(path); err != nil {
				return err
			}
		}
		opts := kdbxio.SaveOptions{Inputs: creds, Major: major}
		if err := kdbxio.SaveFile(context.Background(), out, tree, opts); err != nil {
			return err
		}
		fmt.Fprintln(stdout, aurora.Green("OK"), "rewrote", out)
		return nil
	},
}
