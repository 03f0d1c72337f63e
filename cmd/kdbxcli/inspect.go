package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/logrusorgru/aurora"
	"github.com/urfave/cli"

	"github.com/ledgerwatch/kdbxcore/common"
	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/header"
)

var inspectCommand = cli.Command{
	Name:  "inspect",
	Usage: "print the outer header summary without requiring a password",
	Action: func(c *cli.Context) error {
		path, err := filePathFromContext(c)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		br := bufio.NewReader(f)
		kind, sig, err := header.ReadSignature(br)
		if err != nil {
			return err
		}
		if kind == header.FormatKDB {
			fmt.Fprintln(stdout, aurora.Yellow("legacy KeePass 1.x (KDB) file: not supported by this tool"))
			return nil
		}
		outer, err := header.ReadOuter(br, sig.Major)
		if err != nil {
			return err
		}

		fmt.Fprintf(stdout, "%s %d.%d\n", aurora.Bold("format version:"), sig.Major, sig.Minor)
		fmt.Fprintf(stdout, "%s %s\n", aurora.Bold("cipher:"), cipherName(outer.CipherID))
		fmt.Fprintf(stdout, "%s %s\n", aurora.Bold("compression:"), compressionName(outer.CompressionFlags))
		if sig.Major >= 4 {
			fmt.Fprintf(stdout, "%s %s\n", aurora.Bold("kdf:"), kdfName(outer.KdfParameters.UUID))
		} else {
			fmt.Fprintf(stdout, "%s AES-KDF, %d rounds\n", aurora.Bold("kdf:"), outer.TransformRounds)
		}
		return nil
	},
}

func cipherName(id common.UUID) string {
	switch id {
	case dbutils.CipherAES256:
		return "AES-256-CBC"
	case dbutils.CipherChaCha20:
		return "ChaCha20"
	default:
		return "unknown"
	}
}

func compressionName(flags uint32) string {
	switch flags {
	case dbutils.CompressionNone:
		return "none"
	case dbutils.CompressionGZip:
		return "gzip"
	default:
		return "unknown"
	}
}

func kdfName(id common.UUID) string {
	switch id {
	case dbutils.KDFAES:
		return "AES-KDF"
	case dbutils.KDFArgon2d:
		return "Argon2d"
	case dbutils.KDFArgon2id:
		return "Argon2id"
	default:
		return "unknown"
	}
}
