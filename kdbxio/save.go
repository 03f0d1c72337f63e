package kdbxio

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/ledgerwatch/kdbxcore/blockstream"
	"github.com/ledgerwatch/kdbxcore/common"
	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/compositekey"
	"github.com/ledgerwatch/kdbxcore/cryptoutil"
	"github.com/ledgerwatch/kdbxcore/header"
	"github.com/ledgerwatch/kdbxcore/innerstream"
	"github.com/ledgerwatch/kdbxcore/kdbxxml"
	"github.com/ledgerwatch/kdbxcore/kderr"
	"github.com/ledgerwatch/kdbxcore/kdfparams"
	"github.com/ledgerwatch/kdbxcore/log"
	"github.com/ledgerwatch/kdbxcore/model"
)

// Save runs the full write pipeline from spec.md §4.9: it compiles the
// XML body, binds it to a fresh inner-stream cipher, compresses,
// encrypts, frames and writes a complete KDBX file to w. The named
// stages (compileXML, compress, writeHeader, plus commit for v3; the
// inner cipher runs inside compileXML, and encryption and block
// framing are folded into the other stages) mirror migrations.Migration{Name, Up}'s
// ordered, named steps.
//
// Every save regenerates the master seed, KDF salt/seed and
// inner-stream key: reusing any of them across saves would defeat
// their purpose (spec.md §4.1/§4.6).
func Save(ctx context.Context, w io.Writer, tree *model.Tree, opts SaveOptions) error {
	logger := log.New("component", "kdbxio", "op", "save")

	major := opts.Major
	if major == 0 {
		major = 4
	}
	cipherID := opts.Cipher
	if cipherID.IsZero() {
		cipherID = dbutils.CipherAES256
	}
	kdfP := opts.KDF
	if kdfP.UUID.IsZero() {
		kdfP = tree.Meta.KDFParams
	}
	kdfP = reseedKDF(kdfP)

	comps, err := opts.Inputs.components()
	if err != nil {
		return err
	}
	defer zeroComponents(&comps)
	compositeKeyBytes := compositekey.Build(comps)
	defer zeroKey(compositeKeyBytes)

	transformedKey, err := kdfparams.Transform(ctx, compositeKeyBytes, kdfP)
	if err != nil {
		return err
	}
	defer zeroKey(transformedKey)

	masterSeed := cryptoutil.RandomBytes(32)
	cipherKey := cryptoutil.SHA256(masterSeed, transformedKey)
	defer zeroKey(cipherKey)

	outer := &header.Outer{
		Major:            major,
		CipherID:         cipherID,
		CompressionFlags: tree.Meta.CompressionFlags,
		MasterSeed:       masterSeed,
		EncryptionIV:     cryptoutil.RandomBytes(ivSize(cipherID)),
	}

	if major >= 4 {
		outer.KdfParameters = kdfP
		outer.PublicCustomData = tree.Meta.CustomPublicData
		return saveV4(w, outer, tree, transformedKey, cipherKey, opts.BlockSize, logger)
	}

	outer.TransformSeed = kdfP.Salt
	outer.TransformRounds = kdfP.Rounds
	outer.ProtectedStreamKey = cryptoutil.RandomBytes(32)
	outer.StreamStartBytes = cryptoutil.RandomBytes(32)
	outer.InnerRandomStream = dbutils.InnerStreamSalsa20
	return saveV3(w, outer, tree, cipherKey, opts.BlockSize, logger)
}

func saveV4(w io.Writer, outer *header.Outer, tree *model.Tree, transformedKey, cipherKey []byte, blockSize int, logger log.Logger) error {
	streamKey := cryptoutil.RandomBytes(64)
	cipher, err := innerstream.New(dbutils.InnerStreamChaCha20, streamKey)
	if err != nil {
		return err
	}

	var xmlBuf bytes.Buffer
	var pool []*model.Binary
	var ciphertext []byte

	if err := runStages(logger, []stage{
		{"compileXML", func() error {
			p, err := kdbxxml.Encode(&xmlBuf, tree, kdbxxml.Options{Major: 4, Cipher: cipher})
			pool = p
			return err
		}},
		{"compress", func() error {
			inner := &header.Inner{RandomStreamID: dbutils.InnerStreamChaCha20, RandomStreamKey: streamKey}
			for _, b := range pool {
				inner.Binaries = append(inner.Binaries, header.InnerBinary{Data: b.Data})
			}
			var plain bytes.Buffer
			if err := header.WriteInner(&plain, inner); err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			plain.Write(xmlBuf.Bytes())
			compressed, err := blockstream.Compress(plain.Bytes(), outer.CompressionFlags)
			if err != nil {
				return err
			}
			ct, err := encryptPayload(outer, cipherKey, compressed)
			if err != nil {
				return err
			}
			ciphertext = ct
			return nil
		}},
		{"writeHeader", func() error {
			if err := header.WriteSignature(w, outer.Major); err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			rawHeader, err := header.WriteOuter(w, outer)
			if err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			hmacBaseKey := blockstream.DeriveHMACBaseKey(outer.MasterSeed, transformedKey)
			defer zeroKey(hmacBaseKey)
			if _, err := w.Write(blockstream.HeaderSHA256(rawHeader)); err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			if _, err := w.Write(blockstream.HeaderHMAC(rawHeader, hmacBaseKey)); err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			if err := blockstream.WriteV4Blocks(w, ciphertext, hmacBaseKey, blockSize); err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			return nil
		}},
	}); err != nil {
		return err
	}
	return nil
}

func saveV3(w io.Writer, outer *header.Outer, tree *model.Tree, cipherKey []byte, blockSize int, logger log.Logger) error {
	cipher, err := innerstream.New(dbutils.InnerStreamSalsa20, outer.ProtectedStreamKey)
	if err != nil {
		return err
	}

	var xmlBuf bytes.Buffer
	var ciphertext []byte

	if err := runStages(logger, []stage{
		{"compileXML", func() error {
			_, err := kdbxxml.Encode(&xmlBuf, tree, kdbxxml.Options{Major: 3, Cipher: cipher})
			return err
		}},
		{"compress", func() error {
			compressed, err := blockstream.Compress(xmlBuf.Bytes(), outer.CompressionFlags)
			if err != nil {
				return err
			}
			var framed bytes.Buffer
			if err := blockstream.WriteV3Blocks(&framed, compressed, blockSize); err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			plaintext := append(append([]byte(nil), outer.StreamStartBytes...), framed.Bytes()...)
			ct, err := encryptPayload(outer, cipherKey, plaintext)
			if err != nil {
				return err
			}
			ciphertext = ct
			return nil
		}},
		{"writeHeader", func() error {
			if err := header.WriteSignature(w, outer.Major); err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			if _, err := header.WriteOuter(w, outer); err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			return nil
		}},
		{"commit", func() error {
			if _, err := w.Write(ciphertext); err != nil {
				return kderr.Wrap(kderr.WriteFailed, err)
			}
			return nil
		}},
	}); err != nil {
		return err
	}
	return nil
}

func ivSize(cipherID common.UUID) int {
	if cipherID == dbutils.CipherChaCha20 {
		return 12
	}
	return 16
}

// reseedKDF returns a copy of p with a fresh 32-byte salt/seed,
// preserving every other tuning parameter (rounds, memory,
// parallelism, iterations).
func reseedKDF(p kdfparams.KDFParams) kdfparams.KDFParams {
	p.Salt = cryptoutil.RandomBytes(32)
	return p
}

// SaveFile writes tree to path atomically: a temporary file in the
// same directory is written and fsync'd, then renamed over path, the
// same write-tmp-then-rename idiom the teacher uses for on-disk
// commits.
func SaveFile(ctx context.Context, path string, tree *model.Tree, opts SaveOptions) error {
	dir := filepath.Dir(path)
	tmp, err := ioutil.TempFile(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return kderr.Wrap(kderr.WriteFailed, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := Save(ctx, tmp, tree, opts); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return kderr.Wrap(kderr.WriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return kderr.Wrap(kderr.WriteFailed, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return kderr.Wrap(kderr.WriteFailed, err)
	}
	return nil
}
