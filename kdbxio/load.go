package kdbxio

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/ioutil"

	"github.com/ledgerwatch/kdbxcore/blockstream"
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

// Load runs the full read pipeline from spec.md §4.9: signature,
// outer header, composite key derivation, KDF transform, payload
// decryption, block-stream integrity verification, decompression,
// inner header (v4) and XML body, returning the reconstructed Tree.
//
// Every intermediate key buffer is zeroed on every return path,
// including error paths, per spec.md §5.
func Load(ctx context.Context, r io.Reader, inputs CompositeKeyInputs) (*model.Tree, error) {
	logger := log.New("component", "kdbxio", "op", "load")
	br := bufio.NewReader(r)

	var tree *model.Tree
	var outer *header.Outer
	var sig header.Signature

	comps, err := inputs.components()
	if err != nil {
		return nil, err
	}
	defer zeroComponents(&comps)

	stages := []stage{
		{"readSignature", func() error {
			kind, s, err := header.ReadSignature(br)
			if err != nil {
				return err
			}
			if kind == header.FormatKDB {
				return kderr.New(kderr.LegacyUnsupported, "legacy KDB format is not supported, see package kdb")
			}
			sig = s
			return nil
		}},
		{"readOuterHeader", func() error {
			o, err := header.ReadOuter(br, sig.Major)
			if err != nil {
				return err
			}
			outer = o
			return nil
		}},
	}
	if err := runStages(logger, stages); err != nil {
		return nil, err
	}

	compositeKeyBytes := compositekey.Build(comps)
	defer zeroKey(compositeKeyBytes)

	kdfP := outer.KdfParameters
	if sig.Major < 4 {
		kdfP = kdfparams.KDFParams{UUID: dbutils.KDFAES, Rounds: outer.TransformRounds, Salt: outer.TransformSeed}
	}
	transformedKey, err := kdfparams.Transform(ctx, compositeKeyBytes, kdfP)
	if err != nil {
		return nil, err
	}
	defer zeroKey(transformedKey)

	cipherKey := cryptoutil.SHA256(outer.MasterSeed, transformedKey)
	defer zeroKey(cipherKey)

	if sig.Major >= 4 {
		tree, err = loadV4(br, outer, transformedKey, cipherKey, logger)
	} else {
		tree, err = loadV3(br, outer, cipherKey, logger)
	}
	if err != nil {
		return nil, err
	}
	tree.Meta.CipherUUID = outer.CipherID
	tree.Meta.CompressionFlags = outer.CompressionFlags
	if sig.Major >= 4 {
		tree.Meta.KDFParams = outer.KdfParameters
		tree.Meta.CustomPublicData = outer.PublicCustomData
	}
	return tree, nil
}

func loadV4(br *bufio.Reader, outer *header.Outer, transformedKey, cipherKey []byte, logger log.Logger) (*model.Tree, error) {
	hmacBaseKey := blockstream.DeriveHMACBaseKey(outer.MasterSeed, transformedKey)
	defer zeroKey(hmacBaseKey)

	var tree *model.Tree
	var plain []byte

	stages := []stage{
		{"verifyHeaderIntegrity", func() error {
			var gotHash, gotHMAC [32]byte
			if _, err := io.ReadFull(br, gotHash[:]); err != nil {
				return kderr.Wrap(kderr.HeaderCorrupted, err)
			}
			if _, err := io.ReadFull(br, gotHMAC[:]); err != nil {
				return kderr.Wrap(kderr.HeaderCorrupted, err)
			}
			if err := blockstream.VerifyHeaderHash(outer.RawBytes, gotHash[:]); err != nil {
				logger.Warn("header hash check failed")
				return err
			}
			if err := blockstream.VerifyHeaderHMAC(outer.RawBytes, gotHMAC[:], hmacBaseKey); err != nil {
				logger.Warn("header HMAC check failed, wrong password or key file")
				return err
			}
			return nil
		}},
		{"readBlocks", func() error {
			ciphertext, err := blockstream.ReadV4Blocks(br, hmacBaseKey)
			if err != nil {
				logger.Warn("block HMAC verification failed")
				return err
			}
			p, err := decryptPayload(outer, cipherKey, ciphertext)
			if err != nil {
				return err
			}
			p, err = blockstream.Decompress(p, outer.CompressionFlags)
			if err != nil {
				return err
			}
			plain = p
			return nil
		}},
	}
	if err := runStages(logger, stages); err != nil {
		return nil, err
	}

	pr := bytes.NewReader(plain)
	inner, err := header.ReadInner(pr)
	if err != nil {
		return nil, err
	}
	xmlBytes, err := ioutil.ReadAll(pr)
	if err != nil {
		return nil, kderr.Wrap(kderr.XMLParseFailed, err)
	}
	cipher, err := innerstream.New(inner.RandomStreamID, inner.RandomStreamKey)
	if err != nil {
		return nil, err
	}
	pool := make([]*model.Binary, len(inner.Binaries))
	for i, b := range inner.Binaries {
		pool[i] = model.NewBinary(b.Data)
	}
	tree, err = kdbxxml.Decode(bytes.NewReader(xmlBytes), kdbxxml.Options{Major: 4, Cipher: cipher}, pool)
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func loadV3(br *bufio.Reader, outer *header.Outer, cipherKey []byte, logger log.Logger) (*model.Tree, error) {
	var tree *model.Tree

	ciphertext, err := ioutil.ReadAll(br)
	if err != nil {
		return nil, kderr.Wrap(kderr.HeaderCorrupted, err)
	}
	plain, err := decryptPayload(outer, cipherKey, ciphertext)
	if err != nil {
		return nil, err
	}
	rest, err := blockstream.VerifyStreamStartBytes(plain, outer.StreamStartBytes)
	if err != nil {
		logger.Warn("stream start bytes mismatch")
		return nil, err
	}
	payload, err := blockstream.ReadV3Blocks(bytes.NewReader(rest))
	if err != nil {
		logger.Warn("v3 block checksum failed")
		return nil, err
	}
	decompressed, err := blockstream.Decompress(payload, outer.CompressionFlags)
	if err != nil {
		return nil, err
	}
	cipher, err := innerstream.New(outer.InnerRandomStream, outer.ProtectedStreamKey)
	if err != nil {
		return nil, err
	}
	tree, err = kdbxxml.Decode(bytes.NewReader(decompressed), kdbxxml.Options{Major: 3, Cipher: cipher}, nil)
	if err != nil {
		return nil, err
	}
	return tree, nil
}
