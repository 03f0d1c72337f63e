package kdbxio

import (
	"github.com/ledgerwatch/kdbxcore/common/dbutils"
	"github.com/ledgerwatch/kdbxcore/compositekey"
	"github.com/ledgerwatch/kdbxcore/cryptoutil"
	"github.com/ledgerwatch/kdbxcore/header"
	"github.com/ledgerwatch/kdbxcore/kderr"
)

// zeroKey wipes a derived key buffer in place once it's no longer
// needed, the same way compositekey.Components.Zero protects its
// fields.
func zeroKey(b []byte) {
	cryptoutil.Zero(b)
}

// zeroComponents wipes every field of a Components value.
func zeroComponents(c *compositekey.Components) {
	c.Zero()
}

// decryptPayload applies the header-selected cipher to ciphertext,
// mapping any failure (bad key, corrupt padding) to AuthFailure: a
// wrong password and a corrupt file are indistinguishable at this
// layer, and spec.md §7 asks that they stay that way to callers.
func decryptPayload(outer *header.Outer, cipherKey, ciphertext []byte) ([]byte, error) {
	switch outer.CipherID {
	case dbutils.CipherAES256:
		plain, err := cryptoutil.AESCBCDecrypt(cipherKey, outer.EncryptionIV, ciphertext)
		if err != nil {
			return nil, kderr.Wrap(kderr.AuthFailure, err)
		}
		return plain, nil
	case dbutils.CipherChaCha20:
		out := make([]byte, len(ciphertext))
		if err := cryptoutil.ChaCha20XOR(cipherKey, outer.EncryptionIV, out, ciphertext); err != nil {
			return nil, kderr.Wrap(kderr.AuthFailure, err)
		}
		return out, nil
	default:
		return nil, kderr.New(kderr.UnsupportedCipher, outer.CipherID.Base64())
	}
}

// encryptPayload is decryptPayload's inverse, used by Save.
func encryptPayload(outer *header.Outer, cipherKey, plaintext []byte) ([]byte, error) {
	switch outer.CipherID {
	case dbutils.CipherAES256:
		return cryptoutil.AESCBCEncrypt(cipherKey, outer.EncryptionIV, plaintext)
	case dbutils.CipherChaCha20:
		out := make([]byte, len(plaintext))
		if err := cryptoutil.ChaCha20XOR(cipherKey, outer.EncryptionIV, out, plaintext); err != nil {
			return nil, kderr.Wrap(kderr.WriteFailed, err)
		}
		return out, nil
	default:
		return nil, kderr.New(kderr.UnsupportedCipher, outer.CipherID.Base64())
	}
}
