package cryptoutil

import (
	"fmt"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/salsa20/salsa"
)

// salsa20FixedIV is the fixed 8-byte nonce KeePass uses for the v3
// inner-stream Salsa20 cipher (spec.md §4.1).
var salsa20FixedIV = [8]byte{0xE8, 0x30, 0x09, 0x4B, 0x97, 0x20, 0x5D, 0x2A}

// Salsa20XOR XORs src with a Salsa20 keystream under the fixed KeePass
// IV, producing dst. key must be 32 bytes.
func Salsa20XOR(key []byte, counter uint64, dst, src []byte) error {
	if len(key) != 32 {
		return fmt.Errorf("salsa20: key must be 32 bytes, got %d", len(key))
	}
	var k [32]byte
	copy(k[:], key)
	salsa.XORKeyStream(dst, src, &salsa20FixedIV, &k)
	_ = counter // salsa20/salsa has no separate counter input beyond the 8-byte nonce
	return nil
}

// ChaCha20XOR XORs src with a ChaCha20 keystream under key/nonce,
// producing dst. key must be 32 bytes; nonce 12 bytes (KDBX4 AES/XML
// inner-stream usage) or 8 bytes per RFC7539's legacy form.
func ChaCha20XOR(key, nonce []byte, dst, src []byte) error {
	if len(nonce) == 8 {
		// The legacy layout is a 64-bit block counter then a 64-bit
		// nonce; with the counter starting at zero that is the 12-byte
		// form with four leading zero bytes.
		nonce = append(make([]byte, 4), nonce...)
	}
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return fmt.Errorf("chacha20: %w", err)
	}
	c.XORKeyStream(dst, src)
	return nil
}

// ChaCha20Cipher is a resumable ChaCha20 keystream used by the KDBX4
// ciphertext encryption path (as opposed to the one-shot inner-stream
// use above), since the orchestrator streams the payload in blocks.
type ChaCha20Cipher struct {
	c *chacha20.Cipher
}

func NewChaCha20Cipher(key, nonce []byte) (*ChaCha20Cipher, error) {
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, fmt.Errorf("chacha20: %w", err)
	}
	return &ChaCha20Cipher{c: c}, nil
}

func (c *ChaCha20Cipher) XORKeyStream(dst, src []byte) {
	c.c.XORKeyStream(dst, src)
}
