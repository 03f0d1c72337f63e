package cryptoutil

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AESCBCEncrypt encrypts plaintext with AES-256-CBC under key/iv, after
// applying PKCS#7 padding. key must be 32 bytes, iv 16 bytes.
func AESCBCEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes-cbc: %w", err)
	}
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

// AESCBCDecrypt decrypts ciphertext with AES-256-CBC under key/iv and
// strips PKCS#7 padding. Returns an error if ciphertext is not a
// multiple of the block size or the padding is malformed.
func AESCBCDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes-cbc: %w", err)
	}
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("aes-cbc: ciphertext length %d not a multiple of block size %d", len(ciphertext), bs)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, bs)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("aes-cbc: empty padded data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("aes-cbc: invalid padding length %d", padLen)
	}
	if !bytes.Equal(data[len(data)-padLen:], bytes.Repeat([]byte{byte(padLen)}, padLen)) {
		return nil, fmt.Errorf("aes-cbc: invalid padding bytes")
	}
	return data[:len(data)-padLen], nil
}

// AESECBEncryptBlock encrypts a single 16-byte block with AES-ECB (no
// padding, no chaining) — the inner primitive AES-KDF repeatedly
// applies rounds times per spec.md §4.1.
func AESECBEncryptBlock(key, block []byte) ([]byte, error) {
	c, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes-ecb: %w", err)
	}
	if len(block) != c.BlockSize() {
		return nil, fmt.Errorf("aes-ecb: block must be %d bytes", c.BlockSize())
	}
	out := make([]byte, len(block))
	c.Encrypt(out, block)
	return out, nil
}
