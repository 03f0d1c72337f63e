package cryptoutil

import (
	"context"
	"crypto/aes"
	"fmt"
)

// AESKDFRoundCheckpoint is how often AES-KDF checks its cancellation
// token, per spec.md §5 ("AES-KDF: every 1024 rounds").
const AESKDFRoundCheckpoint = 1024

// AESKDF applies repeated single-block AES-ECB encryption to the
// 32-byte composite key, `rounds` times, keyed by seed, then hashes
// the result with SHA-256 (spec.md §4.1). ctx is checked for
// cancellation every AESKDFRoundCheckpoint rounds.
func AESKDF(ctx context.Context, compositeKey, seed []byte, rounds uint64) ([]byte, error) {
	if len(compositeKey) != 32 {
		return nil, fmt.Errorf("aes-kdf: composite key must be 32 bytes")
	}
	block, err := aes.NewCipher(seed)
	if err != nil {
		return nil, fmt.Errorf("aes-kdf: %w", err)
	}
	left := append([]byte(nil), compositeKey[:16]...)
	right := append([]byte(nil), compositeKey[16:]...)

	for i := uint64(0); i < rounds; i++ {
		if i%AESKDFRoundCheckpoint == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		block.Encrypt(left, left)
		block.Encrypt(right, right)
	}
	transformed := append(left, right...)
	return SHA256(transformed), nil
}
