package cryptoutil

import "crypto/rand"

// RandomBytes returns n cryptographically random bytes — the seed
// material for MasterSeed, EncryptionIV, KDF salts and the inner
// stream key on Save. crypto/rand is the correct choice here: no
// third-party CSPRNG appears anywhere in the corpus, and stdlib's is
// the OS-backed source every example ultimately defers to anyway.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic("cryptoutil: system CSPRNG unavailable: " + err.Error())
	}
	return b
}
