package crypto

import (
	"crypto/sha256"
)

// SHA256 returns the SHA256 hash of the data. Transaction hashes and wallet
// addresses are both derived from it.
func SHA256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
