package keys

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
)

// AddressLength is the number of bytes in a wallet address. The string form
// is 0x followed by 40 hex characters.
const AddressLength = 20

// Address derives the pseudonymous wallet address from a public key: the
// last 20 bytes of the SHA256 hash of the uncompressed public key, with the
// 0x prefix. The derivation mimics how Ethereum addresses look without
// claiming to be one.
func Address(pub *ecdsa.PublicKey) string {
	sum := sha256.Sum256(FromPublicKey(pub))
	return fmt.Sprintf("0x%x", sum[len(sum)-AddressLength:])
}

// GenerateAddress creates a fresh key-pair and returns the derived wallet
// address. The private key is discarded; a session address carries no signing
// capability.
func GenerateAddress() (string, error) {
	key, err := GenerateECDSAKey()
	if err != nil {
		return "", err
	}
	return Address(&key.PublicKey), nil
}
