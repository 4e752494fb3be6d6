package crypto

import (
	"crypto/rand"
	"encoding/hex"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// GenerateServerNonce returns 32 random bytes, hex encoded
func GenerateServerNonce() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// DigestHash fingerprints a run digest with Keccak-256
func DigestHash(digest string) string {
	return ethcrypto.Keccak256Hash([]byte(digest)).Hex()
}

// VerifyDigest reports whether digest matches a stored fingerprint
func VerifyDigest(digest, hash string) bool {
	return DigestHash(digest) == hash
}
