package crypto

import (
	"strings"
	"testing"
)

func TestGenerateServerNonce(t *testing.T) {
	a, err := GenerateServerNonce()
	if err != nil {
		t.Fatalf("GenerateServerNonce failed: %v", err)
	}
	b, _ := GenerateServerNonce()

	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
	if a == b {
		t.Error("Expected distinct nonces")
	}
}

func TestDigestHash(t *testing.T) {
	digest := `{"v":1,"actions":[]}`
	hash := DigestHash(digest)

	if !strings.HasPrefix(hash, "0x") || len(hash) != 66 {
		t.Fatalf("Unexpected hash format: %s", hash)
	}
	if !VerifyDigest(digest, hash) {
		t.Error("Expected digest to verify against its own hash")
	}
	if VerifyDigest(digest+" ", hash) {
		t.Error("Expected modified digest to fail verification")
	}

	// Keccak-256 of the empty input
	if got := DigestHash(""); got != "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470" {
		t.Errorf("Unexpected empty-input hash: %s", got)
	}
}
