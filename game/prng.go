package game

import (
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
)

func NewSeededRNG(seed string) *rand.Rand {
	hash := sha256.Sum256([]byte(seed))
	seedInt := int64(binary.BigEndian.Uint64(hash[:8]))
	return rand.New(rand.NewSource(seedInt))
}

// SeededDraws returns a reproducible [0,1) source for an Engine
func SeededDraws(seed string) func() float64 {
	return NewSeededRNG(seed).Float64
}
