package game

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand/v2"
)

// RandomSource draws a uniformly distributed integer from [low, high].
// Implementations may assume low <= high.
type RandomSource interface {
	NextInRange(low, high uint32) uint32
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

// NextInRange implements RandomSource.
func (CryptoSource) NextInRange(low, high uint32) uint32 {
	span := int64(high) - int64(low) + 1
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		// entropy read failed; use the runtime-seeded PRNG
		return low + uint32(mrand.Int64N(span))
	}
	return low + uint32(n.Int64())
}

// FixedSource always yields the same value, clamped into the requested range.
type FixedSource uint32

// NextInRange implements RandomSource.
func (f FixedSource) NextInRange(low, high uint32) uint32 {
	n := uint32(f)
	if n < low {
		return low
	}
	if n > high {
		return high
	}
	return n
}
