// Package entropy provides the random sources the simulation draws from.
// Seeded sources make runs reproducible; Crypto is for unseeded runs.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

// Source yields uniform floats in [0, 1) and uniform integers over a closed range.
type Source interface {
	Float() float64
	// IntRange returns an integer in [lo, hi], both ends inclusive.
	IntRange(lo, hi int) int
}

// Seeded is a deterministic Source backed by math/rand.
type Seeded struct {
	rng *mrand.Rand
}

// NewSeeded creates a Source that replays the same sequence for the same seed.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: mrand.New(mrand.NewSource(seed))}
}

// Float returns a random float64 in [0, 1).
func (s *Seeded) Float() float64 {
	return s.rng.Float64()
}

// IntRange returns a random int in [lo, hi]. Swapped bounds are tolerated.
func (s *Seeded) IntRange(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// Crypto draws from crypto/rand. Not reproducible; safe for concurrent use.
type Crypto struct {
	mu sync.Mutex
}

// Float returns a random float64 in [0, 1) using 53 random bits.
func (c *Crypto) Float() float64 {
	return float64(c.uint64()>>11) / float64(1<<53)
}

// IntRange returns a random int in [lo, hi].
func (c *Crypto) IntRange(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	span := uint64(hi-lo) + 1
	// Rejection sampling keeps the draw uniform.
	limit := ^uint64(0) - (^uint64(0) % span)
	for {
		n := c.uint64()
		if n < limit {
			return lo + int(n%span)
		}
	}
}

func (c *Crypto) uint64() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic("entropy: crypto/rand unavailable: " + err.Error())
	}
	return binary.LittleEndian.Uint64(buf[:])
}

// Pick returns a uniformly random index in [0, n). n must be positive.
func Pick(src Source, n int) int {
	return src.IntRange(0, n-1)
}

// Chance reports whether a uniform draw falls below p.
func Chance(src Source, p float64) bool {
	return src.Float() < p
}
