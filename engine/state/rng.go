package state

import "math/rand"

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every call and every call consumes exactly one
// value from the source, enabling save/restore.
type RNG struct {
	seed int64
	src  *rand.Rand
	pos  int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Intn returns a random integer in [0, n). n must be positive.
func (r *RNG) Intn(n int) int {
	r.pos++
	return int(r.src.Int63() % int64(n))
}

// Chance returns true with probability p.
func (r *RNG) Chance(p float64) bool {
	r.pos++
	return float64(r.src.Int63())/(1<<63) < p
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of RNG calls made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}

// RestoreRNG creates an RNG and advances it to the given position by
// replaying one draw per recorded call.
func RestoreRNG(seed int64, position int64) *RNG {
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Int63()
	}
	rng.pos = position
	return rng
}
