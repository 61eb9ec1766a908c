// Package base holds small numeric helpers shared across the training
// engine — a seeded per-thread random generator and the handful of
// elementwise vector helpers the kernels lean on, mirroring the role gorse's
// own "base" package plays for its matrix-factorization models (MulConst,
// FillZeroVector, Perm, ...).
package base

import "math/rand"

// RandomGenerator wraps a seeded source so each worker thread owns an
// independent, reproducible stream (seed == threadId, per SPEC_FULL.md §5).
type RandomGenerator struct {
	r *rand.Rand
}

// NewRandomGenerator seeds a generator deterministically.
func NewRandomGenerator(seed int64) *RandomGenerator {
	return &RandomGenerator{r: rand.New(rand.NewSource(seed))}
}

// Rand exposes the underlying *rand.Rand for callers that need it directly
// (e.g. tensor.Matrix.UniformFill).
func (g *RandomGenerator) Rand() *rand.Rand { return g.r }

// Intn returns a pseudo-random int in [0, n).
func (g *RandomGenerator) Intn(n int) int { return g.r.Intn(n) }

// Perm returns a pseudo-random permutation of [0, n).
func (g *RandomGenerator) Perm(n int) []int { return g.r.Perm(n) }

// ShuffleInts shuffles s in place using Fisher-Yates.
func (g *RandomGenerator) ShuffleInts(s []int32) {
	g.r.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// MulConst scales a vector in place by c.
func MulConst(c float32, v []float32) {
	for i := range v {
		v[i] *= c
	}
}

// ZeroVector zeros a vector in place.
func ZeroVector(v []float32) {
	for i := range v {
		v[i] = 0
	}
}

// AddVector performs dst += src elementwise, in place.
func AddVector(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}
