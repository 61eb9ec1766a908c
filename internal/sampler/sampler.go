// Package sampler implements the frequency-weighted negative-sampling table:
// given a target vocabulary's observation counts, build a flat table sized
// proportionally to sqrt(count), shuffle it once, and hand out a shared,
// lock-free cursor that every worker thread advances independently. Each
// training task (trx, view, sub, search, item-word, user-word) owns its own
// Sampler over its own target distribution.
package sampler

import (
	"math"
	"math/rand"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// TableSize is the flat negative-sampling table size used by every task,
// matching the original's NEGATIVE_TABLE_SIZE.
const TableSize = 50_000_000

// Sampler draws negatives from a frequency-weighted table, rejecting the
// positive target by scanning forward (wrapping at the end of the table).
// A single Sampler is built once per task and shared read-only across all
// worker threads via an atomic cursor — table contents never change after
// Build.
type Sampler struct {
	table  []int32
	cursor atomic.Uint64
}

// Build constructs the table from a Laplace-smoothed count vector (entries
// must all be >= 1). The table is capped at TableSize total slots; rounding
// down per-index means the realized table can be slightly smaller.
func Build(counts []int64, seed int64) *Sampler {
	sqrts := make([]float64, len(counts))
	for i, c := range counts {
		sqrts[i] = math.Sqrt(float64(c))
	}
	z := floats.Sum(sqrts)

	table := make([]int32, 0, TableSize)
	for i, s := range sqrts {
		n := int(s * float64(TableSize) / z)
		for j := 0; j < n; j++ {
			table = append(table, int32(i))
		}
	}
	if len(table) == 0 {
		// Empty count vector: keep one slot so Next always has an entry to
		// read. Next still never returns if every slot equals positive.
		table = append(table, 0)
	}

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(table), func(i, j int) { table[i], table[j] = table[j], table[i] })

	return &Sampler{table: table}
}

// Next returns the next table entry that is not equal to positive, advancing
// the shared cursor atomically so concurrent callers never collide on the
// same slot.
func (s *Sampler) Next(positive int32) int32 {
	for {
		idx := s.cursor.Add(1) - 1
		neg := s.table[idx%uint64(len(s.table))]
		if neg != positive {
			return neg
		}
	}
}

// Len reports the realized table length, mostly for tests.
func (s *Sampler) Len() int { return len(s.table) }
