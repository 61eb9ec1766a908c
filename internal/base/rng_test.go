package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomGeneratorDeterministic(t *testing.T) {
	g1 := NewRandomGenerator(7)
	g2 := NewRandomGenerator(7)
	assert.Equal(t, g1.Perm(10), g2.Perm(10))
}

func TestMulConst(t *testing.T) {
	v := []float32{1, 2, 3}
	MulConst(2, v)
	assert.Equal(t, []float32{2, 4, 6}, v)
}

func TestAddVector(t *testing.T) {
	dst := []float32{1, 1, 1}
	AddVector(dst, []float32{1, 2, 3})
	assert.Equal(t, []float32{2, 3, 4}, dst)
}

func TestZeroVector(t *testing.T) {
	v := []float32{1, 2, 3}
	ZeroVector(v)
	assert.Equal(t, []float32{0, 0, 0}, v)
}

func TestShuffleIntsPermutes(t *testing.T) {
	g := NewRandomGenerator(3)
	s := []int32{0, 1, 2, 3, 4, 5, 6, 7}
	orig := append([]int32(nil), s...)
	g.ShuffleInts(s)
	assert.ElementsMatch(t, orig, s)
}
