package tables

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSigmoidClampsOutsideRange(t *testing.T) {
	tb := New()
	assert.Equal(t, float32(0), tb.Sigmoid(-100))
	assert.Equal(t, float32(1), tb.Sigmoid(100))
}

func TestSigmoidMonotonic(t *testing.T) {
	tb := New()
	prev := tb.Sigmoid(-8)
	for x := float32(-7.9); x <= 8; x += 0.2 {
		cur := tb.Sigmoid(x)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestSigmoidApproximatesExact(t *testing.T) {
	tb := New()
	for _, x := range []float32{-5, -1, 0, 1, 5} {
		want := 1.0 / (1.0 + math.Exp(-float64(x)))
		got := tb.Sigmoid(x)
		assert.InDelta(t, want, float64(got), 0.05)
	}
}

func TestLogClampsAboveOne(t *testing.T) {
	tb := New()
	assert.Equal(t, float32(0), tb.Log(1.5))
}

func TestLogApproximatesExact(t *testing.T) {
	tb := New()
	for _, x := range []float32{0.1, 0.5, 0.9, 1.0} {
		want := math.Log(float64(x))
		got := tb.Log(x)
		assert.InDelta(t, want, float64(got), 0.05)
	}
}

func TestStdLogUnquantized(t *testing.T) {
	assert.InDelta(t, math.Log(0.5+1e-5), float64(StdLog(0.5)), 1e-6)
}
