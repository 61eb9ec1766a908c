package tensor

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/errs"
)

func TestUniformFillDeterministic(t *testing.T) {
	m1 := New(4, 3)
	m1.UniformFill(1.0, rand.New(rand.NewSource(42)))

	m2 := New(4, 3)
	m2.UniformFill(1.0, rand.New(rand.NewSource(42)))

	assert.Equal(t, m1.Data(), m2.Data())
	for _, v := range m1.Data() {
		assert.GreaterOrEqual(t, v, float32(-1.0))
		assert.LessOrEqual(t, v, float32(1.0))
	}
}

func TestDotRowShapeMismatch(t *testing.T) {
	m := New(2, 3)
	_, err := m.DotRow([]float32{1, 2}, 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InputShape))
}

func TestDotRowNaN(t *testing.T) {
	m := New(1, 2)
	m.Set(0, 0, float32(math.NaN()))
	m.Set(0, 1, 1)
	_, err := m.DotRow([]float32{1, 1}, 0)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Numerical))
}

func TestAddRowAccumulates(t *testing.T) {
	m := New(2, 2)
	require.NoError(t, m.AddRow([]float32{1, 2}, 0, 0.5))
	assert.Equal(t, []float32{0.5, 1}, m.Row(0))
}

func TestMatSelectDot(t *testing.T) {
	a := New(2, 2)
	a.Set(0, 0, 1)
	a.Set(0, 1, 2)
	b := New(2, 2)
	b.Set(1, 0, 3)
	b.Set(1, 1, 4)
	dot, err := MatSelectDot(a, b, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, float32(1*3+2*4), dot)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	m := New(3, 2)
	m.UniformFill(1.0, rand.New(rand.NewSource(7)))

	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Rows(), loaded.Rows())
	assert.Equal(t, m.Cols(), loaded.Cols())
	assert.Equal(t, m.Data(), loaded.Data())
}

func TestDumpWritesHeaderAndRows(t *testing.T) {
	m := New(2, 2)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(1, 0, 3)
	m.Set(1, 1, 4)

	var buf bytes.Buffer
	require.NoError(t, m.Dump(&buf))
	assert.Contains(t, buf.String(), "2 2\n")
}
