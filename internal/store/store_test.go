package store

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCard() Cardinalities {
	return Cardinalities{Users: 5, Items: 8, Words: 4, UserWords: 3}
}

func TestNewShapesConcat(t *testing.T) {
	s := New(testCard(), Dims{Dim: 10, UserDim: 6, Combine: CombineConcat})
	assert.Equal(t, 5, s.UI.Rows())
	assert.Equal(t, 6, s.UI.Cols())
	assert.Equal(t, 8, s.II.Rows())
	assert.Equal(t, 10, s.II.Cols())
	assert.Equal(t, 16, s.IO.Cols()) // dim+userDim under concat
	assert.Equal(t, 4, s.WO.Rows())
	assert.Equal(t, 3, s.UWO.Rows())
}

func TestNewShapesMean(t *testing.T) {
	s := New(testCard(), Dims{Dim: 10, UserDim: 10, Combine: CombineMean})
	assert.Equal(t, 10, s.IO.Cols())
}

func TestInitUniformDeterministic(t *testing.T) {
	s1 := New(testCard(), Dims{Dim: 4, UserDim: 4, Combine: CombineMean})
	s1.InitUniform(99)
	s2 := New(testCard(), Dims{Dim: 4, UserDim: 4, Combine: CombineMean})
	s2.InitUniform(99)
	assert.Equal(t, s1.UI.Data(), s2.UI.Data())
	assert.Equal(t, s1.II.Data(), s2.II.Data())
}

func TestSaveLoadMatricesRoundTrip(t *testing.T) {
	s := New(testCard(), Dims{Dim: 4, UserDim: 4, Combine: CombineMean})
	s.InitUniform(1)

	var buf bytes.Buffer
	require.NoError(t, SaveHeader(&buf))
	require.NoError(t, s.SaveMatrices(&buf))

	require.NoError(t, CheckHeader(&buf))
	loaded, err := LoadMatrices(&buf)
	require.NoError(t, err)

	assert.Equal(t, s.UI.Data(), loaded.UI.Data())
	assert.Equal(t, s.II.Data(), loaded.II.Data())
	assert.Equal(t, s.WO.Data(), loaded.WO.Data())
	assert.Equal(t, s.IO.Data(), loaded.IO.Data())
	assert.Equal(t, s.UWO.Data(), loaded.UWO.Data())
	// View heads are never persisted.
	assert.Equal(t, loaded.UI.Rows(), loaded.UIv.Rows())
	assert.Equal(t, loaded.IO.Cols(), loaded.IOv.Cols())
}

func TestCheckHeaderRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0, 0, 0, 12, 0, 0, 0})
	err := CheckHeader(&buf)
	require.Error(t, err)
}
