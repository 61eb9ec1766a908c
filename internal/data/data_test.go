package data

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/errs"
)

func TestLoadContextGapDetection(t *testing.T) {
	_, err := LoadContext(strings.NewReader("0 1 2\n2 3 4\n"), true)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InputShape))
}

func TestLoadContextNoGapOK(t *testing.T) {
	cm, err := LoadContext(strings.NewReader("0 1 2\n1 3 4\n"), true)
	require.NoError(t, err)
	assert.Len(t, cm, 2)
}

func TestWordCountLaplaceSmoothed(t *testing.T) {
	cm, err := LoadContext(strings.NewReader("0 5 5 6\n"), false)
	require.NoError(t, err)
	counts, err := WordCount(cm)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[5]) // 1 + 2 occurrences
	assert.Equal(t, int64(2), counts[6])
}

func TestLoadOrderedBasketSortsByTimestamp(t *testing.T) {
	baskets, skipped, err := LoadOrderedBasket(strings.NewReader("7\t30,10,20\t100,200,300\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, baskets, 1)
	assert.Equal(t, Basket{7, 200, 300, 100}, baskets[0])
}

func TestLoadOrderedBasketSkipsShort(t *testing.T) {
	baskets, skipped, err := LoadOrderedBasket(strings.NewReader("1\t10\t100\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Empty(t, baskets)
}

func TestLoadOrderedBasketRejectsColumnMismatch(t *testing.T) {
	_, _, err := LoadOrderedBasket(strings.NewReader("1\t10,20\t100\n"))
	require.Error(t, err)
}

func TestLoadTSVMinLen(t *testing.T) {
	_, err := LoadTSV(strings.NewReader("1\t2\n"), 3)
	require.Error(t, err)

	rows, err := LoadTSV(strings.NewReader("1\t2\t3\n"), 3)
	require.NoError(t, err)
	assert.Equal(t, TSVRow{1, 2, 3}, rows[0])
}

func TestExpandWindowedLaw(t *testing.T) {
	basket := Basket{9, 100, 101, 102, 103}
	recs := ExpandWindowed(basket, 2, nil)
	require.Len(t, recs, 3)

	// i=1 (item 101): ws=2 -> k=max(0,-1)=0 -> ctx=[100]
	assert.Equal(t, []int32{101, 9, 100}, recs[0])
	// i=2 (item 102): k=0 -> ctx=[100,101]
	assert.Equal(t, []int32{102, 9, 100, 101}, recs[1])
	// i=3 (item 103): k=1 -> ctx=[101,102]
	assert.Equal(t, []int32{103, 9, 101, 102}, recs[2])
}

func TestExpandWindowedTooShort(t *testing.T) {
	assert.Nil(t, ExpandWindowed(Basket{1, 2}, 2, nil))
}
