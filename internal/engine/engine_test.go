package engine

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/config"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()

	itemWord := writeFile(t, dir, "item_word.txt",
		"0 10 11\n1 12 13\n2 10 14\n3 11 15\n")
	userWord := writeFile(t, dir, "user_word.txt",
		"0 20 21\n1 22 23\n2 20 24\n")
	trx := writeFile(t, dir, "trx.tsv",
		"0\t1,2,3,4\t0,1,2,3\n1\t1,2,3,4,5\t1,2,0,3,0\n2\t1,2,3\t2,3,1\n")

	cfg := config.Default()
	cfg.ItemWordInput = itemWord
	cfg.UserWordInput = userWord
	cfg.TrxInput = trx
	cfg.Output = filepath.Join(dir, "out")
	cfg.Dim = 6
	cfg.UserDim = 6
	cfg.Neg = 2
	cfg.Epoch = 1
	cfg.Thread = 2
	cfg.LRUpdateRate = 2
	cfg.Verbose = 0

	e, err := Open(cfg, logging.New(io.Discard, io.Discard, 0))
	require.NoError(t, err)
	return e
}

func TestOpenSizesStoreFromStreams(t *testing.T) {
	e := testEngine(t)
	assert.Greater(t, e.Store.II.Rows(), 0)
	assert.Greater(t, e.Store.UI.Rows(), 0)
	assert.Equal(t, e.Cfg.Dim, e.Store.II.Cols())
}

func TestTrainRunsToCompletionNoNaN(t *testing.T) {
	e := testEngine(t)
	require.NoError(t, e.Train(context.Background()))

	for _, m := range []interface{ Data() []float32 }{e.Store.UI, e.Store.II, e.Store.IO, e.Store.WO} {
		for _, v := range m.Data() {
			assert.False(t, v != v, "NaN leaked into a parameter matrix after training")
		}
	}
}

func TestSaveLoadModelRoundTrip(t *testing.T) {
	e := testEngine(t)
	require.NoError(t, e.Train(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, e.SaveModel(&buf))

	e2 := testEngine(t)
	require.NoError(t, e2.LoadModel(&buf))

	assert.Equal(t, e.Store.II.Data(), e2.Store.II.Data())
	assert.Equal(t, e.Store.WO.Data(), e2.Store.WO.Data())
}

func TestExportVectorsWritesAllSevenFiles(t *testing.T) {
	e := testEngine(t)
	prefix := e.Cfg.Output
	require.NoError(t, e.ExportVectors(prefix))

	for _, suffix := range []string{
		"_userInput", "_userWordOutput", "_userViewInput",
		"_itemInput", "_wordOutput", "_itemOutput", "_itemViewOutput",
	} {
		_, err := os.Stat(prefix + suffix + ".npy")
		assert.NoError(t, err, "missing export for %s", suffix)
	}
}
