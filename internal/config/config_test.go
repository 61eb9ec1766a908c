package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	c := Default()
	c.ItemWordInput = "items.txt"
	c.UserWordInput = "users.txt"
	c.TrxInput = "trx.tsv"
	c.Output = "out/model"
	return c
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsUnequalDimsUnlessConcat(t *testing.T) {
	c := validConfig()
	c.Combine = CombineMean
	c.Dim, c.UserDim = 10, 20
	err := c.Validate()
	require.Error(t, err)
}

func TestValidateRequiresOutput(t *testing.T) {
	c := validConfig()
	c.Output = ""
	require.Error(t, c.Validate())
}

func TestValidateRequiresAtLeastOneSource(t *testing.T) {
	c := validConfig()
	c.SkipTrxData = true
	c.SkipViewData = true
	c.SkipSubData = true
	c.SkipSearchData = true
	require.Error(t, c.Validate())
}

func TestValidateRejectsUnknownCombine(t *testing.T) {
	c := validConfig()
	c.Combine = "bogus"
	require.Error(t, c.Validate())
}

func TestDefaultsMatchOriginalTool(t *testing.T) {
	d := Default()
	assert.Equal(t, 100, d.Dim)
	assert.Equal(t, 100, d.UserDim)
	assert.Equal(t, 5, d.WindowSize)
	assert.Equal(t, 5, d.Neg)
	assert.Equal(t, 0.05, d.LR)
	assert.Equal(t, CombineConcat, d.Combine)
	assert.Equal(t, LossNegativeSampling, d.Loss)
}
