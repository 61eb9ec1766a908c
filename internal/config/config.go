// Package config defines the training engine's configuration surface and
// its defaults, mirroring the flag set of the original command-line tool
// one for one. A Config is built by the CLI layer (internal/cli) from
// pflag values and validated once before training starts.
package config

import (
	"fmt"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/errs"
)

// Combine selects how the user-item kernels fuse user and item context.
type Combine string

const (
	CombineConcat  Combine = "concat"
	CombineMean    Combine = "mean"
	CombineMeanSum Combine = "meanSum"
)

// Loss selects the output-layer scoring function. Only NegativeSampling is
// exercised by the default training path; the others are preserved as
// inert selections (hierarchical softmax's tree-build and the softmax/OVA
// output layers are unreachable without additional wiring not in scope
// here).
type Loss string

const (
	LossNegativeSampling Loss = "ns"
	LossHierarchical     Loss = "hs"
	LossSoftmax          Loss = "softmax"
	LossOneVsAll         Loss = "ova"
)

// Config is the full set of training hyperparameters and input paths.
type Config struct {
	// Inputs
	ItemWordInput string
	UserWordInput string
	TrxInput      string
	ViewInput     string
	SubInput      string
	SearchInput   string
	Output        string

	// Model shape
	Dim       int
	UserDim   int
	WindowSize int
	Neg       int
	Epoch     int
	LR        float64
	LRUpdateRate int
	Thread    int
	Seed      int64
	Combine   Combine
	Loss      Loss

	// Feature gates
	SkipUserContext bool
	SkipTrxData     bool
	SkipViewData    bool
	SkipSubData     bool
	SkipSearchData  bool
	SkipContext     bool
	ShuffleContext  bool
	CheckItemWordGap bool

	// Logging
	Verbose int
}

// Default returns the configuration with every field at the value the
// original tool defaults to.
func Default() Config {
	return Config{
		Dim:              100,
		UserDim:          100,
		WindowSize:       5,
		Neg:              5,
		Epoch:            5,
		LR:               0.05,
		LRUpdateRate:     100,
		Thread:           12,
		Seed:             1,
		Combine:          CombineConcat,
		Loss:             LossNegativeSampling,
		SkipUserContext:  false,
		SkipTrxData:      false,
		SkipViewData:     true,
		SkipSubData:      true,
		SkipSearchData:   true,
		SkipContext:      false,
		ShuffleContext:   false,
		CheckItemWordGap: true,
		Verbose:          2,
	}
}

// Validate checks the invariants the store and kernels rely on: non-concat
// combine methods require equal embedding widths, every gated input that
// isn't skipped must have a path, and at least one of the trx/view/sub/search
// sources must be enabled, since expectTokens is derived from the first
// enabled one in that priority order.
func (c Config) Validate() error {
	if c.Combine != CombineConcat && c.Dim != c.UserDim {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("combine %q requires dim == userDim (got %d, %d)", c.Combine, c.Dim, c.UserDim))
	}
	switch c.Combine {
	case CombineConcat, CombineMean, CombineMeanSum:
	default:
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("unknown combine method %q", c.Combine))
	}
	switch c.Loss {
	case LossNegativeSampling, LossHierarchical, LossSoftmax, LossOneVsAll:
	default:
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("unknown loss %q", c.Loss))
	}
	if c.ItemWordInput == "" {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("itemWordInput is required"))
	}
	if !c.SkipUserContext && c.UserWordInput == "" {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("userWordInput is required unless skipUserContext is set"))
	}
	if !c.SkipTrxData && c.TrxInput == "" {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("trxInput is required unless skipTrxData is set"))
	}
	if !c.SkipViewData && c.ViewInput == "" {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("viewInput is required unless skipViewData is set"))
	}
	if !c.SkipSubData && c.SubInput == "" {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("subInput is required unless skipSubData is set"))
	}
	if !c.SkipSearchData && c.SearchInput == "" {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("searchInput is required unless skipSearchData is set"))
	}
	if c.SkipTrxData && c.SkipViewData && c.SkipSubData && c.SkipSearchData {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("at least one of trx/view/sub/search data must be enabled"))
	}
	if c.Output == "" {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("output is required"))
	}
	if c.Thread < 1 {
		return errs.New(errs.Config, "config.Validate", fmt.Errorf("thread must be >= 1"))
	}
	return nil
}
