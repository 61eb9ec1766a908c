// Package engine is the top-level façade: it loads input streams, sizes and
// initializes the parameter store, wires the per-task kernels to the right
// matrices, and drives the worker pool through one full training run. It
// also owns model (de)serialization and vector export.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/base"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/config"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/data"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/errs"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/kernel"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/logging"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/npy"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/sampler"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/schedule"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/store"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/tables"
)

// Streams holds every parsed input source.
type Streams struct {
	ItemWord data.ContextMap
	UserWord data.ContextMap
	Trx      []data.Basket
	View     []data.Basket
	Sub      []data.TSVRow
	Search   []data.TSVRow
}

// Engine owns the parameter store, loaded streams, samplers, and the
// shared lookup tables for one training run.
type Engine struct {
	Cfg     config.Config
	Store   *store.ParameterStore
	Tables  *tables.Tables
	Streams Streams

	trxItemSampler    *sampler.Sampler // item target distribution over transaction baskets
	viewItemSampler   *sampler.Sampler // item target distribution over view baskets
	subItemSampler    *sampler.Sampler // item target distribution over subscription targets
	wordSampler       *sampler.Sampler // item-word vocabulary (WO)
	searchWordSampler *sampler.Sampler // search-query word vocabulary (WO)
	userWordSampler   *sampler.Sampler // user-word vocabulary (UWO)

	logs logging.Loggers
}

// Open loads every configured input, builds cardinalities and samplers, and
// allocates+initializes the parameter store. It does not start training.
func Open(cfg config.Config, logs logging.Loggers) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	itemWordFile, err := os.Open(cfg.ItemWordInput)
	if err != nil {
		return nil, errs.New(errs.IO, "engine.Open", err)
	}
	defer itemWordFile.Close()
	itemWord, err := data.LoadContext(itemWordFile, cfg.CheckItemWordGap)
	if err != nil {
		return nil, err
	}
	wordCount, err := data.WordCount(itemWord)
	if err != nil {
		return nil, err
	}

	var userWord data.ContextMap
	var userWordCount []int64
	if !cfg.SkipUserContext {
		f, err := os.Open(cfg.UserWordInput)
		if err != nil {
			return nil, errs.New(errs.IO, "engine.Open", err)
		}
		userWord, err = data.LoadContext(f, false)
		f.Close()
		if err != nil {
			return nil, err
		}
		userWordCount, err = data.WordCount(userWord)
		if err != nil {
			return nil, err
		}
	}

	streams := Streams{ItemWord: itemWord, UserWord: userWord}

	if !cfg.SkipTrxData {
		streams.Trx, err = loadBaskets(cfg.TrxInput, logs, "transaction")
		if err != nil {
			return nil, err
		}
	}
	if !cfg.SkipViewData {
		streams.View, err = loadBaskets(cfg.ViewInput, logs, "view")
		if err != nil {
			return nil, err
		}
	}
	if !cfg.SkipSubData {
		f, err := os.Open(cfg.SubInput)
		if err != nil {
			return nil, errs.New(errs.IO, "engine.Open", err)
		}
		streams.Sub, err = data.LoadTSV(f, 3)
		f.Close()
		if err != nil {
			return nil, err
		}
		for _, row := range streams.Sub {
			if len(row) != 3 {
				return nil, errs.New(errs.InputShape, "engine.Open", fmt.Errorf("subscription row has %d fields, need exactly 3", len(row)))
			}
		}
	}
	if !cfg.SkipSearchData {
		f, err := os.Open(cfg.SearchInput)
		if err != nil {
			return nil, errs.New(errs.IO, "engine.Open", err)
		}
		streams.Search, err = data.LoadTSV(f, 2)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	numUsers, numItems := cardinalities(len(itemWord), streams, cfg)

	trxCounts := itemCount(numItems, streams.Trx)
	viewCounts := itemViewCount(numItems, streams.View)
	subCounts := itemSubCount(numItems, streams.Sub)
	searchWordCounts := searchWordCount(streams.Search)

	numWords := len(wordCount)
	if len(searchWordCounts) > numWords {
		numWords = len(searchWordCounts)
	}

	card := store.Cardinalities{
		Users:     numUsers,
		Items:     numItems,
		Words:     numWords,
		UserWords: len(userWordCount),
	}
	combine := store.CombineConcat
	switch cfg.Combine {
	case config.CombineMean:
		combine = store.CombineMean
	case config.CombineMeanSum:
		combine = store.CombineMeanSum
	}
	dims := store.Dims{Dim: cfg.Dim, UserDim: cfg.UserDim, Combine: combine}

	s := store.New(card, dims)
	s.InitUniform(cfg.Seed)

	e := &Engine{
		Cfg:             cfg,
		Store:           s,
		Tables:          tables.New(),
		Streams:         streams,
		trxItemSampler:  sampler.Build(trxCounts, cfg.Seed),
		viewItemSampler: sampler.Build(viewCounts, cfg.Seed),
		subItemSampler:  sampler.Build(subCounts, cfg.Seed),
		wordSampler:     sampler.Build(wordCount, cfg.Seed),
		logs:            logs,
	}
	if len(searchWordCounts) > 0 {
		e.searchWordSampler = sampler.Build(searchWordCounts, cfg.Seed)
	}
	if len(userWordCount) > 0 {
		e.userWordSampler = sampler.Build(userWordCount, cfg.Seed)
	}
	return e, nil
}

func loadBaskets(path string, logs logging.Loggers, kind string) ([]data.Basket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.New(errs.IO, "engine.loadBaskets", err)
	}
	defer f.Close()
	baskets, skipped, err := data.LoadOrderedBasket(f)
	if err != nil {
		return nil, err
	}
	logs.Log.Info().Str("kind", kind).Int("skipped", skipped).Int("kept", len(baskets)).Msg("loaded basket stream")
	return baskets, nil
}

// cardinalities derives |U| and |I| from whichever basket/sub/search
// streams are present, and from the item-word map's size for |I| as a
// floor.
func cardinalities(itemWordSize int, s Streams, cfg config.Config) (numUsers, numItems int) {
	numItems = itemWordSize
	maxUser := -1
	grow := func(b data.Basket) {
		if int(b[0]) > maxUser {
			maxUser = int(b[0])
		}
		for _, item := range b[1:] {
			if int(item) >= numItems {
				numItems = int(item) + 1
			}
		}
	}
	for _, b := range s.Trx {
		grow(b)
	}
	for _, b := range s.View {
		grow(b)
	}
	for _, row := range s.Sub {
		if int(row[0]) >= numItems {
			numItems = int(row[0]) + 1
		}
		if int(row[2]) >= numItems {
			numItems = int(row[2]) + 1
		}
		if int(row[1]) > maxUser {
			maxUser = int(row[1])
		}
	}
	for _, row := range s.Search {
		if int(row[0]) >= numItems {
			numItems = int(row[0]) + 1
		}
	}
	return maxUser + 1, numItems
}

// laplaceCounts returns a Laplace-smoothed (+1) count vector of length n.
func laplaceCounts(n int) []int64 {
	counts := make([]int64, n)
	for i := range counts {
		counts[i] = 1
	}
	return counts
}

// itemCount is the transaction-basket item target distribution: every item
// appearing anywhere in a transaction basket can be sampled as a windowed
// record's target, so every occurrence counts.
func itemCount(numItems int, trx []data.Basket) []int64 {
	counts := laplaceCounts(numItems)
	for _, b := range trx {
		for _, item := range b[1:] {
			counts[item]++
		}
	}
	return counts
}

// itemViewCount is the view-basket item target distribution, the same
// shape as itemCount but derived from the view stream, which is trained
// against its own UIv/IOv head and must not share trx's target skew.
func itemViewCount(numItems int, view []data.Basket) []int64 {
	counts := laplaceCounts(numItems)
	for _, b := range view {
		for _, item := range b[1:] {
			counts[item]++
		}
	}
	return counts
}

// itemSubCount is the subscription target distribution: trainOnSub always
// predicts the subscribed-to item (row[2]), so only that field contributes.
func itemSubCount(numItems int, sub []data.TSVRow) []int64 {
	counts := laplaceCounts(numItems)
	for _, row := range sub {
		counts[row[2]]++
	}
	return counts
}

// searchWordCount is the search-query word target distribution: trainOnSearch
// predicts each query word (row[1:]) against the item, so it is counted the
// same way as item-word's wordCount but over the search stream alone. The
// vector is sized to the highest word id actually seen in search, which may
// exceed the item-word vocabulary.
func searchWordCount(search []data.TSVRow) []int64 {
	maxWord := -1
	for _, row := range search {
		for _, w := range row[1:] {
			if int(w) > maxWord {
				maxWord = int(w)
			}
		}
	}
	if maxWord < 0 {
		return nil
	}
	counts := laplaceCounts(maxWord + 1)
	for _, row := range search {
		for _, w := range row[1:] {
			counts[w]++
		}
	}
	return counts
}

// expectTokens is the per-epoch token budget: the size of the first
// enabled source in trx -> view -> sub -> search priority order.
func (e *Engine) expectTokens() int64 {
	switch {
	case !e.Cfg.SkipTrxData:
		return int64(len(e.Streams.Trx))
	case !e.Cfg.SkipViewData:
		return int64(len(e.Streams.View))
	case !e.Cfg.SkipSubData:
		return int64(len(e.Streams.Sub))
	default:
		return int64(len(e.Streams.Search))
	}
}

// threadKernels are the two scratch kernels a worker thread needs: main
// for every task whose input/target rows are Dim wide (item-word, trx,
// view, sub, search), and user for the user-word task, whose rows are
// UserDim wide.
type threadKernels struct {
	main *kernel.Kernel
	user *kernel.Kernel
}

func (e *Engine) newThreadKernels() threadKernels {
	return threadKernels{
		main: kernel.New(e.Tables, e.Cfg.Neg, e.Cfg.Dim, e.Cfg.UserDim),
		user: kernel.New(e.Tables, e.Cfg.Neg, e.Cfg.UserDim, e.Cfg.UserDim),
	}
}

// regItemContext and regUserContext regularize item -> word and user -> word
// embeddings, the "RegWordModel" side effect the basket and subscription
// tasks apply alongside their primary update (the search task applies none).
func (e *Engine) regItemContext(k *kernel.Kernel, itemIdx int32, lr float32) error {
	if e.Cfg.SkipContext || int(itemIdx) >= len(e.Streams.ItemWord) {
		return nil
	}
	for _, w := range e.Streams.ItemWord[itemIdx] {
		if err := k.Update(e.Store.II, []int32{itemIdx}, e.Store.WO, w, lr, e.wordSampler); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) regUserContext(k *kernel.Kernel, userIdx int32, lr float32) error {
	if e.Cfg.SkipUserContext || int(userIdx) >= len(e.Streams.UserWord) {
		return nil
	}
	for _, w := range e.Streams.UserWord[userIdx] {
		if err := k.Update(e.Store.UI, []int32{userIdx}, e.Store.UWO, w, lr, e.userWordSampler); err != nil {
			return err
		}
	}
	return nil
}

// trainOnBasket trains on one already expanded windowed record with the
// combine kernel selected by Cfg.Combine. viewHead selects the UIv/IOv pair for the view
// stream; pass nil to use the primary UI/IO pair (transactions).
func (e *Engine) trainOnBasket(k threadKernels, viewHead *store.ParameterStore, rec []int32, lr float32) error {
	const userPos, itemPos = 1, 0
	ui, ioMat := e.Store.UI, e.Store.IO
	itemSampler := e.trxItemSampler
	if viewHead != nil {
		ui, ioMat = viewHead.UI, viewHead.IO
		itemSampler = e.viewItemSampler
	}

	var err error
	switch e.Cfg.Combine {
	case config.CombineMean:
		err = k.main.UpdateMean(ui, e.Store.II, ioMat, rec, userPos, itemPos, lr, itemSampler)
	case config.CombineMeanSum:
		err = k.main.UpdateMeanSum(ui, e.Store.II, ioMat, rec, userPos, itemPos, lr, itemSampler)
	default:
		err = k.main.UpdateConcat(ui, e.Store.II, ioMat, rec, userPos, itemPos, e.Cfg.SkipUserContext, lr, itemSampler)
	}
	if err != nil {
		return err
	}

	if err := e.regUserContext(k.user, rec[userPos], lr); err != nil {
		return err
	}

	if e.Cfg.Combine == config.CombineConcat {
		for i, idx := range rec {
			if i == userPos || i == itemPos {
				continue
			}
			if err := e.regItemContext(k.main, idx, lr); err != nil {
				return err
			}
		}
		return nil
	}
	return e.regItemContext(k.main, rec[itemPos], lr)
}

func (e *Engine) trainOnSub(k threadKernels, row data.TSVRow, lr float32) error {
	item, subItem := row[0], row[2]
	if err := k.main.Update(e.Store.II, []int32{item}, e.Store.II, subItem, lr, e.subItemSampler); err != nil {
		return err
	}
	return e.regItemContext(k.main, item, lr)
}

func (e *Engine) trainOnSearch(k threadKernels, row data.TSVRow, lr float32) error {
	item := row[0]
	for _, w := range row[1:] {
		if err := k.main.Update(e.Store.II, []int32{item}, e.Store.WO, w, lr, e.searchWordSampler); err != nil {
			return err
		}
	}
	return nil
}

// Train runs the full worker pool until the token budget is exhausted.
func (e *Engine) Train(ctx context.Context) error {
	expect := e.expectTokens()
	if expect == 0 {
		return errs.New(errs.Config, "engine.Train", fmt.Errorf("primary source is empty"))
	}
	sched := schedule.New(expect, e.Cfg.Epoch, e.Cfg.LR)

	work := func(ctx context.Context, threadID int, s *schedule.Scheduler) error {
		kern := e.newThreadKernels()
		rng := base.NewRandomGenerator(int64(threadID))

		var cursorTrx, cursorView, cursorSub, cursorSearch int
		if n := len(e.Streams.Trx); n > 0 {
			cursorTrx = threadID * n / e.Cfg.Thread
		}
		if n := len(e.Streams.View); n > 0 {
			cursorView = threadID * n / e.Cfg.Thread
		}
		if n := len(e.Streams.Sub); n > 0 {
			cursorSub = threadID * n / e.Cfg.Thread
		}
		if n := len(e.Streams.Search); n > 0 {
			cursorSearch = threadID * n / e.Cfg.Thread
		}

		local := int64(0)
		for !s.Done() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			lr := float32(s.LR())

			if !e.Cfg.SkipTrxData && len(e.Streams.Trx) > 0 {
				basket := e.Streams.Trx[cursorTrx]
				cursorTrx = (cursorTrx + 1) % len(e.Streams.Trx)
				var shuffle func([]int32)
				if e.Cfg.ShuffleContext {
					shuffle = rng.ShuffleInts
				}
				for _, rec := range data.ExpandWindowed(basket, e.Cfg.WindowSize, shuffle) {
					if err := e.trainOnBasket(kern, nil, rec, lr); err != nil {
						return err
					}
				}
				local++
			}
			if !e.Cfg.SkipViewData && len(e.Streams.View) > 0 {
				basket := e.Streams.View[cursorView]
				cursorView = (cursorView + 1) % len(e.Streams.View)
				var shuffle func([]int32)
				if e.Cfg.ShuffleContext {
					shuffle = rng.ShuffleInts
				}
				for _, rec := range data.ExpandWindowed(basket, e.Cfg.WindowSize, shuffle) {
					if err := e.trainOnBasket(kern, e.viewStore(), rec, lr); err != nil {
						return err
					}
				}
				local++
			}
			if !e.Cfg.SkipSubData && len(e.Streams.Sub) > 0 {
				row := e.Streams.Sub[cursorSub]
				cursorSub = (cursorSub + 1) % len(e.Streams.Sub)
				if err := e.trainOnSub(kern, row, lr); err != nil {
					return err
				}
				local++
			}
			if !e.Cfg.SkipSearchData && len(e.Streams.Search) > 0 {
				row := e.Streams.Search[cursorSearch]
				cursorSearch = (cursorSearch + 1) % len(e.Streams.Search)
				if err := e.trainOnSearch(kern, row, lr); err != nil {
					return err
				}
				local++
			}

			if local >= int64(e.Cfg.LRUpdateRate) {
				s.AddTokens(local)
				local = 0
				if threadID == 0 && e.Cfg.Verbose > 1 {
					s.SetLoss((kern.main.LossSum + kern.user.LossSum) / float64(kern.main.Count+kern.user.Count+1))
				}
			}
		}
		if local > 0 {
			s.AddTokens(local)
		}
		return nil
	}

	start := time.Now()
	onProgress := func(s *schedule.Scheduler) {
		elapsed := time.Since(start).Seconds()
		progress := s.Progress()
		var wordsPerSecThread, etaSec float64
		if elapsed > 0 {
			wordsPerSecThread = float64(s.TokenCount()) / elapsed / float64(e.Cfg.Thread)
		}
		if progress > 0 {
			etaSec = elapsed * (1 - progress) / progress
		}
		e.logs.Progress.Info().
			Float64("progress", progress).
			Float64("wordsPerSecThread", wordsPerSecThread).
			Dur("eta", time.Duration(etaSec*float64(time.Second))).
			Float64("lr", s.LR()).
			Float64("loss", s.Loss()).
			Msg("training")
	}

	return schedule.Run(ctx, sched, e.Cfg.Thread, work, onProgress)
}

// viewStore returns a non-nil marker selecting the UIv/IOv head.
func (e *Engine) viewStore() *store.ParameterStore {
	return &store.ParameterStore{UI: e.Store.UIv, IO: e.Store.IOv}
}

// SaveModel writes the magic/version header, then UI, II, WO, IO, UWO.
func (e *Engine) SaveModel(w io.Writer) error {
	if err := store.SaveHeader(w); err != nil {
		return err
	}
	return e.Store.SaveMatrices(w)
}

// LoadModel reads a model file written by SaveModel, replacing e.Store.
func (e *Engine) LoadModel(r io.Reader) error {
	if err := store.CheckHeader(r); err != nil {
		return err
	}
	s, err := store.LoadMatrices(r)
	if err != nil {
		return err
	}
	e.Store = s
	return nil
}

// ExportVectors writes one .npy file per matrix using the suffixes the
// original tool's saveVectors used, under outputPrefix.
func (e *Engine) ExportVectors(outputPrefix string) error {
	matrices := map[string]*storeMatrixRef{
		"_userInput":       {e.Store.UI},
		"_userWordOutput":  {e.Store.UWO},
		"_userViewInput":   {e.Store.UIv},
		"_itemInput":       {e.Store.II},
		"_wordOutput":      {e.Store.WO},
		"_itemOutput":      {e.Store.IO},
		"_itemViewOutput":  {e.Store.IOv},
	}
	for suffix, ref := range matrices {
		f, err := os.Create(outputPrefix + suffix + ".npy")
		if err != nil {
			return errs.New(errs.IO, "engine.ExportVectors", err)
		}
		err = npy.WriteFloat32(f, ref.m.Data(), ref.m.Rows(), ref.m.Cols())
		f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

type storeMatrixRef struct {
	m interface {
		Data() []float32
		Rows() int
		Cols() int
	}
}
