// Package kernel implements the skip-gram update math shared by every
// training task: plain negative-sampling updates over a mean-pooled input
// (used for item-word, user-word, subscription and search regularization),
// and the three user+item combine kernels (concat, mean, meanSum) that fuse
// a user embedding with item context before scoring against a target.
//
// A Kernel is owned by exactly one worker thread — its scratch buffers are
// reused across calls and never shared. The matrices it reads and writes
// (tensor.Matrix) ARE shared across threads; callers apply updates directly
// to those matrices with no locking (Hogwild-style races are accepted, not
// guarded against).
package kernel

import (
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/base"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/errs"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/sampler"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/tables"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/tensor"
)

// Kernel bundles the process-wide lookup tables and a thread-local scratch
// area; the negative sampler is passed in on each call, so one Kernel can
// serve several tasks. Neg is the number of negative
// draws per positive example (the loop always runs Neg+1 iterations, n=0
// being the positive).
type Kernel struct {
	Tables *tables.Tables
	Neg    int

	hidden   []float32 // len = dim, reused by plain/mean kernels
	exHidden []float32 // len = userDim+dim, reused by the concat kernel
	grad     []float32 // len = dim
	exGrad   []float32 // len = userDim+dim
	gradUser []float32 // len = userDim

	LossSum float64
	Count   int64
}

// New allocates a Kernel's scratch buffers for the given embedding widths.
func New(tabs *tables.Tables, neg, dim, userDim int) *Kernel {
	return &Kernel{
		Tables:   tabs,
		Neg:      neg,
		hidden:   make([]float32, dim),
		exHidden: make([]float32, userDim+dim),
		grad:     make([]float32, dim),
		exGrad:   make([]float32, userDim+dim),
		gradUser: make([]float32, userDim),
	}
}

func addRowToVec(dst []float32, m *tensor.Matrix, row int32, alpha float32) {
	src := m.Row(int(row))
	for i, v := range src {
		dst[i] += alpha * v
	}
}

// binaryLogistic scores hidden against targetMat's target row, applies the
// gradient to targetMat in place, and accumulates the loss gradient
// (alpha*targetRow) into gradOut. Shared by the plain update and the
// concat/mean combine kernels, which differ only in what hidden and
// targetMat are.
func (k *Kernel) binaryLogistic(hidden []float32, targetMat *tensor.Matrix, target int32, label float32, lr float32, gradOut []float32) (float32, error) {
	dot, err := targetMat.DotRow(hidden, int(target))
	if err != nil {
		return 0, err
	}
	score := k.Tables.Sigmoid(dot)
	alpha := lr * (label - score)

	addRowToVec(gradOut, targetMat, target, alpha)
	if err := targetMat.AddRow(hidden, int(target), alpha); err != nil {
		return 0, err
	}

	if label > 0 {
		return -k.Tables.Log(score), nil
	}
	return -k.Tables.Log(1 - score), nil
}

func meanOfRows(m *tensor.Matrix, idxs []int32, out []float32) {
	base.ZeroVector(out)
	for _, idx := range idxs {
		base.AddVector(out, m.Row(int(idx)))
	}
	if len(idxs) > 0 {
		base.MulConst(1.0/float32(len(idxs)), out)
	}
}

// Update runs the plain negative-sampling skip-gram kernel: hidden is the
// mean of input's rows at idxs, scored against targetMat's row `target` and
// Neg negatives drawn from samp. The gradient is applied back to every row
// of input at idxs with no 1/|idxs| rescaling (matching the original's
// unscaled context update).
func (k *Kernel) Update(input *tensor.Matrix, idxs []int32, targetMat *tensor.Matrix, target int32, lr float32, samp *sampler.Sampler) error {
	meanOfRows(input, idxs, k.hidden)
	base.ZeroVector(k.grad)

	var loss float32
	for n := 0; n <= k.Neg; n++ {
		t := target
		label := float32(1)
		if n > 0 {
			t = samp.Next(target)
			label = 0
		}
		l, err := k.binaryLogistic(k.hidden, targetMat, t, label, lr, k.grad)
		if err != nil {
			return err
		}
		loss += l
	}
	k.LossSum += float64(loss)
	k.Count++

	for _, idx := range idxs {
		if err := input.AddRow(k.grad, int(idx), 1.0); err != nil {
			return err
		}
	}
	return nil
}

// excludingPositions returns hist with the elements at positions a and b
// removed, preserving order. a and b may be equal or either may be -1 (no
// exclusion).
func excludingPositions(hist []int32, a, b int) []int32 {
	out := make([]int32, 0, len(hist))
	for i, v := range hist {
		if i == a || i == b {
			continue
		}
		out = append(out, v)
	}
	return out
}

// computeConcat fills exHidden = [userRow | mean(itemRows)] for the concat
// combine method. hist is a windowed record [target, user, context...];
// userPos/itemPos are positions within hist to exclude from the item mean
// (and, for the user slot, to source the user row from).
func (k *Kernel) computeConcat(ui, ii *tensor.Matrix, hist []int32, userPos, itemPos int, skipUserContext bool) {
	userDim := len(k.exHidden) - len(k.hidden)
	base.ZeroVector(k.exHidden)
	if !skipUserContext {
		copy(k.exHidden[:userDim], ui.Row(int(hist[userPos])))
	}
	ctx := excludingPositions(hist, userPos, itemPos)
	for _, idx := range ctx {
		base.AddVector(k.exHidden[userDim:], ii.Row(int(idx)))
	}
	if len(ctx) > 0 {
		base.MulConst(1.0/float32(len(ctx)), k.exHidden[userDim:])
	}
}

// UpdateConcat runs the concat combine kernel over a windowed record.
func (k *Kernel) UpdateConcat(ui, ii, io *tensor.Matrix, hist []int32, userPos, itemPos int, skipUserContext bool, lr float32, samp *sampler.Sampler) error {
	k.computeConcat(ui, ii, hist, userPos, itemPos, skipUserContext)
	base.ZeroVector(k.exGrad)

	target := hist[0]
	var loss float32
	for n := 0; n <= k.Neg; n++ {
		t := target
		label := float32(1)
		if n > 0 {
			t = samp.Next(target)
			label = 0
		}
		l, err := k.binaryLogistic(k.exHidden, io, t, label, lr, k.exGrad)
		if err != nil {
			return err
		}
		loss += l
	}
	k.LossSum += float64(loss)
	k.Count++

	userDim := len(k.exHidden) - len(k.hidden)
	ctx := excludingPositions(hist, userPos, itemPos)
	if len(ctx) > 0 {
		base.MulConst(1.0/float32(len(ctx)), k.exGrad[userDim:])
	}
	if !skipUserContext {
		if err := ui.AddRow(k.exGrad[:userDim], int(hist[userPos]), 1.0); err != nil {
			return err
		}
	}
	for _, idx := range ctx {
		if err := ii.AddRow(k.exGrad[userDim:], int(idx), 1.0); err != nil {
			return err
		}
	}
	return nil
}

// computeMean fills hidden with the mean of ui's user row (unless
// inputItemOnly) and ii's item rows, excluding userPos/itemPos.
func (k *Kernel) computeMean(ui, ii *tensor.Matrix, hist []int32, userPos, itemPos int, inputItemOnly bool) {
	base.ZeroVector(k.hidden)
	n := 0
	if !inputItemOnly {
		base.AddVector(k.hidden, ui.Row(int(hist[userPos])))
		n++
	}
	ctx := excludingPositions(hist, userPos, itemPos)
	for _, idx := range ctx {
		base.AddVector(k.hidden, ii.Row(int(idx)))
	}
	n += len(ctx)
	if n > 0 {
		base.MulConst(1.0/float32(n), k.hidden)
	}
}

// UpdateMean runs the mean combine kernel over a windowed record.
func (k *Kernel) UpdateMean(ui, ii, io *tensor.Matrix, hist []int32, userPos, itemPos int, lr float32, samp *sampler.Sampler) error {
	k.computeMean(ui, ii, hist, userPos, itemPos, false)
	base.ZeroVector(k.grad)

	target := hist[0]
	var loss float32
	for n := 0; n <= k.Neg; n++ {
		t := target
		label := float32(1)
		if n > 0 {
			t = samp.Next(target)
			label = 0
		}
		l, err := k.binaryLogistic(k.hidden, io, t, label, lr, k.grad)
		if err != nil {
			return err
		}
		loss += l
	}
	k.LossSum += float64(loss)
	k.Count++

	denom := len(hist) - 1
	if denom > 0 {
		base.MulConst(1.0/float32(denom), k.grad)
	}
	if err := ui.AddRow(k.grad, int(hist[userPos]), 1.0); err != nil {
		return err
	}
	for _, idx := range excludingPositions(hist, userPos, itemPos) {
		if err := ii.AddRow(k.grad, int(idx), 1.0); err != nil {
			return err
		}
	}
	return nil
}

// binaryLogisticMeanSum scores the cross term <ii[target], ui[user]> plus
// <io[target], hidden> (hidden being the item-only mean), mutates io's
// target row directly, and accumulates the item/user gradient halves into
// itemGrad/userGrad for the caller to apply to ii/ui after scaling.
func (k *Kernel) binaryLogisticMeanSum(ii, ui, io *tensor.Matrix, target, user int32, label float32, lr float32, itemGrad, userGrad []float32) (float32, error) {
	cross, err := tensor.MatSelectDot(ii, ui, int(target), int(user))
	if err != nil {
		return 0, err
	}
	outDot, err := io.DotRow(k.hidden, int(target))
	if err != nil {
		return 0, err
	}
	score := k.Tables.Sigmoid(cross + outDot)
	alpha := lr * (label - score)

	addRowToVec(itemGrad, io, target, alpha)
	addRowToVec(userGrad, ii, target, alpha)
	if err := io.AddRow(k.hidden, int(target), alpha); err != nil {
		return 0, err
	}

	if label > 0 {
		return -k.Tables.Log(score), nil
	}
	return -k.Tables.Log(1 - score), nil
}

// UpdateMeanSum runs the meanSum combine kernel over a windowed record. The
// item embedding at target is never updated directly here (only IO[target]
// is, inside binaryLogisticMeanSum) — ii rows are updated only for the
// other context positions, via itemGrad.
func (k *Kernel) UpdateMeanSum(ui, ii, io *tensor.Matrix, hist []int32, userPos, itemPos int, lr float32, samp *sampler.Sampler) error {
	k.computeMean(ui, ii, hist, userPos, itemPos, true)
	base.ZeroVector(k.grad)
	base.ZeroVector(k.gradUser)

	target := hist[0]
	user := hist[userPos]
	var loss float32
	for n := 0; n <= k.Neg; n++ {
		t := target
		label := float32(1)
		if n > 0 {
			t = samp.Next(target)
			label = 0
		}
		l, err := k.binaryLogisticMeanSum(ii, ui, io, t, user, label, lr, k.grad, k.gradUser)
		if err != nil {
			return err
		}
		loss += l
	}
	k.LossSum += float64(loss)
	k.Count++

	denom := len(hist) - 2
	if denom <= 0 {
		return errs.New(errs.InputShape, "kernel.UpdateMeanSum", errShortHistory)
	}
	base.MulConst(1.0/float32(denom), k.grad)

	ctx := excludingPositions(hist, userPos, itemPos)
	for _, idx := range ctx {
		if err := ii.AddRow(k.grad, int(idx), 1.0); err != nil {
			return err
		}
	}
	return ui.AddRow(k.gradUser, int(user), 1.0)
}

var errShortHistory = shortHistoryError("windowed record too short for meanSum update")

type shortHistoryError string

func (e shortHistoryError) Error() string { return string(e) }
