// Package store owns the seven shared embedding matrices, their shapes, and
// deterministic initialization. It hands out the matrices by reference — a
// ParameterStore is the single owner; worker threads hold thin references to
// its matrices and mutate them directly (see SPEC_FULL.md §5), never copies.
package store

import (
	"encoding/binary"
	"io"
	"math/rand"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/errs"
	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/tensor"
)

// Cardinalities are derived once from the loaded data (see internal/data).
type Cardinalities struct {
	Users      int // |U| = max(userId)+1 across basket and subscription streams
	Items      int // |I| = size of item->word map, grown to cover every item id in the streams
	Words      int // |W| = max(wordId)+1 across item-word and search streams
	UserWords  int // |UW| analogous for user-word
}

// Combine selects how the user-item kernels fuse user and item context.
type Combine int

const (
	CombineConcat Combine = iota
	CombineMean
	CombineMeanSum
)

// Dims carries the two embedding widths. For non-concat combine methods they
// must be equal (enforced by the config layer before store construction).
type Dims struct {
	Dim     int
	UserDim int
	Combine Combine
}

// ParameterStore owns the seven matrices described in SPEC_FULL.md §3/§4.B.
type ParameterStore struct {
	UI  *tensor.Matrix // user-input
	UIv *tensor.Matrix // user-view-input
	II  *tensor.Matrix // item-input
	IO  *tensor.Matrix // item-output
	IOv *tensor.Matrix // item-view-output
	WO  *tensor.Matrix // word-output
	UWO *tensor.Matrix // user-word-output
}

// ioCols returns IO/IOv's column width: dim+userDim under concat, dim
// otherwise.
func ioCols(d Dims) int {
	if d.Combine == CombineConcat {
		return d.Dim + d.UserDim
	}
	return d.Dim
}

// New allocates all seven matrices, sized from card and dims, zeroed (call
// InitUniform to seed them before training).
func New(card Cardinalities, d Dims) *ParameterStore {
	return &ParameterStore{
		UI:  tensor.New(card.Users, d.UserDim),
		UIv: tensor.New(card.Users, d.UserDim),
		II:  tensor.New(card.Items, d.Dim),
		IO:  tensor.New(card.Items, ioCols(d)),
		IOv: tensor.New(card.Items, ioCols(d)),
		WO:  tensor.New(card.Words, d.Dim),
		UWO: tensor.New(card.UserWords, d.UserDim),
	}
}

// InitUniform fills every matrix element-wise uniform in [-1, 1] using a
// single fixed-seed generator, in a fixed matrix order, so initialization is
// bitwise reproducible across runs for a given seed and shape set.
func (s *ParameterStore) InitUniform(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for _, m := range []*tensor.Matrix{s.UI, s.UIv, s.II, s.WO, s.IO, s.IOv, s.UWO} {
		m.UniformFill(1.0, rng)
	}
}

// matricesToSave returns the five matrices persisted to the binary model
// format, in the documented on-wire order (view matrices intentionally
// excluded — see SPEC_FULL.md / DESIGN.md on the view-head persistence open
// question).
func (s *ParameterStore) matricesToSave() []*tensor.Matrix {
	return []*tensor.Matrix{s.UI, s.II, s.WO, s.IO, s.UWO}
}

const (
	fileMagic   int32 = 793712314
	fileVersion int32 = 12
)

// SaveHeader writes the magic and version prefix shared by every model file.
func SaveHeader(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, fileMagic); err != nil {
		return errs.New(errs.IO, "store.SaveHeader", err)
	}
	if err := binary.Write(w, binary.LittleEndian, fileVersion); err != nil {
		return errs.New(errs.IO, "store.SaveHeader", err)
	}
	return nil
}

// CheckHeader validates the magic/version prefix of a model file.
func CheckHeader(r io.Reader) error {
	var magic, version int32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return errs.New(errs.IO, "store.CheckHeader", err)
	}
	if magic != fileMagic {
		return errs.New(errs.IO, "store.CheckHeader", errInvalidMagic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return errs.New(errs.IO, "store.CheckHeader", err)
	}
	if version > fileVersion {
		return errs.New(errs.IO, "store.CheckHeader", errUnsupportedVersion)
	}
	return nil
}

// SaveMatrices writes UI, II, WO, IO, UWO in that order.
func (s *ParameterStore) SaveMatrices(w io.Writer) error {
	for _, m := range s.matricesToSave() {
		if err := m.Save(w); err != nil {
			return err
		}
	}
	return nil
}

// LoadMatrices reads UI, II, WO, IO, UWO in that order into a fresh store.
// UIv/IOv are left as zeroed matrices shaped like UI/IO since the file
// format never persisted them.
func LoadMatrices(r io.Reader) (*ParameterStore, error) {
	ui, err := tensor.Load(r)
	if err != nil {
		return nil, err
	}
	ii, err := tensor.Load(r)
	if err != nil {
		return nil, err
	}
	wo, err := tensor.Load(r)
	if err != nil {
		return nil, err
	}
	io_, err := tensor.Load(r)
	if err != nil {
		return nil, err
	}
	uwo, err := tensor.Load(r)
	if err != nil {
		return nil, err
	}
	return &ParameterStore{
		UI:  ui,
		UIv: tensor.New(ui.Rows(), ui.Cols()),
		II:  ii,
		IO:  io_,
		IOv: tensor.New(io_.Rows(), io_.Cols()),
		WO:  wo,
		UWO: uwo,
	}, nil
}

var (
	errInvalidMagic       = errs.New(errs.IO, "store", errString("wrong file format"))
	errUnsupportedVersion = errs.New(errs.IO, "store", errString("unsupported model version"))
)

type errString string

func (e errString) Error() string { return string(e) }
