// Package tensor implements the dense row-major matrix and vector primitives
// the training engine runs its hot loop over: float32 storage, row-level
// algebra (dotRow, addRow, matSelectDot), and binary (de)serialization. Every
// row operation fails fast on a size mismatch; a NaN surfacing from a dot
// product is treated as fatal corruption, never silently propagated.
package tensor

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/errs"
)

// Matrix is a dense, row-major tensor of 32-bit floats. The zero value is not
// usable; construct with New.
type Matrix struct {
	data []float32
	rows int
	cols int
}

// New allocates a zeroed rows x cols matrix.
func New(rows, cols int) *Matrix {
	return &Matrix{data: make([]float32, rows*cols), rows: rows, cols: cols}
}

func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

// Data returns the backing slice. Callers that hold a *Matrix across threads
// rely on this being the same slice for every reader/writer (see §5 of
// SPEC_FULL.md) — it is never reallocated after New/Load.
func (m *Matrix) Data() []float32 { return m.data }

// At returns element (i, j).
func (m *Matrix) At(i, j int) float32 { return m.data[i*m.cols+j] }

// Set writes element (i, j).
func (m *Matrix) Set(i, j int, v float32) { m.data[i*m.cols+j] = v }

// Row returns the backing slice for row i (no copy).
func (m *Matrix) Row(i int) []float32 { return m.data[i*m.cols : (i+1)*m.cols] }

// Zero resets every element to 0.
func (m *Matrix) Zero() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// UniformFill fills every element with a draw from Uniform[-a, a] using rng,
// deterministic for a fixed seed. Bitwise reproducible across runs given the
// same seed and shape (§8 invariant: determinism of initialization).
func (m *Matrix) UniformFill(a float64, rng *rand.Rand) {
	for i := range m.data {
		m.data[i] = float32(a * (2*rng.Float64() - 1))
	}
}

// DotRow computes <row_i, v>. Fails fast if v's length doesn't match cols;
// a NaN result is a fatal numerical error (§7).
func (m *Matrix) DotRow(v []float32, i int) (float32, error) {
	if len(v) != m.cols {
		return 0, errs.New(errs.InputShape, "tensor.DotRow", fmt.Errorf("vector size %d != cols %d", len(v), m.cols))
	}
	row := m.Row(i)
	var d float32
	for j, vj := range v {
		d += row[j] * vj
	}
	if isNaN32(d) {
		return 0, errs.New(errs.Numerical, "tensor.DotRow", fmt.Errorf("row %d produced NaN", i))
	}
	return d, nil
}

// AddRow performs row_i += alpha*v in place. No allocation.
func (m *Matrix) AddRow(v []float32, i int, alpha float32) error {
	if len(v) != m.cols {
		return errs.New(errs.InputShape, "tensor.AddRow", fmt.Errorf("vector size %d != cols %d", len(v), m.cols))
	}
	row := m.Row(i)
	for j, vj := range v {
		row[j] += alpha * vj
	}
	return nil
}

// MatSelectDot computes <A_i, B_j> for two matrices sharing a column count.
func MatSelectDot(a, b *Matrix, i, j int) (float32, error) {
	if a.cols != b.cols {
		return 0, errs.New(errs.InputShape, "tensor.MatSelectDot", fmt.Errorf("col mismatch %d != %d", a.cols, b.cols))
	}
	ra, rb := a.Row(i), b.Row(j)
	var d float32
	for k := range ra {
		d += ra[k] * rb[k]
	}
	if isNaN32(d) {
		return 0, errs.New(errs.Numerical, "tensor.MatSelectDot", fmt.Errorf("rows (%d,%d) produced NaN", i, j))
	}
	return d, nil
}

// L2NormRow returns the Euclidean norm of row i.
func (m *Matrix) L2NormRow(i int) (float32, error) {
	row := m.Row(i)
	var s float32
	for _, v := range row {
		s += v * v
	}
	if isNaN32(s) {
		return 0, errs.New(errs.Numerical, "tensor.L2NormRow", fmt.Errorf("row %d produced NaN", i))
	}
	return float32(math.Sqrt(float64(s))), nil
}

// MulRow multiplies row i elementwise by other, in place.
func (m *Matrix) MulRow(i int, other []float32) {
	row := m.Row(i)
	for j := range row {
		row[j] *= other[j]
	}
}

// DivRow divides row i elementwise by other, in place.
func (m *Matrix) DivRow(i int, other []float32) {
	row := m.Row(i)
	for j := range row {
		if other[j] != 0 {
			row[j] /= other[j]
		}
	}
}

// Save writes rows:int64, cols:int64, rows*cols float32 little-endian.
func (m *Matrix) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, int64(m.rows)); err != nil {
		return errs.New(errs.IO, "tensor.Save", err)
	}
	if err := binary.Write(w, binary.LittleEndian, int64(m.cols)); err != nil {
		return errs.New(errs.IO, "tensor.Save", err)
	}
	if err := binary.Write(w, binary.LittleEndian, m.data); err != nil {
		return errs.New(errs.IO, "tensor.Save", err)
	}
	return nil
}

// Load reads the wire format written by Save into a freshly allocated Matrix.
func Load(r io.Reader) (*Matrix, error) {
	var rows, cols int64
	if err := binary.Read(r, binary.LittleEndian, &rows); err != nil {
		return nil, errs.New(errs.IO, "tensor.Load", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &cols); err != nil {
		return nil, errs.New(errs.IO, "tensor.Load", err)
	}
	m := New(int(rows), int(cols))
	if err := binary.Read(r, binary.LittleEndian, m.data); err != nil {
		return nil, errs.New(errs.IO, "tensor.Load", err)
	}
	return m, nil
}

// Dump writes the human-readable text form: "rows cols", one row per line.
func (m *Matrix) Dump(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d %d\n", m.rows, m.cols); err != nil {
		return errs.New(errs.IO, "tensor.Dump", err)
	}
	for i := 0; i < m.rows; i++ {
		row := m.Row(i)
		for j, v := range row {
			if j > 0 {
				if _, err := io.WriteString(w, " "); err != nil {
					return errs.New(errs.IO, "tensor.Dump", err)
				}
			}
			if _, err := fmt.Fprintf(w, "%v", v); err != nil {
				return errs.New(errs.IO, "tensor.Dump", err)
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return errs.New(errs.IO, "tensor.Dump", err)
		}
	}
	return nil
}

func isNaN32(f float32) bool {
	return f != f
}
