// Package npy writes matrices in the NumPy .npy v1.0 format. No library in
// the reference corpus covers this format, so the writer is implemented
// from scratch against the documented format (see DESIGN.md).
package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/StatsDLMathsRecomSys/Knowledge-aware-complementary-product-representation-learning/internal/errs"
)

const magic = "\x93NUMPY"

// WriteFloat32 writes a row-major rows x cols float32 array to w as a
// single .npy v1.0 file.
func WriteFloat32(w io.Writer, data []float32, rows, cols int) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// Total header length (magic + version + len field + header + padding)
	// must be a multiple of 64, padded with spaces and terminated with \n.
	const prefixLen = len(magic) + 2 + 2
	total := prefixLen + len(header) + 1
	pad := (64 - total%64) % 64
	header = header + string(bytes.Repeat([]byte{' '}, pad)) + "\n"

	if _, err := io.WriteString(w, magic); err != nil {
		return errs.New(errs.IO, "npy.WriteFloat32", err)
	}
	if _, err := w.Write([]byte{1, 0}); err != nil { // version 1.0
		return errs.New(errs.IO, "npy.WriteFloat32", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return errs.New(errs.IO, "npy.WriteFloat32", err)
	}
	if _, err := io.WriteString(w, header); err != nil {
		return errs.New(errs.IO, "npy.WriteFloat32", err)
	}
	if err := binary.Write(w, binary.LittleEndian, data); err != nil {
		return errs.New(errs.IO, "npy.WriteFloat32", err)
	}
	return nil
}
