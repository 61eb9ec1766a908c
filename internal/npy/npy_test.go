package npy

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFloat32HeaderIsMultipleOf64(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFloat32(&buf, []float32{1, 2, 3, 4}, 2, 2))

	b := buf.Bytes()
	require.True(t, bytes.HasPrefix(b, []byte(magic)))
	assert.Equal(t, byte(1), b[6])
	assert.Equal(t, byte(0), b[7])

	headerLen := binary.LittleEndian.Uint16(b[8:10])
	assert.Equal(t, 0, (10+int(headerLen))%64)

	header := string(b[10 : 10+int(headerLen)])
	assert.True(t, strings.Contains(header, "'shape': (2, 2)"))
	assert.True(t, strings.HasSuffix(header, "\n"))
}

func TestWriteFloat32Payload(t *testing.T) {
	var buf bytes.Buffer
	data := []float32{1.5, -2.5, 3.5}
	require.NoError(t, WriteFloat32(&buf, data, 1, 3))

	b := buf.Bytes()
	headerLen := binary.LittleEndian.Uint16(b[8:10])
	payload := b[10+int(headerLen):]
	require.Len(t, payload, 12)

	var got [3]float32
	for i := range got {
		bits := binary.LittleEndian.Uint32(payload[i*4 : i*4+4])
		got[i] = math.Float32frombits(bits)
	}
	assert.Equal(t, data, got[:])
}
