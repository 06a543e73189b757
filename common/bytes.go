package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ByteWriter fills a fixed-size little-endian buffer at explicit offsets. It backs every
// GPU struct Marshal in the engine so field placement never depends on Go struct layout.
type ByteWriter struct {
	buf []byte
}

// NewByteWriter allocates a zeroed buffer of size bytes.
func NewByteWriter(size int) *ByteWriter {
	return &ByteWriter{buf: make([]byte, size)}
}

// Float32 writes v at offset.
func (w *ByteWriter) Float32(offset int, v float32) {
	binary.LittleEndian.PutUint32(w.buf[offset:offset+4], math.Float32bits(v))
}

// Uint32 writes v at offset.
func (w *ByteWriter) Uint32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[offset:offset+4], v)
}

// Vec2 writes two floats starting at offset.
func (w *ByteWriter) Vec2(offset int, v mgl32.Vec2) {
	for i := range 2 {
		w.Float32(offset+i*4, v[i])
	}
}

// Vec3 writes three floats starting at offset.
func (w *ByteWriter) Vec3(offset int, v mgl32.Vec3) {
	for i := range 3 {
		w.Float32(offset+i*4, v[i])
	}
}

// Vec4 writes four floats starting at offset.
func (w *ByteWriter) Vec4(offset int, v mgl32.Vec4) {
	for i := range 4 {
		w.Float32(offset+i*4, v[i])
	}
}

// Mat4 writes a column-major matrix (64 bytes) starting at offset.
func (w *ByteWriter) Mat4(offset int, m mgl32.Mat4) {
	for i := range 16 {
		w.Float32(offset+i*4, m[i])
	}
}

// Bytes returns the underlying buffer.
func (w *ByteWriter) Bytes() []byte {
	return w.buf
}

// ReadFloat32 decodes a little-endian float at offset. Used by tests and debug dumps.
func ReadFloat32(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}

// ReadMat4 decodes a column-major matrix at offset.
func ReadMat4(buf []byte, offset int) mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range 16 {
		m[i] = ReadFloat32(buf, offset+i*4)
	}
	return m
}
