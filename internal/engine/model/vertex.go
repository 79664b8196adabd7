package model

import (
	"encoding/binary"
	gomath "math"

	"github.com/fairhill1/gameEngine-sub001/internal/engine/gpu"
)

// VertexStride is the byte size of one packed Vertex record.
const VertexStride = 40

// Vertex is the packed GPU vertex record: 12 bytes position, 4 bytes packed
// normal, 4 bytes quantized UV, 4 bytes joint indices, 16 bytes joint
// weights.
type Vertex struct {
	Position     [3]float32
	PackedNormal uint32
	U, V         int16
	Joints       [4]uint8
	Weights      [4]float32
}

// DefaultVertex returns a vertex with safe defaults: origin position,
// up-vector normal, zero UV, and weights {1,0,0,0} so weighted skinning
// degenerates to a single-bone transform without branching.
func DefaultVertex() Vertex {
	return Vertex{
		PackedNormal: EncodeNormal(0, 1, 0),
		Weights:      [4]float32{1, 0, 0, 0},
	}
}

// EncodeNormal packs a direction vector into four bytes, one signed-
// normalized byte per component with the fourth byte unused. The zero vector
// packs to the zero sentinel.
func EncodeNormal(x, y, z float32) uint32 {
	length := float32(gomath.Sqrt(float64(x*x + y*y + z*z)))
	if length < 1e-6 {
		return 0
	}
	x /= length
	y /= length
	z /= length

	quantize := func(c float32) uint32 {
		return uint32(gomath.Round(float64(c*127.5 + 127.5)))
	}
	return quantize(x) | quantize(y)<<8 | quantize(z)<<16
}

// DecodeNormal is the inverse of EncodeNormal, used when skinning round-trips
// normals through the packed format. The zero sentinel decodes to a
// zero-length vector.
func DecodeNormal(packed uint32) (x, y, z float32) {
	if packed == 0 {
		return 0, 0, 0
	}
	expand := func(b uint32) float32 {
		return float32(b)/255*2 - 1
	}
	return expand(packed & 0xFF), expand(packed >> 8 & 0xFF), expand(packed >> 16 & 0xFF)
}

// EncodeUV quantizes texture coordinates to signed 16-bit, where 32767 maps
// to 1.0. Values outside [0,1] are deliberately not clamped so repeat/wrap
// addressing survives quantization (they wrap through the int16 range).
func EncodeUV(u, v float32) (int16, int16) {
	return int16(int32(u * 32767)), int16(int32(v * 32767))
}

// Layout describes the packed vertex format to the GPU device.
func Layout() gpu.VertexLayout {
	return gpu.VertexLayout{
		Stride: VertexStride,
		Attribs: []gpu.VertexAttrib{
			{Location: 0, Size: 3, Type: gpu.AttribFloat, Offset: 0},
			{Location: 1, Size: 4, Type: gpu.AttribUint8, Normalized: true, Offset: 12},
			{Location: 2, Size: 2, Type: gpu.AttribInt16, Normalized: true, Offset: 16},
			{Location: 3, Size: 4, Type: gpu.AttribUint8, Offset: 20},
			{Location: 4, Size: 4, Type: gpu.AttribFloat, Offset: 24},
		},
	}
}

// packVertices serializes vertices into the byte layout the device consumes.
func packVertices(vertices []Vertex) []byte {
	out := make([]byte, len(vertices)*VertexStride)
	for i, v := range vertices {
		b := out[i*VertexStride:]
		binary.LittleEndian.PutUint32(b[0:], gomath.Float32bits(v.Position[0]))
		binary.LittleEndian.PutUint32(b[4:], gomath.Float32bits(v.Position[1]))
		binary.LittleEndian.PutUint32(b[8:], gomath.Float32bits(v.Position[2]))
		binary.LittleEndian.PutUint32(b[12:], v.PackedNormal)
		binary.LittleEndian.PutUint16(b[16:], uint16(v.U))
		binary.LittleEndian.PutUint16(b[18:], uint16(v.V))
		copy(b[20:24], v.Joints[:])
		for w := 0; w < 4; w++ {
			binary.LittleEndian.PutUint32(b[24+w*4:], gomath.Float32bits(v.Weights[w]))
		}
	}
	return out
}

// packIndices serializes a 16-bit index list.
func packIndices(indices []uint16) []byte {
	out := make([]byte, len(indices)*2)
	for i, idx := range indices {
		binary.LittleEndian.PutUint16(out[i*2:], idx)
	}
	return out
}
