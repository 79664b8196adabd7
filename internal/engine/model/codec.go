package model

import (
	"encoding/binary"
	gomath "math"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/fairhill1/gameEngine-sub001/internal/logger"
)

// accessorView exposes one accessor's elements out of its backing buffer,
// assuming tightly packed elements. Every read is bounds-checked; reads past
// the buffer end yield zero elements so one truncated attribute cannot fail
// a whole mesh.
type accessorView struct {
	data      []byte
	offset    int
	count     int
	compType  gltf.ComponentType
	compCount int

	short    int // elements that failed the bounds check
	badFloat int // float reads against a non-float accessor
}

func componentSize(t gltf.ComponentType) int {
	switch t {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	default: // ComponentUint, ComponentFloat
		return 4
	}
}

// newAccessorView resolves an accessor index against the document's buffers.
// Accessors without a buffer view (legal in glTF for all-zero data) produce
// a view whose every read returns the zero element.
func newAccessorView(doc *gltf.Document, accIdx int, compCount int) *accessorView {
	acc := doc.Accessors[accIdx]
	v := &accessorView{
		count:     int(acc.Count),
		compType:  acc.ComponentType,
		compCount: compCount,
	}
	if acc.BufferView == nil {
		return v
	}

	bv := doc.BufferViews[*acc.BufferView]
	buf := doc.Buffers[bv.Buffer]
	v.data = buf.Data
	v.offset = int(bv.ByteOffset) + int(acc.ByteOffset)
	return v
}

func (v *accessorView) elemSize() int {
	return componentSize(v.compType) * v.compCount
}

// inBounds checks that element i can be read completely.
func (v *accessorView) inBounds(i int) bool {
	off := v.offset + i*v.elemSize()
	if off < 0 || off+v.elemSize() > len(v.data) {
		v.short++
		return false
	}
	return true
}

// floats reads element i as up to four float32 components. Non-float
// accessors and out-of-bounds elements read as zero.
func (v *accessorView) floats(i int) [4]float32 {
	var out [4]float32
	if v.compType != gltf.ComponentFloat {
		v.badFloat++
		return out
	}
	if !v.inBounds(i) {
		return out
	}
	off := v.offset + i*v.elemSize()
	for c := 0; c < v.compCount; c++ {
		bits := binary.LittleEndian.Uint32(v.data[off+c*4:])
		out[c] = gomath.Float32frombits(bits)
	}
	return out
}

// uints reads element i as up to four unsigned integer components of 8, 16
// or 32 bit width. Out-of-bounds elements read as zero.
func (v *accessorView) uints(i int) [4]uint32 {
	var out [4]uint32
	if !v.inBounds(i) {
		return out
	}
	off := v.offset + i*v.elemSize()
	cs := componentSize(v.compType)
	for c := 0; c < v.compCount; c++ {
		switch cs {
		case 1:
			out[c] = uint32(v.data[off+c])
		case 2:
			out[c] = uint32(binary.LittleEndian.Uint16(v.data[off+c*2:]))
		default:
			out[c] = binary.LittleEndian.Uint32(v.data[off+c*4:])
		}
	}
	return out
}

// logShortReads emits one warning per accessor that had truncated elements
// or was read with the wrong component type.
func (v *accessorView) logShortReads(what string) {
	if v.short > 0 {
		logger.Warn("accessor data truncated, substituted defaults",
			zap.String("attribute", what),
			zap.Int("elements", v.short),
			zap.Int("count", v.count),
		)
	}
	if v.badFloat > 0 {
		logger.Warn("accessor is not float typed, substituted zeros",
			zap.String("attribute", what),
			zap.Int("componentType", int(v.compType)),
			zap.Int("elements", v.badFloat),
		)
	}
}

// supportedIndexType reports whether the component type is one of the three
// unsigned index widths.
func supportedIndexType(t gltf.ComponentType) bool {
	return t == gltf.ComponentUbyte || t == gltf.ComponentUshort || t == gltf.ComponentUint
}

// decodeIndices reads an index accessor and canonicalizes it to 16 bits.
// Any index that exceeds the vertex count or the 16-bit range is replaced by
// 0 so downstream reads can never go out of range; the triangles touching it
// will be wrong, which beats rejecting the whole mesh.
func decodeIndices(doc *gltf.Document, accIdx int, vertexCount int) ([]uint16, bool) {
	acc := doc.Accessors[accIdx]
	if !supportedIndexType(acc.ComponentType) {
		logger.Warn("unsupported index component type, skipping primitive",
			zap.Int("componentType", int(acc.ComponentType)),
		)
		return nil, false
	}

	v := newAccessorView(doc, accIdx, 1)
	indices := make([]uint16, v.count)
	substituted := 0
	for i := 0; i < v.count; i++ {
		raw := v.uints(i)[0]
		if raw > 0xFFFF || int(raw) >= vertexCount {
			substituted++
			raw = 0
		}
		indices[i] = uint16(raw)
	}

	v.logShortReads("indices")
	if substituted > 0 {
		logger.Warn("out-of-range indices substituted with 0",
			zap.Int("indices", substituted),
			zap.Int("vertexCount", vertexCount),
		)
	}
	return indices, true
}

// decodeJoints reads a JOINTS_0 accessor (8- or 16-bit vec4) canonicalized
// to 8-bit indices. Values beyond 255 substitute joint 0.
func decodeJoints(doc *gltf.Document, accIdx int) [][4]uint8 {
	v := newAccessorView(doc, accIdx, 4)
	out := make([][4]uint8, v.count)
	substituted := 0
	for i := 0; i < v.count; i++ {
		raw := v.uints(i)
		for c := 0; c < 4; c++ {
			if raw[c] > 0xFF {
				substituted++
				raw[c] = 0
			}
			out[i][c] = uint8(raw[c])
		}
	}

	v.logShortReads("joints")
	if substituted > 0 {
		logger.Warn("joint indices beyond 8-bit range substituted with 0",
			zap.Int("components", substituted),
		)
	}
	return out
}
