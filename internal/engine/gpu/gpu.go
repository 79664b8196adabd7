// Package gpu defines the handle-producing device interface the model
// pipeline renders through. The pipeline only ever creates, binds, draws and
// destroys through these operations and never inspects handle internals.
package gpu

import "github.com/fairhill1/gameEngine-sub001/pkg/math"

// BufferHandle identifies a device vertex or index buffer. Zero is invalid.
type BufferHandle uint32

// TextureHandle identifies a device texture. Zero is invalid.
type TextureHandle uint32

// TextureFormat enumerates supported pixel formats.
type TextureFormat int

const (
	// TextureRGBA8 is 8-bit-per-channel RGBA, the only format the mesh
	// builder uploads (RGB sources are expanded before upload).
	TextureRGBA8 TextureFormat = iota
)

// Topology is the primitive topology code recorded per mesh. Values match
// the glTF primitive modes.
type Topology int

const (
	TopologyPoints        Topology = 0
	TopologyLines         Topology = 1
	TopologyLineLoop      Topology = 2
	TopologyLineStrip     Topology = 3
	TopologyTriangles     Topology = 4
	TopologyTriangleStrip Topology = 5
	TopologyTriangleFan   Topology = 6
)

// AttribType enumerates vertex attribute component types.
type AttribType int

const (
	AttribFloat AttribType = iota
	AttribUint8
	AttribInt16
)

// VertexAttrib describes one attribute inside a packed vertex record.
type VertexAttrib struct {
	Location   int
	Size       int
	Type       AttribType
	Normalized bool
	Offset     int
}

// VertexLayout describes a packed vertex record.
type VertexLayout struct {
	Stride  int
	Attribs []VertexAttrib
}

// Device is the external GPU collaborator. Implementations own all driver
// state; callers hold only opaque handles scoped to a model's lifetime.
type Device interface {
	CreateVertexBuffer(data []byte, layout VertexLayout) (BufferHandle, error)
	CreateIndexBuffer(data []byte) (BufferHandle, error)
	CreateTexture(width, height int, format TextureFormat, pixels []byte) (TextureHandle, error)

	DestroyBuffer(h BufferHandle)
	DestroyTexture(h TextureHandle)

	SetTransform(m math.Mat4)
	BindTexture(slot int, h TextureHandle)
	BindMesh(vertices, indices BufferHandle)
	Draw(topology Topology, indexCount int)
	DrawInstanced(topology Topology, indexCount int, instances BufferHandle, instanceCount int)
}
