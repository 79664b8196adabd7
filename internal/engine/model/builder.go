package model

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/fairhill1/gameEngine-sub001/internal/engine/gpu"
	"github.com/fairhill1/gameEngine-sub001/internal/engine/texture"
	"github.com/fairhill1/gameEngine-sub001/internal/logger"
)

// buildMeshes walks every primitive of every mesh in the document and emits
// renderable mesh records. Per-primitive failures skip that primitive only.
func (m *Model) buildMeshes(doc *gltf.Document) {
	for mi, gm := range doc.Meshes {
		for pi, prim := range gm.Primitives {
			mesh := m.buildPrimitive(doc, prim)
			if mesh == nil {
				logger.Warn("skipped primitive",
					zap.Int("mesh", mi),
					zap.Int("primitive", pi),
					zap.String("name", gm.Name),
				)
				continue
			}
			m.uploadMesh(mesh)
			m.meshes = append(m.meshes, mesh)
		}
	}
}

func (m *Model) buildPrimitive(doc *gltf.Document, prim *gltf.Primitive) *Mesh {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		logger.Warn("primitive has no position attribute")
		return nil
	}

	posView := newAccessorView(doc, int(posIdx), 3)
	count := posView.count
	if count == 0 {
		logger.Warn("primitive has zero vertices")
		return nil
	}

	// Every field gets a safe default before any attribute decode so
	// partially missing attributes never leave uninitialized data.
	vertices := make([]Vertex, count)
	for i := range vertices {
		vertices[i] = DefaultVertex()
	}

	for i := 0; i < count; i++ {
		p := posView.floats(i)
		vertices[i].Position = [3]float32{
			p[0] * m.opts.Scale,
			p[1] * m.opts.Scale,
			p[2] * m.opts.Scale,
		}
	}
	posView.logShortReads("position")

	if normIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normView := newAccessorView(doc, int(normIdx), 3)
		for i := 0; i < count && i < normView.count; i++ {
			n := normView.floats(i)
			vertices[i].PackedNormal = EncodeNormal(n[0], n[1], n[2])
		}
		normView.logShortReads("normal")
	}

	if uvIdx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvView := newAccessorView(doc, int(uvIdx), 2)
		for i := 0; i < count && i < uvView.count; i++ {
			uv := uvView.floats(i)
			u, v := uv[0], uv[1]
			if m.opts.FlipV {
				v = 1 - v
			}
			vertices[i].U, vertices[i].V = EncodeUV(u, v)
		}
		uvView.logShortReads("texcoord")
	}

	// Skinning requires the joint/weight pair; one without the other
	// leaves the mesh static.
	jointsIdx, hasJoints := prim.Attributes[gltf.JOINTS_0]
	weightsIdx, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
	hasAnimation := hasJoints && hasWeights
	if hasAnimation {
		joints := decodeJoints(doc, int(jointsIdx))
		weightView := newAccessorView(doc, int(weightsIdx), 4)
		for i := 0; i < count; i++ {
			if i < len(joints) {
				vertices[i].Joints = joints[i]
			}
			if i < weightView.count {
				w := weightView.floats(i)
				sum := w[0] + w[1] + w[2] + w[3]
				if sum > 0 {
					for c := 0; c < 4; c++ {
						vertices[i].Weights[c] = w[c] / sum
					}
				}
			}
		}
		weightView.logShortReads("weights")
	}

	var indices []uint16
	if prim.Indices != nil {
		decoded, ok := decodeIndices(doc, int(*prim.Indices), count)
		if !ok {
			return nil
		}
		indices = decoded
	} else {
		indices = sequentialIndices(count)
	}

	mesh := &Mesh{
		Vertices:     vertices,
		Indices:      indices,
		Topology:     topologyOf(prim.Mode),
		HasAnimation: hasAnimation,
	}

	if hasAnimation {
		mesh.Original = append([]Vertex(nil), vertices...)
		mesh.Animated = append([]Vertex(nil), vertices...)
	}

	if h, ok := m.resolveTexture(doc, prim); ok {
		mesh.Texture = h
		mesh.hasTexture = true
	}

	return mesh
}

// sequentialIndices synthesizes the identity index list for unindexed
// primitives. Vertex counts beyond the 16-bit range are truncated.
func sequentialIndices(count int) []uint16 {
	if count > 0x10000 {
		logger.Warn("vertex count exceeds 16-bit index range, truncating",
			zap.Int("vertices", count),
		)
		count = 0x10000
	}
	indices := make([]uint16, count)
	for i := range indices {
		indices[i] = uint16(i)
	}
	return indices
}

func topologyOf(mode gltf.PrimitiveMode) gpu.Topology {
	switch mode {
	case gltf.PrimitivePoints:
		return gpu.TopologyPoints
	case gltf.PrimitiveLines:
		return gpu.TopologyLines
	case gltf.PrimitiveLineLoop:
		return gpu.TopologyLineLoop
	case gltf.PrimitiveLineStrip:
		return gpu.TopologyLineStrip
	case gltf.PrimitiveTriangleStrip:
		return gpu.TopologyTriangleStrip
	case gltf.PrimitiveTriangleFan:
		return gpu.TopologyTriangleFan
	default:
		return gpu.TopologyTriangles
	}
}

// uploadMesh creates the GPU buffers for a mesh.
func (m *Model) uploadMesh(mesh *Mesh) {
	vb, err := m.device.CreateVertexBuffer(packVertices(mesh.Vertices), Layout())
	if err != nil {
		logger.Error("vertex buffer upload failed", zap.Error(err))
		return
	}
	ib, err := m.device.CreateIndexBuffer(packIndices(mesh.Indices))
	if err != nil {
		logger.Error("index buffer upload failed", zap.Error(err))
		m.device.DestroyBuffer(vb)
		return
	}
	mesh.vertexBuf = vb
	mesh.indexBuf = ib
}

// resolveTexture walks material -> base color texture -> source image and
// returns a cached or freshly created GPU texture. Any failure along the way
// reports no texture; the caller falls back to the shared default.
func (m *Model) resolveTexture(doc *gltf.Document, prim *gltf.Primitive) (gpu.TextureHandle, bool) {
	if prim.Material == nil {
		return 0, false
	}
	mat := doc.Materials[*prim.Material]
	if mat.PBRMetallicRoughness == nil || mat.PBRMetallicRoughness.BaseColorTexture == nil {
		return 0, false
	}
	tex := doc.Textures[mat.PBRMetallicRoughness.BaseColorTexture.Index]
	if tex.Source == nil {
		return 0, false
	}
	imgIdx := int(*tex.Source)

	if h, ok := m.textureCache[imgIdx]; ok {
		return h, true
	}

	data, err := imageBytes(doc, imgIdx, m.baseDir)
	if err != nil {
		logger.Warn("resolving texture image failed",
			zap.Int("image", imgIdx),
			zap.Error(err),
		)
		return 0, false
	}

	w, h, channels, pixels, err := texture.Decode(data)
	if err != nil {
		logger.Warn("decoding texture image failed",
			zap.Int("image", imgIdx),
			zap.Error(err),
		)
		return 0, false
	}
	pixels = texture.ExpandRGB(pixels, w, h, channels)

	handle, err := m.device.CreateTexture(w, h, gpu.TextureRGBA8, pixels)
	if err != nil {
		logger.Warn("creating texture failed",
			zap.Int("image", imgIdx),
			zap.Error(err),
		)
		return 0, false
	}

	m.textureCache[imgIdx] = handle
	logger.Debug("texture created",
		zap.Int("image", imgIdx),
		zap.Int("width", w),
		zap.Int("height", h),
	)
	return handle, true
}

// imageBytes extracts the encoded bytes of a source image from its buffer
// view, data URI, or file relative to the document.
func imageBytes(doc *gltf.Document, imgIdx int, baseDir string) ([]byte, error) {
	img := doc.Images[imgIdx]

	if img.BufferView != nil {
		bv := doc.BufferViews[*img.BufferView]
		buf := doc.Buffers[bv.Buffer]
		start := int(bv.ByteOffset)
		end := start + int(bv.ByteLength)
		if start < 0 || end > len(buf.Data) {
			return nil, fmt.Errorf("image buffer view out of range [%d:%d] of %d", start, end, len(buf.Data))
		}
		return buf.Data[start:end], nil
	}

	if img.URI == "" {
		return nil, fmt.Errorf("image %d has neither buffer view nor URI", imgIdx)
	}

	if strings.HasPrefix(img.URI, "data:") {
		comma := strings.IndexByte(img.URI, ',')
		if comma < 0 {
			return nil, fmt.Errorf("malformed data URI for image %d", imgIdx)
		}
		return base64.StdEncoding.DecodeString(img.URI[comma+1:])
	}

	return os.ReadFile(filepath.Join(baseDir, img.URI))
}
