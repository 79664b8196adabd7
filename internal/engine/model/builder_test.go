package model

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	gomath "math"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/fairhill1/gameEngine-sub001/internal/engine/gpu"
)

// docAssembler builds in-memory glTF documents for tests, one buffer and
// buffer view per accessor.
type docAssembler struct {
	doc *gltf.Document
}

func newDoc() *docAssembler {
	return &docAssembler{doc: &gltf.Document{}}
}

func (a *docAssembler) addRaw(raw []byte, compType gltf.ComponentType, count int) uint32 {
	a.doc.Buffers = append(a.doc.Buffers, &gltf.Buffer{
		ByteLength: uint32(len(raw)),
		Data:       raw,
	})
	a.doc.BufferViews = append(a.doc.BufferViews, &gltf.BufferView{
		Buffer:     uint32(len(a.doc.Buffers) - 1),
		ByteLength: uint32(len(raw)),
	})
	a.doc.Accessors = append(a.doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(uint32(len(a.doc.BufferViews) - 1)),
		ComponentType: compType,
		Count:         uint32(count),
	})
	return uint32(len(a.doc.Accessors) - 1)
}

func (a *docAssembler) addFloats(compCount int, vals ...float32) uint32 {
	raw := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(raw[i*4:], gomath.Float32bits(v))
	}
	return a.addRaw(raw, gltf.ComponentFloat, len(vals)/compCount)
}

func (a *docAssembler) addUint16s(vals ...uint16) uint32 {
	raw := make([]byte, len(vals)*2)
	for i, v := range vals {
		binary.LittleEndian.PutUint16(raw[i*2:], v)
	}
	return a.addRaw(raw, gltf.ComponentUshort, len(vals))
}

func (a *docAssembler) addJoints(vals ...[4]uint8) uint32 {
	raw := make([]byte, len(vals)*4)
	for i, v := range vals {
		copy(raw[i*4:], v[:])
	}
	return a.addRaw(raw, gltf.ComponentUbyte, len(vals))
}

func (a *docAssembler) addMesh(prim *gltf.Primitive) {
	a.doc.Meshes = append(a.doc.Meshes, &gltf.Mesh{
		Primitives: []*gltf.Primitive{prim},
	})
}

func newTestModel(t *testing.T, opts Options) (*Model, *recordDevice) {
	t.Helper()
	dev := newRecordDevice()
	return New(dev, opts), dev
}

func TestBuildTriangle(t *testing.T) {
	a := newDoc()
	pos := a.addFloats(3,
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	)
	a.addMesh(&gltf.Primitive{
		Attributes: map[string]uint32{gltf.POSITION: pos},
	})

	m, dev := newTestModel(t, DefaultOptions())
	m.buildMeshes(a.doc)

	if len(m.meshes) != 1 {
		t.Fatalf("built %d meshes, want 1", len(m.meshes))
	}
	mesh := m.meshes[0]
	if len(mesh.Vertices) != 3 {
		t.Fatalf("got %d vertices, want 3", len(mesh.Vertices))
	}

	wantIndices := []uint16{0, 1, 2}
	for i, idx := range mesh.Indices {
		if idx != wantIndices[i] {
			t.Errorf("index %d = %d, want %d", i, idx, wantIndices[i])
		}
	}
	if mesh.Vertices[1].Position != [3]float32{1, 0, 0} {
		t.Errorf("vertex 1 position %v, want (1,0,0)", mesh.Vertices[1].Position)
	}

	up := EncodeNormal(0, 1, 0)
	for i, v := range mesh.Vertices {
		if v.PackedNormal != up {
			t.Errorf("vertex %d normal %#x, want default up vector", i, v.PackedNormal)
		}
		if v.U != 0 || v.V != 0 {
			t.Errorf("vertex %d UV (%d,%d), want (0,0)", i, v.U, v.V)
		}
	}

	if mesh.HasAnimation {
		t.Error("static triangle marked animated")
	}
	if mesh.hasTexture {
		t.Error("triangle without material resolved a texture")
	}
	if mesh.Topology != gpu.TopologyTriangles {
		t.Errorf("topology %d, want triangles", mesh.Topology)
	}

	if got := len(dev.vertexData[mesh.vertexBuf]); got != 3*VertexStride {
		t.Errorf("uploaded %d vertex bytes, want %d", got, 3*VertexStride)
	}
	if got := len(dev.indexData[mesh.indexBuf]); got != 6 {
		t.Errorf("uploaded %d index bytes, want 6", got)
	}
}

func TestBuildScaleAndFlipV(t *testing.T) {
	a := newDoc()
	pos := a.addFloats(3, 1, 2, 3)
	uv := a.addFloats(2, 0.25, 1)
	a.addMesh(&gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION:   pos,
			gltf.TEXCOORD_0: uv,
		},
	})

	opts := DefaultOptions()
	opts.Scale = 2
	opts.FlipV = true
	m, _ := newTestModel(t, opts)
	m.buildMeshes(a.doc)

	if len(m.meshes) != 1 {
		t.Fatalf("built %d meshes, want 1", len(m.meshes))
	}
	v := m.meshes[0].Vertices[0]
	if v.Position != [3]float32{2, 4, 6} {
		t.Errorf("scaled position %v, want (2,4,6)", v.Position)
	}
	wantU, wantV := EncodeUV(0.25, 0)
	if v.U != wantU || v.V != wantV {
		t.Errorf("flipped UV (%d,%d), want (%d,%d)", v.U, v.V, wantU, wantV)
	}
}

func TestBuildWeightNormalization(t *testing.T) {
	a := newDoc()
	pos := a.addFloats(3,
		0, 0, 0,
		1, 0, 0,
	)
	joints := a.addJoints(
		[4]uint8{0, 1, 0, 0},
		[4]uint8{1, 0, 0, 0},
	)
	weights := a.addFloats(4,
		2, 2, 0, 0,
		0, 0, 0, 0,
	)
	a.addMesh(&gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION:  pos,
			gltf.JOINTS_0:  joints,
			gltf.WEIGHTS_0: weights,
		},
	})

	m, _ := newTestModel(t, DefaultOptions())
	m.buildMeshes(a.doc)

	if len(m.meshes) != 1 {
		t.Fatalf("built %d meshes, want 1", len(m.meshes))
	}
	mesh := m.meshes[0]
	if !mesh.HasAnimation {
		t.Fatal("mesh with joints and weights not marked animated")
	}

	if mesh.Vertices[0].Weights != [4]float32{0.5, 0.5, 0, 0} {
		t.Errorf("weights %v, want (0.5,0.5,0,0)", mesh.Vertices[0].Weights)
	}
	// All-zero raw weights keep the single-bone default, no division by zero.
	if mesh.Vertices[1].Weights != [4]float32{1, 0, 0, 0} {
		t.Errorf("zero-weight vertex got %v, want default (1,0,0,0)", mesh.Vertices[1].Weights)
	}
	if mesh.Vertices[0].Joints != [4]uint8{0, 1, 0, 0} {
		t.Errorf("joints %v, want (0,1,0,0)", mesh.Vertices[0].Joints)
	}

	if len(mesh.Original) != 2 || len(mesh.Animated) != 2 {
		t.Errorf("bind pose snapshots %d/%d vertices, want 2/2",
			len(mesh.Original), len(mesh.Animated))
	}
}

func TestBuildTruncatedPositions(t *testing.T) {
	a := newDoc()
	// Accessor claims 3 vertices but the buffer holds only 2.
	pos := a.addFloats(3,
		1, 1, 1,
		2, 2, 2,
	)
	a.doc.Accessors[pos].Count = 3
	a.addMesh(&gltf.Primitive{
		Attributes: map[string]uint32{gltf.POSITION: pos},
	})

	m, _ := newTestModel(t, DefaultOptions())
	m.buildMeshes(a.doc)

	if len(m.meshes) != 1 {
		t.Fatalf("built %d meshes, want 1", len(m.meshes))
	}
	mesh := m.meshes[0]
	if len(mesh.Vertices) != 3 {
		t.Fatalf("got %d vertices, want 3", len(mesh.Vertices))
	}
	if mesh.Vertices[1].Position != [3]float32{2, 2, 2} {
		t.Errorf("vertex 1 position %v, want (2,2,2)", mesh.Vertices[1].Position)
	}
	if mesh.Vertices[2].Position != [3]float32{} {
		t.Errorf("unreadable tail position %v, want zero vector", mesh.Vertices[2].Position)
	}
}

func TestBuildIndexCanonicalization(t *testing.T) {
	a := newDoc()
	pos := a.addFloats(3,
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	)
	idx := a.addUint16s(0, 1, 9)
	a.addMesh(&gltf.Primitive{
		Attributes: map[string]uint32{gltf.POSITION: pos},
		Indices:    gltf.Index(idx),
	})

	m, _ := newTestModel(t, DefaultOptions())
	m.buildMeshes(a.doc)

	if len(m.meshes) != 1 {
		t.Fatalf("built %d meshes, want 1", len(m.meshes))
	}
	want := []uint16{0, 1, 0}
	for i, got := range m.meshes[0].Indices {
		if got != want[i] {
			t.Errorf("index %d = %d, want %d", i, got, want[i])
		}
	}
}

func TestBuildUnsupportedIndexType(t *testing.T) {
	a := newDoc()
	pos := a.addFloats(3, 0, 0, 0)
	badIdx := a.addFloats(1, 0)
	a.addMesh(&gltf.Primitive{
		Attributes: map[string]uint32{gltf.POSITION: pos},
		Indices:    gltf.Index(badIdx),
	})

	m, _ := newTestModel(t, DefaultOptions())
	m.buildMeshes(a.doc)

	if len(m.meshes) != 0 {
		t.Errorf("primitive with float indices built %d meshes, want 0", len(m.meshes))
	}
}

// pngDataURI encodes a solid 2x2 image as a base64 data URI.
func pngDataURI(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test image: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestBuildSharedTextureCache(t *testing.T) {
	a := newDoc()
	a.doc.Images = []*gltf.Image{{URI: pngDataURI(t, color.NRGBA{R: 255, A: 255})}}
	a.doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}
	a.doc.Materials = []*gltf.Material{{
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	}}

	// Two primitives referencing the same material, and through it the
	// same source image.
	for i := 0; i < 2; i++ {
		pos := a.addFloats(3,
			0, 0, 0,
			1, 0, 0,
			0, 1, 0,
		)
		a.addMesh(&gltf.Primitive{
			Attributes: map[string]uint32{gltf.POSITION: pos},
			Material:   gltf.Index(0),
		})
	}

	m, dev := newTestModel(t, DefaultOptions())
	m.buildMeshes(a.doc)

	if len(m.meshes) != 2 {
		t.Fatalf("built %d meshes, want 2", len(m.meshes))
	}
	if dev.textures != 1 {
		t.Fatalf("device created %d textures, want 1 shared", dev.textures)
	}
	for i, mesh := range m.meshes {
		if !mesh.hasTexture {
			t.Fatalf("mesh %d has no texture", i)
		}
	}
	if m.meshes[0].Texture != m.meshes[1].Texture {
		t.Errorf("meshes hold different texture handles %v and %v, want shared",
			m.meshes[0].Texture, m.meshes[1].Texture)
	}
}

func TestBuildMissingPosition(t *testing.T) {
	a := newDoc()
	norm := a.addFloats(3, 0, 1, 0)
	a.addMesh(&gltf.Primitive{
		Attributes: map[string]uint32{gltf.NORMAL: norm},
	})

	m, _ := newTestModel(t, DefaultOptions())
	m.buildMeshes(a.doc)

	if len(m.meshes) != 0 {
		t.Errorf("primitive without positions built %d meshes, want 0", len(m.meshes))
	}
}
