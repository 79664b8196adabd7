package model

import (
	"encoding/base64"
	"fmt"
	"testing"
)

func TestLoadFileGLTF(t *testing.T) {
	positions := packPositions(
		[3]float32{0, 0, 0},
		[3]float32{1, 0, 0},
		[3]float32{0, 1, 0},
	)
	gltfJSON := fmt.Sprintf(`{
		"asset": {"version": "2.0"},
		"buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}],
		"bufferViews": [{"buffer": 0, "byteLength": %d}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
		"nodes": [{"mesh": 0}],
		"scenes": [{"nodes": [0]}]
	}`, len(positions), base64.StdEncoding.EncodeToString(positions), len(positions))

	path := writeTempFile(t, "triangle.gltf", []byte(gltfJSON))

	m, dev := newTestModel(t, DefaultOptions())
	if err := m.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if len(m.meshes) != 1 {
		t.Fatalf("loaded %d meshes, want 1", len(m.meshes))
	}
	mesh := m.meshes[0]
	if len(mesh.Vertices) != 3 {
		t.Fatalf("got %d vertices, want 3", len(mesh.Vertices))
	}
	if mesh.Vertices[1].Position != [3]float32{1, 0, 0} {
		t.Errorf("vertex 1 position %v, want (1,0,0)", mesh.Vertices[1].Position)
	}
	for i, idx := range mesh.Indices {
		if idx != uint16(i) {
			t.Errorf("index %d = %d, want sequential", i, idx)
		}
	}
	if len(dev.vertexData) != 1 || len(dev.indexData) != 1 {
		t.Errorf("device holds %d vertex / %d index buffers, want 1/1",
			len(dev.vertexData), len(dev.indexData))
	}

	// Loading again replaces the previous scene entirely.
	if err := m.LoadFile(path); err != nil {
		t.Fatalf("second LoadFile: %v", err)
	}
	if len(m.meshes) != 1 || len(dev.vertexData) != 1 {
		t.Errorf("reload kept stale state: %d meshes, %d buffers",
			len(m.meshes), len(dev.vertexData))
	}
}
