package model

import (
	"encoding/binary"
	"fmt"
	gomath "math"
	"os"

	"go.uber.org/zap"

	"github.com/fairhill1/gameEngine-sub001/internal/engine/gpu"
	"github.com/fairhill1/gameEngine-sub001/internal/logger"
)

// LoadBinary loads a legacy raw mesh dump: no header, no attribute
// metadata, just packed float3 positions optionally followed by uint16
// indices. The split between the two is guessed from the file size, so the
// result is best effort. The model is emptied first.
func (m *Model) LoadBinary(path string) error {
	m.Unload()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty binary payload in %s", path)
	}

	positions, indices := splitLegacy(data)
	if len(positions) == 0 {
		return fmt.Errorf("%s too small for a single position (%d bytes)", path, len(data))
	}

	vertices := make([]Vertex, len(positions))
	for i, p := range positions {
		vertices[i] = DefaultVertex()
		vertices[i].Position = [3]float32{
			p[0] * m.opts.Scale,
			p[1] * m.opts.Scale,
			p[2] * m.opts.Scale,
		}
	}
	if indices == nil {
		indices = sequentialIndices(len(vertices))
	}

	mesh := &Mesh{
		Vertices: vertices,
		Indices:  indices,
		Topology: gpu.TopologyTriangles,
	}
	m.uploadMesh(mesh)
	m.meshes = append(m.meshes, mesh)

	logger.Info("legacy binary loaded",
		zap.String("path", path),
		zap.Int("vertices", len(vertices)),
		zap.Int("indices", len(indices)),
	)
	return nil
}

// splitLegacy guesses the position/index split. A payload that is a whole
// number of float3s is taken as positions only (indices synthesized by the
// caller); otherwise roughly the first two thirds are positions and the
// remainder 16-bit indices. Indices that point past the vertex list clamp
// to 0. Trailing bytes that complete neither a position nor an index are
// ignored, never read past.
func splitLegacy(data []byte) ([][3]float32, []uint16) {
	posBytes := len(data)
	var indexData []byte
	if len(data)%12 != 0 {
		posBytes = len(data) * 2 / 3 / 12 * 12
		indexData = data[posBytes:]
	}

	positions := make([][3]float32, posBytes/12)
	for i := range positions {
		for c := 0; c < 3; c++ {
			bits := binary.LittleEndian.Uint32(data[i*12+c*4:])
			positions[i][c] = gomath.Float32frombits(bits)
		}
	}

	if indexData == nil {
		return positions, nil
	}

	indices := make([]uint16, len(indexData)/2)
	clamped := 0
	for i := range indices {
		idx := binary.LittleEndian.Uint16(indexData[i*2:])
		if int(idx) >= len(positions) {
			idx = 0
			clamped++
		}
		indices[i] = idx
	}
	if clamped > 0 {
		logger.Warn("legacy indices beyond vertex count clamped to 0",
			zap.Int("indices", clamped),
			zap.Int("vertices", len(positions)),
		)
	}
	return positions, indices
}
