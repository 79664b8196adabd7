package model

import (
	"go.uber.org/zap"

	"github.com/fairhill1/gameEngine-sub001/internal/logger"
	"github.com/fairhill1/gameEngine-sub001/pkg/math"
)

// Influences below this weight are skipped entirely.
const weightEpsilon = 1e-4

// SkinJob is the flattened form of one mesh handed to a SkinEvaluator.
// Positions and normals are xyz triples. JointWeights carries only the first
// three weights per vertex; the fourth is implicitly 1 minus their sum.
type SkinJob struct {
	InPositions  []float32
	OutPositions []float32
	InNormals    []float32
	OutNormals   []float32

	JointIndices []uint8
	JointWeights []float32

	VertexCount    int
	InfluenceCount int

	Palette []math.Mat4
}

// SkinEvaluator deforms a batch of vertices against a joint palette.
// Implementations must fill OutPositions and OutNormals completely or
// return an error; partial output is treated as failure.
type SkinEvaluator interface {
	Skin(job *SkinJob) error
}

// skinMesh recomputes the animated vertex array of one mesh from its bind
// pose and the evaluated joint palette, then re-uploads the vertex buffer.
func (m *Model) skinMesh(mesh *Mesh, palette []math.Mat4) {
	if len(mesh.Animated) != len(mesh.Original) {
		logger.Error("animated/original vertex count diverged, skipping mesh",
			zap.Int("animated", len(mesh.Animated)),
			zap.Int("original", len(mesh.Original)),
		)
		return
	}

	if m.opts.Strategy == StrategyDelegated && m.skinner != nil {
		m.skinDelegated(mesh, palette)
	} else {
		skinWeighted(mesh, palette, m.opts.Damping)
	}

	m.reuploadVertices(mesh)
}

// skinWeighted is the internal path: each influence transforms the bind-pose
// position by its joint's pose matrix, the weighted sum is then blended with
// the original position by the damping ratio. This is an approximation, not
// standard linear blend skinning; damping 1 gives the pure weighted result.
func skinWeighted(mesh *Mesh, palette []math.Mat4, damping float32) {
	for i := range mesh.Original {
		src := &mesh.Original[i]
		dst := &mesh.Animated[i]
		*dst = *src

		nx, ny, nz := DecodeNormal(src.PackedNormal)
		normal := [3]float32{nx, ny, nz}

		var accPos, accNorm [3]float32
		total := float32(0)
		for c := 0; c < 4; c++ {
			w := src.Weights[c]
			if w <= weightEpsilon {
				continue
			}
			j := int(src.Joints[c])
			if j >= len(palette) {
				continue
			}
			p := palette[j].TransformPoint(src.Position)
			n := palette[j].TransformDirection(normal)
			for a := 0; a < 3; a++ {
				accPos[a] += p[a] * w
				accNorm[a] += n[a] * w
			}
			total += w
		}
		if total <= weightEpsilon {
			continue
		}

		for a := 0; a < 3; a++ {
			dst.Position[a] = src.Position[a]*(1-damping) + accPos[a]*damping
		}
		bent := math.Vec3{X: accNorm[0], Y: accNorm[1], Z: accNorm[2]}.Normalize()
		dst.PackedNormal = EncodeNormal(bent.X, bent.Y, bent.Z)
	}
}

// skinDelegated unpacks the mesh into flat arrays, hands them to the
// external evaluator and repacks the result. Evaluator failure reverts the
// animated array to the bind pose so no stale frame survives.
func (m *Model) skinDelegated(mesh *Mesh, palette []math.Mat4) {
	job := buildSkinJob(mesh, palette)
	if err := m.skinner.Skin(job); err != nil {
		logger.Warn("delegated skinning failed, reverting to bind pose", zap.Error(err))
		copy(mesh.Animated, mesh.Original)
		return
	}

	for i := range mesh.Animated {
		dst := &mesh.Animated[i]
		*dst = mesh.Original[i]
		dst.Position = [3]float32{
			job.OutPositions[i*3],
			job.OutPositions[i*3+1],
			job.OutPositions[i*3+2],
		}
		dst.PackedNormal = EncodeNormal(
			job.OutNormals[i*3],
			job.OutNormals[i*3+1],
			job.OutNormals[i*3+2],
		)
	}
}

func buildSkinJob(mesh *Mesh, palette []math.Mat4) *SkinJob {
	n := len(mesh.Original)
	job := &SkinJob{
		InPositions:    make([]float32, n*3),
		OutPositions:   make([]float32, n*3),
		InNormals:      make([]float32, n*3),
		OutNormals:     make([]float32, n*3),
		JointIndices:   make([]uint8, n*4),
		JointWeights:   make([]float32, n*3),
		VertexCount:    n,
		InfluenceCount: 4,
		Palette:        palette,
	}
	for i := range mesh.Original {
		src := &mesh.Original[i]
		copy(job.InPositions[i*3:], src.Position[:])
		nx, ny, nz := DecodeNormal(src.PackedNormal)
		job.InNormals[i*3] = nx
		job.InNormals[i*3+1] = ny
		job.InNormals[i*3+2] = nz
		copy(job.JointIndices[i*4:], src.Joints[:])
		copy(job.JointWeights[i*3:], src.Weights[:3])
	}
	return job
}

// reuploadVertices replaces the mesh's vertex buffer with one built from the
// animated array. Destroy then create, never an in-place update.
func (m *Model) reuploadVertices(mesh *Mesh) {
	if mesh.vertexBuf != 0 {
		m.device.DestroyBuffer(mesh.vertexBuf)
		mesh.vertexBuf = 0
	}
	vb, err := m.device.CreateVertexBuffer(packVertices(mesh.Animated), Layout())
	if err != nil {
		logger.Error("animated vertex buffer upload failed", zap.Error(err))
		return
	}
	mesh.vertexBuf = vb
}

// LinearBlend is the software SkinEvaluator shipped with the engine. It
// performs standard four-influence linear blend skinning, recovering the
// fourth weight from the three stored ones.
type LinearBlend struct{}

func (LinearBlend) Skin(job *SkinJob) error {
	for i := 0; i < job.VertexCount; i++ {
		var w [4]float32
		sum := float32(0)
		for c := 0; c < 3; c++ {
			w[c] = job.JointWeights[i*3+c]
			sum += w[c]
		}
		w[3] = 1 - sum
		if w[3] < 0 {
			w[3] = 0
		}

		pos := [3]float32{
			job.InPositions[i*3],
			job.InPositions[i*3+1],
			job.InPositions[i*3+2],
		}
		norm := [3]float32{
			job.InNormals[i*3],
			job.InNormals[i*3+1],
			job.InNormals[i*3+2],
		}

		var outPos, outNorm [3]float32
		for c := 0; c < job.InfluenceCount && c < 4; c++ {
			if w[c] <= weightEpsilon {
				continue
			}
			j := int(job.JointIndices[i*4+c])
			if j >= len(job.Palette) {
				continue
			}
			p := job.Palette[j].TransformPoint(pos)
			n := job.Palette[j].TransformDirection(norm)
			for a := 0; a < 3; a++ {
				outPos[a] += p[a] * w[c]
				outNorm[a] += n[a] * w[c]
			}
		}

		copy(job.OutPositions[i*3:], outPos[:])
		copy(job.OutNormals[i*3:], outNorm[:])
	}
	return nil
}
