package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/fairhill1/gameEngine-sub001/internal/engine/gpu"
	"github.com/fairhill1/gameEngine-sub001/internal/logger"
	"github.com/fairhill1/gameEngine-sub001/pkg/math"
)

// Skinning strategies.
const (
	StrategyWeighted  = "weighted"
	StrategyDelegated = "delegated"
)

// Options controls import and animation behavior. The zero value of Scale
// and Damping is replaced by the defaults in New.
type Options struct {
	// Scale multiplies every imported position.
	Scale float32
	// FlipV mirrors texture coordinates vertically at import time.
	FlipV bool
	// Strategy selects the skinning path, StrategyWeighted by default.
	Strategy string
	// Damping is the blend ratio of the weighted skinning path.
	Damping float32
	// Skinner handles StrategyDelegated. Nil selects the built-in
	// software linear blend evaluator.
	Skinner SkinEvaluator
}

// DefaultOptions returns the import defaults: unit scale, no V flip,
// weighted skinning with 0.85 damping.
func DefaultOptions() Options {
	return Options{Scale: 1, Strategy: StrategyWeighted, Damping: 0.85}
}

// Model owns everything loaded from one scene file: meshes with their GPU
// buffers, the joint hierarchy, skins, animation clips and the texture
// cache. A Model is not safe for concurrent use.
type Model struct {
	device  gpu.Device
	opts    Options
	skinner SkinEvaluator

	// baseDir resolves relative image URIs of .gltf files.
	baseDir string

	meshes []*Mesh
	joints []Joint
	skins  []Skin
	clips  []AnimationClip

	// textureCache maps glTF image index to the GPU texture created for
	// it, so primitives sharing an image share the upload.
	textureCache      map[int]gpu.TextureHandle
	defaultTexture    gpu.TextureHandle
	hasDefaultTexture bool
}

func New(device gpu.Device, opts Options) *Model {
	if opts.Scale == 0 {
		opts.Scale = 1
	}
	if opts.Damping == 0 {
		opts.Damping = DefaultOptions().Damping
	}
	skinner := opts.Skinner
	if skinner == nil {
		skinner = LinearBlend{}
	}
	return &Model{
		device:       device,
		opts:         opts,
		skinner:      skinner,
		textureCache: make(map[int]gpu.TextureHandle),
	}
}

// LoadFile loads a .gltf or .glb scene. The model is emptied first, so a
// failed load leaves it in the unloaded state, never half-populated.
func (m *Model) LoadFile(path string) error {
	m.Unload()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
	default:
		return fmt.Errorf("unsupported model format %q", filepath.Ext(path))
	}

	doc, err := gltf.Open(path)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	m.baseDir = filepath.Dir(path)

	m.buildSkeleton(doc)
	m.buildMeshes(doc)

	logger.Info("model loaded",
		zap.String("path", path),
		zap.Int("meshes", len(m.meshes)),
	)
	return nil
}

// Render draws every mesh with the given world transform. Meshes without a
// resolved texture use the shared 1x1 white default.
func (m *Model) Render(transform math.Mat4) {
	m.device.SetTransform(transform)
	for _, mesh := range m.meshes {
		if !m.bindMesh(mesh) {
			continue
		}
		m.device.Draw(mesh.Topology, len(mesh.Indices))
	}
}

// RenderInstanced draws every mesh count times using per-instance transforms
// from the given buffer.
func (m *Model) RenderInstanced(instances gpu.BufferHandle, count int) {
	for _, mesh := range m.meshes {
		if !m.bindMesh(mesh) {
			continue
		}
		m.device.DrawInstanced(mesh.Topology, len(mesh.Indices), instances, count)
	}
}

func (m *Model) bindMesh(mesh *Mesh) bool {
	if mesh.vertexBuf == 0 || mesh.indexBuf == 0 {
		return false
	}
	tex := mesh.Texture
	if !mesh.hasTexture {
		tex = m.ensureDefaultTexture()
	}
	m.device.BindTexture(0, tex)
	m.device.BindMesh(mesh.vertexBuf, mesh.indexBuf)
	return true
}

// Animation looks up a clip by name.
func (m *Model) Animation(name string) (*AnimationClip, bool) {
	for i := range m.clips {
		if m.clips[i].Name == name {
			return &m.clips[i], true
		}
	}
	return nil, false
}

// UpdateAnimatedVertices evaluates the named clip at the given time and
// re-skins every animated mesh, replacing their vertex buffers.
func (m *Model) UpdateAnimatedVertices(name string, time float32) error {
	clip, ok := m.Animation(name)
	if !ok {
		return fmt.Errorf("no animation named %q", name)
	}
	if len(m.skins) == 0 {
		return fmt.Errorf("model has no skin to animate")
	}

	palette := m.evaluatePose(clip, time)
	for _, mesh := range m.meshes {
		if !mesh.HasAnimation {
			continue
		}
		m.skinMesh(mesh, palette)
	}
	return nil
}

// InverseBindMatrices returns the first skin's inverse bind matrices as a
// flat column-major float array, 16 per joint in skin order.
func (m *Model) InverseBindMatrices() ([]float32, error) {
	if len(m.skins) == 0 {
		return nil, fmt.Errorf("model has no skin")
	}
	skin := m.skins[0]
	out := make([]float32, 0, len(skin.Joints)*16)
	for _, node := range skin.Joints {
		mat := math.Identity()
		if node >= 0 && node < len(m.joints) {
			mat = m.joints[node].InverseBind
		}
		out = append(out, mat[:]...)
	}
	return out, nil
}

// RemapBoneIndices rewrites every vertex bone index through the mapping
// table, for callers that reorder the joint palette. Indices outside the
// table are left unchanged, with a warning.
func (m *Model) RemapBoneIndices(mapping []uint8) error {
	if len(mapping) == 0 {
		return fmt.Errorf("empty bone index mapping")
	}

	unmapped := 0
	remap := func(vertices []Vertex) {
		for i := range vertices {
			for c := 0; c < 4; c++ {
				j := vertices[i].Joints[c]
				if int(j) >= len(mapping) {
					unmapped++
					continue
				}
				vertices[i].Joints[c] = mapping[j]
			}
		}
	}

	for _, mesh := range m.meshes {
		if !mesh.HasAnimation {
			continue
		}
		remap(mesh.Vertices)
		remap(mesh.Original)
		remap(mesh.Animated)
		m.reuploadVertices(mesh)
	}

	if unmapped > 0 {
		logger.Warn("bone indices outside mapping left unchanged",
			zap.Int("components", unmapped),
			zap.Int("mappingSize", len(mapping)),
		)
	}
	return nil
}

// Bounds returns the axis-aligned bounding box over all mesh vertices, or
// false for an empty model.
func (m *Model) Bounds() (min, max [3]float32, ok bool) {
	for _, mesh := range m.meshes {
		for _, v := range mesh.Vertices {
			if !ok {
				min, max, ok = v.Position, v.Position, true
				continue
			}
			for c := 0; c < 3; c++ {
				if v.Position[c] < min[c] {
					min[c] = v.Position[c]
				}
				if v.Position[c] > max[c] {
					max[c] = v.Position[c]
				}
			}
		}
	}
	return min, max, ok
}

// Clips returns the names of all imported animation clips.
func (m *Model) Clips() []string {
	names := make([]string, len(m.clips))
	for i := range m.clips {
		names[i] = m.clips[i].Name
	}
	return names
}

// Unload releases every GPU resource and empties the model. Safe to call at
// any time, including on an already empty model.
func (m *Model) Unload() {
	for _, mesh := range m.meshes {
		if mesh.vertexBuf != 0 {
			m.device.DestroyBuffer(mesh.vertexBuf)
		}
		if mesh.indexBuf != 0 {
			m.device.DestroyBuffer(mesh.indexBuf)
		}
	}
	for _, h := range m.textureCache {
		m.device.DestroyTexture(h)
	}
	if m.hasDefaultTexture {
		m.device.DestroyTexture(m.defaultTexture)
		m.hasDefaultTexture = false
	}

	m.meshes = nil
	m.joints = nil
	m.skins = nil
	m.clips = nil
	m.baseDir = ""
	m.textureCache = make(map[int]gpu.TextureHandle)
}

// ensureDefaultTexture lazily creates the shared 1x1 white fallback.
func (m *Model) ensureDefaultTexture() gpu.TextureHandle {
	if m.hasDefaultTexture {
		return m.defaultTexture
	}
	h, err := m.device.CreateTexture(1, 1, gpu.TextureRGBA8, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	if err != nil {
		logger.Error("creating default texture failed", zap.Error(err))
		return 0
	}
	m.defaultTexture = h
	m.hasDefaultTexture = true
	return h
}
