// Package model loads glTF/GLB scenes and legacy binary mesh dumps into
// GPU-ready buffers and drives skeletal animation over them.
package model

import (
	"github.com/fairhill1/gameEngine-sub001/internal/engine/gpu"
	"github.com/fairhill1/gameEngine-sub001/pkg/math"
)

// Mesh is one renderable primitive: packed vertices, 16-bit indices and the
// GPU resources created from them. Skinned meshes additionally retain the
// bind-pose vertices and a parallel buffer the skinning engine writes into.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
	Topology gpu.Topology

	Texture    gpu.TextureHandle
	hasTexture bool

	HasAnimation bool
	// Original holds the bind pose and is never written after import.
	// Animated mirrors it element for element; a length mismatch is an
	// internal invariant violation.
	Original []Vertex
	Animated []Vertex

	vertexBuf gpu.BufferHandle
	indexBuf  gpu.BufferHandle
}

// Joint is one node of the hierarchy. Parent is -1 for roots. InverseBind is
// identity for nodes that are not skinning joints.
type Joint struct {
	Index    int
	Name     string
	Parent   int
	Children []int

	Local       math.Mat4
	Global      math.Mat4
	InverseBind math.Mat4
}

// Skin lists the node indices that act as bones, in the order the per-vertex
// bone indices refer to.
type Skin struct {
	Joints []int
}

// AnimationClip groups the channels of one named animation. Duration is the
// maximum keyframe time across all channels.
type AnimationClip struct {
	Name     string
	Duration float32
	Channels []AnimationChannel
}

// Channel target paths.
const (
	PathTranslation = "translation"
	PathRotation    = "rotation"
	PathScale       = "scale"
)

// AnimationChannel is one keyframe track targeting a single node property.
type AnimationChannel struct {
	Node      int
	Path      string
	Keyframes []Keyframe
}

// Keyframe is a time-stamped value. Translation and scale use three
// components, rotation uses four (quaternion XYZW).
type Keyframe struct {
	Time  float32
	Value [4]float32
}
