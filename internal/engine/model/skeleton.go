package model

import (
	"encoding/binary"
	gomath "math"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/fairhill1/gameEngine-sub001/internal/logger"
	"github.com/fairhill1/gameEngine-sub001/pkg/math"
)

// buildSkeleton converts the document's node hierarchy into joint records,
// imports skins with their inverse bind matrices, and decodes animation
// clips. Nothing here touches the GPU.
func (m *Model) buildSkeleton(doc *gltf.Document) {
	m.joints = make([]Joint, len(doc.Nodes))
	for i, node := range doc.Nodes {
		m.joints[i] = Joint{
			Index:       i,
			Name:        node.Name,
			Parent:      -1,
			Local:       nodeLocal(node),
			Global:      math.Identity(),
			InverseBind: math.Identity(),
		}
		for _, c := range node.Children {
			m.joints[i].Children = append(m.joints[i].Children, int(c))
		}
	}

	// The document stores child links only; back-fill parents.
	for i := range m.joints {
		for _, c := range m.joints[i].Children {
			if c >= 0 && c < len(m.joints) {
				m.joints[c].Parent = i
			}
		}
	}

	if len(doc.Skins) > 1 {
		logger.Warn("document has multiple skins, animating the first only",
			zap.Int("skins", len(doc.Skins)),
		)
	}
	for _, gs := range doc.Skins {
		skin := Skin{}
		for _, j := range gs.Joints {
			skin.Joints = append(skin.Joints, int(j))
		}
		if gs.InverseBindMatrices != nil {
			inv := decodeInverseBind(doc, int(*gs.InverseBindMatrices), len(skin.Joints))
			for pos, mat := range inv {
				ji := skin.Joints[pos]
				if ji >= 0 && ji < len(m.joints) {
					m.joints[ji].InverseBind = mat
				}
			}
		}
		m.skins = append(m.skins, skin)
	}

	for _, ga := range doc.Animations {
		clip := m.buildClip(doc, ga)
		if len(clip.Channels) == 0 {
			logger.Warn("animation has no usable channels", zap.String("name", ga.Name))
			continue
		}
		m.clips = append(m.clips, clip)
	}

	if len(m.joints) > 0 {
		logger.Info("skeleton imported",
			zap.Int("joints", len(m.joints)),
			zap.Int("skins", len(m.skins)),
			zap.Int("clips", len(m.clips)),
		)
	}
}

// nodeLocal returns the node's local transform. An explicit matrix wins;
// otherwise only the translation part of the TRS triple is applied, with
// rotation and scale deferred to animation channels.
func nodeLocal(node *gltf.Node) math.Mat4 {
	identity, zero := true, true
	for i := 0; i < 16; i++ {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if float32(node.Matrix[i]) != want {
			identity = false
		}
		if node.Matrix[i] != 0 {
			zero = false
		}
	}
	if !identity && !zero {
		var m math.Mat4
		for i := 0; i < 16; i++ {
			m[i] = float32(node.Matrix[i])
		}
		return m
	}
	return math.Translate(
		float32(node.Translation[0]),
		float32(node.Translation[1]),
		float32(node.Translation[2]),
	)
}

// decodeInverseBind reads count 4x4 float matrices from the accessor. Short
// or missing data leaves the remainder out; callers keep identity there.
func decodeInverseBind(doc *gltf.Document, accIdx, count int) []math.Mat4 {
	view := newAccessorView(doc, accIdx, 16)
	out := make([]math.Mat4, 0, count)
	for i := 0; i < count && i < view.count; i++ {
		base := view.offset + i*64
		if base < 0 || base+64 > len(view.data) {
			break
		}
		var flat [16]float32
		for c := 0; c < 16; c++ {
			bits := binary.LittleEndian.Uint32(view.data[base+c*4:])
			flat[c] = gomath.Float32frombits(bits)
		}
		out = append(out, math.FromSlice(flat[:]))
	}
	if len(out) < count {
		logger.Warn("inverse bind accessor short, keeping identity for the rest",
			zap.Int("have", len(out)),
			zap.Int("want", count),
		)
	}
	return out
}

func (m *Model) buildClip(doc *gltf.Document, ga *gltf.Animation) AnimationClip {
	clip := AnimationClip{Name: ga.Name}
	for _, ch := range ga.Channels {
		if ch.Target.Node == nil || ch.Sampler == nil {
			continue
		}
		path, ok := channelPath(ch.Target.Path)
		if !ok {
			logger.Warn("unsupported animation path",
				zap.String("clip", ga.Name),
				zap.Any("path", ch.Target.Path),
			)
			continue
		}
		sampler := ga.Samplers[*ch.Sampler]
		if int(sampler.Input) >= len(doc.Accessors) || int(sampler.Output) >= len(doc.Accessors) {
			logger.Warn("animation sampler references missing accessor",
				zap.String("clip", ga.Name),
			)
			continue
		}

		compCount := 3
		if path == PathRotation {
			compCount = 4
		}
		timeView := newAccessorView(doc, int(sampler.Input), 1)
		valueView := newAccessorView(doc, int(sampler.Output), compCount)

		n := timeView.count
		if valueView.count < n {
			n = valueView.count
		}
		if n == 0 {
			continue
		}

		channel := AnimationChannel{
			Node: int(*ch.Target.Node),
			Path: path,
		}
		for i := 0; i < n; i++ {
			t := timeView.floats(i)[0]
			channel.Keyframes = append(channel.Keyframes, Keyframe{
				Time:  t,
				Value: valueView.floats(i),
			})
			if t > clip.Duration {
				clip.Duration = t
			}
		}
		timeView.logShortReads("keyframe times")
		valueView.logShortReads("keyframe values")
		clip.Channels = append(clip.Channels, channel)
	}
	return clip
}

func channelPath(p gltf.TRSProperty) (string, bool) {
	switch p {
	case gltf.TRSTranslation:
		return PathTranslation, true
	case gltf.TRSRotation:
		return PathRotation, true
	case gltf.TRSScale:
		return PathScale, true
	default:
		return "", false
	}
}
