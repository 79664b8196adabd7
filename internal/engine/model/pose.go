package model

import (
	"github.com/fairhill1/gameEngine-sub001/pkg/math"
)

// evaluatePose samples the clip at the given time and returns one pose
// matrix per joint of the first skin, indexed by position in the skin's
// joint list. Keyframes are applied step-wise: the keyframe owning the
// interval wins outright, there is no interpolation between neighbours.
//
// Pose matrices compose translation and rotation only. Scale channels are
// imported but not multiplied in, and the parent chain is not walked, so
// poses are treated as already-global. Both are known limitations of the
// current animation design.
func (m *Model) evaluatePose(clip *AnimationClip, time float32) []math.Mat4 {
	if len(m.skins) == 0 {
		return nil
	}
	skin := m.skins[0]
	palette := make([]math.Mat4, len(skin.Joints))
	for pos, node := range skin.Joints {
		palette[pos] = m.jointPose(clip, node, time)
	}
	return palette
}

// jointPose evaluates all channels of the clip targeting one node. A node
// no channel targets keeps its imported local transform.
func (m *Model) jointPose(clip *AnimationClip, node int, time float32) math.Mat4 {
	base := math.Identity()
	if node >= 0 && node < len(m.joints) {
		base = m.joints[node].Local
	}

	translation := base.Translation()
	rotation := math.QuatIdentity()
	animated := false

	for i := range clip.Channels {
		ch := &clip.Channels[i]
		if ch.Node != node || len(ch.Keyframes) == 0 {
			continue
		}
		v := sampleChannel(ch, time)
		switch ch.Path {
		case PathTranslation:
			translation = [3]float32{v[0], v[1], v[2]}
			animated = true
		case PathRotation:
			rotation = math.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}.Normalize()
			animated = true
		case PathScale:
			// Imported but not applied to the pose matrix.
		}
	}

	if !animated {
		return base
	}
	return math.FromQuatTranslation(rotation, translation)
}

// sampleChannel picks the keyframe whose interval [k, k+1) contains the
// query time. Times before the first keyframe clamp to it, times past the
// last keyframe hold the last value.
func sampleChannel(ch *AnimationChannel, time float32) [4]float32 {
	kf := ch.Keyframes
	if time < kf[0].Time {
		return kf[0].Value
	}
	for k := 0; k < len(kf)-1; k++ {
		if time >= kf[k].Time && time < kf[k+1].Time {
			return kf[k].Value
		}
	}
	return kf[len(kf)-1].Value
}
