package math

import (
	"math"
	"testing"
)

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func TestIdentityMul(t *testing.T) {
	m := Translate(1, 2, 3)
	result := m.Mul(Identity())

	for i := 0; i < 16; i++ {
		if result[i] != m[i] {
			t.Errorf("M * I element %d: got %f, want %f", i, result[i], m[i])
		}
	}
}

func TestTranslateTransformPoint(t *testing.T) {
	m := Translate(10, 20, 30)
	got := m.TransformPoint([3]float32{1, 2, 3})
	want := [3]float32{11, 22, 33}
	if got != want {
		t.Errorf("TransformPoint: got %v, want %v", got, want)
	}
}

func TestScaleTransformPoint(t *testing.T) {
	m := Scale(2, 3, 4)
	got := m.TransformPoint([3]float32{1, 1, 1})
	want := [3]float32{2, 3, 4}
	if got != want {
		t.Errorf("TransformPoint with scale: got %v, want %v", got, want)
	}
}

func TestRotateY90(t *testing.T) {
	m := RotateY(float32(math.Pi / 2))
	got := m.TransformPoint([3]float32{1, 0, 0})

	// (1,0,0) rotates to approximately (0,0,-1).
	if absf(got[0]) > 0.001 || absf(got[1]) > 0.001 || absf(got[2]+1) > 0.001 {
		t.Errorf("RotateY 90: got %v, want (0, 0, -1)", got)
	}
}

func TestTransformDirectionIgnoresTranslation(t *testing.T) {
	m := Translate(100, 100, 100)
	got := m.TransformDirection([3]float32{0, 1, 0})
	want := [3]float32{0, 1, 0}
	if got != want {
		t.Errorf("TransformDirection: got %v, want %v", got, want)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Translate(3, -2, 5).Mul(Scale(2, 2, 2))
	inv := m.Inverse()
	p := [3]float32{7, 8, 9}

	back := inv.TransformPoint(m.TransformPoint(p))
	for i := 0; i < 3; i++ {
		if absf(back[i]-p[i]) > 0.001 {
			t.Errorf("inverse round-trip component %d: got %f, want %f", i, back[i], p[i])
		}
	}
}

func TestInverseSingular(t *testing.T) {
	var zero Mat4
	if zero.Inverse() != Identity() {
		t.Error("singular matrix should invert to identity")
	}
}

func TestFromSlice(t *testing.T) {
	src := make([]float32, 16)
	for i := range src {
		src[i] = float32(i)
	}
	m := FromSlice(src)
	if m[0] != 0 || m[15] != 15 {
		t.Errorf("FromSlice: got corners (%f, %f), want (0, 15)", m[0], m[15])
	}
}

func TestQuatIdentityToMat4(t *testing.T) {
	m := QuatIdentity().ToMat4()
	if m != Identity() {
		t.Errorf("identity quaternion should produce identity matrix, got %v", m)
	}
}

func TestQuatRotation(t *testing.T) {
	// 90 degrees around Z.
	half := math.Pi / 4
	q := Quat{X: 0, Y: 0, Z: float32(math.Sin(half)), W: float32(math.Cos(half))}
	got := q.ToMat4().TransformPoint([3]float32{1, 0, 0})

	// (1,0,0) rotates to approximately (0,1,0).
	if absf(got[0]) > 0.001 || absf(got[1]-1) > 0.001 || absf(got[2]) > 0.001 {
		t.Errorf("quat Z rotation: got %v, want (0, 1, 0)", got)
	}
}

func TestQuatSlerpEndpoints(t *testing.T) {
	a := QuatIdentity()
	half := math.Pi / 4
	b := Quat{X: 0, Y: 0, Z: float32(math.Sin(half)), W: float32(math.Cos(half))}

	gotA := a.Slerp(b, 0)
	gotB := a.Slerp(b, 1)

	if absf(gotA.Dot(a))-1 > 0.001 {
		t.Errorf("slerp t=0: got %v, want %v", gotA, a)
	}
	if absf(gotB.Dot(b))-1 > 0.001 {
		t.Errorf("slerp t=1: got %v, want %v", gotB, b)
	}
}

func TestFromQuatTranslation(t *testing.T) {
	m := FromQuatTranslation(QuatIdentity(), [3]float32{5, 6, 7})
	got := m.TransformPoint([3]float32{1, 0, 0})
	want := [3]float32{6, 6, 7}
	if got != want {
		t.Errorf("FromQuatTranslation: got %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 0, 4}.Normalize()
	if absf(v.Length()-1) > 0.0001 {
		t.Errorf("normalized length: got %f, want 1", v.Length())
	}

	if (Vec3{}).Normalize() != (Vec3{}) {
		t.Error("zero vector should normalize to zero")
	}
}

func TestVec3Cross(t *testing.T) {
	got := Vec3{1, 0, 0}.Cross(Vec3{0, 1, 0})
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("cross: got %v, want %v", got, want)
	}
}
