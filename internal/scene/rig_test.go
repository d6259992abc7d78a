package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestMesh_InfluenceRoundTrip(t *testing.T) {
	m := NewMesh("Head", []string{"jawOpen", "mouthSmileLeft"})

	if !m.HasTarget("jawOpen") {
		t.Fatal("expected jawOpen target")
	}
	if m.HasTarget("nope") {
		t.Fatal("unexpected target")
	}

	if !m.SetInfluence("jawOpen", 0.5) {
		t.Fatal("SetInfluence failed for known target")
	}
	v, ok := m.Influence("jawOpen")
	if !ok || v != 0.5 {
		t.Errorf("expected 0.5, got %v (ok=%v)", v, ok)
	}
}

func TestMesh_SetInfluenceClamps(t *testing.T) {
	m := NewMesh("Head", []string{"jawOpen"})

	m.SetInfluence("jawOpen", 1.7)
	if v, _ := m.Influence("jawOpen"); v != 1 {
		t.Errorf("expected clamp to 1, got %v", v)
	}

	m.SetInfluence("jawOpen", -0.3)
	if v, _ := m.Influence("jawOpen"); v != 0 {
		t.Errorf("expected clamp to 0, got %v", v)
	}
}

func TestMesh_UnknownTargetIgnored(t *testing.T) {
	m := NewMesh("Head", []string{"jawOpen"})

	if m.SetInfluence("browInnerUp", 1) {
		t.Error("expected SetInfluence to report unknown target")
	}
	if _, ok := m.Influence("browInnerUp"); ok {
		t.Error("expected no influence for unknown target")
	}
}

func TestMesh_ModelMatrixRotation(t *testing.T) {
	m := NewMesh("Head", []string{"jawOpen"})
	quarter := mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 1, 0})
	m.SetTransform(mgl32.Vec3{}, quarter, mgl32.Vec3{1, 1, 1})

	// A quarter turn about Y sends +X to -Z.
	got := m.ModelMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	want := mgl32.Vec4{0, 0, -1, 1}
	for i := 0; i < 4; i++ {
		if math.Abs(float64(got[i]-want[i])) > 1e-5 {
			t.Fatalf("rotated point = %v, want %v", got, want)
		}
	}
}

func TestMesh_DefaultTransformIsIdentity(t *testing.T) {
	m := NewMesh("Head", []string{"jawOpen"})
	if !m.ModelMatrix().ApproxEqual(mgl32.Ident4()) {
		t.Errorf("expected identity, got %v", m.ModelMatrix())
	}
}

func TestRig_SetInfluenceAcrossMeshes(t *testing.T) {
	head := NewMesh("Head", []string{"jawOpen", "eyeBlinkLeft"})
	teeth := NewMesh("Teeth", []string{"jawOpen"})
	r := NewRig(head, teeth)

	n := r.SetInfluence("jawOpen", 0.8)
	if n != 2 {
		t.Fatalf("expected 2 meshes updated, got %d", n)
	}
	for _, m := range r.Meshes() {
		if v, _ := m.Influence("jawOpen"); v != 0.8 {
			t.Errorf("mesh %s: expected 0.8, got %v", m.Name, v)
		}
	}

	if n := r.SetInfluence("eyeBlinkLeft", 1); n != 1 {
		t.Errorf("expected 1 mesh updated, got %d", n)
	}
}

func TestRig_TargetNamesUnion(t *testing.T) {
	head := NewMesh("Head", []string{"jawOpen", "eyeBlinkLeft"})
	teeth := NewMesh("Teeth", []string{"jawOpen"})
	r := NewRig(head, teeth)

	names := r.TargetNames()
	seen := make(map[string]int)
	for _, n := range names {
		seen[n]++
	}
	if seen["jawOpen"] != 1 {
		t.Errorf("expected jawOpen once in union, got %d", seen["jawOpen"])
	}
	if seen["eyeBlinkLeft"] != 1 {
		t.Errorf("expected eyeBlinkLeft once, got %d", seen["eyeBlinkLeft"])
	}
}

func TestRig_ResetInfluences(t *testing.T) {
	head := NewMesh("Head", []string{"jawOpen"})
	r := NewRig(head)

	r.SetInfluence("jawOpen", 1)
	r.ResetInfluences()
	if v, _ := head.Influence("jawOpen"); v != 0 {
		t.Errorf("expected 0 after reset, got %v", v)
	}
}
