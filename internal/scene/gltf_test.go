package scene

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

func saveTestDoc(t *testing.T, doc *gltf.Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avatar.gltf")
	if err := gltf.Save(doc, path); err != nil {
		t.Fatalf("save test document: %v", err)
	}
	return path
}

func morphedMesh(name string, targetNames ...interface{}) *gltf.Mesh {
	targets := make([]gltf.PrimitiveAttributes, len(targetNames))
	for i := range targets {
		targets[i] = gltf.PrimitiveAttributes{"POSITION": i}
	}
	return &gltf.Mesh{
		Name:   name,
		Extras: map[string]interface{}{"targetNames": targetNames},
		Primitives: []*gltf.Primitive{
			{Targets: targets},
		},
	}
}

func TestLoadRig_TargetNamesFromExtras(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Meshes = []*gltf.Mesh{morphedMesh("Head", "jawOpen", "mouthSmileLeft")}

	r, err := LoadRig(saveTestDoc(t, doc))
	if err != nil {
		t.Fatal(err)
	}

	head := r.Mesh("Head")
	if head == nil {
		t.Fatal("expected Head mesh")
	}
	if !head.HasTarget("jawOpen") || !head.HasTarget("mouthSmileLeft") {
		t.Errorf("missing named targets, got %v", head.TargetNames())
	}
}

func TestLoadRig_AppliesNodeTransforms(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Meshes = []*gltf.Mesh{
		morphedMesh("Head", "jawOpen"),
		morphedMesh("Teeth", "jawOpen"),
	}
	doc.Nodes = []*gltf.Node{
		{
			Name:        "HeadNode",
			Mesh:        gltf.Index(0),
			Translation: [3]float64{0, 1.5, 0},
			Scale:       [3]float64{2, 2, 2},
		},
		// Teeth has no instantiating node and keeps the identity.
	}

	r, err := LoadRig(saveTestDoc(t, doc))
	if err != nil {
		t.Fatal(err)
	}

	head := r.Mesh("Head")
	got := head.ModelMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	want := mgl32.Vec4{2, 1.5, 0, 1}
	for i := 0; i < 4; i++ {
		if math.Abs(float64(got[i]-want[i])) > 1e-5 {
			t.Fatalf("transformed point = %v, want %v", got, want)
		}
	}

	teeth := r.Mesh("Teeth")
	if !teeth.ModelMatrix().ApproxEqual(mgl32.Ident4()) {
		t.Errorf("expected identity for unplaced mesh, got %v", teeth.ModelMatrix())
	}
}

func TestLoadRig_NoMorphTargets(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Meshes = []*gltf.Mesh{
		{Name: "Prop", Primitives: []*gltf.Primitive{{}}},
	}

	if _, err := LoadRig(saveTestDoc(t, doc)); err == nil {
		t.Fatal("expected error for rig without morph targets")
	}
}
