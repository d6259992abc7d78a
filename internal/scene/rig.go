// Package scene models the avatar rig: skinned meshes exposing named
// morph targets whose influences are mutated by the playback pipeline.
// Rendering is done elsewhere; this package only tracks state.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Mesh is one skinned mesh with a morph target dictionary.
// Not every mesh exposes every target; lookups on missing names
// report false rather than failing.
type Mesh struct {
	Name string

	targets    []string
	index      map[string]int
	influences []float32

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3
}

// NewMesh builds a mesh with the given morph target dictionary.
func NewMesh(name string, targets []string) *Mesh {
	m := &Mesh{
		Name:       name,
		targets:    append([]string(nil), targets...),
		index:      make(map[string]int, len(targets)),
		influences: make([]float32, len(targets)),
		rotation:   mgl32.QuatIdent(),
		scale:      mgl32.Vec3{1, 1, 1},
	}
	for i, t := range targets {
		m.index[t] = i
	}
	return m
}

// TargetNames returns the morph target dictionary in declaration order.
func (m *Mesh) TargetNames() []string {
	return m.targets
}

// HasTarget reports whether the mesh exposes the named morph target.
func (m *Mesh) HasTarget(name string) bool {
	_, ok := m.index[name]
	return ok
}

// Influence returns the current weight of the named target.
func (m *Mesh) Influence(name string) (float32, bool) {
	i, ok := m.index[name]
	if !ok {
		return 0, false
	}
	return m.influences[i], true
}

// SetInfluence sets the weight of the named target, clamped to [0, 1].
// Unknown names are ignored.
func (m *Mesh) SetInfluence(name string, value float32) bool {
	i, ok := m.index[name]
	if !ok {
		return false
	}
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	m.influences[i] = value
	return true
}

// Influences returns the raw influence slice, indexed like TargetNames.
func (m *Mesh) Influences() []float32 {
	return m.influences
}

// ResetInfluences zeroes every morph target weight.
func (m *Mesh) ResetInfluences() {
	for i := range m.influences {
		m.influences[i] = 0
	}
}

// SetTransform positions the mesh in the scene using the node's
// translation, unit-quaternion rotation, and per-axis scale.
func (m *Mesh) SetTransform(position mgl32.Vec3, rotation mgl32.Quat, scale mgl32.Vec3) {
	m.position = position
	m.rotation = rotation
	m.scale = scale
}

// ModelMatrix returns the mesh's local-to-world transform, composed
// T * R * S the way glTF defines node TRS.
func (m *Mesh) ModelMatrix() mgl32.Mat4 {
	model := mgl32.Translate3D(m.position[0], m.position[1], m.position[2])
	model = model.Mul4(m.rotation.Mat4())
	return model.Mul4(mgl32.Scale3D(m.scale[0], m.scale[1], m.scale[2]))
}

// Rig is the set of meshes making up one avatar.
type Rig struct {
	meshes []*Mesh
	byName map[string]*Mesh
}

// NewRig assembles a rig from meshes.
func NewRig(meshes ...*Mesh) *Rig {
	r := &Rig{
		meshes: meshes,
		byName: make(map[string]*Mesh, len(meshes)),
	}
	for _, m := range meshes {
		r.byName[m.Name] = m
	}
	return r
}

// Meshes returns all meshes in the rig.
func (r *Rig) Meshes() []*Mesh {
	return r.meshes
}

// Mesh returns the named mesh, or nil.
func (r *Rig) Mesh(name string) *Mesh {
	return r.byName[name]
}

// SetInfluence sets the named target on every mesh that exposes it and
// returns how many meshes were touched.
func (r *Rig) SetInfluence(name string, value float32) int {
	n := 0
	for _, m := range r.meshes {
		if m.SetInfluence(name, value) {
			n++
		}
	}
	return n
}

// Influence returns the current weight of the named target from the
// first mesh exposing it.
func (r *Rig) Influence(name string) (float32, bool) {
	for _, m := range r.meshes {
		if v, ok := m.Influence(name); ok {
			return v, true
		}
	}
	return 0, false
}

// ResetInfluences zeroes every morph target on every mesh.
func (r *Rig) ResetInfluences() {
	for _, m := range r.meshes {
		m.ResetInfluences()
	}
}

// TargetNames returns the union of all morph target names across meshes.
func (r *Rig) TargetNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range r.meshes {
		for _, t := range m.targets {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			names = append(names, t)
		}
	}
	return names
}
