package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
)

// LoadRig reads an avatar GLB and builds a rig from every mesh that
// carries morph targets. Target names come from the mesh extras
// ("targetNames", the convention used by Ready Player Me and Blender
// exporters); meshes without named targets get positional names so the
// dictionary stays aligned with the influence array.
func LoadRig(path string) (*Rig, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	var meshes []*Mesh
	byIndex := make(map[int]*Mesh)
	for mi, gm := range doc.Meshes {
		if len(gm.Primitives) == 0 {
			continue
		}
		prim := gm.Primitives[0]
		if len(prim.Targets) == 0 {
			continue
		}

		names := make([]string, len(prim.Targets))
		for i := range names {
			names[i] = fmt.Sprintf("target_%d", i)
		}
		if extras, ok := gm.Extras.(map[string]interface{}); ok {
			if targetNames, ok := extras["targetNames"].([]interface{}); ok {
				for i, name := range targetNames {
					if i >= len(names) {
						break
					}
					if s, ok := name.(string); ok {
						names[i] = s
					}
				}
			}
		}

		m := NewMesh(gm.Name, names)
		meshes = append(meshes, m)
		byIndex[mi] = m
	}

	if len(meshes) == 0 {
		return nil, fmt.Errorf("no morph targets in %s", path)
	}

	// Place each mesh using the TRS of the node that instantiates it.
	for _, node := range doc.Nodes {
		if node.Mesh == nil {
			continue
		}
		m, ok := byIndex[*node.Mesh]
		if !ok {
			continue
		}
		m.SetTransform(nodePosition(node), nodeRotation(node), nodeScale(node))
	}

	return NewRig(meshes...), nil
}

func nodePosition(n *gltf.Node) mgl32.Vec3 {
	t := n.TranslationOrDefault()
	return mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
}

func nodeRotation(n *gltf.Node) mgl32.Quat {
	r := n.RotationOrDefault()
	return mgl32.Quat{
		W: float32(r[3]),
		V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])},
	}
}

func nodeScale(n *gltf.Node) mgl32.Vec3 {
	s := n.ScaleOrDefault()
	return mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
}
