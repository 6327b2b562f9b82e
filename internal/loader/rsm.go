package loader

import (
	"path/filepath"
	"strings"

	"github.com/Faultbox/castleview/internal/engine/anim"
	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/pkg/formats"
	"github.com/Faultbox/castleview/pkg/math"
)

// RSMFormat decodes RSM keyframe models. The result root is a wrapper
// node named after the file, holding the model's node hierarchy. Files
// with more than one keyframe on any node also yield a clip.
type RSMFormat struct{}

func (RSMFormat) Name() string         { return "rsm" }
func (RSMFormat) Extensions() []string { return []string{".rsm"} }

func (RSMFormat) Decode(path string, data []byte) (*Result, error) {
	rsm, err := formats.ParseRSM(data)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res := &Result{Root: BuildRSMTree(name, rsm)}
	if rsm.HasAnimation() {
		res.Clips = []*anim.Clip{RSMClip(name, rsm)}
	}
	return res, nil
}

// BuildRSMTree converts the RSM node hierarchy into scene nodes.
//
// Each node's local transform is Position * Rotation * Scale; the rotation
// is the first rotation key when present, otherwise the axis-angle pair.
// Offset and the 3x3 matrix only affect the node's own vertices, so they
// are baked into the mesh and not inherited by children.
func BuildRSMTree(name string, rsm *formats.RSM) *scene.Node {
	root := scene.NewNode(name)
	visited := make(map[string]bool, len(rsm.Nodes))

	var attach func(parent *scene.Node, n *formats.RSMNode)
	attach = func(parent *scene.Node, n *formats.RSMNode) {
		if visited[n.Name] {
			return
		}
		visited[n.Name] = true

		node := rsmSceneNode(n, rsm.Shading)
		_ = parent.Add(node)
		for _, child := range rsm.Children(n.Name) {
			attach(node, child)
		}
	}

	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if n.IsRoot() || rsm.NodeByName(n.Parent) == nil {
			attach(root, n)
		}
	}
	// nodes only reachable through a parent cycle
	for i := range rsm.Nodes {
		attach(root, &rsm.Nodes[i])
	}
	return root
}

func rsmSceneNode(n *formats.RSMNode, shading formats.RSMShadingType) *scene.Node {
	node := scene.NewNode(n.Name)
	node.Position = math.V3(n.Position)
	node.Scale = math.V3(n.Scale)

	if len(n.RotKeys) > 0 {
		node.Rotation = math.Q4(n.RotKeys[0].Quaternion).Normalize()
	} else if axis := math.V3(n.RotAxis); n.RotAngle != 0 && axis.Length() > 1e-6 {
		node.Rotation = math.QuatFromAxisAngle(axis.Normalize(), n.RotAngle)
	}
	if len(n.ScaleKeys) > 0 {
		node.Scale = node.Scale.Mul(math.V3(n.ScaleKeys[0].Scale))
	}

	node.Mesh = rsmMesh(n, shading)
	node.CastShadow = node.Mesh != nil
	node.ReceiveShadow = node.Mesh != nil
	return node
}

func rsmMesh(n *formats.RSMNode, shading formats.RSMShadingType) *scene.Mesh {
	if len(n.Faces) == 0 || len(n.Vertices) == 0 {
		return nil
	}

	vertexXform := math.Translate(n.Offset[0], n.Offset[1], n.Offset[2]).Mul(math.FromMat3x3(n.Matrix))
	positions := make([][3]float32, len(n.Vertices))
	for i, v := range n.Vertices {
		positions[i] = vertexXform.TransformPoint(v)
	}

	indices := make([]uint32, 0, len(n.Faces)*3)
	doubleSided := false
	for _, f := range n.Faces {
		if int(f.VertexIDs[0]) >= len(positions) || int(f.VertexIDs[1]) >= len(positions) || int(f.VertexIDs[2]) >= len(positions) {
			continue
		}
		indices = append(indices, uint32(f.VertexIDs[0]), uint32(f.VertexIDs[1]), uint32(f.VertexIDs[2]))
		if f.TwoSide != 0 {
			doubleSided = true
		}
	}
	if len(indices) == 0 {
		return nil
	}

	if shading == formats.RSMShadingFlat {
		positions, indices = unweld(positions, indices)
	}

	mesh := scene.NewMesh(n.Name, positions, nil, indices)
	mesh.DoubleSided = doubleSided
	return mesh
}

// unweld gives every triangle its own vertices so computed normals are flat.
func unweld(positions [][3]float32, indices []uint32) ([][3]float32, []uint32) {
	outPos := make([][3]float32, len(indices))
	outIdx := make([]uint32, len(indices))
	for i, idx := range indices {
		outPos[i] = positions[idx]
		outIdx[i] = uint32(i)
	}
	return outPos, outIdx
}

// RSMClip extracts the keyframes of every node as one clip. Frame times
// are milliseconds in the file and seconds in the clip. Scale keys stay
// factors: the clip file's own static scale is ignored and the keys scale
// whichever node the track is bound to.
func RSMClip(name string, rsm *formats.RSM) *anim.Clip {
	tracks := make([]anim.Track, 0, len(rsm.Nodes))
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		tr := anim.Track{Node: n.Name, ScaleRelative: true}
		for _, k := range n.PosKeys {
			tr.Position = append(tr.Position, anim.VectorKey{Time: msToSeconds(k.Frame), Value: math.V3(k.Position)})
		}
		for _, k := range n.RotKeys {
			tr.Rotation = append(tr.Rotation, anim.QuatKey{Time: msToSeconds(k.Frame), Value: math.Q4(k.Quaternion).Normalize()})
		}
		for _, k := range n.ScaleKeys {
			tr.Scale = append(tr.Scale, anim.VectorKey{Time: msToSeconds(k.Frame), Value: math.V3(k.Scale)})
		}
		tracks = append(tracks, tr)
	}
	return anim.NewClip(name, msToSeconds(rsm.AnimLength), tracks)
}

func msToSeconds(ms int32) float32 {
	return float32(ms) / 1000
}
