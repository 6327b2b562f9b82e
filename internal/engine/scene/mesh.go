package scene

import "github.com/Faultbox/castleview/pkg/math"

// Mesh is an indexed triangle list with per-vertex normals.
// The renderer uploads each Mesh once and keys its GPU buffers by pointer.
type Mesh struct {
	Name        string
	Positions   [][3]float32
	Normals     [][3]float32
	Colors      [][4]float32
	Indices     []uint32
	BaseColor   [4]float32
	DoubleSided bool
}

// NewMesh builds a mesh and computes smooth normals when none are given.
func NewMesh(name string, positions, normals [][3]float32, indices []uint32) *Mesh {
	m := &Mesh{
		Name:      name,
		Positions: positions,
		Normals:   normals,
		Indices:   indices,
		BaseColor: [4]float32{1, 1, 1, 1},
	}
	if len(m.Normals) != len(m.Positions) {
		m.ComputeNormals()
	}
	return m
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions)
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// ComputeNormals replaces Normals with area-weighted vertex normals.
func (m *Mesh) ComputeNormals() {
	acc := make([]math.Vec3, len(m.Positions))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		if int(a) >= len(acc) || int(b) >= len(acc) || int(c) >= len(acc) {
			continue
		}
		p0, p1, p2 := math.V3(m.Positions[a]), math.V3(m.Positions[b]), math.V3(m.Positions[c])
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		acc[a] = acc[a].Add(n)
		acc[b] = acc[b].Add(n)
		acc[c] = acc[c].Add(n)
	}

	m.Normals = make([][3]float32, len(acc))
	for i, n := range acc {
		if n.Length() == 0 {
			m.Normals[i] = [3]float32{0, 1, 0}
			continue
		}
		m.Normals[i] = n.Normalize().Array()
	}
}

// Bounds returns the local-space bounding box. ok is false for an empty mesh.
func (m *Mesh) Bounds() (lo, hi math.Vec3, ok bool) {
	if len(m.Positions) == 0 {
		return lo, hi, false
	}
	lo = math.V3(m.Positions[0])
	hi = lo
	for _, p := range m.Positions[1:] {
		v := math.V3(p)
		lo = lo.Min(v)
		hi = hi.Max(v)
	}
	return lo, hi, true
}
