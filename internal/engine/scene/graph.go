package scene

import "github.com/Faultbox/castleview/pkg/math"

// MeshInstance is a mesh paired with the world transform it is drawn with.
type MeshInstance struct {
	Node  *Node
	Mesh  *Mesh
	World math.Mat4
}

// LightInstance is a light resolved to world space.
type LightInstance struct {
	Node      *Node
	Light     *Light
	Position  math.Vec3
	Direction math.Vec3
}

// Graph owns the scene root. Model roots are inserted with Add.
type Graph struct {
	root       *Node
	Background [3]float32
	Ambient    [3]float32
}

// NewGraph creates an empty scene.
func NewGraph() *Graph {
	return &Graph{
		root:       NewNode("scene"),
		Background: [3]float32{0.05, 0.05, 0.08},
		Ambient:    [3]float32{0.25, 0.25, 0.28},
	}
}

// Root returns the scene root node.
func (g *Graph) Root() *Node {
	return g.root
}

// Add inserts n as a direct child of the root. A node that is already
// part of this scene is refused with ErrAlreadyInScene.
func (g *Graph) Add(n *Node) error {
	if n == g.root || g.Contains(n) {
		return ErrAlreadyInScene
	}
	return g.root.Add(n)
}

// Remove detaches a top-level node. It reports whether n was found.
func (g *Graph) Remove(n *Node) bool {
	return g.root.Remove(n)
}

// Contains reports whether n is attached under the root.
func (g *Graph) Contains(n *Node) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p == g.root {
			return true
		}
	}
	return false
}

// Len returns the number of top-level nodes.
func (g *Graph) Len() int {
	return len(g.root.children)
}

// Walk calls fn for every visible node with its world matrix, parents first.
func (g *Graph) Walk(fn func(n *Node, world math.Mat4)) {
	g.root.walk(math.Identity(), fn)
}

// Meshes collects every visible mesh with its world transform.
func (g *Graph) Meshes() []MeshInstance {
	var out []MeshInstance
	g.Walk(func(n *Node, world math.Mat4) {
		if n.Mesh != nil {
			out = append(out, MeshInstance{Node: n, Mesh: n.Mesh, World: world})
		}
	})
	return out
}

// Lights collects every visible light in world space.
func (g *Graph) Lights() []LightInstance {
	var out []LightInstance
	g.Walk(func(n *Node, world math.Mat4) {
		if n.Light == nil {
			return
		}
		dir := math.V3(world.TransformDirection([3]float32{0, 0, -1})).Normalize()
		out = append(out, LightInstance{
			Node:      n,
			Light:     n.Light,
			Position:  world.Translation(),
			Direction: dir,
		})
	})
	return out
}

// Bounds returns the world-space box around every visible mesh.
// ok is false when the scene holds no geometry.
func (g *Graph) Bounds() (lo, hi math.Vec3, ok bool) {
	for _, inst := range g.Meshes() {
		mlo, mhi, has := inst.Mesh.Bounds()
		if !has {
			continue
		}
		for _, corner := range boxCorners(mlo, mhi) {
			p := math.V3(inst.World.TransformPoint(corner.Array()))
			if !ok {
				lo, hi, ok = p, p, true
				continue
			}
			lo = lo.Min(p)
			hi = hi.Max(p)
		}
	}
	return lo, hi, ok
}

func boxCorners(lo, hi math.Vec3) [8]math.Vec3 {
	return [8]math.Vec3{
		{X: lo.X, Y: lo.Y, Z: lo.Z},
		{X: hi.X, Y: lo.Y, Z: lo.Z},
		{X: lo.X, Y: hi.Y, Z: lo.Z},
		{X: hi.X, Y: hi.Y, Z: lo.Z},
		{X: lo.X, Y: lo.Y, Z: hi.Z},
		{X: hi.X, Y: lo.Y, Z: hi.Z},
		{X: lo.X, Y: hi.Y, Z: hi.Z},
		{X: hi.X, Y: hi.Y, Z: hi.Z},
	}
}
