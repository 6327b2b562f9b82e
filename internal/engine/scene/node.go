// Package scene holds the renderable scene graph: a tree of transformed
// nodes carrying meshes and lights.
package scene

import (
	"errors"

	"github.com/Faultbox/castleview/pkg/math"
)

// Scene graph errors.
var (
	ErrAlreadyInScene = errors.New("node already in scene")
	ErrHasParent      = errors.New("node already has a parent")
	ErrCycle          = errors.New("node cannot be its own ancestor")
)

// Node is an element of the scene graph. Its local transform is
// Translate(Position) * Rotate(Rotation) * Scale(Scale) unless Matrix is set.
type Node struct {
	Name     string
	Position math.Vec3
	Rotation math.Quat
	Scale    math.Vec3

	// Matrix replaces the TRS transform when non-nil.
	Matrix *math.Mat4

	Mesh  *Mesh
	Light *Light

	Visible       bool
	CastShadow    bool
	ReceiveShadow bool

	parent   *Node
	children []*Node
}

// NewNode creates a visible node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: math.QuatIdentity(),
		Scale:    math.Splat(1),
		Visible:  true,
	}
}

// Parent returns the node's parent, or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns the node's direct children.
func (n *Node) Children() []*Node {
	return n.children
}

// Add attaches child under n.
func (n *Node) Add(child *Node) error {
	if child.parent != nil {
		return ErrHasParent
	}
	for p := n; p != nil; p = p.parent {
		if p == child {
			return ErrCycle
		}
	}
	child.parent = n
	n.children = append(n.children, child)
	return nil
}

// Remove detaches child from n. It reports whether child was found.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// SetUniformScale sets the same scale on all three axes.
func (n *Node) SetUniformScale(s float32) {
	n.Scale = math.Splat(s)
}

// RotateY applies an extra rotation of angle radians about the Y axis.
func (n *Node) RotateY(angle float32) {
	q := math.QuatFromAxisAngle(math.Vec3{Y: 1}, angle)
	n.Rotation = q.Mul(n.Rotation).Normalize()
}

// LocalMatrix returns the node's transform relative to its parent.
func (n *Node) LocalMatrix() math.Mat4 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	return math.Compose(n.Position, n.Rotation, n.Scale)
}

// WorldMatrix returns the node's transform relative to the root.
func (n *Node) WorldMatrix() math.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul(m)
	}
	return m
}

// Traverse calls fn for n and every descendant, parents first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Traverse(fn)
	}
}

// Find returns the first node named name in n's subtree, or nil.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// walk visits visible nodes with their accumulated world matrix.
func (n *Node) walk(parent math.Mat4, fn func(*Node, math.Mat4)) {
	if !n.Visible {
		return
	}
	world := parent.Mul(n.LocalMatrix())
	fn(n, world)
	for _, c := range n.children {
		c.walk(world, fn)
	}
}
