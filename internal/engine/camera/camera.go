// Package camera provides the perspective camera and orbit controls.
package camera

import "github.com/Faultbox/castleview/pkg/math"

// Perspective is a perspective camera looking from Position at Target.
// FOV is the vertical field of view in degrees.
type Perspective struct {
	FOV    float32
	Aspect float32
	Near   float32
	Far    float32

	Position math.Vec3
	Target   math.Vec3
	Up       math.Vec3

	projection math.Mat4
}

// NewPerspective creates a camera and computes its projection.
func NewPerspective(fov, aspect, near, far float32) *Perspective {
	c := &Perspective{
		FOV:    fov,
		Aspect: aspect,
		Near:   near,
		Far:    far,
		Up:     math.Vec3{Y: 1},
	}
	c.UpdateProjection()
	return c
}

// SetAspect sets the aspect ratio from a viewport size. The projection is
// not recomputed until UpdateProjection is called.
func (c *Perspective) SetAspect(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.Aspect = float32(width) / float32(height)
}

// UpdateProjection recomputes the projection matrix from FOV, Aspect, Near and Far.
func (c *Perspective) UpdateProjection() {
	c.projection = math.Perspective(math.Radians(c.FOV), c.Aspect, c.Near, c.Far)
}

// Projection returns the cached projection matrix.
func (c *Perspective) Projection() math.Mat4 {
	return c.projection
}

// ViewMatrix returns the view matrix for the current position and target.
func (c *Perspective) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position, c.Target, c.Up)
}

// ViewProjection returns Projection * View.
func (c *Perspective) ViewProjection() math.Mat4 {
	return c.projection.Mul(c.ViewMatrix())
}
