package shadow

import (
	gomath "math"

	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/pkg/math"
)

// Bounds is an axis-aligned box in world space.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Center returns the center point of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Radius returns the distance from center to corner.
func (b Bounds) Radius() float32 {
	return b.Max.Sub(b.Min).Length() / 2
}

const (
	minNear    = 0.05
	minFOV     = 30 * gomath.Pi / 180
	maxFOV     = 150 * gomath.Pi / 180
	paddingMul = 1.1
)

// LightMatrix returns the view-projection used to render and sample the
// shadow map of li over the scene bounds b.
//
// Directional lights get an orthographic box around the scene. Spot lights
// get a perspective frustum matching their outer cone. Point lights get a
// single perspective frustum aimed at the scene center and wide enough to
// cover it.
func LightMatrix(li scene.LightInstance, b Bounds) math.Mat4 {
	switch li.Light.Kind {
	case scene.DirectionalLight:
		return directionalMatrix(li.Direction, b)
	case scene.SpotLight:
		return spotMatrix(li, b)
	default:
		return pointMatrix(li, b)
	}
}

func directionalMatrix(dir math.Vec3, b Bounds) math.Mat4 {
	center := b.Center()
	radius := b.Radius()
	if radius <= 0 {
		radius = 1
	}

	// light sits behind the scene, looking along dir
	distance := radius * 2
	eye := center.Sub(dir.Normalize().Scale(distance))
	view := math.LookAt(eye, center, upFor(dir))

	half := radius * paddingMul
	far := distance + half
	return math.Ortho(-half, half, -half, half, minNear, far).Mul(view)
}

func spotMatrix(li scene.LightInstance, b Bounds) math.Mat4 {
	dir := li.Direction.Normalize()
	view := math.LookAt(li.Position, li.Position.Add(dir), upFor(dir))

	fov := clampFOV(2 * li.Light.OuterCone)
	return math.Perspective(fov, 1, minNear, farPlane(li, b)).Mul(view)
}

func pointMatrix(li scene.LightInstance, b Bounds) math.Mat4 {
	center := b.Center()
	toCenter := center.Sub(li.Position)
	dist := toCenter.Length()
	if dist < 1e-4 {
		toCenter = math.Vec3{Y: -1}
		dist = 1
	}
	dir := toCenter.Scale(1 / dist)
	view := math.LookAt(li.Position, li.Position.Add(dir), upFor(dir))

	half := float32(gomath.Atan2(float64(b.Radius()*paddingMul), float64(dist)))
	return math.Perspective(clampFOV(2*half), 1, minNear, farPlane(li, b)).Mul(view)
}

// farPlane reaches the far side of the scene, or the light's range when set.
func farPlane(li scene.LightInstance, b Bounds) float32 {
	far := li.Position.Distance(b.Center()) + b.Radius()*paddingMul
	if li.Light.Range > 0 && li.Light.Range < far {
		far = li.Light.Range
	}
	if far <= minNear {
		far = minNear * 2
	}
	return far
}

func clampFOV(fov float32) float32 {
	if fov < minFOV {
		return minFOV
	}
	if fov > maxFOV {
		return maxFOV
	}
	return fov
}

// upFor picks an up vector that is not parallel to dir.
func upFor(dir math.Vec3) math.Vec3 {
	if abs32(dir.Normalize().Y) > 0.99 {
		return math.Vec3{Z: 1}
	}
	return math.Vec3{Y: 1}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
