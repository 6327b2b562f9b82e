package camera

import (
	gomath "math"

	"github.com/Faultbox/castleview/pkg/math"
)

// OrbitControls moves a Perspective camera around a target point.
// Mouse input accumulates deltas; Update applies them, with damping
// spreading each delta over several frames.
type OrbitControls struct {
	Camera *Perspective
	Target math.Vec3

	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	EnableDamping bool
	DampingFactor float32

	DragSensitivity float32
	ZoomSensitivity float32

	// spherical coordinates around Target
	distance float32
	pitch    float32
	yaw      float32

	deltaYaw   float32
	deltaPitch float32
	zoomScale  float32
}

const maxPitch = gomath.Pi/2 - 0.01

// NewOrbitControls creates controls for cam orbiting target, starting from
// the camera's current position.
func NewOrbitControls(cam *Perspective, target math.Vec3) *OrbitControls {
	o := &OrbitControls{
		Camera:          cam,
		Target:          target,
		MinDistance:     0,
		MaxDistance:     float32(gomath.Inf(1)),
		MinPitch:        -maxPitch,
		MaxPitch:        maxPitch,
		DampingFactor:   0.05,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		zoomScale:       1,
	}
	o.syncFromCamera()
	return o
}

// syncFromCamera derives the spherical state from the camera position.
func (o *OrbitControls) syncFromCamera() {
	offset := o.Camera.Position.Sub(o.Target)
	o.distance = offset.Length()
	if o.distance == 0 {
		o.pitch, o.yaw = 0, 0
		return
	}
	o.pitch = float32(gomath.Asin(float64(offset.Y / o.distance)))
	o.yaw = float32(gomath.Atan2(float64(offset.X), float64(offset.Z)))
}

// Distance returns the current camera distance from the target.
func (o *OrbitControls) Distance() float32 {
	return o.distance
}

// Angles returns the current pitch and yaw in radians.
func (o *OrbitControls) Angles() (pitch, yaw float32) {
	return o.pitch, o.yaw
}

// HandleDrag queues a rotation from a mouse drag delta in pixels.
func (o *OrbitControls) HandleDrag(deltaX, deltaY float32) {
	o.deltaYaw -= deltaX * o.DragSensitivity
	o.deltaPitch += deltaY * o.DragSensitivity
}

// HandleZoom queues a zoom from a wheel delta; positive moves closer.
func (o *OrbitControls) HandleZoom(delta float32) {
	factor := 1 - delta*o.ZoomSensitivity
	if factor < 0.1 {
		factor = 0.1
	}
	o.zoomScale *= factor
}

// Update applies pending input to the camera. It returns true when the
// camera moved.
func (o *OrbitControls) Update() bool {
	oldPos := o.Camera.Position

	if o.EnableDamping {
		o.yaw += o.deltaYaw * o.DampingFactor
		o.pitch += o.deltaPitch * o.DampingFactor
	} else {
		o.yaw += o.deltaYaw
		o.pitch += o.deltaPitch
	}
	o.pitch = clamp(o.pitch, o.MinPitch, o.MaxPitch)
	o.distance = clamp(o.distance*o.zoomScale, o.MinDistance, o.MaxDistance)
	o.zoomScale = 1

	if o.EnableDamping {
		o.deltaYaw *= 1 - o.DampingFactor
		o.deltaPitch *= 1 - o.DampingFactor
		if abs(o.deltaYaw) < 1e-6 {
			o.deltaYaw = 0
		}
		if abs(o.deltaPitch) < 1e-6 {
			o.deltaPitch = 0
		}
	} else {
		o.deltaYaw, o.deltaPitch = 0, 0
	}

	cosPitch := float32(gomath.Cos(float64(o.pitch)))
	offset := math.Vec3{
		X: o.distance * cosPitch * float32(gomath.Sin(float64(o.yaw))),
		Y: o.distance * float32(gomath.Sin(float64(o.pitch))),
		Z: o.distance * cosPitch * float32(gomath.Cos(float64(o.yaw))),
	}
	o.Camera.Position = o.Target.Add(offset)
	o.Camera.Target = o.Target

	return o.Camera.Position.Distance(oldPos) > 1e-6
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
