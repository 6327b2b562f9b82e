package camera

import (
	"testing"

	"github.com/Faultbox/castleview/pkg/math"
)

func near(a, b float32) bool {
	d := a - b
	return d < 1e-3 && d > -1e-3
}

func newTestControls() (*Perspective, *OrbitControls) {
	cam := NewPerspective(75, 16.0/9.0, 0.1, 1000)
	cam.Position = math.Vec3{X: 3.2, Y: 1, Z: 2}
	ctl := NewOrbitControls(cam, math.Vec3{X: 3.1, Y: 0, Z: -0.3})
	ctl.MinDistance = 2
	ctl.MaxDistance = 5
	return cam, ctl
}

func TestSetAspectUpdatesProjection(t *testing.T) {
	cam := NewPerspective(75, 1, 0.1, 1000)
	before := cam.Projection()

	cam.SetAspect(1920, 1080)
	if !near(cam.Aspect, 1920.0/1080.0) {
		t.Errorf("Aspect = %v, want %v", cam.Aspect, 1920.0/1080.0)
	}
	if cam.Projection() != before {
		t.Error("projection must not change before UpdateProjection")
	}

	cam.UpdateProjection()
	p := cam.Projection()
	// p[0] = f/aspect and p[5] = f
	if !near(p[5]/p[0], cam.Aspect) {
		t.Errorf("projection aspect = %v, want %v", p[5]/p[0], cam.Aspect)
	}

	cam.SetAspect(0, 100)
	if !near(cam.Aspect, 1920.0/1080.0) {
		t.Error("zero width must be ignored")
	}
}

func TestOrbitKeepsStartingPose(t *testing.T) {
	cam, ctl := newTestControls()
	start := cam.Position

	ctl.Update()
	if !near(cam.Position.X, start.X) || !near(cam.Position.Y, start.Y) || !near(cam.Position.Z, start.Z) {
		t.Errorf("idle Update moved camera from %+v to %+v", start, cam.Position)
	}
	if cam.Target != ctl.Target {
		t.Error("camera should look at the orbit target")
	}
}

func TestOrbitZoomClamped(t *testing.T) {
	_, ctl := newTestControls()

	ctl.HandleZoom(50)
	ctl.Update()
	if !near(ctl.Distance(), 2) {
		t.Errorf("zoom in distance = %v, want min 2", ctl.Distance())
	}

	for i := 0; i < 40; i++ {
		ctl.HandleZoom(-5)
		ctl.Update()
	}
	if !near(ctl.Distance(), 5) {
		t.Errorf("zoom out distance = %v, want max 5", ctl.Distance())
	}
}

func TestOrbitDragWithoutDamping(t *testing.T) {
	_, ctl := newTestControls()
	_, yaw0 := ctl.Angles()

	ctl.HandleDrag(100, 0)
	if !ctl.Update() {
		t.Error("Update should report movement")
	}
	_, yaw1 := ctl.Angles()
	if !near(yaw1-yaw0, -0.5) {
		t.Errorf("yaw change = %v, want -0.5", yaw1-yaw0)
	}
	if ctl.Update() {
		t.Error("second Update without input should not move")
	}
}

func TestOrbitDampingSpreadsDelta(t *testing.T) {
	_, ctl := newTestControls()
	ctl.EnableDamping = true
	ctl.DampingFactor = 0.05
	_, yaw0 := ctl.Angles()

	ctl.HandleDrag(100, 0)
	ctl.Update()
	_, yaw1 := ctl.Angles()
	if !near(yaw1-yaw0, -0.025) {
		t.Errorf("first damped step = %v, want -0.025", yaw1-yaw0)
	}

	for i := 0; i < 500; i++ {
		ctl.Update()
	}
	_, yawN := ctl.Angles()
	if !near(yawN-yaw0, -0.5) {
		t.Errorf("total damped yaw = %v, want -0.5", yawN-yaw0)
	}
}

func TestOrbitPitchClamped(t *testing.T) {
	_, ctl := newTestControls()
	ctl.HandleDrag(0, 10000)
	ctl.Update()

	pitch, _ := ctl.Angles()
	if pitch > ctl.MaxPitch+1e-6 {
		t.Errorf("pitch %v exceeds max %v", pitch, ctl.MaxPitch)
	}
}
