// Package viewer orchestrates the castle scene: it sequences asset loads,
// tracks which characters are ready, advances their animations and drives
// the per-frame render loop.
//
// All State mutation happens on the render thread. Loader goroutines reach
// it only through callbacks posted on a Queue.
package viewer

import (
	"fmt"

	"github.com/Faultbox/castleview/internal/config"
	"github.com/Faultbox/castleview/internal/engine/camera"
	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/pkg/math"
)

// Controls moves the camera from user input.
type Controls interface {
	HandleDrag(dx, dy float32)
	HandleZoom(delta float32)
	Update() bool
}

// State is everything the render loop reads and mutates each frame.
type State struct {
	Graph     *scene.Graph
	Camera    *camera.Perspective
	Controls  Controls
	Registry  *Registry
	Scheduler Scheduler
}

// NewState builds the scene, camera, controls, empty character entries and
// scheduler described by cfg. width and height are the initial drawable size.
func NewState(cfg *config.Config, width, height int) (*State, error) {
	graph := scene.NewGraph()

	cc := cfg.Camera
	cam := camera.NewPerspective(cc.FOV, 1, cc.Near, cc.Far)
	cam.SetAspect(width, height)
	cam.UpdateProjection()
	cam.Position = math.V3(cc.Position)

	controls := camera.NewOrbitControls(cam, math.V3(cc.Target))
	controls.MinDistance = cc.MinDistance
	controls.MaxDistance = cc.MaxDistance
	controls.EnableDamping = cc.Damping
	controls.DampingFactor = cc.DampingFactor
	controls.Update()

	registry := NewRegistry(graph)
	for _, ch := range cfg.Assets.Characters {
		if _, err := registry.Add(ch.ID); err != nil {
			return nil, err
		}
	}

	sched, err := NewScheduler(cfg.Animation.Policy, registry.Characters())
	if err != nil {
		return nil, err
	}

	for i, lc := range cfg.Assets.Lights {
		if err := graph.Add(pointLightNode(fmt.Sprintf("light_%d", i), lc)); err != nil {
			return nil, err
		}
	}

	return &State{
		Graph:     graph,
		Camera:    cam,
		Controls:  controls,
		Registry:  registry,
		Scheduler: sched,
	}, nil
}

func pointLightNode(name string, lc config.LightConfig) *scene.Node {
	n := scene.NewNode(name)
	n.Position = math.V3(lc.Position)
	l := scene.NewLight(scene.PointLight)
	l.Color = lc.Color
	l.Intensity = lc.Intensity
	l.Range = lc.Range
	n.Light = l
	return n
}
