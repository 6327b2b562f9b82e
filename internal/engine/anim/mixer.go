package anim

import (
	gomath "math"

	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/pkg/math"
)

// LoopMode controls what an action does when it reaches the clip end.
type LoopMode int

const (
	// LoopRepeat wraps back to the start forever.
	LoopRepeat LoopMode = iota
	// LoopOnce holds the last pose and stops.
	LoopOnce
)

type binding struct {
	node  *scene.Node
	track *Track
	rest  math.Vec3
}

// Action is the playback state of one clip on one mixer.
type Action struct {
	clip     *Clip
	bindings []binding
	unbound  int

	Loop      LoopMode
	TimeScale float32

	time    float32
	running bool
}

// Play starts or resumes playback and returns the action.
func (a *Action) Play() *Action {
	a.running = true
	return a
}

// Stop halts playback and rewinds to the start.
func (a *Action) Stop() {
	a.running = false
	a.time = 0
}

// IsRunning reports whether the action advances on Update.
func (a *Action) IsRunning() bool {
	return a.running
}

// Clip returns the clip this action plays.
func (a *Action) Clip() *Clip {
	return a.clip
}

// Time returns the local playback time in seconds.
func (a *Action) Time() float32 {
	return a.time
}

// Unbound returns how many clip tracks found no node to drive.
func (a *Action) Unbound() int {
	return a.unbound
}

func (a *Action) advance(dt float32) {
	a.time += dt * a.TimeScale
	d := a.clip.Duration
	if d <= 0 {
		a.time = 0
		return
	}
	switch a.Loop {
	case LoopOnce:
		if a.time >= d {
			a.time = d
			a.running = false
		} else if a.time < 0 {
			a.time = 0
		}
	default:
		a.time = float32(gomath.Mod(float64(a.time), float64(d)))
		if a.time < 0 {
			a.time += d
		}
	}
}

func (a *Action) apply() {
	for _, b := range a.bindings {
		if len(b.track.Position) > 0 {
			b.node.Position = SampleVector(b.track.Position, a.time)
		}
		if len(b.track.Rotation) > 0 {
			b.node.Rotation = SampleRotation(b.track.Rotation, a.time).Normalize()
		}
		if len(b.track.Scale) > 0 {
			scale := SampleVector(b.track.Scale, a.time)
			if b.track.ScaleRelative {
				scale = b.rest.Mul(scale)
			}
			b.node.Scale = scale
		}
	}
}

// Mixer drives clips on the node tree under root. It is not safe for
// concurrent use.
type Mixer struct {
	root    *scene.Node
	actions []*Action
	time    float32
}

// NewMixer creates a mixer for the tree under root.
func NewMixer(root *scene.Node) *Mixer {
	return &Mixer{root: root}
}

// Root returns the animated root node.
func (m *Mixer) Root() *scene.Node {
	return m.root
}

// Time returns the total time the mixer has been advanced, in seconds.
func (m *Mixer) Time() float32 {
	return m.time
}

// Actions returns every action created on this mixer.
func (m *Mixer) Actions() []*Action {
	return m.actions
}

// ClipAction returns the action for clip, creating and binding it on first
// use. Tracks are bound by name to descendants of the root; the root itself
// is never bound since it carries the model's placement.
func (m *Mixer) ClipAction(clip *Clip) *Action {
	for _, a := range m.actions {
		if a.clip == clip {
			return a
		}
	}

	a := &Action{clip: clip, Loop: LoopRepeat, TimeScale: 1}
	for i := range clip.Tracks {
		tr := &clip.Tracks[i]
		node := m.find(tr.Node)
		if node == nil {
			a.unbound++
			continue
		}
		a.bindings = append(a.bindings, binding{node: node, track: tr, rest: node.Scale})
	}
	m.actions = append(m.actions, a)
	return a
}

func (m *Mixer) find(name string) *scene.Node {
	for _, c := range m.root.Children() {
		if n := c.Find(name); n != nil {
			return n
		}
	}
	return nil
}

// Update advances every running action by dt seconds and writes the
// resulting pose into the bound nodes.
func (m *Mixer) Update(dt float32) {
	m.time += dt
	for _, a := range m.actions {
		if !a.running {
			continue
		}
		a.advance(dt)
		a.apply()
	}
}
