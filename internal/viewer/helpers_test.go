package viewer

import (
	"context"
	"errors"
	"testing"

	"github.com/Faultbox/castleview/internal/engine/anim"
	"github.com/Faultbox/castleview/internal/engine/camera"
	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/internal/loader"
	"github.com/Faultbox/castleview/pkg/math"
)

// trace records the order in which fakes are called.
type trace struct {
	calls []string
}

func (tr *trace) add(s string) {
	if tr != nil {
		tr.calls = append(tr.calls, s)
	}
}

type fakeClock struct {
	dt    float32
	calls int
}

func (c *fakeClock) Delta() float32 {
	c.calls++
	return c.dt
}

type fakeDrawer struct {
	tr      *trace
	draws   int
	resizes [][2]int
	closed  bool
	err     error
}

func (d *fakeDrawer) Draw(*scene.Graph, *camera.Perspective) {
	d.draws++
	d.tr.add("draw")
}

func (d *fakeDrawer) Resize(w, h int) {
	d.resizes = append(d.resizes, [2]int{w, h})
	d.tr.add("resize")
}

func (d *fakeDrawer) Close() error {
	d.closed = true
	return d.err
}

type fakeSurface struct {
	tr     *trace
	frames [][]Event
	swaps  int
}

func (s *fakeSurface) Events() []Event {
	s.tr.add("events")
	if len(s.frames) == 0 {
		return nil
	}
	ev := s.frames[0]
	s.frames = s.frames[1:]
	return ev
}

func (s *fakeSurface) SwapBuffers() {
	s.swaps++
	s.tr.add("swap")
}

type fakeControls struct {
	tr      *trace
	drags   [][2]float32
	zooms   []float32
	updates int
}

func (c *fakeControls) HandleDrag(dx, dy float32) { c.drags = append(c.drags, [2]float32{dx, dy}) }
func (c *fakeControls) HandleZoom(d float32)      { c.zooms = append(c.zooms, d) }
func (c *fakeControls) Update() bool {
	c.updates++
	c.tr.add("controls")
	return false
}

type fakeScheduler struct {
	tr  *trace
	dts []float32
}

func (s *fakeScheduler) Step(dt float32) {
	s.dts = append(s.dts, dt)
	s.tr.add("step")
}

type fakeOverlay struct {
	tr    *trace
	snaps []StatsSnapshot
}

func (o *fakeOverlay) Draw(s StatsSnapshot) {
	o.snaps = append(o.snaps, s)
	o.tr.add("overlay")
}

// pendingLoad is a load the test completes by hand, standing in for a
// loader goroutine whose callback has been drained from the queue.
type pendingLoad struct {
	path string
	h    loader.Handlers
}

type fakeLoader struct {
	pending []*pendingLoad
	paths   []string
}

func (l *fakeLoader) Load(_ context.Context, path string, h loader.Handlers) {
	l.paths = append(l.paths, path)
	l.pending = append(l.pending, &pendingLoad{path: path, h: h})
}

// take removes and returns the pending load for path.
func (l *fakeLoader) take(t *testing.T, path string) *pendingLoad {
	t.Helper()
	for i, p := range l.pending {
		if p.path == path {
			l.pending = append(l.pending[:i], l.pending[i+1:]...)
			return p
		}
	}
	t.Fatalf("no pending load for %q (pending: %v)", path, l.paths)
	return nil
}

// walkClip moves the "body" node along X at one unit per second.
func walkClip() *anim.Clip {
	return anim.NewClip("walk", 10, []anim.Track{{
		Node: "body",
		Position: []anim.VectorKey{
			{Time: 0},
			{Time: 10, Value: math.Vec3{X: 10}},
		},
	}})
}

func modelRoot(name string) *scene.Node {
	root := scene.NewNode(name)
	_ = root.Add(scene.NewNode("body"))
	return root
}

func modelResult(name string) *loader.Result {
	return &loader.Result{Path: name + ".rsm", Root: modelRoot(name)}
}

func clipResult(name string) *loader.Result {
	return &loader.Result{Path: name + ".rsm", Root: scene.NewNode(name), Clips: []*anim.Clip{walkClip()}}
}

// readyRegistry returns a registry of n characters; those listed in ready
// have a base and a playing clip.
func readyRegistry(t *testing.T, ids []string, ready ...string) *Registry {
	t.Helper()
	r := NewRegistry(scene.NewGraph())
	for _, id := range ids {
		if _, err := r.Add(id); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range ready {
		if err := r.RegisterBase(id, modelRoot(id), 1, math.Vec3{}); err != nil {
			t.Fatal(err)
		}
		if err := r.AttachClip(id, walkClip()); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func mixerTime(c *Character) float32 {
	if c.Mixer == nil {
		return 0
	}
	return c.Mixer.Time()
}

var errBoom = errors.New("boom")
