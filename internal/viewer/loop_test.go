package viewer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Faultbox/castleview/internal/config"
	"github.com/Faultbox/castleview/pkg/math"
)

type loopFixture struct {
	tr       *trace
	state    *State
	loop     *Loop
	drawer   *fakeDrawer
	surface  *fakeSurface
	controls *fakeControls
	sched    *fakeScheduler
	clock    *fakeClock
	overlay  *fakeOverlay
}

func newLoopFixture(t *testing.T, frames ...[]Event) *loopFixture {
	t.Helper()
	st, err := NewState(config.Default(), 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	tr := &trace{}
	f := &loopFixture{
		tr:       tr,
		state:    st,
		drawer:   &fakeDrawer{tr: tr},
		surface:  &fakeSurface{tr: tr, frames: frames},
		controls: &fakeControls{tr: tr},
		sched:    &fakeScheduler{tr: tr},
		clock:    &fakeClock{dt: 1.0 / 60},
		overlay:  &fakeOverlay{tr: tr},
	}
	st.Controls = f.controls
	st.Scheduler = f.sched
	f.loop = NewLoop(st, Deps{
		Drawer:  f.drawer,
		Surface: f.surface,
		Clock:   f.clock,
		Overlay: f.overlay,
	})
	return f
}

func TestFrameOrder(t *testing.T) {
	f := newLoopFixture(t)
	f.loop.Queue().Post(context.Background(), func() { f.tr.add("callback") })

	if !f.loop.Frame() {
		t.Fatal("Frame() = false")
	}

	want := "events callback controls step draw overlay swap"
	if got := strings.Join(f.tr.calls, " "); got != want {
		t.Errorf("frame order:\n got %s\nwant %s", got, want)
	}
	if f.loop.Frames() != 1 {
		t.Errorf("Frames() = %d", f.loop.Frames())
	}
}

func TestFrameSharesOneDelta(t *testing.T) {
	f := newLoopFixture(t)
	for i := 0; i < 5; i++ {
		f.loop.Frame()
	}
	if f.clock.calls != 5 {
		t.Errorf("clock read %d times for 5 frames", f.clock.calls)
	}
	for _, dt := range f.sched.dts {
		if dt != f.clock.dt {
			t.Errorf("scheduler got dt %v, want %v", dt, f.clock.dt)
		}
	}
}

func TestFrameQuit(t *testing.T) {
	f := newLoopFixture(t, []Event{{Kind: EventQuit}})
	if f.loop.Frame() {
		t.Fatal("Frame() = true after quit")
	}
	if f.drawer.draws != 0 || f.surface.swaps != 0 {
		t.Error("quit frame should not render")
	}
}

func TestFrameRoutesInput(t *testing.T) {
	f := newLoopFixture(t, []Event{
		{Kind: EventDrag, DX: 4, DY: -2},
		{Kind: EventZoom, Zoom: 1},
		{Kind: EventZoom, Zoom: -1},
	})
	f.loop.Frame()

	if len(f.controls.drags) != 1 || f.controls.drags[0] != [2]float32{4, -2} {
		t.Errorf("drags = %v", f.controls.drags)
	}
	if len(f.controls.zooms) != 2 || f.controls.zooms[0] != 1 || f.controls.zooms[1] != -1 {
		t.Errorf("zooms = %v", f.controls.zooms)
	}
	if f.controls.updates != 1 {
		t.Errorf("controls updated %d times", f.controls.updates)
	}
}

func TestResizeDrawsOnce(t *testing.T) {
	f := newLoopFixture(t)

	f.loop.Resize(1280, 720)

	if f.drawer.draws != 1 {
		t.Errorf("draws after resize = %d, want 1", f.drawer.draws)
	}
	if len(f.drawer.resizes) != 1 || f.drawer.resizes[0] != [2]int{1280, 720} {
		t.Errorf("drawer resizes = %v", f.drawer.resizes)
	}
	if !approx(f.state.Camera.Aspect, 1280.0/720.0) {
		t.Errorf("aspect = %v", f.state.Camera.Aspect)
	}
	if f.surface.swaps != 1 {
		t.Errorf("swaps after resize = %d, want the extra draw presented", f.surface.swaps)
	}
	if got := strings.Join(f.tr.calls, " "); got != "resize draw swap" {
		t.Errorf("calls = %s", got)
	}
}

func TestResizeEventInFrame(t *testing.T) {
	f := newLoopFixture(t, []Event{{Kind: EventResize, Width: 1024, Height: 512}})
	f.loop.Frame()

	// one draw for the resize plus the regular frame, each presented
	if f.drawer.draws != 2 || f.surface.swaps != 2 {
		t.Errorf("draws = %d swaps = %d, want 2 and 2", f.drawer.draws, f.surface.swaps)
	}
	if !approx(f.state.Camera.Aspect, 2) {
		t.Errorf("aspect = %v", f.state.Camera.Aspect)
	}
}

func TestResizeIgnoresEmptySize(t *testing.T) {
	f := newLoopFixture(t)
	aspect := f.state.Camera.Aspect

	f.loop.Resize(0, 600)
	f.loop.Resize(800, -1)

	if f.drawer.draws != 0 || f.surface.swaps != 0 || len(f.drawer.resizes) != 0 || f.state.Camera.Aspect != aspect {
		t.Error("minimized window should be ignored")
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	f := newLoopFixture(t, nil, nil, []Event{{Kind: EventQuit}})
	if err := f.loop.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.loop.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", f.loop.Frames())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newLoopFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.loop.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if f.loop.Frames() != 0 {
		t.Errorf("Frames() = %d after cancel", f.loop.Frames())
	}
}

func TestLoopAnimatesReadyCharacters(t *testing.T) {
	st, err := NewState(config.Default(), 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range st.Registry.Characters()[:2] {
		if err := st.Registry.RegisterBase(c.ID, modelRoot(c.ID), 1, math.Vec3{}); err != nil {
			t.Fatal(err)
		}
		if err := st.Registry.AttachClip(c.ID, walkClip()); err != nil {
			t.Fatal(err)
		}
	}
	loop := NewLoop(st, Deps{Drawer: &fakeDrawer{}, Surface: &fakeSurface{}, Clock: &fakeClock{dt: frameDT}})

	for i := 0; i < 6; i++ {
		loop.Frame()
	}

	chars := st.Registry.Characters()
	for i, want := range []float32{2 * frameDT, 2 * frameDT, 0} {
		if mixerTime(chars[i]) != want {
			t.Errorf("%s time = %v, want %v", chars[i].ID, mixerTime(chars[i]), want)
		}
	}
}

func TestCloseJoinsErrors(t *testing.T) {
	st, err := NewState(config.Default(), 800, 600)
	if err != nil {
		t.Fatal(err)
	}
	errSurface := errors.New("surface")
	drawer := &fakeDrawer{err: errBoom}
	loop := NewLoop(st, Deps{Drawer: drawer, Surface: closingSurface{err: errSurface}})

	err = loop.Close()
	if !drawer.closed {
		t.Error("drawer not closed")
	}
	if !errors.Is(err, errBoom) || !errors.Is(err, errSurface) {
		t.Errorf("Close() = %v, want both errors", err)
	}
}

type closingSurface struct {
	err error
}

func (s closingSurface) Events() []Event { return nil }
func (s closingSurface) SwapBuffers()    {}
func (s closingSurface) Close() error    { return s.err }
