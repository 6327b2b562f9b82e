package viewer

import (
	"context"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/castleview/internal/engine/camera"
	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/internal/logger"
)

// EventKind identifies a window or input event the loop reacts to.
type EventKind int

const (
	EventQuit EventKind = iota
	EventResize
	EventDrag
	EventZoom
)

// Event is a window or input event in viewer terms.
type Event struct {
	Kind   EventKind
	Width  int
	Height int
	DX, DY float32
	Zoom   float32
}

// Drawer renders the scene.
type Drawer interface {
	Draw(g *scene.Graph, cam *camera.Perspective)
	Resize(width, height int)
}

// Surface is the window: it yields events and presents frames. SwapBuffers
// blocks until the display's next refresh when vsync is on.
type Surface interface {
	Events() []Event
	SwapBuffers()
}

// Overlay draws on top of the scene after stats are updated.
type Overlay interface {
	Draw(s StatsSnapshot)
}

// Deps are the services a Loop drives. Clock, Queue and Stats default to
// real implementations when nil; Overlay is optional.
type Deps struct {
	Drawer  Drawer
	Surface Surface
	Clock   Clock
	Queue   *Queue
	Stats   *Stats
	Overlay Overlay
}

// Loop is the per-frame driver.
type Loop struct {
	state *State
	deps  Deps

	frames uint64
}

// NewLoop creates a loop over st.
func NewLoop(st *State, deps Deps) *Loop {
	if deps.Clock == nil {
		deps.Clock = NewSystemClock()
	}
	if deps.Queue == nil {
		deps.Queue = NewQueue(DefaultQueueSize)
	}
	if deps.Stats == nil {
		deps.Stats = NewStats()
	}
	return &Loop{state: st, deps: deps}
}

// State returns the loop's state.
func (l *Loop) State() *State {
	return l.state
}

// Queue returns the completion queue loader callbacks are posted to.
func (l *Loop) Queue() *Queue {
	return l.deps.Queue
}

// Frames returns the number of completed frames.
func (l *Loop) Frames() uint64 {
	return l.frames
}

// Run calls Frame until the window closes or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	logger.Info("starting render loop", zap.Int("characters", l.state.Registry.Len()))

	for ctx.Err() == nil {
		if !l.Frame() {
			break
		}
	}

	logger.Info("render loop stopped",
		zap.Uint64("frames", l.frames),
		zap.Int("ready", l.state.Registry.ReadyCount()))
	return nil
}

// Frame runs one iteration. It returns false when the user asked to quit.
func (l *Loop) Frame() bool {
	for _, ev := range l.deps.Surface.Events() {
		switch ev.Kind {
		case EventQuit:
			return false
		case EventResize:
			l.Resize(ev.Width, ev.Height)
		case EventDrag:
			l.state.Controls.HandleDrag(ev.DX, ev.DY)
		case EventZoom:
			l.state.Controls.HandleZoom(ev.Zoom)
		}
	}

	l.deps.Queue.Drain()

	l.state.Controls.Update()
	l.state.Scheduler.Step(l.deps.Clock.Delta())
	l.deps.Drawer.Draw(l.state.Graph, l.state.Camera)

	l.deps.Stats.Update()
	if l.deps.Overlay != nil {
		l.deps.Overlay.Draw(l.deps.Stats.Snapshot())
	}

	l.deps.Surface.SwapBuffers()
	l.frames++
	return true
}

// Resize adapts the camera and drawer to a new drawable size, then draws
// and presents one frame so the window shows the new size before the next
// regular frame.
func (l *Loop) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	cam := l.state.Camera
	cam.SetAspect(width, height)
	cam.UpdateProjection()
	l.deps.Drawer.Resize(width, height)
	l.deps.Drawer.Draw(l.state.Graph, cam)
	l.deps.Surface.SwapBuffers()

	logger.Debug("resized", zap.Int("width", width), zap.Int("height", height))
}

// Close releases every dependency that implements io.Closer.
func (l *Loop) Close() error {
	var err error
	for _, d := range []any{l.deps.Overlay, l.deps.Drawer, l.deps.Surface} {
		if c, ok := d.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
