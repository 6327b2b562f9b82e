// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// EventType identifies a processed input event.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventDrag
	EventWheel
)

// Event is a processed input event.
type Event struct {
	Type   EventType
	Width  int
	Height int
	DX, DY float32
	Wheel  float32
}

// Input polls SDL and turns raw events into drag, wheel and window events.
// A drag is mouse motion while the left button is held.
type Input struct {
	events   []Event
	dragging bool

	// QuitKey closes the viewer when pressed; zero disables it.
	QuitKey sdl.Scancode
}

// New creates a new input handler that quits on Escape.
func New() *Input {
	return &Input{
		events:  make([]Event, 0, 16),
		QuitKey: sdl.SCANCODE_ESCAPE,
	}
}

// Poll drains the SDL queue and returns this frame's events. The slice is
// reused by the next call.
func (i *Input) Poll() []Event {
	i.events = i.events[:0]
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if ev, ok := i.translate(event); ok {
			i.events = append(i.events, ev)
		}
	}
	return i.events
}

func (i *Input) translate(event sdl.Event) (Event, bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return Event{Type: EventQuit}, true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			return Event{Type: EventWindowResize, Width: int(e.Data1), Height: int(e.Data2)}, true
		}

	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && i.QuitKey != 0 && e.Keysym.Scancode == i.QuitKey {
			return Event{Type: EventQuit}, true
		}

	case *sdl.MouseButtonEvent:
		if e.Button == sdl.BUTTON_LEFT {
			i.dragging = e.Type == sdl.MOUSEBUTTONDOWN
		}

	case *sdl.MouseMotionEvent:
		if i.dragging {
			return Event{Type: EventDrag, DX: float32(e.XRel), DY: float32(e.YRel)}, true
		}

	case *sdl.MouseWheelEvent:
		y := float32(e.Y)
		if e.Direction == sdl.MOUSEWHEEL_FLIPPED {
			y = -y
		}
		if y != 0 {
			return Event{Type: EventWheel, Wheel: y}, true
		}
	}
	return Event{}, false
}
