package main

import (
	"github.com/Faultbox/castleview/internal/engine/input"
	"github.com/Faultbox/castleview/internal/engine/window"
	"github.com/Faultbox/castleview/internal/viewer"
)

// surface adapts the SDL window and input to viewer.Surface. Resize events
// carry the drawable size in pixels.
type surface struct {
	win      *window.Window
	in       *input.Input
	onResize func(width, height int)
	events   []viewer.Event
}

func newSurface(win *window.Window, in *input.Input) *surface {
	return &surface{win: win, in: in}
}

func (s *surface) Events() []viewer.Event {
	s.events = s.events[:0]
	for _, ev := range s.in.Poll() {
		switch ev.Type {
		case input.EventQuit:
			s.events = append(s.events, viewer.Event{Kind: viewer.EventQuit})
		case input.EventWindowResize:
			if s.onResize != nil {
				s.onResize(ev.Width, ev.Height)
			}
			w, h := s.win.DrawableSize()
			s.events = append(s.events, viewer.Event{Kind: viewer.EventResize, Width: w, Height: h})
		case input.EventDrag:
			s.events = append(s.events, viewer.Event{Kind: viewer.EventDrag, DX: ev.DX, DY: ev.DY})
		case input.EventWheel:
			s.events = append(s.events, viewer.Event{Kind: viewer.EventZoom, Zoom: ev.Wheel})
		}
	}
	return s.events
}

func (s *surface) SwapBuffers() {
	s.win.SwapBuffers()
}

func (s *surface) Close() error {
	return s.win.Close()
}
