package main

import (
	"github.com/Faultbox/castleview/internal/engine/ui2d"
	"github.com/Faultbox/castleview/internal/viewer"
)

// fpsOverlay draws the stats panel in the top-left corner.
type fpsOverlay struct {
	r     *ui2d.Renderer
	panel *ui2d.Panel
	lines []ui2d.Line
}

func newFPSOverlay(width, height int) (*fpsOverlay, error) {
	r, err := ui2d.New(width, height)
	if err != nil {
		return nil, err
	}
	return &fpsOverlay{r: r, panel: ui2d.NewPanel(r)}, nil
}

func (o *fpsOverlay) Resize(width, height int) {
	o.r.Resize(width, height)
}

func (o *fpsOverlay) Draw(s viewer.StatsSnapshot) {
	o.lines = o.lines[:0]
	for i, text := range s.Lines() {
		c := ui2d.ColorText
		switch {
		case i == 0 && s.Samples > 0:
			c = ui2d.FPSColor(s.FPS)
		case i > 0:
			c = ui2d.ColorTextDim
		}
		o.lines = append(o.lines, ui2d.Line{Text: text, Color: c})
	}
	o.panel.Draw(o.lines)
}

func (o *fpsOverlay) Close() error {
	return o.r.Close()
}
