package ui2d

// Line is one row of panel text.
type Line struct {
	Text  string
	Color Color
}

// Panel draws a bordered box of text lines in a screen corner.
type Panel struct {
	r *Renderer

	X, Y    float32
	Padding float32
	Scale   float32
}

// NewPanel creates a panel at the top-left corner.
func NewPanel(r *Renderer) *Panel {
	return &Panel{r: r, X: 8, Y: 8, Padding: 6, Scale: 1}
}

// Draw renders lines as one UI frame.
func (p *Panel) Draw(lines []Line) {
	if len(lines) == 0 {
		return
	}
	_, lineH := p.r.MeasureText("M", p.Scale)
	var width float32
	for _, l := range lines {
		if w, _ := p.r.MeasureText(l.Text, p.Scale); w > width {
			width = w
		}
	}
	height := lineH * float32(len(lines))

	p.r.Begin()
	p.r.DrawPanel(p.X, p.Y, width+2*p.Padding, height+2*p.Padding, ColorPanelBg, ColorPanelBorder)
	y := p.Y + p.Padding
	for _, l := range lines {
		p.r.DrawText(p.X+p.Padding, y, l.Text, p.Scale, l.Color)
		y += lineH
	}
	p.r.End()
}
