package ui2d

// Color represents an RGBA color with float components (0.0 to 1.0).
type Color struct {
	R, G, B, A float32
}

// Overlay palette.
var (
	ColorWhite       = Color{1, 1, 1, 1}
	ColorPanelBg     = Color{0.05, 0.05, 0.08, 0.75}
	ColorPanelBorder = Color{0.3, 0.3, 0.4, 1}
	ColorText        = Color{0.9, 0.9, 0.9, 1}
	ColorTextDim     = Color{0.55, 0.55, 0.65, 1}
	ColorGood        = Color{0.4, 0.9, 0.45, 1}
	ColorWarn        = Color{0.95, 0.75, 0.3, 1}
	ColorBad         = Color{0.95, 0.35, 0.3, 1}
)

// RGB creates a color from 8-bit RGB values with full alpha.
func RGB(r, g, b uint8) Color {
	return Color{
		R: float32(r) / 255.0,
		G: float32(g) / 255.0,
		B: float32(b) / 255.0,
		A: 1.0,
	}
}

// WithAlpha returns a copy of the color with a different alpha value.
func (c Color) WithAlpha(a float32) Color {
	return Color{c.R, c.G, c.B, a}
}

// FPSColor grades a frame rate: green at 55 and above, amber from 30, red below.
func FPSColor(fps float64) Color {
	switch {
	case fps >= 55:
		return ColorGood
	case fps >= 30:
		return ColorWarn
	default:
		return ColorBad
	}
}
