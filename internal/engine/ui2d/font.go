package ui2d

import (
	"image"

	"github.com/go-gl/gl/v4.1-core/gl"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Printable ASCII is baked into the atlas; other runes draw as '?'.
const (
	firstGlyph   = ' '
	lastGlyph    = '~'
	atlasCols    = 16
	fallbackRune = '?'
)

// Font is a fixed-width bitmap font uploaded as a single texture.
type Font struct {
	texture uint32
	glyphW  int
	glyphH  int
	atlasW  int
	atlasH  int
}

// NewFont rasterizes basicfont's 7x13 face into an atlas texture.
func NewFont() *Font {
	face := basicfont.Face7x13
	img := bakeAtlas(face)

	f := &Font{
		glyphW: face.Advance,
		glyphH: face.Height,
		atlasW: img.Bounds().Dx(),
		atlasH: img.Bounds().Dy(),
	}

	gl.GenTextures(1, &f.texture)
	gl.BindTexture(gl.TEXTURE_2D, f.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(f.atlasW), int32(f.atlasH), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return f
}

// bakeAtlas draws every printable glyph into a grid of face-sized cells,
// white with coverage in alpha.
func bakeAtlas(face *basicfont.Face) *image.RGBA {
	count := int(lastGlyph-firstGlyph) + 1
	rows := (count + atlasCols - 1) / atlasCols
	img := image.NewRGBA(image.Rect(0, 0, atlasCols*face.Advance, rows*face.Height))

	d := font.Drawer{Dst: img, Src: image.White, Face: face}
	for r := firstGlyph; r <= lastGlyph; r++ {
		i := int(r - firstGlyph)
		x := (i % atlasCols) * face.Advance
		y := (i / atlasCols) * face.Height
		d.Dot = fixed.P(x, y+face.Ascent)
		d.DrawString(string(r))
	}

	// premultiplied white becomes straight white with coverage alpha
	for i := 0; i < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 255, 255, 255
		img.Pix[i+3] = a
	}
	return img
}

// GlyphSize returns the cell size in pixels.
func (f *Font) GlyphSize() (int, int) {
	return f.glyphW, f.glyphH
}

// GlyphUV returns the atlas coordinates of r.
func (f *Font) GlyphUV(r rune) (u0, v0, u1, v1 float32) {
	if r < firstGlyph || r > lastGlyph {
		r = fallbackRune
	}
	i := int(r - firstGlyph)
	x := (i % atlasCols) * f.glyphW
	y := (i / atlasCols) * f.glyphH
	u0 = float32(x) / float32(f.atlasW)
	v0 = float32(y) / float32(f.atlasH)
	u1 = float32(x+f.glyphW) / float32(f.atlasW)
	v1 = float32(y+f.glyphH) / float32(f.atlasH)
	return
}

// MeasureText returns the size of text at scale, honoring newlines.
func (f *Font) MeasureText(text string, scale float32) (float32, float32) {
	lines, widest, cur := 1, 0, 0
	for _, r := range text {
		if r == '\n' {
			lines++
			cur = 0
			continue
		}
		cur++
		if cur > widest {
			widest = cur
		}
	}
	return float32(widest*f.glyphW) * scale, float32(lines*f.glyphH) * scale
}

// TextureID returns the atlas texture.
func (f *Font) TextureID() uint32 {
	return f.texture
}

// Close deletes the atlas texture.
func (f *Font) Close() {
	if f.texture != 0 {
		gl.DeleteTextures(1, &f.texture)
		f.texture = 0
	}
}
