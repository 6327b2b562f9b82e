// Package ui2d draws screen-space panels and bitmap text over the scene.
package ui2d

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/castleview/internal/engine/shader"
	"github.com/Faultbox/castleview/pkg/math"
)

const solidVert = `#version 410 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec4 aColor;
uniform mat4 uProjection;
out vec4 vColor;
void main() {
    gl_Position = uProjection * vec4(aPos, 0.0, 1.0);
    vColor = aColor;
}`

const solidFrag = `#version 410 core
in vec4 vColor;
out vec4 FragColor;
void main() {
    FragColor = vColor;
}`

const textVert = `#version 410 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aTexCoord;
layout (location = 2) in vec4 aColor;
uniform mat4 uProjection;
out vec2 vTexCoord;
out vec4 vColor;
void main() {
    gl_Position = uProjection * vec4(aPos, 0.0, 1.0);
    vTexCoord = aTexCoord;
    vColor = aColor;
}`

const textFrag = `#version 410 core
uniform sampler2D uTexture;
in vec2 vTexCoord;
in vec4 vColor;
out vec4 FragColor;
void main() {
    float alpha = texture(uTexture, vTexCoord).a;
    FragColor = vec4(vColor.rgb, vColor.a * alpha);
}`

// Vertex formats: solid is pos(2) + color(4); text is pos(2) + uv(2) + color(4).
const (
	solidFloats = 6
	textFloats  = 8
)

// Renderer batches quads between Begin and End and draws them in two calls.
// Coordinates are in window points with the origin at the top left.
type Renderer struct {
	screenWidth  int
	screenHeight int

	solid *shader.Program
	text  *shader.Program

	solidVAO, solidVBO uint32
	textVAO, textVBO   uint32

	solidVertices []float32
	textVertices  []float32

	font *Font
}

// New creates a 2D renderer for a screen of the given size.
func New(width, height int) (*Renderer, error) {
	r := &Renderer{
		screenWidth:   width,
		screenHeight:  height,
		solidVertices: make([]float32, 0, 1024),
		textVertices:  make([]float32, 0, 4096),
	}

	var err error
	if r.solid, err = shader.NewProgram(solidVert, solidFrag); err != nil {
		return nil, fmt.Errorf("create solid shader: %w", err)
	}
	if r.text, err = shader.NewProgram(textVert, textFrag); err != nil {
		r.solid.Delete()
		return nil, fmt.Errorf("create text shader: %w", err)
	}

	r.solidVAO, r.solidVBO = newQuadBuffers(2, 4)
	r.textVAO, r.textVBO = newQuadBuffers(2, 2, 4)
	r.font = NewFont()

	return r, nil
}

// newQuadBuffers creates a VAO/VBO pair with consecutive float attributes
// of the given sizes.
func newQuadBuffers(sizes ...int32) (vao, vbo uint32) {
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)

	var stride int32
	for _, s := range sizes {
		stride += s * 4
	}
	var offset uintptr
	for i, s := range sizes {
		gl.VertexAttribPointerWithOffset(uint32(i), s, gl.FLOAT, false, stride, offset)
		gl.EnableVertexAttribArray(uint32(i))
		offset += uintptr(s * 4)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return vao, vbo
}

// Resize updates the screen dimensions.
func (r *Renderer) Resize(width, height int) {
	r.screenWidth = width
	r.screenHeight = height
}

// Begin starts a new UI frame.
func (r *Renderer) Begin() {
	r.solidVertices = r.solidVertices[:0]
	r.textVertices = r.textVertices[:0]
}

// End draws everything queued since Begin, solids first, text on top.
func (r *Renderer) End() {
	var prevBlend, prevDepth, prevCull int32
	gl.GetIntegerv(gl.BLEND, &prevBlend)
	gl.GetIntegerv(gl.DEPTH_TEST, &prevDepth)
	gl.GetIntegerv(gl.CULL_FACE, &prevCull)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)

	proj := math.Ortho(0, float32(r.screenWidth), float32(r.screenHeight), 0, -1, 1)

	if len(r.solidVertices) > 0 {
		r.solid.Use()
		gl.UniformMatrix4fv(r.solid.Uniform("uProjection"), 1, false, proj.Ptr())
		flush(r.solidVAO, r.solidVBO, r.solidVertices, solidFloats)
	}

	if len(r.textVertices) > 0 {
		r.text.Use()
		gl.UniformMatrix4fv(r.text.Uniform("uProjection"), 1, false, proj.Ptr())
		gl.Uniform1i(r.text.Uniform("uTexture"), 0)
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, r.font.TextureID())
		flush(r.textVAO, r.textVBO, r.textVertices, textFloats)
	}

	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.UseProgram(0)

	if prevBlend == gl.FALSE {
		gl.Disable(gl.BLEND)
	}
	if prevDepth == gl.TRUE {
		gl.Enable(gl.DEPTH_TEST)
	}
	if prevCull == gl.TRUE {
		gl.Enable(gl.CULL_FACE)
	}
}

func flush(vao, vbo uint32, vertices []float32, stride int) {
	gl.BindVertexArray(vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STREAM_DRAW)
	gl.DrawArrays(gl.TRIANGLES, 0, int32(len(vertices)/stride))
}

// Close releases renderer resources.
func (r *Renderer) Close() error {
	r.font.Close()
	for _, vao := range []*uint32{&r.solidVAO, &r.textVAO} {
		if *vao != 0 {
			gl.DeleteVertexArrays(1, vao)
		}
	}
	for _, vbo := range []*uint32{&r.solidVBO, &r.textVBO} {
		if *vbo != 0 {
			gl.DeleteBuffers(1, vbo)
		}
	}
	r.solid.Delete()
	r.text.Delete()
	return nil
}

// DrawRect draws a filled rectangle.
func (r *Renderer) DrawRect(x, y, w, h float32, c Color) {
	r.solidVertices = append(r.solidVertices,
		x, y, c.R, c.G, c.B, c.A,
		x+w, y, c.R, c.G, c.B, c.A,
		x+w, y+h, c.R, c.G, c.B, c.A,
		x, y, c.R, c.G, c.B, c.A,
		x+w, y+h, c.R, c.G, c.B, c.A,
		x, y+h, c.R, c.G, c.B, c.A,
	)
}

// DrawRectOutline draws a rectangle outline.
func (r *Renderer) DrawRectOutline(x, y, w, h, thickness float32, c Color) {
	r.DrawRect(x, y, w, thickness, c)
	r.DrawRect(x, y+h-thickness, w, thickness, c)
	r.DrawRect(x, y+thickness, thickness, h-thickness*2, c)
	r.DrawRect(x+w-thickness, y+thickness, thickness, h-thickness*2, c)
}

// DrawPanel draws a panel with border.
func (r *Renderer) DrawPanel(x, y, w, h float32, bg, border Color) {
	r.DrawRect(x, y, w, h, bg)
	r.DrawRectOutline(x, y, w, h, 1, border)
}

// DrawText draws text with its top-left corner at (x, y).
func (r *Renderer) DrawText(x, y float32, text string, scale float32, c Color) {
	gw, gh := r.font.GlyphSize()
	cw := float32(gw) * scale
	ch := float32(gh) * scale

	curX := x
	for _, char := range text {
		if char == '\n' {
			curX = x
			y += ch
			continue
		}
		u0, v0, u1, v1 := r.font.GlyphUV(char)
		r.textVertices = append(r.textVertices,
			curX, y, u0, v0, c.R, c.G, c.B, c.A,
			curX+cw, y, u1, v0, c.R, c.G, c.B, c.A,
			curX+cw, y+ch, u1, v1, c.R, c.G, c.B, c.A,
			curX, y, u0, v0, c.R, c.G, c.B, c.A,
			curX+cw, y+ch, u1, v1, c.R, c.G, c.B, c.A,
			curX, y+ch, u0, v1, c.R, c.G, c.B, c.A,
		)
		curX += cw
	}
}

// MeasureText returns the width and height of rendered text.
func (r *Renderer) MeasureText(text string, scale float32) (float32, float32) {
	return r.font.MeasureText(text, scale)
}
