package renderer

import (
	gomath "math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/internal/logger"
)

// Vertex format: position(3) + normal(3) + color(4) = 10 floats, 40 bytes
const vertexFloats = 10

type gpuMesh struct {
	vao   uint32
	vbo   uint32
	ebo   uint32
	count int32
}

// upload returns the GPU buffers for m, creating them on first use. Empty
// meshes are remembered as nil so they are skipped without re-checking.
func (r *Renderer) upload(m *scene.Mesh) *gpuMesh {
	if gm, ok := r.meshes[m]; ok {
		return gm
	}
	if len(m.Positions) == 0 || len(m.Indices) == 0 {
		r.meshes[m] = nil
		return nil
	}

	vertices := interleave(m)
	gm := &gpuMesh{count: int32(len(m.Indices))}

	gl.GenVertexArrays(1, &gm.vao)
	gl.BindVertexArray(gm.vao)

	gl.GenBuffers(1, &gm.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, gm.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)

	gl.GenBuffers(1, &gm.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gm.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, gl.Ptr(m.Indices), gl.STATIC_DRAW)

	stride := int32(vertexFloats * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 4, gl.FLOAT, false, stride, 6*4)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)

	r.meshes[m] = gm
	logger.Debug("mesh uploaded",
		zap.String("mesh", m.Name),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("triangles", m.TriangleCount()))
	return gm
}

// interleave packs positions, normals and colors. Missing normals face +Y
// and missing colors are white.
func interleave(m *scene.Mesh) []float32 {
	out := make([]float32, 0, len(m.Positions)*vertexFloats)
	for i, p := range m.Positions {
		n := [3]float32{0, 1, 0}
		if i < len(m.Normals) {
			n = m.Normals[i]
		}
		c := [4]float32{1, 1, 1, 1}
		if i < len(m.Colors) {
			c = m.Colors[i]
		}
		out = append(out, p[0], p[1], p[2], n[0], n[1], n[2], c[0], c[1], c[2], c[3])
	}
	return out
}

func (gm *gpuMesh) draw() {
	gl.BindVertexArray(gm.vao)
	gl.DrawElementsWithOffset(gl.TRIANGLES, gm.count, gl.UNSIGNED_INT, 0)
}

func (gm *gpuMesh) delete() {
	if gm == nil {
		return
	}
	gl.DeleteVertexArrays(1, &gm.vao)
	gl.DeleteBuffers(1, &gm.vbo)
	gl.DeleteBuffers(1, &gm.ebo)
}

func cos32(x float32) float32 {
	return float32(gomath.Cos(float64(x)))
}
