// Package renderer draws a scene graph with OpenGL.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/castleview/internal/engine/camera"
	"github.com/Faultbox/castleview/internal/engine/renderer/shaders"
	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/internal/engine/shader"
	"github.com/Faultbox/castleview/internal/engine/shadow"
	"github.com/Faultbox/castleview/internal/logger"
	"github.com/Faultbox/castleview/pkg/math"
)

// MaxLights is the number of lights the lit shader evaluates per fragment.
const MaxLights = 16

const shadowTextureUnit = gl.TEXTURE1

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// Renderer draws meshes with per-fragment lighting and a single shadow map.
// GPU buffers are created the first time a mesh is drawn.
type Renderer struct {
	width  int
	height int

	lit   *shader.Program
	depth *shader.Program

	meshes     map[*scene.Mesh]*gpuMesh
	shadowMaps map[*scene.Light]*shadow.Map

	warnedLights bool
}

// New creates a renderer. The OpenGL context must be current.
func New(cfg Config) (*Renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	logger.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	r := &Renderer{
		meshes:     make(map[*scene.Mesh]*gpuMesh),
		shadowMaps: make(map[*scene.Light]*shadow.Map),
	}

	var err error
	if r.lit, err = shader.NewProgram(shaders.LitVertexShader, shaders.LitFragmentShader); err != nil {
		return nil, fmt.Errorf("lit program: %w", err)
	}
	if r.depth, err = shader.NewProgram(shaders.DepthVertexShader, shaders.DepthFragmentShader); err != nil {
		r.lit.Delete()
		return nil, fmt.Errorf("depth program: %w", err)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)

	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

// Close releases every GPU resource the renderer created.
func (r *Renderer) Close() error {
	logger.Info("closing renderer", zap.Int("meshes", len(r.meshes)))
	for _, m := range r.meshes {
		m.delete()
	}
	r.meshes = nil
	for _, sm := range r.shadowMaps {
		sm.Destroy()
	}
	r.shadowMaps = nil
	r.lit.Delete()
	r.depth.Delete()
	return nil
}

// Resize sets the viewport to the drawable size.
func (r *Renderer) Resize(width, height int) {
	r.width = width
	r.height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Draw renders g as seen by cam.
func (r *Renderer) Draw(g *scene.Graph, cam *camera.Perspective) {
	meshes := g.Meshes()
	lights := g.Lights()
	if len(lights) > MaxLights {
		if !r.warnedLights {
			logger.Warn("too many lights, extra ones ignored",
				zap.Int("lights", len(lights)), zap.Int("max", MaxLights))
			r.warnedLights = true
		}
		lights = lights[:MaxLights]
	}

	shadowIdx, lightVP, sm := r.shadowPass(g, meshes, lights)

	bg := g.Background
	gl.ClearColor(bg[0], bg[1], bg[2], 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	p := r.lit
	p.Use()
	viewProj := cam.ViewProjection()
	gl.UniformMatrix4fv(p.Uniform("uViewProj"), 1, false, viewProj.Ptr())
	gl.UniformMatrix4fv(p.Uniform("uLightViewProj"), 1, false, lightVP.Ptr())
	gl.Uniform3f(p.Uniform("uAmbient"), g.Ambient[0], g.Ambient[1], g.Ambient[2])
	gl.Uniform3f(p.Uniform("uCameraPos"), cam.Position.X, cam.Position.Y, cam.Position.Z)
	r.setLights(lights)

	gl.Uniform1i(p.Uniform("uShadowLight"), int32(shadowIdx))
	gl.Uniform1i(p.Uniform("uShadowMap"), int32(shadowTextureUnit-gl.TEXTURE0))
	if sm != nil {
		sm.BindTexture(shadowTextureUnit)
		gl.Uniform1f(p.Uniform("uShadowBias"), lights[shadowIdx].Light.Shadow.Bias)
	}

	for _, inst := range meshes {
		gm := r.upload(inst.Mesh)
		if gm == nil {
			continue
		}
		model := inst.World
		normal := model.NormalMatrix()
		gl.UniformMatrix4fv(p.Uniform("uModel"), 1, false, model.Ptr())
		gl.UniformMatrix3fv(p.Uniform("uNormalMatrix"), 1, false, &normal[0])
		c := inst.Mesh.BaseColor
		gl.Uniform4f(p.Uniform("uBaseColor"), c[0], c[1], c[2], c[3])
		gl.Uniform1i(p.Uniform("uReceiveShadow"), boolToInt(inst.Node.ReceiveShadow && sm != nil))

		if inst.Mesh.DoubleSided {
			gl.Disable(gl.CULL_FACE)
		}
		gm.draw()
		if inst.Mesh.DoubleSided {
			gl.Enable(gl.CULL_FACE)
		}
	}

	gl.BindVertexArray(0)
	gl.UseProgram(0)
}

// shadowPass renders depth for the first shadow-casting light. It returns
// that light's index, its view-projection and the map, or -1 when no light
// casts shadows.
func (r *Renderer) shadowPass(g *scene.Graph, meshes []scene.MeshInstance, lights []scene.LightInstance) (int, math.Mat4, *shadow.Map) {
	idx := -1
	for i, li := range lights {
		if li.Light.CastShadow {
			idx = i
			break
		}
	}
	if idx < 0 {
		return -1, math.Identity(), nil
	}
	lo, hi, ok := g.Bounds()
	if !ok {
		return -1, math.Identity(), nil
	}

	li := lights[idx]
	sm, err := r.shadowMap(li.Light)
	if err != nil {
		logger.Warn("shadow map unavailable", zap.String("light", li.Node.Name), zap.Error(err))
		li.Light.CastShadow = false
		return -1, math.Identity(), nil
	}

	lightVP := shadow.LightMatrix(li, shadow.Bounds{Min: lo, Max: hi})

	sm.Bind()
	r.depth.Use()
	gl.UniformMatrix4fv(r.depth.Uniform("uLightViewProj"), 1, false, lightVP.Ptr())
	for _, inst := range meshes {
		if !inst.Node.CastShadow {
			continue
		}
		gm := r.upload(inst.Mesh)
		if gm == nil {
			continue
		}
		model := inst.World
		gl.UniformMatrix4fv(r.depth.Uniform("uModel"), 1, false, model.Ptr())
		gm.draw()
	}
	sm.Unbind()

	return idx, lightVP, sm
}

// shadowMap returns the map for l, reallocating it when the light's
// requested size changed.
func (r *Renderer) shadowMap(l *scene.Light) (*shadow.Map, error) {
	w, h := l.Shadow.MapWidth, l.Shadow.MapHeight
	if w <= 0 || h <= 0 {
		w, h = scene.DefaultShadowMapSize, scene.DefaultShadowMapSize
	}
	if sm := r.shadowMaps[l]; sm.Matches(w, h) {
		return sm, nil
	} else if sm != nil {
		sm.Destroy()
		delete(r.shadowMaps, l)
	}

	sm, err := shadow.NewMap(w, h)
	if err != nil {
		return nil, err
	}
	r.shadowMaps[l] = sm
	logger.Debug("shadow map created", zap.Int32("width", w), zap.Int32("height", h))
	return sm, nil
}

func (r *Renderer) setLights(lights []scene.LightInstance) {
	var (
		kinds  [MaxLights]int32
		pos    [MaxLights][3]float32
		dir    [MaxLights][3]float32
		color  [MaxLights][3]float32
		ranges [MaxLights]float32
		cones  [MaxLights][2]float32
	)
	for i, li := range lights {
		l := li.Light
		kinds[i] = int32(l.Kind)
		pos[i] = li.Position.Array()
		dir[i] = li.Direction.Array()
		color[i] = [3]float32{l.Color[0] * l.Intensity, l.Color[1] * l.Intensity, l.Color[2] * l.Intensity}
		ranges[i] = l.Range
		cones[i] = [2]float32{cos32(l.InnerCone), cos32(l.OuterCone)}
	}

	p := r.lit
	n := int32(MaxLights)
	gl.Uniform1i(p.Uniform("uLightCount"), int32(len(lights)))
	gl.Uniform1iv(p.Uniform("uLightKind"), n, &kinds[0])
	gl.Uniform3fv(p.Uniform("uLightPos"), n, &pos[0][0])
	gl.Uniform3fv(p.Uniform("uLightDir"), n, &dir[0][0])
	gl.Uniform3fv(p.Uniform("uLightColor"), n, &color[0][0])
	gl.Uniform1fv(p.Uniform("uLightRange"), n, &ranges[0])
	gl.Uniform2fv(p.Uniform("uLightCone"), n, &cones[0][0])
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
