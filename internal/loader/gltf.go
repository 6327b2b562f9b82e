package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/tidwall/gjson"

	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/pkg/math"
)

const lightsExtension = "KHR_lights_punctual"

// GLTFFormat decodes self-contained glTF 2.0 scenes (.glb, or .gltf with
// data-URI buffers). Meshes become scene nodes with triangle meshes;
// KHR_lights_punctual lights become scene lights.
type GLTFFormat struct{}

func (GLTFFormat) Name() string         { return "gltf" }
func (GLTFFormat) Extensions() []string { return []string{".glb", ".gltf"} }

func (GLTFFormat) Decode(path string, data []byte) (*Result, error) {
	var doc gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}

	lights, err := punctualLights(doc.Extensions)
	if err != nil {
		return nil, err
	}

	b := &gltfBuilder{doc: &doc, lights: lights, meshes: make(map[int][]*scene.Mesh)}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	root := scene.NewNode(name)

	for _, idx := range b.sceneRoots() {
		node, err := b.node(int(idx), 0)
		if err != nil {
			return nil, err
		}
		_ = root.Add(node)
	}
	return &Result{Root: root}, nil
}

// maxNodeDepth guards against malformed files whose children loop.
const maxNodeDepth = 256

type gltfBuilder struct {
	doc    *gltf.Document
	lights []*scene.Light
	meshes map[int][]*scene.Mesh
}

func (b *gltfBuilder) sceneRoots() []int {
	var roots []int
	if len(b.doc.Scenes) > 0 {
		s := 0
		if b.doc.Scene != nil {
			s = int(*b.doc.Scene)
		}
		if s >= 0 && s < len(b.doc.Scenes) {
			for _, n := range b.doc.Scenes[s].Nodes {
				roots = append(roots, int(n))
			}
			return roots
		}
	}

	// no scene: every node without a parent is a root
	hasParent := make([]bool, len(b.doc.Nodes))
	for _, n := range b.doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(hasParent) {
				hasParent[c] = true
			}
		}
	}
	for i, p := range hasParent {
		if !p {
			roots = append(roots, i)
		}
	}
	return roots
}

func (b *gltfBuilder) node(idx, depth int) (*scene.Node, error) {
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if depth > maxNodeDepth {
		return nil, fmt.Errorf("node hierarchy deeper than %d", maxNodeDepth)
	}
	src := b.doc.Nodes[idx]

	node := scene.NewNode(src.Name)
	if node.Name == "" {
		node.Name = fmt.Sprintf("node_%d", idx)
	}
	applyTransform(node, src)

	if src.Mesh != nil {
		meshes, err := b.mesh(int(*src.Mesh))
		if err != nil {
			return nil, err
		}
		if len(meshes) == 1 {
			node.Mesh = meshes[0]
		} else {
			for i, m := range meshes {
				prim := scene.NewNode(fmt.Sprintf("%s_prim%d", node.Name, i))
				prim.Mesh = m
				_ = node.Add(prim)
			}
		}
	}

	if li, ok, err := nodeLight(src.Extensions); err != nil {
		return nil, err
	} else if ok {
		if li < 0 || li >= len(b.lights) {
			return nil, fmt.Errorf("node %d: light index %d out of range", idx, li)
		}
		// copy so staging one node does not change others sharing the light
		l := *b.lights[li]
		node.Light = &l
	}

	for _, c := range src.Children {
		child, err := b.node(int(c), depth+1)
		if err != nil {
			return nil, err
		}
		if err := node.Add(child); err != nil {
			return nil, fmt.Errorf("node %d: %w", idx, err)
		}
	}
	return node, nil
}

func applyTransform(node *scene.Node, src *gltf.Node) {
	m := src.MatrixOrDefault()
	identity := true
	for i, v := range m {
		want := 0.0
		if i%5 == 0 {
			want = 1
		}
		if float64(v) != want {
			identity = false
			break
		}
	}
	if !identity {
		var mat math.Mat4
		for i, v := range m {
			mat[i] = float32(v)
		}
		node.Matrix = &mat
		return
	}

	t := src.TranslationOrDefault()
	r := src.RotationOrDefault()
	s := src.ScaleOrDefault()
	node.Position = math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])}
	node.Rotation = math.Quat{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])}
	node.Scale = math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])}
}

func (b *gltfBuilder) mesh(idx int) ([]*scene.Mesh, error) {
	if cached, ok := b.meshes[idx]; ok {
		return cached, nil
	}
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh index %d out of range", idx)
	}
	src := b.doc.Meshes[idx]

	var out []*scene.Mesh
	for pi, prim := range src.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		m, err := b.primitive(src.Name, pi, prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", idx, pi, err)
		}
		if m != nil {
			out = append(out, m)
		}
	}
	b.meshes[idx] = out
	return out, nil
}

func (b *gltfBuilder) primitive(name string, pi int, prim *gltf.Primitive) (*scene.Mesh, error) {
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil
	}
	positions, err := modeler.ReadPosition(b.doc, b.doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	var normals [][3]float32
	if nIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err = modeler.ReadNormal(b.doc, b.doc.Accessors[nIdx], nil)
		if err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(b.doc, b.doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}

	meshName := name
	if pi > 0 {
		meshName = fmt.Sprintf("%s.%d", name, pi)
	}
	m := scene.NewMesh(meshName, positions, normals, indices)

	if prim.Material != nil && int(*prim.Material) < len(b.doc.Materials) {
		mat := b.doc.Materials[*prim.Material]
		m.DoubleSided = mat.DoubleSided
		if mat.PBRMetallicRoughness != nil {
			c := mat.PBRMetallicRoughness.BaseColorFactorOrDefault()
			m.BaseColor = [4]float32{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
		}
	}
	return m, nil
}

// extensionJSON re-encodes an extension value so it can be queried with
// gjson regardless of how the decoder stored it.
func extensionJSON(ext gltf.Extensions, name string) ([]byte, bool, error) {
	v, ok := ext[name]
	if !ok {
		return nil, false, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", name, err)
	}
	return raw, true, nil
}

// punctualLights reads the document-level light table.
func punctualLights(ext gltf.Extensions) ([]*scene.Light, error) {
	raw, ok, err := extensionJSON(ext, lightsExtension)
	if err != nil || !ok {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%s: invalid JSON", lightsExtension)
	}

	var lights []*scene.Light
	var parseErr error
	gjson.GetBytes(raw, "lights").ForEach(func(_, v gjson.Result) bool {
		l, err := parseLight(v)
		if err != nil {
			parseErr = fmt.Errorf("%s light %d: %w", lightsExtension, len(lights), err)
			return false
		}
		lights = append(lights, l)
		return true
	})
	return lights, parseErr
}

func parseLight(v gjson.Result) (*scene.Light, error) {
	var kind scene.LightKind
	switch t := v.Get("type").String(); t {
	case "point":
		kind = scene.PointLight
	case "directional":
		kind = scene.DirectionalLight
	case "spot":
		kind = scene.SpotLight
	default:
		return nil, fmt.Errorf("unknown light type %q", t)
	}

	l := scene.NewLight(kind)
	if c := v.Get("color").Array(); len(c) == 3 {
		l.Color = [3]float32{float32(c[0].Float()), float32(c[1].Float()), float32(c[2].Float())}
	}
	if i := v.Get("intensity"); i.Exists() {
		l.Intensity = float32(i.Float())
	}
	l.Range = float32(v.Get("range").Float())
	if kind == scene.SpotLight {
		l.InnerCone = float32(v.Get("spot.innerConeAngle").Float())
		l.OuterCone = 0.7853982 // pi/4, the extension default
		if o := v.Get("spot.outerConeAngle"); o.Exists() {
			l.OuterCone = float32(o.Float())
		}
	}
	return l, nil
}

// nodeLight returns the light index a node references, if any.
func nodeLight(ext gltf.Extensions) (int, bool, error) {
	raw, ok, err := extensionJSON(ext, lightsExtension)
	if err != nil || !ok {
		return 0, false, err
	}
	idx := gjson.GetBytes(raw, "light")
	if !idx.Exists() {
		return 0, false, nil
	}
	return int(idx.Int()), true, nil
}
