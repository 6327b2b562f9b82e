package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/pkg/math"
)

// triangleBuffer returns a data URI holding three VEC3 positions followed
// by three uint32 indices.
func triangleBuffer(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	positions := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	indices := []uint32{0, 1, 2}
	if err := binary.Write(&buf, binary.LittleEndian, positions); err != nil {
		t.Fatal(err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, indices); err != nil {
		t.Fatal(err)
	}
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func castleDoc(t *testing.T, lightType string) []byte {
	t.Helper()
	doc := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "extensionsUsed": ["KHR_lights_punctual"],
  "extensions": {
    "KHR_lights_punctual": {
      "lights": [
        {"type": %q, "color": [1, 0.5, 0.25], "intensity": 3, "range": 20, "spot": {"innerConeAngle": 0.2}}
      ]
    }
  },
  "scene": 0,
  "scenes": [{"nodes": [0, 2]}],
  "nodes": [
    {"name": "keep", "mesh": 0, "translation": [1, 2, 3], "children": [1]},
    {"name": "torch", "translation": [0, 5, 0], "extensions": {"KHR_lights_punctual": {"light": 0}}},
    {"name": "gate", "mesh": 0, "matrix": [2,0,0,0, 0,2,0,0, 0,0,2,0, 7,0,0,1]}
  ],
  "meshes": [{"name": "wall", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1, "material": 0}]}],
  "materials": [{"doubleSided": true, "pbrMetallicRoughness": {"baseColorFactor": [0.5, 0.4, 0.3, 1]}}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3", "min": [0, 0, 0], "max": [1, 1, 0]},
    {"bufferView": 1, "componentType": 5125, "count": 3, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 12}
  ],
  "buffers": [{"byteLength": 48, "uri": %q}]
}`, lightType, triangleBuffer(t))
	return []byte(doc)
}

func TestGLTFDecode(t *testing.T) {
	res, err := GLTFFormat{}.Decode("models/castle.gltf", castleDoc(t, "point"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	root := res.Root
	if root.Name != "castle" || len(root.Children()) != 2 {
		t.Fatalf("root %q with %d children", root.Name, len(root.Children()))
	}
	if len(res.Clips) != 0 {
		t.Error("static scene should have no clips")
	}

	keep := root.Find("keep")
	if keep == nil || keep.Mesh == nil {
		t.Fatal("keep mesh missing")
	}
	if !nearVec(keep.Position, math.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("keep position = %+v", keep.Position)
	}
	if keep.Mesh.TriangleCount() != 1 || !keep.Mesh.DoubleSided {
		t.Errorf("mesh = %d tris, doubleSided %v", keep.Mesh.TriangleCount(), keep.Mesh.DoubleSided)
	}
	if keep.Mesh.BaseColor != [4]float32{0.5, 0.4, 0.3, 1} {
		t.Errorf("base color = %v", keep.Mesh.BaseColor)
	}
	if !nearVec(math.V3(keep.Mesh.Normals[0]), math.Vec3{Z: 1}) {
		t.Errorf("computed normal = %v, want +Z", keep.Mesh.Normals[0])
	}

	gate := root.Find("gate")
	if gate == nil || gate.Matrix == nil {
		t.Fatal("gate should keep its matrix")
	}
	if gate.Mesh != keep.Mesh {
		t.Error("nodes sharing a glTF mesh should share the scene mesh")
	}
	if got := gate.LocalMatrix().TransformPoint([3]float32{1, 0, 0}); got != [3]float32{9, 0, 0} {
		t.Errorf("gate transform = %v", got)
	}

	torch := root.Find("torch")
	if torch == nil || torch.Light == nil || torch.Parent() != keep {
		t.Fatal("torch light should be a child of keep")
	}
	l := torch.Light
	if l.Kind != scene.PointLight || l.Intensity != 3 || l.Range != 20 || l.Color != [3]float32{1, 0.5, 0.25} {
		t.Errorf("light = %+v", l)
	}
}

func TestGLTFSpotLight(t *testing.T) {
	res, err := GLTFFormat{}.Decode("spot.gltf", castleDoc(t, "spot"))
	if err != nil {
		t.Fatal(err)
	}
	l := res.Root.Find("torch").Light
	if l.Kind != scene.SpotLight || !near(l.InnerCone, 0.2) || !near(l.OuterCone, 0.7853982) {
		t.Errorf("spot light = %+v", l)
	}
}

func TestGLTFDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantSub string
	}{
		{"not json", []byte("{{{"), "decoding document"},
		{"bad light type", castleDoc(t, "laser"), "unknown light type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GLTFFormat{}.Decode("x.gltf", tt.data)
			if err == nil || !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantSub)
			}
		})
	}
}

func TestGLTFLightsShareNothing(t *testing.T) {
	res, err := GLTFFormat{}.Decode("a.gltf", castleDoc(t, "point"))
	if err != nil {
		t.Fatal(err)
	}
	res.Root.Find("torch").Light.Shadow.Bias = -0.003

	again, err := GLTFFormat{}.Decode("a.gltf", castleDoc(t, "point"))
	if err != nil {
		t.Fatal(err)
	}
	if again.Root.Find("torch").Light.Shadow.Bias != 0 {
		t.Error("decoded lights must be independent")
	}
}

func TestLoaderWrapsGLTFErrors(t *testing.T) {
	_, err := GLTFFormat{}.Decode("x.glb", []byte("glTF\x02"))
	if err == nil {
		t.Fatal("expected error for truncated glb")
	}
	le := &LoadError{Path: "x.glb", Err: err}
	if !errors.Is(le, err) {
		t.Error("LoadError should unwrap to the decode error")
	}
}
