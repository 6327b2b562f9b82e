package viewer

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/Faultbox/castleview/internal/assets"
	"github.com/Faultbox/castleview/internal/config"
	"github.com/Faultbox/castleview/internal/loader"
	"github.com/Faultbox/castleview/pkg/formats"
	"github.com/Faultbox/castleview/pkg/math"
)

func rsmFile(t *testing.T, rsm *formats.RSM) []byte {
	t.Helper()
	data, err := rsm.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return data
}

// bodyModel is a one-node model whose node shares the file's name.
func bodyModel() *formats.RSM {
	return &formats.RSM{
		Version:  formats.RSMVersion{Major: 1, Minor: 5},
		Shading:  formats.RSMShadingSmooth,
		Alpha:    1,
		RootNode: "body",
		Nodes: []formats.RSMNode{{
			Name:     "body",
			Matrix:   [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
			Scale:    [3]float32{1, 1, 1},
			Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}},
			Faces:    []formats.RSMFace{{VertexIDs: [3]uint16{0, 1, 2}}},
		}},
	}
}

// swayClip turns body half a turn and stretches it over one second. The
// clip file carries its own static scale, which must not leak into the base.
func swayClip() *formats.RSM {
	return &formats.RSM{
		Version:    formats.RSMVersion{Major: 1, Minor: 5},
		AnimLength: 1000,
		Shading:    formats.RSMShadingSmooth,
		Alpha:      1,
		RootNode:   "body",
		Nodes: []formats.RSMNode{{
			Name:   "body",
			Matrix: [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
			Scale:  [3]float32{3, 3, 3},
			RotKeys: []formats.RSMRotKeyframe{
				{Frame: 0, Quaternion: [4]float32{0, 0, 0, 1}},
				{Frame: 1000, Quaternion: [4]float32{0, 1, 0, 0}},
			},
			ScaleKeys: []formats.RSMScaleKeyframe{
				{Frame: 0, Scale: [3]float32{1, 1, 1}},
				{Frame: 1000, Scale: [3]float32{1, 2, 1}},
			},
		}},
	}
}

func TestLoadAssetsEndToEnd(t *testing.T) {
	files := fstest.MapFS{
		"models/body.rsm": {Data: rsmFile(t, bodyModel())},
		"models/sway.rsm": {Data: rsmFile(t, swayClip())},
	}
	manager := assets.NewManager()
	manager.AddFS(files)
	defer manager.Close()

	cfgAssets := config.AssetsConfig{
		Characters: []config.CharacterConfig{{
			ID:       "body",
			Model:    "models/body.rsm",
			Clip:     "models/sway.rsm",
			Scale:    0.005,
			Position: [3]float32{3, -0.67, 0},
		}},
	}
	st := testState(t, cfgAssets)
	q := NewQueue(DefaultQueueSize)
	ld := loader.New(manager, q)

	LoadAssets(context.Background(), st, ld, cfgAssets)

	// base load, then the clip load its handler starts
	ld.Wait()
	q.Drain()
	ld.Wait()
	q.Drain()

	c, _ := st.Registry.Get("body")
	if !c.Ready || c.Phase != PhaseReady {
		t.Fatalf("character = %s ready=%v err=%v, want ready", c.Phase, c.Ready, c.Err)
	}
	if !st.Graph.Contains(c.Root) {
		t.Fatal("base model not in the scene")
	}
	if len(c.Root.Children()) != 1 {
		t.Fatalf("wrapper has %d children, want 1", len(c.Root.Children()))
	}
	body := c.Root.Children()[0]
	if body.Rotation != math.QuatIdentity() {
		t.Fatalf("body starts rotated: %+v", body.Rotation)
	}

	st.Scheduler.Step(0.5)

	// a quarter turn about Y and half the stretch
	if !approx(body.Rotation.Y, 0.7071) || !approx(body.Rotation.W, 0.7071) {
		t.Errorf("body rotation after its turn = %+v, want 90 degrees about Y", body.Rotation)
	}
	if !approx(body.Scale.Y, 1.5) || !approx(body.Scale.X, 1) {
		t.Errorf("body scale = %+v, want (1,1.5,1)", body.Scale)
	}
	if c.Root.Scale != math.Splat(0.005) {
		t.Errorf("root scale = %+v, want configured 0.005", c.Root.Scale)
	}
	if c.Root.Position != (math.Vec3{X: 3, Y: -0.67}) {
		t.Errorf("root position = %+v, want configured placement", c.Root.Position)
	}
	if c.Root.Rotation != math.QuatIdentity() {
		t.Errorf("root rotation = %+v, want untouched", c.Root.Rotation)
	}
}
