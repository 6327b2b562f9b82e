package loader

import (
	"testing"

	"github.com/Faultbox/castleview/internal/engine/anim"
	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/pkg/formats"
	"github.com/Faultbox/castleview/pkg/math"
)

func near(a, b float32) bool {
	d := a - b
	return d < 1e-4 && d > -1e-4
}

func nearVec(a, b math.Vec3) bool {
	return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z)
}

func TestBuildRSMTree(t *testing.T) {
	root := BuildRSMTree("Mutant", testRSM())

	if root.Name != "Mutant" || len(root.Children()) != 1 {
		t.Fatalf("root %q has %d children, want wrapper with one", root.Name, len(root.Children()))
	}
	body := root.Children()[0]
	if body.Name != "body" || body.Mesh == nil {
		t.Fatalf("body = %q mesh %v", body.Name, body.Mesh)
	}

	// offset is baked into the vertices, not the node transform
	if got := body.Mesh.Positions[0]; got != [3]float32{0, 1, 0} {
		t.Errorf("baked vertex = %v, want (0,1,0)", got)
	}
	if body.Position != (math.Vec3{}) {
		t.Errorf("body position = %+v, want origin", body.Position)
	}
	if !body.Mesh.DoubleSided || !body.CastShadow || !body.ReceiveShadow {
		t.Error("two-sided face and shadow flags not carried over")
	}

	head := root.Find("head")
	if head == nil || head.Parent() != body {
		t.Fatal("head should be a child of body")
	}
	if head.Mesh != nil {
		t.Error("node without faces should have no mesh")
	}
	// 90 degrees about Y from a non-normalized axis
	got := math.V3(head.LocalMatrix().TransformDirection([3]float32{1, 0, 0}))
	if !nearVec(got, math.Vec3{Z: -1}) {
		t.Errorf("head rotation maps +X to %+v, want -Z", got)
	}
}

func TestBuildRSMTreeOrphanAndCycle(t *testing.T) {
	rsm := &formats.RSM{Nodes: []formats.RSMNode{
		{Name: "lost", Parent: "nowhere", Scale: [3]float32{1, 1, 1}},
		{Name: "a", Parent: "b", Scale: [3]float32{1, 1, 1}},
		{Name: "b", Parent: "a", Scale: [3]float32{1, 1, 1}},
	}}

	root := BuildRSMTree("odd", rsm)
	count := 0
	root.Traverse(func(*scene.Node) { count++ })
	if count != 4 {
		t.Errorf("got %d nodes, want wrapper plus 3", count)
	}
	if n := root.Find("lost"); n == nil || n.Parent() != root {
		t.Error("orphan should hang off the wrapper")
	}
}

func TestRSMClip(t *testing.T) {
	clip := RSMClip("idle", testRSM())

	if clip.Name != "idle" || clip.Duration != 1 {
		t.Errorf("clip %q duration %v", clip.Name, clip.Duration)
	}
	tr := clip.Track("body")
	if tr == nil {
		t.Fatal("missing body track")
	}
	if len(tr.Rotation) != 2 || tr.Rotation[1].Time != 1 {
		t.Errorf("rotation keys = %+v", tr.Rotation)
	}
	// scale keys stay factors on the bound node's scale
	if len(tr.Scale) != 2 || !nearVec(tr.Scale[1].Value, math.Vec3{X: 1, Y: 3, Z: 1}) || !tr.ScaleRelative {
		t.Errorf("scale keys = %+v relative=%v", tr.Scale, tr.ScaleRelative)
	}
	if clip.Track("head") != nil {
		t.Error("node without keys should not have a track")
	}
}

func TestRSMClipDrivesTree(t *testing.T) {
	rsm := testRSM()
	root := BuildRSMTree("m", rsm)
	mixer := anim.NewMixer(root)
	action := mixer.ClipAction(RSMClip("m", rsm)).Play()
	if action.Unbound() != 0 {
		t.Errorf("Unbound() = %d, want 0", action.Unbound())
	}

	mixer.Update(0.5)
	body := root.Find("body")
	if !near(body.Scale.Y, 6) {
		t.Errorf("body scale Y at 0.5s = %v, want 6", body.Scale.Y)
	}
}

func TestRSMClipUsesBaseStaticScale(t *testing.T) {
	base := testRSM()
	root := BuildRSMTree("base", base)

	// the clip file was exported with a different static scale
	clipFile := testRSM()
	clipFile.Nodes[0].Scale = [3]float32{5, 5, 5}

	mixer := anim.NewMixer(root)
	mixer.ClipAction(RSMClip("walk", clipFile)).Play()
	mixer.Update(0.5)

	body := root.Find("body")
	if !nearVec(body.Scale, math.Vec3{X: 2, Y: 6, Z: 2}) {
		t.Errorf("body scale = %+v, want base static scale times key (2,6,2)", body.Scale)
	}
}

func TestRSMDecodeStaticModel(t *testing.T) {
	rsm := testRSM()
	rsm.Nodes[0].RotKeys = rsm.Nodes[0].RotKeys[:1]
	rsm.Nodes[0].ScaleKeys = rsm.Nodes[0].ScaleKeys[:1]

	res, err := RSMFormat{}.Decode("prop.rsm", rsmBytes(t, rsm))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Clips) != 0 {
		t.Errorf("single-pose model yielded %d clips", len(res.Clips))
	}
}

func TestRSMFlatShadingUnwelds(t *testing.T) {
	rsm := testRSM()
	rsm.Shading = formats.RSMShadingFlat
	rsm.Nodes[0].Vertices = append(rsm.Nodes[0].Vertices, [3]float32{1, 0, 1})
	rsm.Nodes[0].Faces = append(rsm.Nodes[0].Faces, formats.RSMFace{VertexIDs: [3]uint16{1, 3, 2}})

	root := BuildRSMTree("flat", rsm)
	mesh := root.Find("body").Mesh
	if mesh.VertexCount() != 6 || mesh.TriangleCount() != 2 {
		t.Errorf("flat mesh has %d verts, %d tris; want 6, 2", mesh.VertexCount(), mesh.TriangleCount())
	}
}
