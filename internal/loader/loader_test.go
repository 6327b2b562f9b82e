package loader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/Faultbox/castleview/internal/assets"
	"github.com/Faultbox/castleview/pkg/formats"
)

// queuePoster records posted callbacks so the test can run them in order,
// the way the render loop drains its queue.
type queuePoster struct {
	mu  sync.Mutex
	fns []func()
}

func (p *queuePoster) Post(ctx context.Context, fn func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fns = append(p.fns, fn)
	return true
}

func (p *queuePoster) drain() int {
	p.mu.Lock()
	fns := p.fns
	p.fns = nil
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

func testRSM() *formats.RSM {
	return &formats.RSM{
		Version:    formats.RSMVersion{Major: 1, Minor: 5},
		AnimLength: 1000,
		Shading:    formats.RSMShadingSmooth,
		Alpha:      1,
		RootNode:   "body",
		Nodes: []formats.RSMNode{
			{
				Name:     "body",
				Matrix:   [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
				Offset:   [3]float32{0, 1, 0},
				Scale:    [3]float32{2, 2, 2},
				Vertices: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}},
				Faces:    []formats.RSMFace{{VertexIDs: [3]uint16{0, 1, 2}, TwoSide: 1}},
				RotKeys: []formats.RSMRotKeyframe{
					{Frame: 0, Quaternion: [4]float32{0, 0, 0, 1}},
					{Frame: 1000, Quaternion: [4]float32{0, 1, 0, 0}},
				},
				ScaleKeys: []formats.RSMScaleKeyframe{
					{Frame: 0, Scale: [3]float32{1, 1, 1}},
					{Frame: 500, Scale: [3]float32{1, 3, 1}},
				},
			},
			{
				Name:     "head",
				Parent:   "body",
				Matrix:   [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1},
				Position: [3]float32{0, 4, 0},
				RotAngle: 1.5707964,
				RotAxis:  [3]float32{0, 2, 0},
				Scale:    [3]float32{1, 1, 1},
			},
		},
	}
}

func rsmBytes(t *testing.T, rsm *formats.RSM) []byte {
	t.Helper()
	data, err := rsm.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	return data
}

func newTestLoader(t *testing.T, files fstest.MapFS) (*Loader, *queuePoster) {
	t.Helper()
	m := assets.NewManager()
	m.AddFS(files)
	p := &queuePoster{}
	return New(m, p), p
}

type outcome struct {
	progress []Progress
	result   *Result
	err      error
	order    []string
}

func (o *outcome) handlers() Handlers {
	return Handlers{
		OnLoad: func(r *Result) {
			o.result = r
			o.order = append(o.order, "load")
		},
		OnProgress: func(p Progress) {
			o.progress = append(o.progress, p)
			o.order = append(o.order, "progress")
		},
		OnError: func(err error) {
			o.err = err
			o.order = append(o.order, "error")
		},
	}
}

func runLoad(t *testing.T, l *Loader, p *queuePoster, path string) *outcome {
	t.Helper()
	o := &outcome{}
	l.Load(context.Background(), path, o.handlers())
	l.Wait()
	p.drain()
	return o
}

func TestLoadRSM(t *testing.T) {
	l, p := newTestLoader(t, fstest.MapFS{"models/Mutant.rsm": {Data: rsmBytes(t, testRSM())}})

	o := runLoad(t, l, p, "models/Mutant.rsm")
	if o.err != nil {
		t.Fatalf("unexpected error: %v", o.err)
	}
	if o.result == nil {
		t.Fatal("OnLoad not called")
	}
	if o.result.Path != "models/Mutant.rsm" || o.result.Root.Name != "Mutant" {
		t.Errorf("result = %q root %q", o.result.Path, o.result.Root.Name)
	}
	if len(o.result.Clips) != 1 || o.result.Clips[0].Duration != 1 {
		t.Errorf("clips = %+v", o.result.Clips)
	}

	if len(o.progress) == 0 {
		t.Error("expected at least one progress event")
	}
	if last := o.order[len(o.order)-1]; last != "load" {
		t.Errorf("terminal callback = %s, want load (order %v)", last, o.order)
	}
}

func TestLoadFailures(t *testing.T) {
	files := fstest.MapFS{
		"broken.rsm": {Data: []byte("XXXXnot an rsm")},
		"scene.fbx":  {Data: []byte("fbx")},
	}

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"unsupported extension", "scene.fbx", ErrUnsupportedFormat},
		{"missing file", "models/missing.rsm", assets.ErrNotFound},
		{"corrupt file", "broken.rsm", formats.ErrInvalidRSMMagic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, p := newTestLoader(t, files)
			o := runLoad(t, l, p, tt.path)

			if o.result != nil {
				t.Error("OnLoad must not fire on failure")
			}
			var le *LoadError
			if !errors.As(o.err, &le) {
				t.Fatalf("error %v is not a *LoadError", o.err)
			}
			if le.Path != tt.path {
				t.Errorf("LoadError.Path = %q, want %q", le.Path, tt.path)
			}
			if !errors.Is(o.err, tt.wantErr) {
				t.Errorf("error = %v, want %v", o.err, tt.wantErr)
			}
			if n := len(o.order); n == 0 || o.order[n-1] != "error" {
				t.Errorf("order = %v, want error last", o.order)
			}
		})
	}
}

func TestLoadWithNilHandlers(t *testing.T) {
	l, p := newTestLoader(t, fstest.MapFS{"a.rsm": {Data: rsmBytes(t, testRSM())}})

	l.Load(context.Background(), "a.rsm", Handlers{})
	l.Load(context.Background(), "b.rsm", Handlers{})
	l.Wait()
	if n := p.drain(); n != 0 {
		t.Errorf("posted %d callbacks with no handlers set", n)
	}
}

func TestFormatFor(t *testing.T) {
	l := New(nil, nil)

	for path, want := range map[string]string{
		"a.rsm":        "rsm",
		"B.RSM":        "rsm",
		"castle.glb":   "gltf",
		"castle.gltf":  "gltf",
		"dir.v2/x.GLB": "gltf",
	} {
		f, err := l.FormatFor(path)
		if err != nil {
			t.Errorf("FormatFor(%q): %v", path, err)
			continue
		}
		if f.Name() != want {
			t.Errorf("FormatFor(%q) = %s, want %s", path, f.Name(), want)
		}
	}

	if _, err := l.FormatFor("noext"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("FormatFor(noext) error = %v", err)
	}
}

func TestFirstClip(t *testing.T) {
	if _, err := FirstClip(&Result{Path: "static.rsm"}); !errors.Is(err, ErrNoClips) {
		t.Errorf("FirstClip error = %v, want ErrNoClips", err)
	}

	res, err := RSMFormat{}.Decode("idle.rsm", rsmBytes(t, testRSM()))
	if err != nil {
		t.Fatal(err)
	}
	clip, err := FirstClip(res)
	if err != nil || clip.Name != "idle" {
		t.Errorf("FirstClip = %v, %v", clip, err)
	}
}
