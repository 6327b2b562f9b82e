package assets

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/Faultbox/castleview/pkg/grf"
)

func TestFetchReportsChunkedProgress(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 2*ChunkSize+100)
	m := NewManager()
	m.AddFS(fstest.MapFS{"models/castle.glb": {Data: payload}})

	var events [][2]int64
	data, err := m.Fetch(context.Background(), "models/castle.glb", func(loaded, total int64) {
		events = append(events, [2]int64{loaded, total})
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatal("payload mismatch")
	}

	if len(events) != 3 {
		t.Fatalf("got %d progress events, want 3: %v", len(events), events)
	}
	for i := 1; i < len(events); i++ {
		if events[i][0] <= events[i-1][0] {
			t.Errorf("progress not increasing: %v", events)
		}
	}
	last := events[len(events)-1]
	if last[0] != int64(len(payload)) || last[1] != int64(len(payload)) {
		t.Errorf("last event = %v, want complete", last)
	}
}

func TestFetchCaches(t *testing.T) {
	m := NewManager()
	m.AddFS(fstest.MapFS{"a.rsm": {Data: []byte("GRSM")}})

	if _, err := m.Load("a.rsm"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	calls := 0
	data, err := m.Fetch(context.Background(), "./a.rsm", func(loaded, total int64) {
		calls++
		if loaded != total {
			t.Errorf("cached fetch reported partial progress %d/%d", loaded, total)
		}
	})
	if err != nil || string(data) != "GRSM" {
		t.Fatalf("Fetch = %q, %v", data, err)
	}
	if calls != 1 {
		t.Errorf("cached fetch reported %d progress events, want 1", calls)
	}

	hits, misses := m.Cache().Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses; want 1, 1", hits, misses)
	}
}

func TestFetchSourcePriority(t *testing.T) {
	m := NewManager()
	m.AddFS(fstest.MapFS{
		"idle.rsm":  {Data: []byte("base")},
		"extra.rsm": {Data: []byte("only-base")},
	})
	m.AddFS(fstest.MapFS{"idle.rsm": {Data: []byte("override")}})

	data, err := m.Load("idle.rsm")
	if err != nil || string(data) != "override" {
		t.Errorf("Load(idle.rsm) = %q, %v; want override", data, err)
	}
	data, err = m.Load("extra.rsm")
	if err != nil || string(data) != "only-base" {
		t.Errorf("Load(extra.rsm) = %q, %v; want fallthrough", data, err)
	}
}

func TestFetchErrors(t *testing.T) {
	m := NewManager()
	m.AddFS(fstest.MapFS{"models/a.rsm": {Data: []byte("x")}})

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing", "models/b.rsm", ErrNotFound},
		{"directory", "models", ErrNotFound},
		{"escape", "../secret", ErrInvalidPath},
		{"absolute", "/etc/passwd", ErrInvalidPath},
		{"empty", "", ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Load(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Load(%q) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestFetchCancelled(t *testing.T) {
	m := NewManager()
	m.AddFS(fstest.MapFS{"big.glb": {Data: make([]byte, ChunkSize*4)}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Fetch(ctx, "big.glb", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch error = %v, want context.Canceled", err)
	}
	if _, ok := m.Cache().Get("big.glb"); ok {
		t.Error("cancelled fetch should not be cached")
	}
}

func TestAddDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "models"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "models", "Old Man Idle.rsm"), []byte("clip"), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	if err := m.AddDir(dir); err != nil {
		t.Fatalf("AddDir: %v", err)
	}
	data, err := m.Load("models/Old Man Idle.rsm")
	if err != nil || string(data) != "clip" {
		t.Errorf("Load = %q, %v", data, err)
	}

	if err := m.AddDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing dir")
	}
	if err := m.AddDir(filepath.Join(dir, "models", "Old Man Idle.rsm")); err == nil {
		t.Error("expected error for file path")
	}
}

func TestClose(t *testing.T) {
	m := NewManager()
	m.AddFS(fstest.MapFS{"a": {Data: []byte("x")}})
	if _, err := m.Load("a"); err != nil {
		t.Fatal(err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := m.Load("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after Close error = %v, want ErrNotFound", err)
	}
}

func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	b := grf.NewBuilder()
	for name, data := range files {
		b.Add(name, []byte(data))
	}
	path := filepath.Join(t.TempDir(), "assets.grf")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := b.WriteTo(f); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAddArchive(t *testing.T) {
	path := writeArchive(t, map[string]string{
		"data\\model\\Mutant.rsm":  "packed mutant",
		"data\\model\\castle.glb":  "packed castle",
		"data\\texture\\stone.bmp": "BM",
	})

	tests := []struct {
		name string
		root string
		path string
		want string
	}{
		{"root", "", "data/model/castle.glb", "packed castle"},
		{"sub", "data", "model/castle.glb", "packed castle"},
		{"case-insensitive", "data", "model/Mutant.rsm", "packed mutant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			defer m.Close()
			if err := m.AddArchive(path, tt.root); err != nil {
				t.Fatalf("AddArchive: %v", err)
			}
			data, err := m.Load(tt.path)
			if err != nil || string(data) != tt.want {
				t.Errorf("Load(%q) = %q, %v; want %q", tt.path, data, err, tt.want)
			}
		})
	}
}

func TestArchiveBelowDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "model"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "model", "castle.glb"), []byte("loose castle"), 0644); err != nil {
		t.Fatal(err)
	}
	path := writeArchive(t, map[string]string{
		"data/model/castle.glb": "packed castle",
		"data/model/Idle.rsm":   "packed idle",
	})

	m := NewManager()
	defer m.Close()
	if err := m.AddArchive(path, "data"); err != nil {
		t.Fatal(err)
	}
	if err := m.AddDir(dir); err != nil {
		t.Fatal(err)
	}

	// the loose directory was added last and wins
	if data, _ := m.Load("model/castle.glb"); string(data) != "loose castle" {
		t.Errorf("castle = %q, want loose copy", data)
	}
	if data, _ := m.Load("model/Idle.rsm"); string(data) != "packed idle" {
		t.Errorf("idle = %q, want archive copy", data)
	}
}

func TestAddArchiveErrors(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "bogus.grf")
	if err := os.WriteFile(bogus, bytes.Repeat([]byte{0}, 64), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManager()
	defer m.Close()
	if err := m.AddArchive(filepath.Join(dir, "missing.grf"), ""); err == nil {
		t.Error("expected error for missing archive")
	}
	if err := m.AddArchive(bogus, ""); !errors.Is(err, grf.ErrInvalidMagic) {
		t.Errorf("err = %v, want ErrInvalidMagic", err)
	}
	if err := m.AddArchive(writeArchive(t, nil), "../up"); err == nil {
		t.Error("expected error for invalid root")
	}
}
