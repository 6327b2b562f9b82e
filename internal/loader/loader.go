// Package loader reads model files in the background and turns them into
// scene nodes and animation clips.
//
// Loads run on their own goroutine. Every callback is handed to a Poster so
// the owner (the render loop) runs it on its own thread.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/castleview/internal/assets"
	"github.com/Faultbox/castleview/internal/engine/anim"
	"github.com/Faultbox/castleview/internal/engine/scene"
	"github.com/Faultbox/castleview/internal/logger"
)

// Loader errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	ErrNoClips           = errors.New("asset contains no animation clips")
)

// LoadError reports a failed load. Every error passed to OnError is a *LoadError.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Progress is a byte count reported while a file is read.
type Progress struct {
	Loaded int64
	Total  int64
}

// Result is a decoded asset.
type Result struct {
	Path  string
	Root  *scene.Node
	Clips []*anim.Clip
}

// Handlers receive the outcome of a load. Any of them may be nil.
// OnProgress fires zero or more times; then exactly one of OnLoad or OnError.
type Handlers struct {
	OnLoad     func(*Result)
	OnProgress func(Progress)
	OnError    func(error)
}

// Format decodes one file type.
type Format interface {
	Name() string
	Extensions() []string
	Decode(path string, data []byte) (*Result, error)
}

// Fetcher reads asset bytes, reporting progress as it goes.
type Fetcher interface {
	Fetch(ctx context.Context, path string, onProgress assets.ProgressFunc) ([]byte, error)
}

// Poster runs fn on the owner's thread. It returns false if fn was dropped
// because ctx ended first.
type Poster interface {
	Post(ctx context.Context, fn func()) bool
}

// Loader dispatches loads to the Format registered for the file extension.
type Loader struct {
	fetcher Fetcher
	poster  Poster

	mu      sync.RWMutex
	formats map[string]Format

	wg sync.WaitGroup
}

// New creates a loader. With no formats given, RSM and glTF are registered.
func New(fetcher Fetcher, poster Poster, formats ...Format) *Loader {
	l := &Loader{
		fetcher: fetcher,
		poster:  poster,
		formats: make(map[string]Format),
	}
	if len(formats) == 0 {
		formats = []Format{RSMFormat{}, GLTFFormat{}}
	}
	for _, f := range formats {
		l.Register(f)
	}
	return l
}

// Register adds or replaces the format for each of f's extensions.
func (l *Loader) Register(f Format) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ext := range f.Extensions() {
		l.formats[strings.ToLower(ext)] = f
	}
}

// FormatFor returns the format registered for path's extension.
func (l *Loader) FormatFor(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	l.mu.RLock()
	f, ok := l.formats[ext]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// Load starts loading path and returns immediately.
func (l *Loader) Load(ctx context.Context, path string, h Handlers) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		onProgress := func(loaded, total int64) {
			if h.OnProgress == nil {
				return
			}
			p := Progress{Loaded: loaded, Total: total}
			l.poster.Post(ctx, func() { h.OnProgress(p) })
		}

		res, err := l.load(ctx, path, onProgress)
		if err != nil {
			if h.OnError != nil {
				l.poster.Post(ctx, func() { h.OnError(err) })
			}
			return
		}
		if h.OnLoad != nil {
			l.poster.Post(ctx, func() { h.OnLoad(res) })
		}
	}()
}

// LoadSync loads path on the calling goroutine.
func (l *Loader) LoadSync(ctx context.Context, path string) (*Result, error) {
	return l.load(ctx, path, nil)
}

func (l *Loader) load(ctx context.Context, path string, onProgress assets.ProgressFunc) (*Result, error) {
	f, err := l.FormatFor(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	data, err := l.fetcher.Fetch(ctx, path, onProgress)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	res, err := f.Decode(path, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%s: %w", f.Name(), err)}
	}
	res.Path = path

	logger.Debug("asset decoded",
		zap.String("path", path),
		zap.String("format", f.Name()),
		zap.Int("clips", len(res.Clips)))
	return res, nil
}

// Wait blocks until every started load has finished posting its callbacks.
func (l *Loader) Wait() {
	l.wg.Wait()
}

// FirstClip returns the first clip of res, or a *LoadError wrapping ErrNoClips.
func FirstClip(res *Result) (*anim.Clip, error) {
	if len(res.Clips) == 0 {
		return nil, &LoadError{Path: res.Path, Err: ErrNoClips}
	}
	return res.Clips[0], nil
}
