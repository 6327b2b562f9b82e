// Package assets handles asset file loading and caching.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"github.com/Faultbox/castleview/pkg/grf"
)

// ChunkSize is the read size between progress reports.
const ChunkSize = 64 * 1024

// Asset errors.
var (
	ErrNotFound    = errors.New("asset not found")
	ErrInvalidPath = errors.New("invalid asset path")
)

// ProgressFunc receives the bytes read so far and the file size.
type ProgressFunc func(loaded, total int64)

// Manager handles asset loading from one or more source trees.
type Manager struct {
	sources  []fs.FS
	archives []*grf.Archive
	cache    *Cache
	mu       sync.RWMutex
}

// NewManager creates a new asset manager with no sources.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a directory on disk as a source.
// Sources are searched in reverse order (last added = highest priority).
func (m *Manager) AddDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening asset dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening asset dir %s: not a directory", dir)
	}
	m.AddFS(os.DirFS(dir))
	return nil
}

// AddArchive opens a GRF archive and adds it as a source. When root is
// not empty, asset names resolve below that archive directory, so a root
// of "data" serves "data/model/castle.glb" as "model/castle.glb".
func (m *Manager) AddArchive(path, root string) error {
	archive, err := grf.Open(path)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	var fsys fs.FS = archive
	if root != "" {
		if fsys, err = fs.Sub(archive, root); err != nil {
			archive.Close()
			return fmt.Errorf("archive root %q: %w", root, err)
		}
	}

	m.mu.Lock()
	m.archives = append(m.archives, archive)
	m.sources = append(m.sources, fsys)
	m.mu.Unlock()
	return nil
}

// AddFS adds a file system as a source.
func (m *Manager) AddFS(fsys fs.FS) {
	m.mu.Lock()
	m.sources = append(m.sources, fsys)
	m.mu.Unlock()
}

// Load reads a whole file without progress reporting.
func (m *Manager) Load(name string) ([]byte, error) {
	return m.Fetch(context.Background(), name, nil)
}

// Fetch reads a file in ChunkSize pieces, calling onProgress after each
// piece. Cached files report a single completed progress event.
func (m *Manager) Fetch(ctx context.Context, name string, onProgress ProgressFunc) ([]byte, error) {
	key, err := cleanPath(name)
	if err != nil {
		return nil, err
	}

	if data, ok := m.cache.Get(key); ok {
		if onProgress != nil {
			onProgress(int64(len(data)), int64(len(data)))
		}
		return data, nil
	}

	m.mu.RLock()
	sources := append([]fs.FS(nil), m.sources...)
	m.mu.RUnlock()

	for i := len(sources) - 1; i >= 0; i-- {
		data, err := readChunked(ctx, sources[i], key, onProgress)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", key, err)
		}
		m.cache.Set(key, data)
		return data, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Close drops all sources and cached data and closes opened archives.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	for _, a := range m.archives {
		err = multierr.Append(err, a.Close())
	}
	m.archives = nil
	m.sources = nil
	m.cache.Clear()
	return err
}

// Cache returns the manager's cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

func cleanPath(name string) (string, error) {
	key := path.Clean(filepath.ToSlash(name))
	if !fs.ValidPath(key) || key == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return key, nil
}

func readChunked(ctx context.Context, fsys fs.FS, name string, onProgress ProgressFunc) ([]byte, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fs.ErrNotExist
	}

	total := info.Size()
	data := make([]byte, 0, total)
	buf := make([]byte, ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := f.Read(buf)
		data = append(data, buf[:n]...)
		if n > 0 && onProgress != nil {
			onProgress(int64(len(data)), total)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Cache is a simple in-memory cache for loaded assets.
type Cache struct {
	data map[string][]byte
	mu   sync.Mutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
