// Package assets provides the asset-resolution collaborators the
// exporter draws from: a catalog maps an asset id to encoded image
// bytes. The engine itself never stores pixels, only references.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrAssetNotFound is returned when a catalog has no entry for an id.
var ErrAssetNotFound = errors.New("asset not found")

// MemoryCatalog is an in-memory id -> image bytes catalog. Safe for
// concurrent use. Useful for tests and the live host.
type MemoryCatalog struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{data: make(map[string][]byte)}
}

// Add registers (or replaces) an asset. The bytes are not copied.
func (c *MemoryCatalog) Add(id string, img []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[id] = img
}

func (c *MemoryCatalog) Resolve(_ context.Context, id string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	img, ok := c.data[id]
	if !ok {
		return nil, fmt.Errorf("resolve %q: %w", id, ErrAssetNotFound)
	}
	return img, nil
}

// List returns the registered ids, sorted.
func (c *MemoryCatalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.data))
	for id := range c.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DirCatalog resolves asset ids to image files under a root directory,
// probing the common raster extensions.
type DirCatalog struct {
	Root string
}

var probeExtensions = []string{".png", ".jpg", ".jpeg", ".gif"}

func NewDirCatalog(root string) *DirCatalog {
	return &DirCatalog{Root: root}
}

func (c *DirCatalog) Resolve(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Refuse ids that would escape the catalog root.
	if filepath.Base(id) != id {
		return nil, fmt.Errorf("resolve %q: invalid asset id", id)
	}
	for _, ext := range probeExtensions {
		img, err := os.ReadFile(filepath.Join(c.Root, id+ext))
		if err == nil {
			return img, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("resolve %q: %w", id, err)
		}
	}
	// The id may already carry its extension.
	img, err := os.ReadFile(filepath.Join(c.Root, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("resolve %q: %w", id, ErrAssetNotFound)
		}
		return nil, fmt.Errorf("resolve %q: %w", id, err)
	}
	return img, nil
}
