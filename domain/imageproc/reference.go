package imageproc

import (
	"image"
	"sync"

	"github.com/soocke/probe-tracker-go/domain/search"
)

// ReferenceCache keeps the preprocessed reference of the current session.
// Extracted regions are read-only views into the cached pixels.
type ReferenceCache struct {
	mu  sync.RWMutex
	img *image.Gray
}

func NewReferenceCache() *ReferenceCache { return &ReferenceCache{} }

var _ search.ReferenceCache = (*ReferenceCache)(nil)

// Store replaces the cached reference. The cache takes ownership of ref.
func (c *ReferenceCache) Store(ref *image.Gray) {
	c.mu.Lock()
	c.img = ref
	c.mu.Unlock()
}

func (c *ReferenceCache) Clear() { c.Store(nil) }

func (c *ReferenceCache) Bounds() (image.Rectangle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.img == nil {
		return image.Rectangle{}, false
	}
	return c.img.Bounds(), true
}

// Extract returns the reference pixels inside r, clipped to the reference.
func (c *ReferenceCache) Extract(r image.Rectangle) (*image.Gray, error) {
	c.mu.RLock()
	img := c.img
	c.mu.RUnlock()
	if img == nil {
		return nil, search.ErrNoReference
	}
	sub, _, err := ExtractRegion(img, r)
	return sub, err
}
