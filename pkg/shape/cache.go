package shape

import "sync"

type Size struct {
	Width, Height float64
}

// LayoutCache holds renderer-measured text sizes keyed by shape id. Shapes
// never carry it; the renderer owns the cache and invalidates entries when
// text changes.
type LayoutCache struct {
	mu    sync.RWMutex
	sizes map[string]Size
}

func NewLayoutCache() *LayoutCache {
	return &LayoutCache{sizes: make(map[string]Size)}
}

func (c *LayoutCache) Get(id string) (Size, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sizes[id]
	return s, ok
}

func (c *LayoutCache) Set(id string, s Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizes[id] = s
}

func (c *LayoutCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sizes, id)
}

func (c *LayoutCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sizes = make(map[string]Size)
}

func (c *LayoutCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sizes)
}
