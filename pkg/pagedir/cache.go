package pagedir

import (
	"sync"

	"heapdb/pkg/page"
)

// pageCache is a directory's resident data-page cache: once a page is
// loaded it stays cached for the directory's lifetime. There is no
// eviction — a buffer pool with eviction is explicitly out of scope for
// this engine.
type pageCache struct {
	mu    sync.Mutex
	pages map[uint32]*page.Page
}

func newPageCache() *pageCache {
	return &pageCache{pages: make(map[uint32]*page.Page)}
}

func (c *pageCache) get(number uint32) (*page.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pg, ok := c.pages[number]
	return pg, ok
}

func (c *pageCache) put(number uint32, pg *page.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[number] = pg
}

// all returns a snapshot copy of the cache's contents.
func (c *pageCache) all() map[uint32]*page.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uint32]*page.Page, len(c.pages))
	for k, v := range c.pages {
		out[k] = v
	}
	return out
}
