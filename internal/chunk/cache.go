package chunk

import (
	"container/list"
)

// Cache is a bounded set of open read-only chunk handles keyed by start
// index, with least-recently-used eviction. It uniquely owns every handle
// it holds: eviction closes the handle.
type Cache struct {
	bound int
	ll    *list.List
	files map[uint64]*list.Element
}

type cacheEntry struct {
	start uint64
	file  *File
}

// NewCache returns a cache holding at most bound open handles.
func NewCache(bound int) *Cache {
	return &Cache{
		bound: bound,
		ll:    list.New(),
		files: make(map[uint64]*list.Element),
	}
}

// GetOrOpen returns the cached handle for the chunk starting at start,
// opening path on a miss. When the cache is full, the least-recently-used
// handle is closed before insertion. The second result reports a cache hit.
func (c *Cache) GetOrOpen(start uint64, path string) (*File, bool, error) {
	if ele, ok := c.files[start]; ok {
		c.ll.MoveToFront(ele)
		return ele.Value.(*cacheEntry).file, true, nil
	}

	f, err := Open(path)
	if err != nil {
		return nil, false, err
	}

	if c.ll.Len() >= c.bound {
		c.evictOldest()
	}
	c.files[start] = c.ll.PushFront(&cacheEntry{start: start, file: f})

	return f, false, nil
}

// Remove closes and drops the handle for the chunk starting at start, if
// cached.
func (c *Cache) Remove(start uint64) {
	ele, ok := c.files[start]
	if !ok {
		return
	}
	c.ll.Remove(ele)
	delete(c.files, start)
	_ = ele.Value.(*cacheEntry).file.Close()
}

// Len returns the number of open handles held by the cache.
func (c *Cache) Len() int {
	return c.ll.Len()
}

// Close releases every handle.
func (c *Cache) Close() {
	for c.ll.Len() > 0 {
		c.evictOldest()
	}
}

func (c *Cache) evictOldest() {
	ele := c.ll.Back()
	if ele == nil {
		return
	}
	c.ll.Remove(ele)
	ent := ele.Value.(*cacheEntry)
	delete(c.files, ent.start)
	_ = ent.file.Close()
}
