package rmi

import (
	"container/list"
	"reflect"
	"sync"
)

// descriptorCache memoizes FindIn lookups against a single interface type so
// a busy skeleton does not re-walk reflect.Type.Method on every dispatched
// call. Bounded LRU eviction, grounded on the teacher's weighted LRU object
// cache (internal/cache/lru.go) — reduced here to the one piece of that
// cache family with a genuine attachment point in this domain: caching a
// cheap-to-recompute-but-hot lookup, not file content.
type descriptorCache struct {
	mu        sync.Mutex
	capacity  int
	items     map[string]*list.Element
	evictList *list.List
}

type cacheEntry struct {
	key    string
	method reflect.Method
	found  bool
}

func newDescriptorCache(capacity int) *descriptorCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &descriptorCache{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
	}
}

func (c *descriptorCache) get(key string) (reflect.Method, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return reflect.Method{}, false, false
	}
	c.evictList.MoveToFront(el)
	entry := el.Value.(*cacheEntry)
	return entry.method, entry.found, true
}

func (c *descriptorCache) put(key string, method reflect.Method, found bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.evictList.MoveToFront(el)
		el.Value.(*cacheEntry).method = method
		el.Value.(*cacheEntry).found = found
		return
	}

	el := c.evictList.PushFront(&cacheEntry{key: key, method: method, found: found})
	c.items[key] = el

	for c.evictList.Len() > c.capacity {
		oldest := c.evictList.Back()
		if oldest == nil {
			break
		}
		c.evictList.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

// findInCached resolves d against ifaceType, consulting (and populating) the
// cache first.
func findInCached(cache *descriptorCache, ifaceType reflect.Type, d Descriptor) (reflect.Method, bool) {
	key := ifaceType.String() + "#" + d.String()

	if method, found, ok := cache.get(key); ok {
		return method, found
	}

	method, found := FindIn(ifaceType, d)
	cache.put(key, method, found)
	return method, found
}
