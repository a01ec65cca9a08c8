package cache

import (
	"container/list"
	"sync"
	"time"

	"lorikeet/internal/imageinfo"
)

type lruEntry struct {
	key     string
	info    *imageinfo.ImageInfo
	lastMod time.Time
}

// lru is the bounded memory tier of the metadata cache: a map for O(1)
// lookup plus a doubly-linked list for recency order, front = most recent.
// All structural access happens under the mutex; callers never hold it
// across filesystem I/O.
type lru struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

func newLRU(capacity int) *lru {
	if capacity < 1 {
		capacity = 1
	}
	return &lru{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (l *lru) Get(key string) (*imageinfo.ImageInfo, time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.items[key]
	if !ok {
		return nil, time.Time{}, false
	}
	l.order.MoveToFront(elem)
	ent := elem.Value.(*lruEntry)
	return ent.info, ent.lastMod, true
}

func (l *lru) Put(key string, info *imageinfo.ImageInfo, lastMod time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[key]; ok {
		ent := elem.Value.(*lruEntry)
		ent.info = info
		ent.lastMod = lastMod
		l.order.MoveToFront(elem)
		return
	}

	for l.order.Len() >= l.capacity {
		oldest := l.order.Back()
		delete(l.items, oldest.Value.(*lruEntry).key)
		l.order.Remove(oldest)
	}

	l.items[key] = l.order.PushFront(&lruEntry{key: key, info: info, lastMod: lastMod})
}

// Remove reports whether the key was present.
func (l *lru) Remove(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.items[key]
	if !ok {
		return false
	}
	delete(l.items, key)
	l.order.Remove(elem)
	return true
}

func (l *lru) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
