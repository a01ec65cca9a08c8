package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lorikeet/internal/imageinfo"
)

func TestLRUCapacityBound(t *testing.T) {
	l := newLRU(3)
	for i := 0; i < 10; i++ {
		l.Put(fmt.Sprintf("k%d", i), imageinfo.New("id", 100, 100), time.Now())
		assert.LessOrEqual(t, l.Len(), 3)
	}
	assert.Equal(t, 3, l.Len())
}

func TestLRUEvictsOldestFirst(t *testing.T) {
	l := newLRU(2)
	now := time.Now()
	l.Put("a", imageinfo.New("a", 1, 1), now)
	l.Put("b", imageinfo.New("b", 1, 1), now)
	l.Put("c", imageinfo.New("c", 1, 1), now)

	_, _, ok := l.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, _, ok = l.Get("b")
	assert.True(t, ok)
	_, _, ok = l.Get("c")
	assert.True(t, ok)
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	l := newLRU(2)
	now := time.Now()
	l.Put("a", imageinfo.New("a", 1, 1), now)
	l.Put("b", imageinfo.New("b", 1, 1), now)

	// Touch a so b becomes the eviction candidate.
	_, _, ok := l.Get("a")
	require.True(t, ok)

	l.Put("c", imageinfo.New("c", 1, 1), now)

	_, _, ok = l.Get("b")
	assert.False(t, ok)
	_, _, ok = l.Get("a")
	assert.True(t, ok)
}

func TestLRUPutUpdatesExisting(t *testing.T) {
	l := newLRU(2)
	first := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	l.Put("a", imageinfo.New("a", 100, 100), first)
	l.Put("a", imageinfo.New("a", 200, 200), second)

	info, lastMod, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, 200, info.Width)
	assert.Equal(t, second, lastMod)
	assert.Equal(t, 1, l.Len())
}

func TestLRURemove(t *testing.T) {
	l := newLRU(2)
	l.Put("a", imageinfo.New("a", 1, 1), time.Now())

	assert.True(t, l.Remove("a"))
	assert.False(t, l.Remove("a"))
	assert.Equal(t, 0, l.Len())
}

func TestLRUConcurrentAccess(t *testing.T) {
	l := newLRU(16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%32)
				l.Put(key, imageinfo.New(key, i, i), time.Now())
				l.Get(key)
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, l.Len(), 16)
}
