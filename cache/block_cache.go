// Package cache implements a bounded, single-flight block cache. A
// miss on a key is serviced by exactly one loader call; any other
// goroutine requesting the same block while that load is in flight
// waits on it rather than issuing a second read.
package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/arvidw/lsmkv/block"
)

type entry struct {
	key Key
	blk *block.Block
}

type call struct {
	wg  sync.WaitGroup
	blk *block.Block
	err error
}

// BlockCache is an LRU cache of decoded blocks, safe for concurrent
// use from many readers.
type BlockCache struct {
	mu       sync.Mutex
	capacity int
	items    map[Key]*list.Element
	order    *list.List
	inflight map[Key]*call

	hits, misses int64
}

// New creates a BlockCache holding up to capacity blocks. A capacity
// of 0 disables eviction bookkeeping but still coalesces concurrent
// misses.
func New(capacity int) *BlockCache {
	return &BlockCache{
		capacity: capacity,
		items:    make(map[Key]*list.Element),
		order:    list.New(),
		inflight: make(map[Key]*call),
	}
}

// GetOrLoad returns the cached block for key, calling load at most
// once per concurrent burst of misses. A failed load is not cached:
// the next caller retries it.
func (c *BlockCache) GetOrLoad(key Key, load func() (*block.Block, error)) (*block.Block, error) {
	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		atomic.AddInt64(&c.hits, 1)
		blk := elem.Value.(*entry).blk
		c.mu.Unlock()
		return blk, nil
	}
	if inFlight, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		inFlight.wg.Wait()
		return inFlight.blk, inFlight.err
	}

	cl := &call{}
	cl.wg.Add(1)
	c.inflight[key] = cl
	atomic.AddInt64(&c.misses, 1)
	c.mu.Unlock()

	blk, err := load()
	cl.blk, cl.err = blk, err
	cl.wg.Done()

	c.mu.Lock()
	delete(c.inflight, key)
	if err == nil {
		elem := c.order.PushFront(&entry{key: key, blk: blk})
		c.items[key] = elem
		c.evictLocked()
	}
	c.mu.Unlock()

	return blk, err
}

func (c *BlockCache) evictLocked() {
	if c.capacity <= 0 {
		return
	}
	for c.order.Len() > c.capacity {
		back := c.order.Back()
		if back == nil {
			return
		}
		c.order.Remove(back)
		delete(c.items, back.Value.(*entry).key)
	}
}

// Stats reports cumulative hit and miss counts.
func (c *BlockCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Len reports the number of blocks currently resident.
func (c *BlockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
